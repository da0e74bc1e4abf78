package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solvent-ai/solvent/pkg/models"
)

const anthropicVersion = "2023-06-01"

// splitSystem separates a transcript into the concatenated system prompt and
// the remaining messages with roles remapped so only user/assistant remain.
// Every system entry is kept, in order, joined with a newline; no message is
// dropped.
func splitSystem(messages []models.ChatMessage) (string, []models.AnthropicMessage) {
	var systems []string
	var rest []models.AnthropicMessage

	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			systems = append(systems, m.Content)
		case models.RoleAssistant:
			rest = append(rest, models.AnthropicMessage{Role: models.RoleAssistant, Content: m.Content})
		default:
			// user and tool-result entries both travel as user turns
			rest = append(rest, models.AnthropicMessage{Role: models.RoleUser, Content: m.Content})
		}
	}
	return strings.Join(systems, "\n"), rest
}

// converseAnthropic dispatches to a system-prompt-separated backend.
func (r *Router) converseAnthropic(ctx context.Context, snap routeSnapshot, messages []models.ChatMessage, tools []models.ToolSpec) (models.ConverseResult, error) {
	system, transcript := splitSystem(messages)

	req := models.AnthropicRequest{
		Model:     snap.model,
		System:    system,
		Messages:  transcript,
		MaxTokens: snap.maxTokens,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1024
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, models.AnthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.ConverseResult{}, fmt.Errorf("encode request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         snap.profile.APIKey,
		"anthropic-version": anthropicVersion,
	}
	res, err := r.doBackendRequest(ctx, snap.profile.URL, "/v1/messages", headers, body)
	if err != nil {
		return models.ConverseResult{}, err
	}
	if res.statusCode < 200 || res.statusCode > 299 {
		return models.ConverseResult{}, &BackendError{
			Provider: snap.profile.Name,
			Status:   res.statusCode,
			Body:     string(res.body),
		}
	}

	var resp models.AnthropicResponse
	if err := json.Unmarshal(res.body, &resp); err != nil {
		return models.ConverseResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Content) == 0 {
		return models.ConverseResult{}, ErrNoCompletion
	}

	result := models.ConverseResult{
		TerminationReason: resp.StopReason,
		Model:             resp.Model,
	}
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			result.ToolInvocations = append(result.ToolInvocations, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	result.Content = text.String()
	if resp.Usage != nil {
		result.Usage = resp.Usage.ToUsage()
	}
	if result.Model == "" {
		result.Model = snap.model
	}
	return result, nil
}
