package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solvent-ai/solvent/pkg/models"
)

// converseOpenAI dispatches to a backend with the flat-message wire shape:
// the full transcript (system entries included) goes in one list, tools ride
// alongside, and tool calls come back keyed by name/arguments.
func (r *Router) converseOpenAI(ctx context.Context, snap routeSnapshot, messages []models.ChatMessage, tools []models.ToolSpec) (models.ConverseResult, error) {
	req := models.OpenAIRequest{
		Model:     snap.model,
		MaxTokens: snap.maxTokens,
	}
	for _, m := range messages {
		om := models.OpenAIMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			otc := models.OpenAIToolCall{ID: tc.ID, Type: "function"}
			otc.Function.Name = tc.Name
			otc.Function.Arguments = string(tc.Arguments)
			om.ToolCalls = append(om.ToolCalls, otc)
		}
		req.Messages = append(req.Messages, om)
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, models.OpenAITool{
			Type: "function",
			Function: models.OpenAIToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.ConverseResult{}, fmt.Errorf("encode request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + snap.profile.APIKey,
	}
	res, err := r.doBackendRequest(ctx, snap.profile.URL, "/v1/chat/completions", headers, body)
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

	var resp models.OpenAIResponse
	if err := json.Unmarshal(res.body, &resp); err != nil {
		return models.ConverseResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.ConverseResult{}, ErrNoCompletion
	}

	choice := resp.Choices[0]
	result := models.ConverseResult{
		Content:           choice.Message.Content,
		TerminationReason: choice.FinishReason,
		Model:             resp.Model,
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolInvocations = append(result.ToolInvocations, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	if resp.Usage != nil {
		result.Usage = normalizeUsage(*resp.Usage)
	}
	if result.Model == "" {
		result.Model = snap.model
	}
	return result, nil
}

// normalizeUsage fills the total when a backend omits it.
func normalizeUsage(u models.Usage) models.Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}
