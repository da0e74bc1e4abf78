// Package agent runs the survival loop: a bounded sequence of inference
// turns in which the model can inspect its own finances through tools and
// decide to sleep between bursts of activity.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/models"
)

// SleepTool is the tool name that suspends the loop for the configured
// interval instead of producing output.
const SleepTool = "sleep"

const defaultSystemPrompt = "You are an autonomous economic agent. You pay for your own compute " +
	"and earn revenue by selling services. Use your tools to watch your balance and earnings, " +
	"and sleep when there is nothing productive to do."

// Conversor is the inference dependency of the loop.
type Conversor interface {
	Converse(ctx context.Context, messages []models.ChatMessage, opts models.ConverseOptions) (models.ConverseResult, error)
}

// FinanceReader supplies the tier and balance tools.
type FinanceReader interface {
	LastObservation(ctx context.Context) (models.Tier, models.FinancialState, bool, error)
}

// EarningsReader supplies the earnings tool.
type EarningsReader interface {
	Snapshot() models.EarningsSnapshot
}

// Tool is one capability the model may invoke during a turn.
type Tool struct {
	Spec models.ToolSpec
	Run  func(ctx context.Context, args json.RawMessage) (string, error)
}

// Agent drives the loop. Not safe for concurrent Run calls: a conversation
// history is strictly sequential.
type Agent struct {
	conversor Conversor
	tools     map[string]Tool
	specs     []models.ToolSpec

	maxTurns      int
	historyWindow int
	sleepInterval time.Duration

	history []models.ChatMessage

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds an agent with the built-in finance tools registered.
func New(conversor Conversor, finances FinanceReader, earnings EarningsReader, cfg config.AgentConfig) *Agent {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	a := &Agent{
		conversor:     conversor,
		tools:         make(map[string]Tool),
		maxTurns:      cfg.MaxTurns,
		historyWindow: cfg.HistoryWindow,
		sleepInterval: cfg.SleepInterval,
		history:       []models.ChatMessage{{Role: models.RoleSystem, Content: prompt}},
		sleep:         sleepCtx,
	}
	a.register(balanceReportTool(finances))
	a.register(earningsReportTool(earnings))
	a.register(sleepTool())
	return a
}

func (a *Agent) register(t Tool) {
	a.tools[t.Spec.Name] = t
	a.specs = append(a.specs, t.Spec)
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []models.ChatMessage {
	out := make([]models.ChatMessage, len(a.history))
	copy(out, a.history)
	return out
}

// Run executes up to maxTurns inference turns. Tool calls are executed
// synchronously and their results appended before the next turn; a sleep
// call suspends the loop for the configured interval. Cancellation is
// checked between turns only.
func (a *Agent) Run(ctx context.Context, goal string) error {
	a.history = append(a.history, models.ChatMessage{Role: models.RoleUser, Content: goal})

	for turn := 0; turn < a.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := a.conversor.Converse(ctx, a.history, models.ConverseOptions{Tools: a.specs})
		if err != nil {
			return fmt.Errorf("agent turn %d: %w", turn+1, err)
		}

		a.history = append(a.history, models.ChatMessage{
			Role:      models.RoleAssistant,
			Content:   res.Content,
			ToolCalls: res.ToolInvocations,
		})

		shouldSleep := false
		for _, call := range res.ToolInvocations {
			if call.Name == SleepTool {
				shouldSleep = true
			}
			a.history = append(a.history, a.execute(ctx, call))
		}
		a.trimHistory()

		if shouldSleep {
			log.Printf("agent: sleeping for %s", a.sleepInterval)
			a.sleep(ctx, a.sleepInterval)
			continue
		}
		if len(res.ToolInvocations) == 0 {
			// No tools requested: the model is done with this goal.
			return nil
		}
	}
	return nil
}

// execute runs one tool call and shapes the result as a tool message.
// Tool failures feed back into the transcript rather than aborting the loop.
func (a *Agent) execute(ctx context.Context, call models.ToolCall) models.ChatMessage {
	msg := models.ChatMessage{Role: models.RoleTool, ToolCallID: call.ID}

	t, ok := a.tools[call.Name]
	if !ok {
		msg.Content = fmt.Sprintf("error: unknown tool %q", call.Name)
		return msg
	}
	out, err := t.Run(ctx, call.Arguments)
	if err != nil {
		msg.Content = fmt.Sprintf("error: %v", err)
		return msg
	}
	msg.Content = out
	return msg
}

// trimHistory caps the transcript at the configured window. The first entry
// is the system prompt and always survives truncation.
func (a *Agent) trimHistory() {
	if a.historyWindow <= 0 || len(a.history) <= a.historyWindow {
		return
	}
	kept := make([]models.ChatMessage, 0, a.historyWindow)
	kept = append(kept, a.history[0])
	kept = append(kept, a.history[len(a.history)-(a.historyWindow-1):]...)
	a.history = kept
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func balanceReportTool(finances FinanceReader) Tool {
	return Tool{
		Spec: models.ToolSpec{
			Name:        "balance_report",
			Description: "Report the current operating tier, balance, and observation time.",
		},
		Run: func(ctx context.Context, _ json.RawMessage) (string, error) {
			tier, state, ok, err := finances.LastObservation(ctx)
			if err != nil {
				return "", fmt.Errorf("read balance: %w", err)
			}
			if !ok {
				return "no balance observation recorded yet", nil
			}
			return fmt.Sprintf("tier=%s balance=%s USDC observed_at=%s",
				tier, state.Balance, state.ObservedAt.Format(time.RFC3339)), nil
		},
	}
}

func earningsReportTool(earnings EarningsReader) Tool {
	return Tool{
		Spec: models.ToolSpec{
			Name:        "earnings_report",
			Description: "Report lifetime earnings per service and in total.",
		},
		Run: func(_ context.Context, _ json.RawMessage) (string, error) {
			snap := earnings.Snapshot()
			keys := make([]string, 0, len(snap.ByService))
			for k := range snap.ByService {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var b strings.Builder
			for _, k := range keys {
				fmt.Fprintf(&b, "%s: %s USDC\n", k, snap.ByService[k])
			}
			fmt.Fprintf(&b, "total: %s USDC", snap.Total)
			return b.String(), nil
		},
	}
}

func sleepTool() Tool {
	return Tool{
		Spec: models.ToolSpec{
			Name:        SleepTool,
			Description: "Suspend the loop for the configured interval when there is nothing to do.",
		},
		Run: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "sleeping", nil
		},
	}
}
