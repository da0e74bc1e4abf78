package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/router"
)

// newBackendRouter returns a router over an httptest backend that echoes the
// last message it received, and the channel of system prompts it observed.
func newBackendRouter(t *testing.T) (*router.Router, *[]string) {
	t.Helper()
	var systems []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.OpenAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode backend request: %v", err)
		}
		last := ""
		for _, m := range req.Messages {
			if m.Role == "system" {
				systems = append(systems, m.Content)
			}
			last = m.Content
		}
		json.NewEncoder(w).Encode(models.OpenAIResponse{
			Model: "gpt-4o",
			Choices: []models.OpenAIChoice{{
				Message:      models.OpenAIMessage{Role: "assistant", Content: "echo: " + last},
				FinishReason: "stop",
			}},
		})
	}))
	t.Cleanup(backend.Close)

	r, err := router.New([]config.ProviderConfig{{
		Name: "openai", URL: backend.URL, APIKey: "sk-test",
		Model: "gpt-4o", MaxTokens: 1024, PriceRank: 1,
	}}, 512)
	if err != nil {
		t.Fatal(err)
	}
	return r, &systems
}

func testServices() []config.ServiceConfig {
	return []config.ServiceConfig{
		{Path: "/api/chat", Description: "Single-turn chat", PriceUSDC: decimal.RequireFromString("0.001")},
		{Path: "/api/analyze", Description: "Deep analysis", PriceUSDC: decimal.RequireFromString("0.05")},
	}
}

func TestNewRejectsUnknownPath(t *testing.T) {
	r, _ := newBackendRouter(t)
	_, err := New([]config.ServiceConfig{{Path: "/api/summon"}}, r)
	if err == nil {
		t.Fatal("expected error for path without a handler")
	}
}

func TestLookupAndList(t *testing.T) {
	r, _ := newBackendRouter(t)
	c, err := New(testServices(), r)
	if err != nil {
		t.Fatal(err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	svc, ok := c.Lookup("/api/analyze")
	if !ok {
		t.Fatal("expected /api/analyze to be registered")
	}
	if !svc.PriceUSDC.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("price = %s, want 0.05", svc.PriceUSDC)
	}

	if _, ok := c.Lookup("/api/missing"); ok {
		t.Error("Lookup must miss for unregistered path")
	}

	list := c.List()
	if len(list) != 2 || list[0].Path != "/api/chat" || list[1].Path != "/api/analyze" {
		t.Errorf("List out of registration order: %+v", list)
	}
}

func TestChatHandler(t *testing.T) {
	r, systems := newBackendRouter(t)
	c, err := New(testServices(), r)
	if err != nil {
		t.Fatal(err)
	}
	svc, _ := c.Lookup("/api/chat")

	out, err := svc.Handler(context.Background(), []byte(`{"message":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo: hello" {
		t.Errorf("result = %q, want %q", out, "echo: hello")
	}
	if len(*systems) != 0 {
		t.Errorf("chat must not inject a system prompt, saw %v", *systems)
	}
}

func TestAnalyzeHandlerInjectsSystemPrompt(t *testing.T) {
	r, systems := newBackendRouter(t)
	c, err := New(testServices(), r)
	if err != nil {
		t.Fatal(err)
	}
	svc, _ := c.Lookup("/api/analyze")

	out, err := svc.Handler(context.Background(), []byte(`{"message":"inspect this"}`))
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo: inspect this" {
		t.Errorf("result = %q", out)
	}
	if len(*systems) != 1 {
		t.Fatalf("expected one system prompt, saw %d", len(*systems))
	}
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	r, _ := newBackendRouter(t)
	c, err := New(testServices(), r)
	if err != nil {
		t.Fatal(err)
	}
	svc, _ := c.Lookup("/api/chat")

	for _, payload := range []string{"not json", `{}`, `{"message":""}`} {
		if _, err := svc.Handler(context.Background(), []byte(payload)); err == nil {
			t.Errorf("payload %q: expected error", payload)
		}
	}
}
