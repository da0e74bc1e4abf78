package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solvent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8402" {
		t.Errorf("listen = %s, want :8402", cfg.Listen)
	}
	if !cfg.Monitor.Thresholds.NormalMin.Equal(decimal.NewFromInt(10)) {
		t.Errorf("normal_min = %s, want 10", cfg.Monitor.Thresholds.NormalMin)
	}
	if cfg.LowCompute.MaxTokens != 512 {
		t.Errorf("low_compute.max_tokens = %d, want 512", cfg.LowCompute.MaxTokens)
	}
	if cfg.Payment.DeadlineSeconds != 300 {
		t.Errorf("deadline_seconds = %d, want 300", cfg.Payment.DeadlineSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SOLVENT_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
listen: ":9000"
wallet:
  address: "0xagent"
  network: "base"
providers:
  - name: openai
    url: https://api.openai.com
    api_key: ${SOLVENT_TEST_KEY}
    model: gpt-4o
monitor:
  interval: 30s
services:
  - path: /api/chat
    description: chat
    price_usdc: "0.001"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers[0].APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, env expansion failed", cfg.Providers[0].APIKey)
	}
	if cfg.Monitor.Interval != 30*time.Second {
		t.Errorf("interval = %s, want 30s", cfg.Monitor.Interval)
	}
	// Untouched sections keep their defaults.
	if cfg.Payment.DeadlineSeconds != 300 {
		t.Errorf("deadline_seconds = %d, want default 300", cfg.Payment.DeadlineSeconds)
	}
	if !cfg.Services[0].PriceUSDC.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("price = %s, want 0.001", cfg.Services[0].PriceUSDC)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "inverted thresholds",
			mutate: func(c *Config) {
				c.Monitor.Thresholds.LowComputeMin = decimal.NewFromInt(50)
			},
			wantErr: "thresholds",
		},
		{
			name: "unknown provider type",
			mutate: func(c *Config) {
				c.Providers = []ProviderConfig{{Name: "x", Type: "grpc"}}
			},
			wantErr: "unknown type",
		},
		{
			name: "nameless provider",
			mutate: func(c *Config) {
				c.Providers = []ProviderConfig{{URL: "https://example.com"}}
			},
			wantErr: "name is required",
		},
		{
			name: "model owned twice",
			mutate: func(c *Config) {
				c.Providers = []ProviderConfig{
					{Name: "a", Models: []string{"gpt-4o"}},
					{Name: "b", Models: []string{"gpt-4o"}},
				}
			},
			wantErr: "claimed by both",
		},
		{
			name: "relative service path",
			mutate: func(c *Config) {
				c.Services = []ServiceConfig{{Path: "api/chat"}}
			},
			wantErr: "begin with /",
		},
		{
			name: "duplicate service path",
			mutate: func(c *Config) {
				c.Services = []ServiceConfig{{Path: "/api/chat"}, {Path: "/api/chat"}}
			},
			wantErr: "duplicate service path",
		},
		{
			name: "negative price",
			mutate: func(c *Config) {
				c.Services = []ServiceConfig{{Path: "/api/chat", PriceUSDC: decimal.NewFromInt(-1)}}
			},
			wantErr: "negative",
		},
		{
			name: "zero deadline",
			mutate: func(c *Config) {
				c.Payment.DeadlineSeconds = 0
			},
			wantErr: "deadline_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestProviderTypeDefaultsToOpenAI(t *testing.T) {
	if got := (ProviderConfig{}).ProviderType(); got != ProviderOpenAI {
		t.Errorf("ProviderType = %s, want %s", got, ProviderOpenAI)
	}
	if got := (ProviderConfig{Type: ProviderAnthropic}).ProviderType(); got != ProviderAnthropic {
		t.Errorf("ProviderType = %s, want %s", got, ProviderAnthropic)
	}
}
