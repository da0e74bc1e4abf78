package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/solvent-ai/solvent/pkg/models"
)

// Provider wire types. Type selects the request/response codec.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all Solvent configuration.
type Config struct {
	Listen     string           `yaml:"listen"`
	DBPath     string           `yaml:"db_path"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Providers  []ProviderConfig `yaml:"providers"`
	LowCompute LowComputeConfig `yaml:"low_compute"`
	Services   []ServiceConfig  `yaml:"services"`
	Payment    PaymentConfig    `yaml:"payment"`
	Agent      AgentConfig      `yaml:"agent"`
}

// WalletConfig identifies where payers send funds.
type WalletConfig struct {
	Address     string `yaml:"address"`
	Network     string `yaml:"network"`
	USDCAddress string `yaml:"usdc_address"`
}

// OracleConfig points at the balance oracle endpoint.
type OracleConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MonitorConfig controls the resource monitor poll loop.
type MonitorConfig struct {
	Interval   time.Duration          `yaml:"interval"`
	Thresholds models.ThresholdConfig `yaml:"thresholds"`
}

// ProviderConfig defines one upstream inference backend. Models lists the
// model names this profile owns for explicit per-call routing; PriceRank
// orders profiles by cost (lower is cheaper) for the low-compute switch.
type ProviderConfig struct {
	Name      string   `yaml:"name"`
	URL       string   `yaml:"url"`
	APIKey    string   `yaml:"api_key"`
	Type      string   `yaml:"type"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
	PriceRank int      `yaml:"price_rank"`
	Models    []string `yaml:"models"`
}

// LowComputeConfig caps spending when the low-compute switch is engaged.
type LowComputeConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// ServiceConfig defines one priced capability sold by the revenue gate.
type ServiceConfig struct {
	Path        string          `yaml:"path"`
	Description string          `yaml:"description"`
	PriceUSDC   decimal.Decimal `yaml:"price_usdc"`
}

// PayerKey is a trusted payer's public key in PEM form.
type PayerKey struct {
	ID        string `yaml:"id"`
	PublicKey string `yaml:"public_key"`
}

// PaymentConfig controls challenge construction and verification.
type PaymentConfig struct {
	DeadlineSeconds int        `yaml:"deadline_seconds"`
	PayerKeys       []PayerKey `yaml:"payer_keys"`
}

// AgentConfig controls the survival agent loop.
type AgentConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SystemPrompt  string        `yaml:"system_prompt"`
	MaxTurns      int           `yaml:"max_turns"`
	HistoryWindow int           `yaml:"history_window"`
	SleepInterval time.Duration `yaml:"sleep_interval"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8402",
		DBPath: "solvent.db",
		Wallet: WalletConfig{
			Network: "base",
		},
		Oracle: OracleConfig{
			Timeout: 10 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval: time.Minute,
			Thresholds: models.ThresholdConfig{
				NormalMin:     decimal.NewFromInt(10),
				LowComputeMin: decimal.NewFromInt(5),
				CriticalMin:   decimal.NewFromInt(1),
			},
		},
		LowCompute: LowComputeConfig{
			MaxTokens: 512,
		},
		Payment: PaymentConfig{
			DeadlineSeconds: 300,
		},
		Agent: AgentConfig{
			MaxTurns:      20,
			HistoryWindow: 40,
			SleepInterval: 5 * time.Minute,
		},
	}
}

// Load reads a YAML config file, expands environment variables, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field invariants that YAML decoding cannot express.
func (c *Config) Validate() error {
	t := c.Monitor.Thresholds
	if !t.NormalMin.GreaterThan(t.LowComputeMin) ||
		!t.LowComputeMin.GreaterThan(t.CriticalMin) ||
		t.CriticalMin.IsNegative() {
		return fmt.Errorf("thresholds must satisfy normal_min > low_compute_min > critical_min >= 0")
	}

	seenModels := make(map[string]string)
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		switch p.Type {
		case "", ProviderOpenAI, ProviderAnthropic:
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
		for _, m := range p.Models {
			if owner, dup := seenModels[m]; dup {
				return fmt.Errorf("model %q claimed by both %q and %q", m, owner, p.Name)
			}
			seenModels[m] = p.Name
		}
	}

	seenPaths := make(map[string]bool)
	for _, s := range c.Services {
		if s.Path == "" || s.Path[0] != '/' {
			return fmt.Errorf("service path %q must begin with /", s.Path)
		}
		if seenPaths[s.Path] {
			return fmt.Errorf("duplicate service path %q", s.Path)
		}
		seenPaths[s.Path] = true
		if s.PriceUSDC.IsNegative() {
			return fmt.Errorf("service %q: price must not be negative", s.Path)
		}
	}

	if c.Payment.DeadlineSeconds <= 0 {
		return fmt.Errorf("payment deadline_seconds must be positive")
	}
	return nil
}

// ProviderType returns the effective wire type for a provider.
func (p ProviderConfig) ProviderType() string {
	if p.Type == "" {
		return ProviderOpenAI
	}
	return p.Type
}
