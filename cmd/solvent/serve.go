package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/solvent-ai/solvent/pkg/agent"
	"github.com/solvent-ai/solvent/pkg/catalog"
	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/gate"
	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/monitor"
	"github.com/solvent-ai/solvent/pkg/oracle"
	"github.com/solvent-ai/solvent/pkg/payment"
	"github.com/solvent-ai/solvent/pkg/router"
	"github.com/solvent-ai/solvent/pkg/state"
	"github.com/solvent-ai/solvent/pkg/tracker"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		withAgent  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor loop and the payment-gated service",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := state.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init state store: %w", err)
			}
			defer func() { _ = st.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r, err := router.New(cfg.Providers, cfg.LowCompute.MaxTokens)
			if err != nil {
				return fmt.Errorf("init router: %w", err)
			}

			orc := oracle.NewHTTP(cfg.Oracle.URL, cfg.Oracle.Timeout)
			mon, err := monitor.New(ctx, orc, providerProber(cfg.Providers), st,
				cfg.Wallet.Address, cfg.Wallet.Network, cfg.Monitor.Thresholds)
			if err != nil {
				return fmt.Errorf("init monitor: %w", err)
			}

			cat, err := catalog.New(cfg.Services, r)
			if err != nil {
				return fmt.Errorf("init catalog: %w", err)
			}

			terms := payment.Terms{
				Network:         cfg.Wallet.Network,
				PayToAddress:    cfg.Wallet.Address,
				USDCAddress:     cfg.Wallet.USDCAddress,
				DeadlineSeconds: cfg.Payment.DeadlineSeconds,
			}
			keys := make(map[string]string, len(cfg.Payment.PayerKeys))
			for _, k := range cfg.Payment.PayerKeys {
				keys[k.ID] = k.PublicKey
			}
			verifier, err := payment.NewVerifier(terms, keys, st)
			if err != nil {
				return fmt.Errorf("init verifier: %w", err)
			}

			rev := tracker.New(st)

			go mon.Run(ctx, cfg.Monitor.Interval, func(tr models.TierTransition) {
				if tr.Current == models.TierDead {
					log.Printf("monitor: balance exhausted; continuing to serve paid requests")
				}
				r.SetLowComputeMode(tr.Current.Distress() >= models.TierLowCompute.Distress())
			})

			if withAgent || cfg.Agent.Enabled {
				a := agent.New(r, st, rev, cfg.Agent)
				go runAgentLoop(ctx, a, cfg.Agent.SleepInterval)
			}

			srv := gate.New(cfg.Listen, cat, verifier, terms, rev)
			log.Printf("starting solvent gate on %s (%d services)", cfg.Listen, cat.Len())
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "solvent.yaml", "path to config file")
	cmd.Flags().BoolVar(&withAgent, "agent", false, "run the survival agent loop alongside the gate")
	return cmd
}

// providerProber reports liveness of the primary inference backend.
func providerProber(providers []config.ProviderConfig) monitor.HealthProberFunc {
	return func(ctx context.Context) error {
		if len(providers) == 0 {
			return nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, providers[0].URL, nil)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}

// runAgentLoop re-runs the bounded agent session until the process stops.
func runAgentLoop(ctx context.Context, a *agent.Agent, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for ctx.Err() == nil {
		if err := a.Run(ctx, "Review your balance and earnings, then decide whether to act or sleep."); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("agent: session failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
