package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/state"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last observed tier and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			st, err := state.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			tr, ok, err := st.LastObservationDetail(context.Background())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("No observations recorded yet. Is the monitor running?")
				return nil
			}

			confidence := "ok"
			if tr.OracleDegraded {
				confidence = "degraded"
			}
			health := "ok"
			if !tr.HealthOK {
				health = "failing"
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tBALANCE (USDC)\tOBSERVED AT\tORACLE\tHEALTH")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tr.Current, tr.State.Balance,
				tr.State.ObservedAt.Format("2006-01-02T15:04:05"),
				confidence, health)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "solvent.yaml", "path to config file")
	return cmd
}
