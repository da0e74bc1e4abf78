package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/state"
)

func newEarningsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "earnings",
		Short: "Show lifetime earnings per service",
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

			snap, err := st.EarningsTotals(context.Background())
			if err != nil {
				return err
			}
			if len(snap.ByService) == 0 {
				fmt.Println("No earnings recorded yet.")
				return nil
			}

			keys := make([]string, 0, len(snap.ByService))
			for k := range snap.ByService {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tEARNED (USDC)")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, snap.ByService[k])
			}
			fmt.Fprintf(w, "TOTAL\t%s\n", snap.Total)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "solvent.yaml", "path to config file")
	return cmd
}
