package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solvent-ai/solvent/pkg/config"
)

func newServicesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the configured priced services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(cfg.Services) == 0 {
				fmt.Println("No services configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tPRICE (USDC)\tDESCRIPTION")
			for _, s := range cfg.Services {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Path, s.PriceUSDC, s.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "solvent.yaml", "path to config file")
	return cmd
}
