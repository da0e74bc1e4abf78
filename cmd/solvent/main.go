package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "solvent",
		Short:   "Solvent — survival-gated revenue service for autonomous agents",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newStatusCmd(),
		newEarningsCmd(),
		newServicesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
