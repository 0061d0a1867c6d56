package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tripsim",
		Short: "Travel demand microsimulation",
		Long: `tripsim samples trip counts per person and purpose, resolves a mode for
every trip with random-utility choice and calibrates mode constants until
simulated shares match observed ones.

Configuration is read from defaults, the YAML file named by TRIPSIM_CONFIG
and TRIPSIM_* environment variables; flags override all three.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSimulateCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}
