package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/federatedsec/federation/rest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the federation HTTP server",
	Long: "serve wires the database, cache and attachment storage and serves the\n" +
		"HTTP API until interrupted.",
	Example: "  fedsrv serve --config /etc/federation/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// First startup creates the master operator.
		if _, err := env.reg.Operators.GetMaster(ctx); err != nil {
			return err
		}

		server := rest.NewServer(env.cfg, env.reg, env.scanner)
		return server.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
