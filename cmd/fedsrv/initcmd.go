package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fedmysql "github.com/federatedsec/federation/mysql"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema and the master operator",
	Long: "init creates the tables if they do not exist and bootstraps the master\n" +
		"operator from the configured server api_key. It is idempotent.",
	Example: "  fedsrv init --config /etc/federation/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := fedmysql.EnsureSchema(ctx, env.db); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		master, err := env.reg.Operators.GetMaster(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("schema ready, master operator %s (%s)\n", master.Name, master.UUID)
		return nil
	},
}

var maintenanceCmd = &cobra.Command{
	Use:     "maintenance",
	Short:   "Run one maintenance sweep",
	Long:    "maintenance runs the configured retention cleanups once and exits.",
	Example: "  fedsrv maintenance --config /etc/federation/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return env.reg.Sweeper.RunMaintenance(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(maintenanceCmd)
}
