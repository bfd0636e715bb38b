package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	federation "github.com/federatedsec/federation"
)

// Operator subcommands act as the master operator; they are the out-of-band
// administration path when no privileged API key exists yet.

var createOperatorCmd = &cobra.Command{
	Use:     "create-operator <name>",
	Short:   "Create an operator and print its record with the generated api key",
	Example: "  fedsrv create-operator partner-isp --manage-blacklist --client",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		master, err := env.reg.Operators.GetMaster(ctx)
		if err != nil {
			return err
		}
		rec, err := env.reg.Operators.Create(ctx, master, args[0])
		if err != nil {
			return err
		}
		if manageOperators, _ := cmd.Flags().GetBool("manage-operators"); manageOperators {
			if err := env.reg.Operators.SetManageOperators(ctx, master, rec.UUID, true); err != nil {
				return err
			}
		}
		if manageBlacklist, _ := cmd.Flags().GetBool("manage-blacklist"); manageBlacklist {
			if err := env.reg.Operators.SetManageBlacklist(ctx, master, rec.UUID, true); err != nil {
				return err
			}
		}
		if client, _ := cmd.Flags().GetBool("client"); client {
			if err := env.reg.Operators.SetClient(ctx, master, rec.UUID, true); err != nil {
				return err
			}
		}
		rec, err = env.reg.Operators.GetByUUID(ctx, rec.UUID)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var deleteOperatorCmd = &cobra.Command{
	Use:     "delete-operator <uuid>",
	Short:   "Delete an operator",
	Example: "  fedsrv delete-operator 0192b1f2-7d2a-7cc3-8b4d-31a2f1c0d9e1",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := federation.ParseUUID(args[0])
		if err != nil {
			return fmt.Errorf("malformed uuid %q", args[0])
		}
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		master, err := env.reg.Operators.GetMaster(ctx)
		if err != nil {
			return err
		}
		return env.reg.Operators.Delete(ctx, master, id)
	},
}

var getOperatorCmd = &cobra.Command{
	Use:     "get-operator <uuid>",
	Short:   "Print one operator record as JSON",
	Example: "  fedsrv get-operator 0192b1f2-7d2a-7cc3-8b4d-31a2f1c0d9e1",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := federation.ParseUUID(args[0])
		if err != nil {
			return fmt.Errorf("malformed uuid %q", args[0])
		}
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		rec, err := env.reg.Operators.GetByUUID(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var editOperatorCmd = &cobra.Command{
	Use:   "edit-operator <uuid>",
	Short: "Change an operator's enabled state or capabilities",
	Example: "  fedsrv edit-operator 0192b1f2-7d2a-7cc3-8b4d-31a2f1c0d9e1 --disable\n" +
		"  fedsrv edit-operator 0192b1f2-7d2a-7cc3-8b4d-31a2f1c0d9e1 --manage-blacklist=true --refresh-key",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := federation.ParseUUID(args[0])
		if err != nil {
			return fmt.Errorf("malformed uuid %q", args[0])
		}
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		master, err := env.reg.Operators.GetMaster(ctx)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("enable") {
			if err := env.reg.Operators.Enable(ctx, master, id); err != nil {
				return err
			}
		}
		if flags.Changed("disable") {
			if err := env.reg.Operators.Disable(ctx, master, id); err != nil {
				return err
			}
		}
		if flags.Changed("manage-operators") {
			v, _ := flags.GetBool("manage-operators")
			if err := env.reg.Operators.SetManageOperators(ctx, master, id, v); err != nil {
				return err
			}
		}
		if flags.Changed("manage-blacklist") {
			v, _ := flags.GetBool("manage-blacklist")
			if err := env.reg.Operators.SetManageBlacklist(ctx, master, id, v); err != nil {
				return err
			}
		}
		if flags.Changed("client") {
			v, _ := flags.GetBool("client")
			if err := env.reg.Operators.SetClient(ctx, master, id, v); err != nil {
				return err
			}
		}
		if flags.Changed("refresh-key") {
			if _, err := env.reg.Operators.RefreshAPIKey(ctx, master, id); err != nil {
				return err
			}
		}
		rec, err := env.reg.Operators.GetByUUID(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var listOperatorsCmd = &cobra.Command{
	Use:     "list-operators",
	Short:   "Print all operators as JSON",
	Example: "  fedsrv list-operators --limit 50 --page 2",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		limit, _ := cmd.Flags().GetInt("limit")
		page, _ := cmd.Flags().GetInt("page")
		recs, err := env.reg.Operators.List(ctx, limit, page)
		if err != nil {
			return err
		}
		return printJSON(recs)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	createOperatorCmd.Flags().Bool("manage-operators", false, "grant the manage_operators capability")
	createOperatorCmd.Flags().Bool("manage-blacklist", false, "grant the manage_blacklist capability")
	createOperatorCmd.Flags().Bool("client", false, "grant the client role")

	editOperatorCmd.Flags().Bool("enable", false, "enable the operator")
	editOperatorCmd.Flags().Bool("disable", false, "disable the operator")
	editOperatorCmd.Flags().Bool("manage-operators", false, "set the manage_operators capability")
	editOperatorCmd.Flags().Bool("manage-blacklist", false, "set the manage_blacklist capability")
	editOperatorCmd.Flags().Bool("client", false, "set the client role")
	editOperatorCmd.Flags().Bool("refresh-key", false, "generate a new api key")

	listOperatorsCmd.Flags().Int("limit", 100, "page size")
	listOperatorsCmd.Flags().Int("page", 1, "page number, 1-based")

	rootCmd.AddCommand(createOperatorCmd)
	rootCmd.AddCommand(deleteOperatorCmd)
	rootCmd.AddCommand(getOperatorCmd)
	rootCmd.AddCommand(editOperatorCmd)
	rootCmd.AddCommand(listOperatorsCmd)
}
