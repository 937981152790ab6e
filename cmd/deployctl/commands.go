package main

import (
	"context"
	"fmt"

	"gearrent/internal/deploy"

	"github.com/spf13/cobra"
)

// withRunner loads the config, connects, and hands a Runner to fn.
func withRunner(cmd *cobra.Command, fn func(context.Context, *deploy.Runner) error) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := deploy.Load(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "[*] Connecting to %s...\n", cfg.Addr())
	client, err := deploy.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	fmt.Fprintln(out, "[+] Connected!")

	return fn(ctx, deploy.NewRunner(client, cfg, out))
}

func runnerCmd(use, short string, fn func(*deploy.Runner, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *deploy.Runner) error {
				return fn(r, ctx)
			})
		},
	}
}

func DeployCmd() *cobra.Command {
	return runnerCmd("deploy", "Clone or update the project and start the stack", (*deploy.Runner).Deploy)
}

func WaitCmd() *cobra.Command {
	return runnerCmd("wait", "Poll until containers are up, then show the app response", (*deploy.Runner).Wait)
}

func StatusCmd() *cobra.Command {
	return runnerCmd("status", "Show containers, recent logs and listening ports", (*deploy.Runner).Status)
}

func FixCmd() *cobra.Command {
	return runnerCmd("fix", "Restart the stack without rebuilding", (*deploy.Runner).Fix)
}

func ResetCmd() *cobra.Command {
	return runnerCmd("reset", "Remove containers, reset to the remote branch and rebuild", (*deploy.Runner).Reset)
}

func InitDBCmd() *cobra.Command {
	return runnerCmd("init-db", "Recreate the database volume and show the fresh schema", (*deploy.Runner).InitDB)
}

func VerifyDBCmd() *cobra.Command {
	return runnerCmd("verify-db", "Show database tables and inventory rows", (*deploy.Runner).VerifyDB)
}
