package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gearrent/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "deployctl",
		Short:         "Deploy and inspect the compose stack on the configured host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "deploy.yaml", "Path to the deploy config file")

	rootCmd.AddCommand(
		DeployCmd(),
		WaitCmd(),
		StatusCmd(),
		FixCmd(),
		ResetCmd(),
		InitDBCmd(),
		VerifyDBCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
