package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raykavin/pairwatch"
	"github.com/raykavin/pairwatch/internal/config"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	configPath string
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:           "pairwatch",
		Short:         "Crypto pair signal monitor",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default ./pairwatch.yaml when present)")

	// Add commands
	rootCmd.AddCommand(buildRunCmd(), buildCheckCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pairwatch.DefaultLog.WithError(err).Error("pairwatch failed")
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Monitor the configured pairs and send alerts",
		RunE:  runMonitor,
	}
}

func buildCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one cycle without sending alerts and print the results",
		RunE:  runCheck,
	}
}

func newApp(cmd *cobra.Command) (*pairwatch.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	return pairwatch.New(cmd.Context(), cfg)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	app.Logger().Info("pairwatch stopped")
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Check(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if report.Failures() > 0 {
		app.Logger().Warnf("%d pairs could not be evaluated", report.Failures())
	}
	return nil
}
