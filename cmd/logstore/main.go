package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	logscmd "github.com/rzbill/logstore/internal/cmd/logs"
	serverrun "github.com/rzbill/logstore/internal/cmd/server"
)

func main() {
	settings := logscmd.NewSettings()

	rootCmd := &cobra.Command{
		Use:           "logstore",
		Short:         "Durable telemetry log store",
		Long:          "logstore keeps telemetry logs on local disk in bounded per-channel queues and hands them out in batches for delivery.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	settings.BindFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Host the store and serve metrics until interrupted",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Config()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("metrics-addr"); cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = addr
			}
			compactEvery, _ := cmd.Flags().GetDuration("compact-every")
			logger, err := logscmd.Logger(cfg)
			if err != nil {
				return err
			}
			if err := serverrun.Run(cmd.Context(), serverrun.Options{
				Config:       cfg,
				Logger:       logger,
				CompactEvery: compactEvery,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().String("metrics-addr", "", "Admin HTTP listen address (empty disables)")
	serveCmd.Flags().Duration("compact-every", 10*time.Minute, "Background compaction interval (0 disables)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(logscmd.NewCommands(settings.Opener())...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
