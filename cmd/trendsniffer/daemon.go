package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/trendsniffer/internal/action"
	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/copilot"
	"github.com/harunnryd/trendsniffer/internal/daemon"
	"github.com/harunnryd/trendsniffer/internal/daemon/components"
	"github.com/harunnryd/trendsniffer/internal/server"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start Trend Sniffer in background daemon mode",
	Long:  `Starts Trend Sniffer as a long-running service using component lifecycle orchestration. It serves the dashboard API and runs the scheduled daily briefing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open preference store: %w", err)
		}

		fetcher, err := buildFetcher(cfg)
		if err != nil {
			return err
		}

		deliverers := buildDeliverers(cfg)
		gen := briefing.NewGenerator(store, fetcher, deliverers...)
		engine := action.NewEngine(store, gen)
		cp := copilot.New(store, engine)
		srv := server.New(store, fetcher, gen, engine, cp, deliverers...)
		scheduler := briefing.NewScheduler(store, gen)

		daemonMgr.AddComponent(components.NewStoreComponent(store))
		daemonMgr.AddComponent(components.NewSchedulerComponent(scheduler))
		daemonMgr.AddComponent(components.NewHTTPServerComponent(&cfg.Server, srv.Handler()))

		slog.Info("Trend Sniffer daemon starting up...", "port", cfg.Server.Port, "store", cfg.Store.Path)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Trend Sniffer daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Trend Sniffer daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
