package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/common"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"github.com/WangYihang/storefront-detector/pkg/interface/cli"
	"github.com/WangYihang/storefront-detector/pkg/interface/presenter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

// dashboardLogFile receives logs while the dashboard owns the terminal
const dashboardLogFile = "storefront-detector.log"

func main() {
	// Environment overrides for flags, e.g. STOREFRONT_CDP_URL
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	// Parse command line flags
	config, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if config.Version {
		fmt.Println(common.PV.String())
		return
	}

	log, err := newLogger(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("received interrupt signal, shutting down gracefully")
		cancel()
	}()

	err = run(ctx, config, log)
	cancel()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run assembles the detector and drives it until the source ends or ctx
// is cancelled. Every resource it opens is released before it returns.
func run(ctx context.Context, config *cli.Config, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Assemble coordinator with all dependencies
	runtime, err := cli.NewAssembler(config, log).Assemble(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			log.Warn("shutdown", logger.Error(err))
		}
	}()

	if runtime.Exporter != nil {
		go func() {
			if err := runtime.Exporter.ListenAndServe(); err != nil {
				log.Error("metrics exporter stopped", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = runtime.Exporter.Shutdown(shutdownCtx)
		}()
	}

	log.Info("starting storefront detector",
		logger.String("version", common.PV.Short()),
		logger.String("mode", config.Mode),
		logger.String("endpoint", config.Policy.Endpoint.BaseURL),
		logger.String("cache", config.Policy.Cache.Backend),
	)

	if config.ShowDashboard {
		dashboard := presenter.NewDashboard()
		runtime.Coordinator.RegisterMetricsObserver(dashboard)

		// Run dashboard in TUI mode
		p := tea.NewProgram(dashboard, tea.WithAltScreen())

		// Run coordinator in background
		go func() {
			if err := runtime.Coordinator.Execute(ctx, runtime.Source); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("coordinator stopped", logger.Error(err))
			}
			p.Quit()
		}()

		// Start TUI
		_, err := p.Run()
		cancel()
		runtime.Coordinator.Wait()
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	}

	var progress *presenter.ReplayProgress
	if config.Mode == cli.ModeReplay {
		progress = presenter.NewReplayProgress(runtime.Navigations, os.Stderr)
		runtime.Coordinator.RegisterMetricsObserver(progress)
	}

	err = runtime.Coordinator.Execute(ctx, runtime.Source)
	if progress != nil {
		progress.Finish()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("coordinator stopped: %w", err)
	}

	m := runtime.Coordinator.GetMetrics()
	log.Info("storefront detector finished",
		logger.Int64("flows", m.FlowsCompleted),
		logger.Int64("cache_hits", m.CacheHits),
		logger.Int64("checks", m.Checks),
		logger.Int64("delivered", m.Delivered),
	)
	return nil
}

// newLogger builds the logger; stdout is never used for logs
func newLogger(config *cli.Config) (logger.Logger, error) {
	cfg := logger.Config{Level: config.LogLevel}
	switch {
	case config.LogFile != "":
		cfg.OutputPaths = []string{config.LogFile}
	case config.ShowDashboard:
		cfg.OutputPaths = []string{dashboardLogFile}
	default:
		cfg.Console = config.Mode == cli.ModeReplay
	}
	return logger.New(cfg)
}
