// Package cli holds process bootstrap shared by the acvcharts binaries and
// the cobra command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"acvcharts/internal/config"
	applog "acvcharts/internal/log"
)

// SetupLogger builds the process logger at the given level and sets it as
// the slog default.
func SetupLogger(level string, out io.Writer) (*applog.Logger, error) {
	lvl, err := applog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{Level: lvl, Component: applog.ComponentApp, Output: out})
	applog.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads .env and the environment, overlays configFile
// when set, and validates the result.
func LoadAndValidateConfig(configFile string) (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Load()
	if configFile != "" {
		if err := cfg.ApplyFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
