package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"acvcharts/internal/amqp"
	"acvcharts/internal/backend"
	"acvcharts/internal/cache"
	"acvcharts/internal/core"
	apphttp "acvcharts/internal/http"
	applog "acvcharts/internal/log"
	"acvcharts/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

// NewServeCommand builds the command that runs the HTTP API. It is the root
// command of the acvcharts binary and the serve subcommand of acvctl.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the charts API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	cmd.Flags().StringP("config", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	cfg := rt.cfg
	logger := rt.logger.WithComponent(applog.ComponentApp)

	ctx, cancel := SignalContext(cmd.Context(), logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	reports := cache.NewLRUCache[core.Report](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(reports)
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	charts := services.NewChartsService(res.Source, core.Aggregator{ZeroACV: cfg.ZeroACV()}, reports, logger)
	srv := apphttp.NewServer(":"+cfg.Port, charts, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting acvcharts server",
			"port", cfg.Port,
			applog.FieldBackend, bcfg.Type,
			applog.FieldSource, res.Source.Name(),
			"zero_acv_policy", cfg.ZeroACV().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
			return err
		}
		return nil
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, cached reports expire by TTL only", applog.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				return client.RunConsumer(gctx, charts.HandleRecordsImported)
			})
		}
	}

	err = g.Wait()
	if err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
