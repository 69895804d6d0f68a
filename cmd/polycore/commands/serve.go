package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/obinexus/polycall-core/internal/logger"
	"github.com/obinexus/polycall-core/internal/telemetry"
	"github.com/obinexus/polycall-core/pkg/config"
	"github.com/obinexus/polycall-core/pkg/core"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the polycore runtime",
	Long: `Start the polycore FFI runtime: opens the configured TCP listener and
accepts connections, each driven by its own session state machine over the
wire protocol.

The JWT signing secret is read from POLYCORE_JWT_SECRET (must be at least
32 bytes); it is a deployment secret, not a config-file value.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "polycore",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	secret := os.Getenv("POLYCORE_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("POLYCORE_JWT_SECRET must be set to a secret of at least 32 bytes")
	}

	var metricsReg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metricsReg = reg
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.Err(err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = metricsSrv.Close()
		}()
		logger.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	runtime, err := core.NewRuntime(cfg, core.Options{
		JWTSecret: secret,
		JWTIssuer: "polycore",
		Registry:  metricsReg,
	})
	if err != nil {
		return fmt.Errorf("failed to construct runtime: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- runtime.ListenAndServe(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("polycore runtime started", "address", cfg.Core.ListenAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		return <-serverDone
	case err := <-serverDone:
		signal.Stop(sigChan)
		return err
	}
}
