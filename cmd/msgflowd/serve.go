package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	runtimepkg "github.com/drblury/msgflow/internal/runtime"
	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	metricspkg "github.com/drblury/msgflow/internal/runtime/metrics"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configpkg.Load(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if opts.logLevel != "" {
				level = opts.logLevel
			}
			log, err := newLogger(cmd, level)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, opts.strictIDs)
		},
	}
}

func serve(ctx context.Context, cfg *configpkg.Config, log loggingpkg.ServiceLogger, strictIDs bool) error {
	var registerer prometheus.Registerer = prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		registerer = prometheus.DefaultRegisterer
	}
	collector := metricspkg.NewCollector(registerer)

	container, err := newContainer(log, extensions.Options{
		Observer:      collector,
		StrictIDs:     strictIDs || cfg.StrictHandlerIDs,
		PipelineHooks: collector.PipelineHooks().Merge(pipeline.LoggingHooks(log)),
	})
	if err != nil {
		return err
	}

	svc, err := runtimepkg.TryNewService(cfg, log, ctx, runtimepkg.ServiceDependencies{
		Extensions:  container,
		Metrics:     collector,
		Middlewares: []runtimepkg.MiddlewareRegistration{runtimepkg.JobHooksMiddleware(runtimepkg.LoggingHooks(log))},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error("Failed to close service", err, nil)
		}
	}()

	log.Info("msgflow bridge starting", loggingpkg.LogFields{
		"inbound_topic":  cfg.InboundTopic,
		"outbound_topic": cfg.OutboundTopic,
	})
	return svc.Start(ctx)
}
