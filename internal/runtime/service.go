package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	metricspkg "github.com/drblury/msgflow/internal/runtime/metrics"
	outboxpkg "github.com/drblury/msgflow/internal/runtime/outbox"
	transportpkg "github.com/drblury/msgflow/internal/runtime/transport"
)

// EnrichHandlerName is the router handler that turns messages into render plans.
const EnrichHandlerName = "msgflow-enrich"

const httpShutdownTimeout = 5 * time.Second

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// PlanStore lists recently stored render plans. outbox.SQLStore implements it.
type PlanStore interface {
	Recent(ctx context.Context, limit int) ([]outboxpkg.Record, error)
}

// ServiceDependencies holds the collaborators the Service uses. Only
// Extensions is required.
type ServiceDependencies struct {
	Extensions *extensions.Container
	// Outbox stores published plans. When nil and Config.OutboxDriver is
	// set, the service opens and owns a SQL outbox.
	Outbox outboxpkg.Store
	// Metrics receives plan and decode counters. When nil the service
	// creates a collector on the default registerer if metrics are enabled,
	// or on a private registry otherwise.
	Metrics                   *metricspkg.Collector
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
}

// Service consumes messages from the bus, enriches them through the
// extensions container and publishes render plans.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	extensions *extensions.Container
	metrics    *metricspkg.Collector
	codec      codecpkg.Codec

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	outbox  outboxpkg.Store
	closers []io.Closer

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService is TryNewService that panics on error.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService builds the transport, router and middleware chain and
// registers the enrichment handler. Call Start to begin consuming.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if deps.Extensions == nil {
		return nil, errspkg.ErrExtensionsRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	codec, err := codecpkg.ForFormat(conf.WireFormat)
	if err != nil {
		return nil, err
	}

	log.Info("Creating msgflow service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"config":        conf,
	})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		extensions: deps.Extensions,
		metrics:    deps.Metrics,
		codec:      codec,
		outbox:     deps.Outbox,
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	if err := s.initOutbox(ctx); err != nil {
		return nil, err
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		s.closeOwned()
		return nil, fmt.Errorf("build transport: %w", err)
	}
	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		s.closeOwned()
		return nil, fmt.Errorf("create router: %w", err)
	}
	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		s.closeOwned()
		return nil, err
	}

	s.router.AddHandler(
		EnrichHandlerName,
		conf.InboundTopic,
		s.subscriber,
		conf.OutboundTopic,
		s.publisher,
		s.enrichHandler,
	)

	return s, nil
}

func (s *Service) initMetrics() error {
	if s.metrics == nil {
		var registerer prometheus.Registerer = prometheus.NewRegistry()
		if s.Conf.MetricsEnabled {
			registerer = prometheus.DefaultRegisterer
		}
		s.metrics = metricspkg.NewCollector(registerer)
	}
	if err := s.metrics.Register(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	return nil
}

func (s *Service) initOutbox(ctx context.Context) error {
	if s.outbox != nil || s.Conf.OutboxDriver == "" {
		return nil
	}
	store, err := outboxpkg.Open(ctx, s.Conf.OutboxDriver, s.Conf.OutboxDSN)
	if err != nil {
		return err
	}
	s.outbox = store
	s.closers = append(s.closers, store)
	return nil
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

// Start runs the router until ctx is cancelled. HTTP servers registered on
// the service are started first and shut down when ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.registerAPI()
	s.startHTTPServers(ctx)
	return routerRun(s.router, ctx)
}

// Running is closed once the router is consuming.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and releases the transport and any outbox the
// service opened itself.
func (s *Service) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Close())
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.subscriber != nil && any(s.subscriber) != any(s.publisher) {
		errs = append(errs, s.subscriber.Close())
	}
	errs = append(errs, s.closeOwned())
	return errors.Join(errs...)
}

func (s *Service) closeOwned() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Extensions returns the container the service plans with.
func (s *Service) Extensions() *extensions.Container {
	return s.extensions
}

// Metrics returns the collector the service records into.
func (s *Service) Metrics() *metricspkg.Collector {
	return s.metrics
}

// RegisterHTTPHandler mounts handler on the server for port, creating the
// server on first use.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers(ctx context.Context) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": server.Addr})
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("HTTP server failed", err, loggingpkg.LogFields{"address": server.Addr})
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}
}
