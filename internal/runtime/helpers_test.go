package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	metricspkg "github.com/drblury/msgflow/internal/runtime/metrics"
	transportpkg "github.com/drblury/msgflow/internal/runtime/transport"
)

type publishedMessage struct {
	topic string
	msg   *message.Message
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, m := range messages {
		p.published = append(p.published, publishedMessage{topic: topic, msg: m})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.published...)
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

type testOutbox struct {
	mu      sync.Mutex
	records []outboxRecord
	err     error
}

type outboxRecord struct {
	eventType string
	uuid      string
	payload   string
}

func (o *testOutbox) StoreOutgoingMessage(ctx context.Context, eventType, uuid, payload string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.records = append(o.records, outboxRecord{eventType: eventType, uuid: uuid, payload: payload})
	return nil
}

func (o *testOutbox) Records() []outboxRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]outboxRecord(nil), o.records...)
}

type stubFactory struct {
	pub   message.Publisher
	sub   message.Subscriber
	err   error
	calls int
}

func (f *stubFactory) Build(_ context.Context, _ transportpkg.Config, _ watermill.LoggerAdapter) (transportpkg.Transport, error) {
	f.calls++
	if f.err != nil {
		return transportpkg.Transport{}, f.err
	}
	return transportpkg.Transport{Publisher: f.pub, Subscriber: f.sub}, nil
}

var errBoom = errors.New("boom")

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

func newTestContainer(t *testing.T) *extensions.Container {
	t.Helper()
	c := extensions.New(extensions.Options{Logger: newTestLogger()})
	require.NoError(t, c.RegisterDefaults(extensions.Dependencies{}))
	return c
}

func newTestCollector() *metricspkg.Collector {
	return metricspkg.NewCollector(prometheus.NewRegistry())
}

// newStubService builds a service over an in-memory stub transport. mutate
// may adjust the default configuration.
func newStubService(t *testing.T, mutate func(*configpkg.Config), deps ServiceDependencies) (*Service, *testPublisher) {
	t.Helper()
	cfg := configpkg.Default()
	if mutate != nil {
		mutate(cfg)
	}
	pub := &testPublisher{}
	if deps.Extensions == nil {
		deps.Extensions = newTestContainer(t)
	}
	if deps.Metrics == nil {
		deps.Metrics = newTestCollector()
	}
	if deps.TransportFactory == nil {
		deps.TransportFactory = &stubFactory{pub: pub, sub: &testSubscriber{}}
	}
	svc, err := TryNewService(cfg, newTestLogger(), context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub
}
