package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/msgflow/internal/runtime/metadata"
	"github.com/drblury/msgflow/internal/runtime/models"
	outboxpkg "github.com/drblury/msgflow/internal/runtime/outbox"
)

func startChannelService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	cfg := configpkg.Default()
	cfg.OutboxDriver = "sqlite"
	cfg.OutboxDSN = ":memory:"
	cfg.RetryMaxRetries = 1
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = time.Millisecond

	svc, err := TryNewService(cfg, newTestLogger(), context.Background(), ServiceDependencies{
		Extensions: newTestContainer(t),
		Metrics:    newTestCollector(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = svc.Close()
	})

	select {
	case <-svc.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}
	return svc, ctx
}

func receiveOne(t *testing.T, ctx context.Context, sub message.Subscriber, topic string) *message.Message {
	t.Helper()
	messages, err := sub.Subscribe(ctx, topic)
	require.NoError(t, err)
	select {
	case msg := <-messages:
		require.NotNil(t, msg)
		msg.Ack()
		return msg
	case <-ctx.Done():
		t.Fatalf("no message on %s", topic)
		return nil
	}
}

func TestBridgePlansSubmittedMessages(t *testing.T) {
	svc, ctx := startChannelService(t)

	hints := RenderHints(extensions.PlanContext{})
	hints[metadatapkg.KeyCorrelationID] = "corr-e2e"
	require.NoError(t, svc.Submit(ctx, models.Message{
		GUID: "guid-e2e",
		Text: "see https://example.com",
	}, hints))

	plans, err := svc.Plans(ctx)
	require.NoError(t, err)
	var out *message.Message
	select {
	case out = <-plans:
		out.Ack()
	case <-ctx.Done():
		t.Fatal("no render plan published")
	}

	var plan extensions.RenderPlan
	require.NoError(t, codecpkg.Unmarshal(out.Payload, &plan))
	assert.Equal(t, "guid-e2e", plan.MessageGUID)
	assert.Equal(t, "corr-e2e", out.Metadata.Get(metadatapkg.KeyCorrelationID))
	assert.Equal(t, plan.ContentRendererID(), out.Metadata.Get(metadatapkg.KeyContentRenderer))

	store, ok := svc.outbox.(PlanStore)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		records, err := store.Recent(ctx, 10)
		return err == nil && len(records) == 1
	}, 5*time.Second, 10*time.Millisecond)
	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []outboxpkg.Record{{
		UUID:      out.UUID,
		EventType: metadatapkg.EventTypePlan,
		Payload:   string(out.Payload),
		CreatedAt: records[0].CreatedAt,
	}}, records)
	assert.Equal(t, uint64(1), svc.Metrics().Snapshot().PlansPublished)
}

func TestBridgeRoutesUnprocessableToPoisonQueue(t *testing.T) {
	svc, ctx := startChannelService(t)

	require.NoError(t, svc.publisher.Publish(svc.Conf.InboundTopic, message.NewMessage(idspkg.CreateULID(), []byte("{broken"))))

	poisoned := receiveOne(t, ctx, svc.subscriber, svc.Conf.PoisonQueue)

	assert.Equal(t, "{broken", string(poisoned.Payload))
	assert.Equal(t, uint64(1), svc.Metrics().Snapshot().Unprocessable)
	assert.Zero(t, svc.Metrics().Snapshot().PlansPublished)
}
