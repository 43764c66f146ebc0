package runtime

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/msgflow/internal/runtime/metadata"
)

func noopHandler(*message.Message) ([]*message.Message, error) { return nil, nil }

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("adds missing id", func(t *testing.T) {
		msg := message.NewMessage(idspkg.CreateULID(), nil)
		var seen string
		_, err := correlationIDMiddleware(func(m *message.Message) ([]*message.Message, error) {
			seen = m.Metadata.Get(metadatapkg.KeyCorrelationID)
			return nil, nil
		})(msg)
		require.NoError(t, err)
		assert.NotEmpty(t, seen)
	})

	t.Run("keeps existing id", func(t *testing.T) {
		msg := message.NewMessage(idspkg.CreateULID(), nil)
		msg.Metadata.Set(metadatapkg.KeyCorrelationID, "fixed")
		_, err := correlationIDMiddleware(noopHandler)(msg)
		require.NoError(t, err)
		assert.Equal(t, "fixed", msg.Metadata.Get(metadatapkg.KeyCorrelationID))
	})
}

func TestRetryMiddlewareConfigDefaults(t *testing.T) {
	cfg := RetryMiddlewareConfig{}.withDefaults()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialInterval)
	assert.Equal(t, 16*time.Second, cfg.MaxInterval)

	custom := RetryMiddlewareConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Second}.withDefaults()
	assert.Equal(t, 2, custom.MaxRetries)
	assert.Equal(t, time.Millisecond, custom.InitialInterval)
}

func TestRetryMiddlewareSkipsUnprocessable(t *testing.T) {
	mw := retryMiddleware(RetryMiddlewareConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		RetryIf:         func(err error) bool { return !isUnprocessable(err) },
	})

	t.Run("unprocessable runs once", func(t *testing.T) {
		calls := 0
		_, err := mw(func(*message.Message) ([]*message.Message, error) {
			calls++
			return nil, &UnprocessableMessageError{payload: "x", err: errBoom}
		})(message.NewMessage("m", nil))
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error is retried", func(t *testing.T) {
		calls := 0
		_, err := mw(func(*message.Message) ([]*message.Message, error) {
			calls++
			if calls < 3 {
				return nil, errBoom
			}
			return nil, nil
		})(message.NewMessage("m", nil))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})
}

func TestIsUnprocessable(t *testing.T) {
	err := &UnprocessableMessageError{payload: "p", err: errBoom}
	assert.True(t, isUnprocessable(err))
	assert.True(t, isUnprocessable(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, isUnprocessable(errBoom))
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "unprocessable message: p")
}

func TestPoisonQueueMiddlewareRoutesUnprocessable(t *testing.T) {
	svc, pub := newStubService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})
	mw, err := svc.poisonMiddlewareWithFilter(isUnprocessable)
	require.NoError(t, err)
	require.NotNil(t, mw)

	_, err = mw(func(*message.Message) ([]*message.Message, error) {
		return nil, &UnprocessableMessageError{payload: "bad", err: errBoom}
	})(message.NewMessage("m1", []byte("bad")))

	require.NoError(t, err)
	published := pub.Messages()
	require.Len(t, published, 1)
	assert.Equal(t, svc.Conf.PoisonQueue, published[0].topic)

	_, err = mw(func(*message.Message) ([]*message.Message, error) {
		return nil, errBoom
	})(message.NewMessage("m2", nil))
	assert.ErrorIs(t, err, errBoom)
}

func TestPoisonQueueMiddlewareDisabledWithoutQueue(t *testing.T) {
	svc, _ := newStubService(t, func(cfg *configpkg.Config) {
		cfg.PoisonQueue = ""
	}, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw, err := svc.poisonMiddlewareWithFilter(isUnprocessable)

	require.NoError(t, err)
	assert.Nil(t, mw)
}

func TestPoisonQueueMiddlewareRequiresPublisher(t *testing.T) {
	svc := &Service{Conf: configpkg.Default()}
	_, err := svc.poisonMiddlewareWithFilter(isUnprocessable)
	assert.Error(t, err)
}

func TestOutboxMiddlewareStoresOutgoing(t *testing.T) {
	store := &testOutbox{}
	svc := &Service{outbox: store}
	mw := svc.outboxMiddleware()

	out := message.NewMessage("plan-1", []byte(`{"run_id":"r"}`))
	out.Metadata.Set(metadatapkg.KeyEventType, metadatapkg.EventTypePlan)
	bare := message.NewMessage("plan-2", []byte(`{}`))

	msgs, err := mw(func(*message.Message) ([]*message.Message, error) {
		return []*message.Message{out, bare}, nil
	})(message.NewMessage("in", nil))

	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, []outboxRecord{
		{eventType: metadatapkg.EventTypePlan, uuid: "plan-1", payload: `{"run_id":"r"}`},
		{eventType: "unknown_event", uuid: "plan-2", payload: `{}`},
	}, store.Records())
}

func TestOutboxMiddlewareFailsOnStoreError(t *testing.T) {
	svc := &Service{outbox: &testOutbox{err: errBoom}}

	msgs, err := svc.outboxMiddleware()(func(*message.Message) ([]*message.Message, error) {
		return []*message.Message{message.NewMessage("p", nil)}, nil
	})(message.NewMessage("in", nil))

	assert.Nil(t, msgs)
	assert.ErrorIs(t, err, errBoom)
}

func TestOutboxMiddlewareSkippedWithoutStore(t *testing.T) {
	mw, err := OutboxMiddleware().Builder(&Service{})
	require.NoError(t, err)
	assert.Nil(t, mw)
}

func TestMetricsMiddlewareDisabled(t *testing.T) {
	mw, err := MetricsMiddleware().Builder(&Service{Conf: configpkg.Default()})
	require.NoError(t, err)
	assert.Nil(t, mw)
}

func TestTracerMiddlewareKeepsHandlerResult(t *testing.T) {
	msg := message.NewMessage("m", nil)

	_, err := tracerMiddleware(func(m *message.Message) ([]*message.Message, error) {
		assert.NotNil(t, m.Context())
		return nil, errBoom
	})(msg)

	assert.ErrorIs(t, err, errBoom)
}

func TestLogMessagesMiddlewareRequiresLogger(t *testing.T) {
	_, err := LogMessagesMiddleware(nil).Builder(&Service{})
	assert.Error(t, err)

	mw, err := LogMessagesMiddleware(newTestLogger()).Builder(&Service{})
	require.NoError(t, err)
	_, err = mw(noopHandler)(message.NewMessage("m", []byte("payload")))
	assert.NoError(t, err)
}

func TestRegisterMiddleware(t *testing.T) {
	svc, _ := newStubService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	assert.Error(t, svc.RegisterMiddleware(MiddlewareRegistration{Name: "empty"}))
	assert.NoError(t, svc.RegisterMiddleware(MiddlewareRegistration{Name: "nil", Builder: func(*Service) (message.HandlerMiddleware, error) {
		return nil, nil
	}}))
	assert.NoError(t, svc.RegisterMiddleware(RecovererMiddleware()))
	assert.Error(t, (&Service{}).RegisterMiddleware(RecovererMiddleware()))
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	var names []string
	for _, reg := range DefaultMiddlewares() {
		names = append(names, reg.Name)
	}
	assert.Equal(t, []string{
		"correlation_id", "log_messages", "outbox", "tracer", "metrics", "retry", "poison_queue", "recoverer",
	}, names)
}

func TestRecovererTurnsPanicIntoError(t *testing.T) {
	_, err := RecovererMiddleware().Middleware(func(*message.Message) ([]*message.Message, error) {
		panic("kaboom")
	})(message.NewMessage("m", nil))

	require.Error(t, err)
	assert.False(t, errors.Is(err, errBoom))
}
