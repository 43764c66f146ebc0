package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/msgflow/internal/runtime/config"
	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
)

func TestDefaultRegistryNames(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"aws", "channel", "gochannel", "http", "kafka", "nats", "rabbitmq"}, r.Names())
	assert.True(t, r.Has("KAFKA"))
	assert.False(t, r.Has("sqlite"))
}

func TestRegistryBuildUsesRegisteredBuilder(t *testing.T) {
	r := NewRegistry()
	pub := &testPublisher{}
	var seen Config
	r.Register("custom", func(_ context.Context, cfg Config, _ watermill.LoggerAdapter) (Transport, error) {
		seen = cfg
		return Transport{Publisher: pub, Subscriber: &testSubscriber{}}, nil
	})

	conf := &config.Config{PubSubSystem: "Custom"}
	tr, err := r.Build(context.Background(), conf, nil)
	require.NoError(t, err)
	assert.Same(t, pub, tr.Publisher)
	assert.Same(t, conf, seen)
}

func TestRegistryBuildErrors(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Build(context.Background(), nil, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")

	_, err = r.Build(context.Background(), &config.Config{PubSubSystem: "carrier-pigeon"}, watermill.NopLogger{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errspkg.ErrUnknownTransport))
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestRegistryBuildDefaultsToChannel(t *testing.T) {
	tr, err := DefaultFactory().Build(context.Background(), &config.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
	require.NoError(t, tr.Publisher.Close())
}

func TestRegistryCapabilities(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, KafkaCapabilities, r.Capabilities("kafka"))
	assert.True(t, r.Capabilities("rabbitmq").SupportsReliableDelivery())
	assert.False(t, r.Capabilities("rabbitmq").RequiresDLQEmulation())
	assert.True(t, r.Capabilities("nats").RequiresDLQEmulation())

	unknown := r.Capabilities("unknown-transport")
	assert.Equal(t, "unknown-transport", unknown.Name)
	assert.False(t, unknown.SupportsAck)
}

func TestRegisterWithCapabilitiesReplaces(t *testing.T) {
	r := NewDefaultRegistry()
	caps := Capabilities{Name: "kafka", SupportsAck: true, SupportsNack: true}
	r.RegisterWithCapabilities("kafka", kafkaTransport, caps)
	assert.True(t, r.Capabilities("kafka").SupportsReliableDelivery())
}
