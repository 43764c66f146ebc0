package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/msgflow/internal/runtime/config"
)

func overrideKafka(t *testing.T, pub func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error), sub func(kafka.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error)) {
	t.Helper()
	origPub, origSub := KafkaPublisherFactory, KafkaSubscriberFactory
	t.Cleanup(func() {
		KafkaPublisherFactory = origPub
		KafkaSubscriberFactory = origSub
	})
	if pub != nil {
		KafkaPublisherFactory = pub
	}
	if sub != nil {
		KafkaSubscriberFactory = sub
	}
}

func TestKafkaTransportPassesSettings(t *testing.T) {
	var pubCfg kafka.PublisherConfig
	var subCfg kafka.SubscriberConfig
	overrideKafka(t,
		func(cfg kafka.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
			pubCfg = cfg
			return &testPublisher{}, nil
		},
		func(cfg kafka.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
			subCfg = cfg
			return &testSubscriber{}, nil
		},
	)

	conf := &config.Config{
		KafkaBrokers:       []string{"k1:9092"},
		KafkaClientID:      "msgflow-bridge",
		KafkaConsumerGroup: "renderers",
	}
	_, err := kafkaTransport(context.Background(), conf, watermill.NopLogger{})
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092"}, pubCfg.Brokers)
	assert.Equal(t, "msgflow-bridge", pubCfg.OverwriteSaramaConfig.ClientID)
	assert.Equal(t, "renderers", subCfg.ConsumerGroup)
	assert.Equal(t, "msgflow-bridge", subCfg.OverwriteSaramaConfig.ClientID)
}

func TestKafkaTransportFailsOnPublisherError(t *testing.T) {
	overrideKafka(t, func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("publisher fail")
	}, nil)

	_, err := kafkaTransport(context.Background(), &config.Config{}, watermill.NopLogger{})
	require.Error(t, err)
}

func TestKafkaTransportClosesPublisherOnSubscriberError(t *testing.T) {
	pub := &testPublisher{}
	overrideKafka(t,
		func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) { return pub, nil },
		func(kafka.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber fail")
		},
	)

	_, err := kafkaTransport(context.Background(), &config.Config{}, watermill.NopLogger{})
	require.Error(t, err)
	assert.True(t, pub.closed.Load())
}
