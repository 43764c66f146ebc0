// Package transport builds the Watermill publisher/subscriber pair the
// service consumes messages from and publishes render plans to.
package transport

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Config exposes the settings transport builders read. *config.Config
// implements it.
type Config interface {
	GetPubSubSystem() string
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string
	GetRabbitMQURL() string
	GetNATSURL() string
	GetNATSClientName() string
	GetNATSMaxReconnects() int
	GetNATSReconnectWait() time.Duration
	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// Builder creates a transport for one pubsub system.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Factory abstracts how the service initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns a factory backed by a registry holding every
// built-in transport.
func DefaultFactory() Factory {
	return NewDefaultRegistry()
}
