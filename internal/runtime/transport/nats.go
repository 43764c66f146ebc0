package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
)

var (
	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nats.NewSubscriber(cfg, logger)
	}
)

// natsTransport uses core NATS; JetStream is disabled.
func natsTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	marshaler := &nats.NATSMarshaler{}
	options := natsOptions(conf)
	jetStream := nats.JetStreamConfig{Disabled: true}

	publisher, err := NATSPublisherFactory(
		nats.PublisherConfig{
			URL:         conf.GetNATSURL(),
			NatsOptions: options,
			Marshaler:   marshaler,
			JetStream:   jetStream,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := NATSSubscriberFactory(
		nats.SubscriberConfig{
			URL:         conf.GetNATSURL(),
			NatsOptions: options,
			Unmarshaler: marshaler,
			JetStream:   jetStream,
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// natsOptions maps the connection settings onto nats.go options. Zero values
// keep the client defaults.
func natsOptions(conf Config) []nc.Option {
	var opts []nc.Option
	if name := conf.GetNATSClientName(); name != "" {
		opts = append(opts, nc.Name(name))
	}
	if n := conf.GetNATSMaxReconnects(); n != 0 {
		opts = append(opts, nc.MaxReconnects(n))
	}
	if wait := conf.GetNATSReconnectWait(); wait > 0 {
		opts = append(opts, nc.ReconnectWait(wait))
	}
	return opts
}
