package transport

// Capabilities describes the delivery features a transport backend offers.
type Capabilities struct {
	Name string

	// SupportsOrdering reports that messages within a partition or queue
	// arrive in publish order.
	SupportsOrdering bool
	// SupportsAck and SupportsNack report explicit acknowledgement and
	// redelivery on negative acknowledgement.
	SupportsAck  bool
	SupportsNack bool
	// SupportsNativeDLQ reports a broker-side dead letter queue. When false
	// the poison queue middleware routes failed messages.
	SupportsNativeDLQ bool
	// SupportsTracing reports that metadata headers survive the hop, so the
	// correlation id reaches the subscriber.
	SupportsTracing bool

	// MaxMessageSize in bytes; 0 means unlimited or unknown.
	MaxMessageSize int64
}

// SupportsReliableDelivery reports at-least-once delivery (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// RequiresDLQEmulation reports whether failed messages must be routed by the
// application.
func (c Capabilities) RequiresDLQEmulation() bool {
	return !c.SupportsNativeDLQ
}

var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsTracing:  true,
	}

	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsTracing:  true,
		MaxMessageSize:   1 << 20,
	}

	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		SupportsTracing:   true,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1 << 20,
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsAck:     true,
		SupportsTracing: true,
	}

	AWSCapabilities = Capabilities{
		Name:              "aws",
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		SupportsTracing:   true,
		MaxMessageSize:    256 * 1024,
	}
)
