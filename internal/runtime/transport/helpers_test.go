package transport

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
)

type testPublisher struct {
	closed atomic.Bool
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error { return nil }

func (p *testPublisher) Close() error {
	p.closed.Store(true)
	return nil
}

type testSubscriber struct{}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }
