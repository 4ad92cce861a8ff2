package mq

import (
	"context"
	"fmt"
	"sync"

	"github.com/qrgate/portal/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects the backend selected by cfg.Backend. "none" yields a
// backend that drops published messages; "memory" delivers inside the
// current process only.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case config.MQRabbit:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case config.MQPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	case config.MQMemory:
		return NewMemory(), nil
	case config.MQNone, "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Discard accepts publishes and never delivers anything.
type Discard struct{}

func (Discard) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

// Subscribe blocks until ctx is done.
func (Discard) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (Discard) Close() error { return nil }

// Memory is an in-process backend. Publish delivers synchronously to every
// handler subscribed to the channel; messages published with no subscriber
// are kept until one arrives.
type Memory struct {
	mu       sync.Mutex
	seq      int
	handlers map[string][]Handler
	pending  map[string][]Message
}

func NewMemory() *Memory {
	return &Memory{
		handlers: make(map[string][]Handler),
		pending:  make(map[string][]Message),
	}
}

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	m.seq++
	msg := Message{ID: fmt.Sprintf("mem-%d", m.seq), Data: data, Attributes: attrs}
	handlers := append([]Handler(nil), m.handlers[channel]...)
	if len(handlers) == 0 {
		m.pending[channel] = append(m.pending[channel], msg)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			return msg.ID, err
		}
	}
	return msg.ID, nil
}

// Subscribe registers handler, drains pending messages and blocks until ctx is done.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	m.mu.Lock()
	m.handlers[channel] = append(m.handlers[channel], handler)
	backlog := m.pending[channel]
	delete(m.pending, channel)
	m.mu.Unlock()

	for _, msg := range backlog {
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Pending returns messages published to channel that no subscriber has seen.
func (m *Memory) Pending(channel string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.pending[channel]...)
}

func (m *Memory) Close() error { return nil }
