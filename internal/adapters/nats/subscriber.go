package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/transporteba/internal/core/domain"
)

// Subscriber delivers offline worker control messages received over NATS.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeWorkerMessages invokes handler for every well-formed message on
// subject. Malformed payloads are logged and dropped.
func (s *Subscriber) SubscribeWorkerMessages(ctx context.Context, subject string, handler func(ctx context.Context, msg domain.WorkerMessage) error) error {
	sub, err := s.conn.Subscribe(subject, func(m *nats.Msg) {
		var msg domain.WorkerMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Warn("dropping malformed worker message", "subject", m.Subject, "error", err)
			return
		}
		if err := handler(ctx, msg); err != nil {
			slog.Warn("worker message rejected", "type", msg.Type, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
