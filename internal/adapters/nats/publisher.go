package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/transporteba/internal/core/domain"
)

// SnapshotSubjectPrefix prefixes every snapshot subject:
// transit.snapshot.<mode>.<resource>.
const SnapshotSubjectPrefix = "transit.snapshot."

// SnapshotSubject returns the subject a snapshot for endpoint key "mode/resource" is published on.
func SnapshotSubject(endpointKey string) string {
	return SnapshotSubjectPrefix + strings.ReplaceAll(endpointKey, "/", ".")
}

// Publisher implements ports.EventPublisher over core NATS. Snapshots are
// fire-and-forget notifications, so no JetStream stream backs them.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// NewPublisherFromConn wraps an existing connection.
func NewPublisherFromConn(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) PublishSnapshot(ctx context.Context, s *domain.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.conn.Publish(SnapshotSubject(s.Endpoint), data)
}

// PublishWorkerMessage sends a control message to offline workers listening on subject.
func (p *Publisher) PublishWorkerMessage(ctx context.Context, subject string, msg domain.WorkerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
