package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/transporteba/internal/adapters/nats"
	"github.com/samirrijal/transporteba/internal/pkg/metrics"
)

// wsMessage narrows or widens the snapshot feed of one connection.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Endpoint string `json:"endpoint"` // catalog key, e.g. "subtes/estado"; "" = all
}

// WebSocketHandler relays upstream fetch snapshots from NATS to connected
// clients. Every connection starts subscribed to all endpoints.
// Clients send {"action":"subscribe","endpoint":"colectivos/posiciones"}.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote", c.RemoteAddr().String())
		if deps.NATS == nil {
			_ = c.WriteJSON(map[string]string{"error": "realtime feed not configured"})
			return
		}
		logger.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) { _ = writeJSON(json.RawMessage(msg.Data)) }

		subs := make(map[string]*nats.Subscription)
		all := natsadapter.SnapshotSubjectPrefix + ">"
		sub, err := deps.NATS.Subscribe(all, relay)
		if err != nil {
			logger.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[all] = sub
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject := all
			if m.Endpoint != "" {
				if _, err := deps.Transit.Catalog().Get(m.Endpoint); err != nil {
					_ = writeJSON(map[string]string{"error": "unknown endpoint: " + m.Endpoint})
					continue
				}
				subject = natsadapter.SnapshotSubject(m.Endpoint)
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := deps.NATS.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				s, exists := subs[subject]
				if !exists {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}
