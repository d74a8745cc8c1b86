package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/osa-run/osa/internal/bus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 1 << 20
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsFrame is the relay's wire shape: one bus.Event projected to JSON for
// a connected front-end, matching the "text_delta, thinking_delta,
// tool_call" deltas named in SPEC_FULL.md's DOMAIN STACK gorilla/websocket
// entry.
type wsFrame struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id,omitempty"`
	Event     string `json:"event,omitempty"`
	Payload   any    `json:"payload"`
}

// newEventStreamHandler relays every bus.Bus event onto the connected
// socket as one JSON frame per event; it is a one-way push relay, not the
// donor's bidirectional control-plane protocol (see DESIGN.md) — channel
// adapters that need request/response belong outside this core (§1 Non-goals).
func newEventStreamHandler(b *bus.Bus, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(wsMaxMessage)

		frames := make(chan wsFrame, 64)
		forward := func(kind string) bus.Handler {
			return func(ev bus.Event) {
				select {
				case frames <- wsFrame{Kind: kind, SessionID: ev.SessionID, Payload: ev.Payload}:
				default:
				}
			}
		}

		subs := []bus.SubscriptionID{
			b.Subscribe(bus.KindAgentResponse, forward("agent_response")),
			b.Subscribe(bus.KindToolCall, forward("tool_call")),
			b.Subscribe(bus.KindSystemEvent, func(ev bus.Event) {
				se, ok := ev.Payload.(bus.SystemEvent)
				if !ok {
					return
				}
				select {
				case frames <- wsFrame{Kind: "system_event", SessionID: ev.SessionID, Event: se.Name, Payload: se.Data}:
				default:
				}
			}),
		}
		defer func() {
			for _, s := range subs {
				b.Unsubscribe(s)
			}
		}()

		done := make(chan struct{})
		go drainReads(conn, done)

		for {
			select {
			case <-done:
				return
			case frame := <-frames:
				data, err := json.Marshal(frame)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	})
}

// drainReads discards inbound client frames (this relay is push-only) and
// closes done when the connection drops, so the write loop above observes
// the disconnect promptly instead of blocking on a dead socket.
func drainReads(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
