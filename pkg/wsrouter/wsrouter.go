// Package wsrouter dispatches JSON websocket messages of the form
// {"type": "...", "payload": {...}} to handlers registered per type.
package wsrouter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes map[string]HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// ServeConn reads messages from the connection until it fails or the context
// is cancelled. A handler error ends the connection; handlers are expected to
// absorb recoverable failures themselves.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			// no reply: outbound writes on the conn belong to the
			// caller's serialized sender
			slog.Debug("wsrouter: unknown message type", "type", msg.Type)
			continue
		}

		if err := handler(ctx, conn, msg.Payload); err != nil {
			return err
		}
	}
}
