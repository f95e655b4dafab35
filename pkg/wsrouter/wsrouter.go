// Package wsrouter dispatches type-tagged JSON frames to registered handlers.
// Frames are flat objects carrying a "type" field next to their payload
// fields, so handlers receive the whole frame for decoding.
package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

type frame struct {
	Type string `json:"type"`
}

type HandlerFunc func(ctx context.Context, data json.RawMessage)

type WSRouter struct {
	routes map[string]HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// Dispatch routes one inbound frame. A frame that is not valid JSON or whose
// type has no handler is reported as an error and has no other effect.
func (r *WSRouter) Dispatch(ctx context.Context, data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse frame: %w", err)
	}

	handler, exists := r.routes[f.Type]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}

	handler(ctx, data)
	return nil
}
