// Package session stores per-conversation state keyed by an opaque,
// client-supplied session id. Payloads are opaque bytes; the chat engine
// owns their shape. The engine depends only on Store, so the in-process map
// and the Redis client are interchangeable.
package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	// Get returns the stored payload or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, payload []byte) error
	Delete(ctx context.Context, id string) error
}
