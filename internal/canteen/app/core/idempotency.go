package core

import (
	"context"
	"fmt"
)

var ErrRequestInFlight = fmt.Errorf("%w: a request with this idempotency key is still in progress", ErrConflict)

// StoredResponse is a completed response kept for replays.
type StoredResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

type IIdempotencyStore interface {
	// Begin reserves key. A non-nil response means the key already completed.
	Begin(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse) error
	Release(ctx context.Context, key string) error
}
