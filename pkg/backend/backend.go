package backend

import (
	"context"
	"encoding/json"
)

// Sink receives one normalized event from a polling iteration. A non-nil
// error stops the iteration without advancing past the failed item.
type Sink func(ctx context.Context, event Event) error

// Backend is the contract every messaging provider adapter satisfies.
// The runtime drives it: OnStart before the first poll or send, OnShutdown
// on teardown, AcquireUpdates in a loop, ExecuteSend/ExecuteRequest from
// event handlers.
type Backend interface {
	// OnStart resolves the adapter's own identity with the provider and
	// finishes any setup that must precede sending or polling.
	OnStart(ctx context.Context) error

	// OnShutdown releases adapter-owned resources. Externally supplied
	// transports are left untouched.
	OnShutdown(ctx context.Context) error

	// PrepareContext derives routing keys for provider events that carry an
	// embedded secondary actor. It mutates c in place and is a no-op for
	// events without one.
	PrepareContext(c *Context)

	// AcquireUpdates performs one long-poll iteration, handing each
	// normalized event to sink. Transient transport failures end the
	// iteration silently; cancellation propagates.
	AcquireUpdates(ctx context.Context, sink Sink) error

	// ExecuteSend delivers text (first, if non-empty) and attachments (in
	// input order) to targetID. params are forwarded to the provider call
	// for the text message. It returns one raw provider result per call made.
	ExecuteSend(ctx context.Context, targetID int64, text string, attachments []Attachment, params map[string]any) ([]json.RawMessage, error)

	// ExecuteRequest issues an arbitrary provider API call.
	ExecuteRequest(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)

	// Identity is the stable label of this backend kind ("telegram", ...).
	Identity() string
}
