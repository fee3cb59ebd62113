package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"botwire/pkg/backend"
)

// AcquireUpdates performs one long-poll iteration: fetch updates at the
// current cursor, normalize each item, deliver it to sink, and advance the
// cursor past that item. The cursor moves per item and only after the sink
// accepted it, so an interruption mid-batch never redelivers handled items.
//
// Transport and decode failures end the iteration silently; the caller
// re-enters on its own schedule. Cancellation propagates. Any other failure
// is logged and followed by a short cooldown to avoid hammering the
// provider.
func (a *Adapter) AcquireUpdates(ctx context.Context, sink backend.Sink) error {
	result, err := a.request(ctx, "getUpdates", map[string]any{
		"timeout": pollTimeoutSeconds,
		"offset":  a.offset,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			return err
		case isRecoverableTransportError(err):
			a.log.Debug("poll interrupted", "error", err)
			return nil
		default:
			a.log.Error("poll failed", "error", err)
			a.cooldown(ctx)
			return nil
		}
	}

	var rawUpdates []map[string]any
	if err := json.Unmarshal(result, &rawUpdates); err != nil {
		a.log.Debug("poll decode failed", "error", err)
		return nil
	}

	for _, raw := range rawUpdates {
		if err := sink(ctx, a.makeUpdate(raw)); err != nil {
			return err
		}
		if id := int64At(raw, "update_id"); id >= a.offset {
			a.offset = id + 1
		}
	}

	return nil
}

// isRecoverableTransportError separates connection/decode failures, which
// the loop absorbs, from provider rejections, which get the cooldown path.
func isRecoverableTransportError(err error) bool {
	var reqErr *backend.RequestError
	return !errors.As(err, &reqErr)
}

func (a *Adapter) cooldown(ctx context.Context) {
	timer := time.NewTimer(pollCooldown)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
