package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"botwire/pkg/backend"
)

func TestResolveSendMethodAliases(t *testing.T) {
	cases := [][2]string{
		{"doc", "document"},
		{"image", "photo"},
	}

	for _, pair := range cases {
		aliasMethod, aliasField, err := resolveSendMethod(pair[0])
		if err != nil {
			t.Fatalf("resolveSendMethod(%q) error: %v", pair[0], err)
		}
		canonMethod, canonField, err := resolveSendMethod(pair[1])
		if err != nil {
			t.Fatalf("resolveSendMethod(%q) error: %v", pair[1], err)
		}
		if aliasMethod != canonMethod || aliasField != canonField {
			t.Fatalf("alias %q resolved to (%s,%s), canonical %q to (%s,%s)",
				pair[0], aliasMethod, aliasField, pair[1], canonMethod, canonField)
		}
	}

	if method, _, err := resolveSendMethod("photo"); err != nil || method != "sendPhoto" {
		t.Fatalf("resolveSendMethod(photo) = %q, %v", method, err)
	}
}

func TestExecuteSendOrderingAndPacing(t *testing.T) {
	const mps = 50 // 20ms spacing keeps the test fast
	adapter, rec := newTestAdapter(t, nil, mps)

	attachments := []backend.Attachment{
		backend.ExistingAttachment("photo-1", "image", "", "photo-1", nil, nil),
		backend.ExistingAttachment("doc-1", "doc", "notes", "notes.txt", nil, nil),
	}

	results, err := adapter.ExecuteSend(context.Background(), 42, "hello", attachments, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	calls := rec.snapshot()
	require.Equal(t, []string{"sendMessage", "sendPhoto", "sendDocument"}, rec.methods())

	require.Equal(t, "42", calls[0].Form.Get("chat_id"))
	require.Equal(t, "hello", calls[0].Form.Get("text"))
	require.Equal(t, "photo-1", calls[1].Form.Get("photo"))
	require.Empty(t, calls[1].Form.Get("caption"))
	require.Equal(t, "doc-1", calls[2].Form.Get("document"))
	require.Equal(t, "notes", calls[2].Form.Get("caption"))

	interval := time.Second / mps
	for i := 1; i < len(calls); i++ {
		spacing := calls[i].At.Sub(calls[i-1].At)
		require.GreaterOrEqual(t, spacing, interval, "call %d arrived too soon", i)
	}
}

func TestExecuteSendForwardsExtraParams(t *testing.T) {
	adapter, rec := newTestAdapter(t, nil, 100)

	_, err := adapter.ExecuteSend(context.Background(), 7, "hi", nil, map[string]any{
		"parse_mode": "MarkdownV2",
		"silent":     nil, // absent values are omitted, not sent
	})
	require.NoError(t, err)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "MarkdownV2", calls[0].Form.Get("parse_mode"))
	require.False(t, calls[0].Form.Has("silent"))
}

func TestExecuteSendUploadsPendingAttachment(t *testing.T) {
	adapter, rec := newTestAdapter(t, nil, 100)

	pending := backend.PendingAttachment("doc", []byte("file body"))
	_, err := adapter.ExecuteSend(context.Background(), 9, "", []backend.Attachment{pending}, nil)
	require.NoError(t, err)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "sendDocument", calls[0].Method)
	require.Equal(t, "document", calls[0].FileField)
	require.Equal(t, []byte("file body"), calls[0].FileBytes)
	require.Equal(t, "9", calls[0].Form.Get("chat_id"))
}

func TestExecuteSendRejectsUnsupportedUpload(t *testing.T) {
	adapter, rec := newTestAdapter(t, nil, 100)

	pending := backend.PendingAttachment("poll", []byte("{}"))
	_, err := adapter.ExecuteSend(context.Background(), 9, "", []backend.Attachment{pending}, nil)

	var unsupported *backend.UnsupportedAttachmentError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "poll", unsupported.Type)
	require.Empty(t, rec.snapshot(), "no network call may precede the type check")
}

func TestExecuteSendSurfacesProviderRejection(t *testing.T) {
	adapter, _ := newTestAdapter(t, map[string]string{
		"sendMessage": `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	}, 100)

	_, err := adapter.ExecuteSend(context.Background(), 1, "hi", nil, nil)

	var reqErr *backend.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, "sendMessage", reqErr.Method)
	require.Equal(t, "Bad Request: chat not found", reqErr.Description())
	require.Equal(t, "hi", reqErr.Params["text"])
}

func TestExecuteSendStopsOnCancel(t *testing.T) {
	adapter, rec := newTestAdapter(t, nil, 1) // 1s spacing, never reached

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := adapter.ExecuteSend(ctx, 1, "hi", []backend.Attachment{
		backend.ExistingAttachment("x", "image", "", "x", nil, nil),
	}, nil)

	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, []string{"sendMessage"}, rec.methods())
}
