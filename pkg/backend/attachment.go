package backend

import (
	"context"
	"errors"
)

// ErrNoContent is returned by Content when an attachment carries neither
// local bytes nor a fetcher (generic raw attachments).
var ErrNoContent = errors.New("attachment has no retrievable content")

// ContentFetcher lazily retrieves the bytes of an attachment the provider
// already stores. It may be invoked any number of times; results are not
// cached by the adapter.
type ContentFetcher func(ctx context.Context) ([]byte, error)

type attachmentState int

const (
	attachmentExisting attachmentState = iota
	attachmentPending
)

// Attachment is a dual-mode value: either existing (known to the provider,
// sent by reference) or pending (local content awaiting upload). The two
// cases are built through ExistingAttachment and PendingAttachment so an
// attachment is always in exactly one state.
type Attachment struct {
	state attachmentState

	// Type is the canonical attachment type ("image", "audio", "doc", ...).
	Type     string
	Title    string
	FileName string

	// ID is the provider identifier. Set only for existing attachments.
	ID string

	// Raw is the provider payload the attachment was normalized from.
	Raw map[string]any

	content []byte
	fetch   ContentFetcher
}

// ExistingAttachment builds an attachment the provider already stores.
// fetch may be nil when the provider exposes no content for it.
func ExistingAttachment(id, typ, title, fileName string, fetch ContentFetcher, raw map[string]any) Attachment {
	return Attachment{
		state:    attachmentExisting,
		Type:     typ,
		Title:    title,
		FileName: fileName,
		ID:       id,
		Raw:      raw,
		fetch:    fetch,
	}
}

// RawAttachment builds a generic existing attachment for a provider field
// the adapter has no extraction rules for. It carries only the raw payload.
func RawAttachment(typ string, raw map[string]any) Attachment {
	return Attachment{state: attachmentExisting, Type: typ, Raw: raw}
}

// PendingAttachment builds a local attachment whose content still has to be
// uploaded to the provider.
func PendingAttachment(typ string, content []byte) Attachment {
	return Attachment{state: attachmentPending, Type: typ, content: content}
}

// Uploaded reports whether the provider already stores this attachment.
func (a Attachment) Uploaded() bool { return a.state == attachmentExisting }

// Content returns the attachment bytes. Pending attachments return their
// local content; existing attachments invoke the deferred fetcher on every
// call, so two invocations perform two provider round trips.
func (a Attachment) Content(ctx context.Context) ([]byte, error) {
	if a.state == attachmentPending {
		return a.content, nil
	}
	if a.fetch == nil {
		return nil, ErrNoContent
	}
	return a.fetch(ctx)
}
