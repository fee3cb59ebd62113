package telegram

import (
	"context"
	"encoding/json"
	"strconv"

	"botwire/pkg/backend"
)

// attachmentTypeAliases normalizes canonical type synonyms before method
// lookup.
var attachmentTypeAliases = map[string]string{
	"doc":   "document",
	"image": "photo",
}

// sendMethodByType is the closed mapping from provider attachment type to
// outbound method name. Types outside it cannot be sent, by reference or by
// content.
var sendMethodByType = map[string]string{
	"audio":    "sendAudio",
	"document": "sendDocument",
	"photo":    "sendPhoto",
	"sticker":  "sendSticker",
	"video":    "sendVideo",
	"voice":    "sendVoice",
}

// resolveSendMethod maps a canonical attachment type to the provider method
// and the request field carrying the payload. The field name equals the
// normalized type, which the wire format requires.
func resolveSendMethod(attachmentType string) (method, field string, err error) {
	normalized := attachmentType
	if alias, ok := attachmentTypeAliases[attachmentType]; ok {
		normalized = alias
	}
	method, ok := sendMethodByType[normalized]
	if !ok {
		return "", "", &backend.UnsupportedAttachmentError{Type: attachmentType}
	}
	return method, normalized, nil
}

// ExecuteSend delivers text first (when non-empty), then each attachment in
// input order. The whole invocation holds the pacing gate, so concurrent
// sends against the same credential serialize and every call is spaced by
// the pacing interval. params are forwarded to the text message call only.
func (a *Adapter) ExecuteSend(ctx context.Context, targetID int64, text string, attachments []backend.Attachment, params map[string]any) ([]json.RawMessage, error) {
	chatID := strconv.FormatInt(targetID, 10)

	a.pace.mu.Lock()
	defer a.pace.mu.Unlock()

	var results []json.RawMessage

	if text != "" {
		call := map[string]any{
			"chat_id": chatID,
			"text":    text,
		}
		for key, value := range params {
			call[key] = value
		}

		result, err := a.request(ctx, "sendMessage", call)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if err := a.pace.wait(ctx); err != nil {
			return results, err
		}
	}

	for _, attachment := range attachments {
		method, field, err := resolveSendMethod(attachment.Type)
		if err != nil {
			return results, err
		}

		call := map[string]any{"chat_id": chatID}
		if attachment.Title != "" {
			call["caption"] = attachment.Title
		}

		var result json.RawMessage
		if attachment.Uploaded() {
			call[field] = attachment.ID
			result, err = a.request(ctx, method, call)
		} else {
			content, contentErr := attachment.Content(ctx)
			if contentErr != nil {
				return results, contentErr
			}
			result, err = a.requestUpload(ctx, method, call, field, attachment.FileName, content)
		}
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if err := a.pace.wait(ctx); err != nil {
			return results, err
		}
	}

	return results, nil
}

// SendMessage sends text and attachments to targetID with default
// parameters.
func (a *Adapter) SendMessage(ctx context.Context, targetID int64, text string, attachments ...backend.Attachment) ([]json.RawMessage, error) {
	return a.ExecuteSend(ctx, targetID, text, attachments, nil)
}
