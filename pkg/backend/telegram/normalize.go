package telegram

import (
	"sort"
	"strings"

	"botwire/pkg/backend"
)

// attachmentFieldOrder is the fixed scan order of possible attachment fields
// in a raw message. Attachment order in the canonical message follows it.
var attachmentFieldOrder = []string{
	"audio", "voice", "photo", "video", "document", "sticker",
	"animation", "video_note", "contact", "location", "venue",
	"poll", "invoice",
}

// makeUpdate converts one raw provider update into a canonical event.
// Payloads without a message body become bare updates with empty metadata.
func (a *Adapter) makeUpdate(raw map[string]any) backend.Event {
	msg := mapAt(raw, "message")
	if msg == nil {
		return backend.Update{Raw: raw, Type: backend.UpdateTypeUpdate, Meta: map[string]any{}}
	}

	var attachments []backend.Attachment
	for _, key := range attachmentFieldOrder {
		if payload, ok := msg[key]; ok {
			attachments = append(attachments, a.makeAttachment(payload, key))
		}
	}

	chat := mapAt(msg, "chat")

	var text string
	meta := map[string]any{}
	receiverType := backend.ReceiverMulti
	if stringAt(chat, "type") == "private" {
		receiverType = backend.ReceiverSolo
		text, _ = msg["text"].(string)
	} else {
		text, meta = a.extractText(msg)
	}

	return backend.Message{
		Update: backend.Update{
			Raw:  raw,
			Type: backend.UpdateTypeMessage,
			Meta: meta,
		},
		Text:         text,
		Attachments:  attachments,
		SenderID:     int64At(mapAt(msg, "from"), "id"),
		ReceiverID:   int64At(chat, "id"),
		ReceiverType: receiverType,
		Date:         int64At(msg, "date"),
	}
}

// makeAttachment applies the type-specific extraction rules for one raw
// attachment field. Content is never fetched here; existing attachments get
// a deferred fetcher instead.
func (a *Adapter) makeAttachment(payload any, fieldKey string) backend.Attachment {
	switch fieldKey {
	case "photo":
		// Photos arrive as size variants; keep the widest one, the last
		// on a width tie.
		variants, _ := payload.([]any)
		var best map[string]any
		var bestWidth int64 = -1
		for _, variant := range variants {
			size, ok := variant.(map[string]any)
			if !ok {
				continue
			}
			if width := int64At(size, "width"); width >= bestWidth {
				bestWidth = width
				best = size
			}
		}
		if best == nil {
			return backend.RawAttachment(fieldKey, map[string]any{"photo": payload})
		}
		id := stringAt(best, "file_id")
		return backend.ExistingAttachment(id, "image", "", id, a.fetcherFor(id), best)

	case "audio":
		raw, _ := payload.(map[string]any)
		id := stringAt(raw, "file_id")
		title := stringAt(raw, "performer") + " - " + stringAt(raw, "title")
		return backend.ExistingAttachment(id, "audio", title, id, a.fetcherFor(id), raw)

	case "document":
		raw, _ := payload.(map[string]any)
		id := stringAt(raw, "file_id")
		return backend.ExistingAttachment(id, "doc", "", stringAt(raw, "file_name"), a.fetcherFor(id), raw)

	case "sticker", "voice", "video":
		raw, _ := payload.(map[string]any)
		id := stringAt(raw, "file_id")
		return backend.ExistingAttachment(id, fieldKey, "", id, a.fetcherFor(id), raw)

	default:
		raw, ok := payload.(map[string]any)
		if !ok {
			raw = map[string]any{fieldKey: payload}
		}
		return backend.RawAttachment(fieldKey, raw)
	}
}

// extractText rebuilds message text from its declared entities, stripping
// the "@botusername" suffix from bot commands addressed to this bot and
// flagging the explicit mention in metadata. Before login the username is
// unknown and scrubbing is a no-op.
func (a *Adapter) extractText(msg map[string]any) (string, map[string]any) {
	meta := map[string]any{}
	text, _ := msg["text"].(string)

	rawEntities, _ := msg["entities"].([]any)
	if len(rawEntities) == 0 {
		return text, meta
	}

	type entity struct {
		kind   string
		offset int
		length int
	}
	entities := make([]entity, 0, len(rawEntities))
	for _, item := range rawEntities {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entities = append(entities, entity{
			kind:   stringAt(raw, "type"),
			offset: int(int64At(raw, "offset")),
			length: int(int64At(raw, "length")),
		})
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].offset < entities[j].offset
	})

	runes := []rune(text)
	mention := "@" + a.username

	var final strings.Builder
	lastIndex := 0
	for _, ent := range entities {
		if ent.kind != "bot_command" {
			continue
		}
		end := ent.offset + ent.length
		if end > len(runes) {
			end = len(runes)
		}
		// Overlapping or negative provider ranges must not invert the slice.
		if end < lastIndex {
			end = lastIndex
		}
		command := string(runes[lastIndex:end])

		if a.username != "" && strings.HasSuffix(command, mention) {
			final.WriteString(strings.TrimSuffix(command, mention))
			meta["bot_mentioned"] = true
		} else {
			final.WriteString(command)
		}
		lastIndex = end
	}
	final.WriteString(string(runes[lastIndex:]))

	return final.String(), meta
}

// PrepareContext derives the reply target and correlation keys for updates
// that embed a secondary actor, currently inline callback queries.
func (a *Adapter) PrepareContext(c *backend.Context) {
	if c == nil || c.Event == nil || c.Event.Kind() != backend.UpdateTypeUpdate {
		return
	}

	callback := mapAt(c.Event.RawPayload(), "callback_query")
	if callback == nil {
		return
	}

	senderID := int64At(mapAt(callback, "from"), "id")
	chat := mapAt(mapAt(callback, "message"), "chat")
	receiverID := int64At(chat, "id")

	if stringAt(chat, "type") == "private" {
		c.DefaultTargetID = senderID
	} else {
		c.DefaultTargetID = receiverID
	}

	c.SenderKey = backend.KeyFor(identity, senderID, 0)
	c.ReceiverKey = backend.KeyFor(identity, 0, receiverID)
	c.SenderHereKey = backend.KeyFor(identity, senderID, receiverID)
}

// mapAt returns the nested object at key, or nil when absent or not an
// object.
func mapAt(raw map[string]any, key string) map[string]any {
	if raw == nil {
		return nil
	}
	value, _ := raw[key].(map[string]any)
	return value
}

func stringAt(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	value, _ := raw[key].(string)
	return value
}

// int64At reads a numeric field from a decoded JSON object. Values arrive
// as float64 from encoding/json but other integer kinds are accepted too.
func int64At(raw map[string]any, key string) int64 {
	if raw == nil {
		return 0
	}
	switch value := raw[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	default:
		return 0
	}
}
