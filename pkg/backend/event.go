package backend

// UpdateType discriminates a generic provider update from a chat message.
type UpdateType int

const (
	UpdateTypeUpdate UpdateType = iota
	UpdateTypeMessage
)

// ReceiverType tells whether a message arrived in a one-to-one chat or a
// group/channel context.
type ReceiverType int

const (
	ReceiverSolo ReceiverType = iota
	ReceiverMulti
)

// Event is one normalized inbound item: either a bare Update or a Message.
type Event interface {
	Kind() UpdateType
	RawPayload() map[string]any
}

// Update is the envelope for anything received from the provider. Raw holds
// the untouched provider payload; Meta carries provider-specific flags.
type Update struct {
	Raw  map[string]any
	Type UpdateType
	Meta map[string]any
}

func (u Update) Kind() UpdateType { return u.Type }

func (u Update) RawPayload() map[string]any { return u.Raw }

// Message is the chat-message specialization of Update. Text is the
// entity-processed canonical text, never the raw provider string when
// command scrubbing applies. Attachments keep provider-declared field order.
type Message struct {
	Update

	Text         string
	Attachments  []Attachment
	SenderID     int64
	ReceiverID   int64
	ReceiverType ReceiverType
	Date         int64
}
