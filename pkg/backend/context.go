package backend

import (
	"strconv"
	"strings"
)

// Context carries per-event routing state the runtime correlates handlers
// with. Adapters fill the key fields in PrepareContext for events that embed
// a secondary actor (for example an inline callback inside a message).
type Context struct {
	Event Event

	// DefaultTargetID is where a reply goes when the handler does not pick
	// a target itself.
	DefaultTargetID int64

	SenderKey     string
	ReceiverKey   string
	SenderHereKey string
}

// KeyFor builds a correlation key from a backend identity and the optional
// sender/receiver pair. Zero IDs are omitted, so sender-only, receiver-only
// and sender-within-receiver keys all share one format.
func KeyFor(identity string, senderID, receiverID int64) string {
	parts := []string{identity}
	if senderID != 0 {
		parts = append(parts, "s"+strconv.FormatInt(senderID, 10))
	}
	if receiverID != 0 {
		parts = append(parts, "r"+strconv.FormatInt(receiverID, 10))
	}
	return strings.Join(parts, ":")
}
