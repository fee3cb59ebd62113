package backend

import (
	"fmt"
	"strings"
)

// RequestError reports a provider response whose envelope was not ok.
// It keeps the method, the request parameters and the raw envelope so the
// caller can surface full diagnostics.
type RequestError struct {
	Method   string
	Params   map[string]any
	Envelope map[string]any
}

func (e *RequestError) Error() string {
	desc := e.Description()
	if desc == "" {
		return fmt.Sprintf("provider request %s failed", e.Method)
	}
	return fmt.Sprintf("provider request %s failed: %s", e.Method, desc)
}

// Description extracts the provider's human-readable error text, if any.
func (e *RequestError) Description() string {
	if e == nil || e.Envelope == nil {
		return ""
	}
	desc, _ := e.Envelope["description"].(string)
	return strings.TrimSpace(desc)
}

// UnsupportedAttachmentError reports an attempt to send an attachment type
// the provider cannot accept.
type UnsupportedAttachmentError struct {
	Type string
}

func (e *UnsupportedAttachmentError) Error() string {
	return fmt.Sprintf("unsupported attachment type %q", e.Type)
}
