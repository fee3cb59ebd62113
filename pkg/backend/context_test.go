package backend

import "testing"

func TestKeyFor(t *testing.T) {
	cases := []struct {
		name       string
		senderID   int64
		receiverID int64
		want       string
	}{
		{"sender only", 7, 0, "telegram:s7"},
		{"receiver only", 0, 42, "telegram:r42"},
		{"sender within receiver", 7, 42, "telegram:s7:r42"},
		{"identity only", 0, 0, "telegram"},
	}

	for _, tc := range cases {
		if got := KeyFor("telegram", tc.senderID, tc.receiverID); got != tc.want {
			t.Fatalf("%s: KeyFor = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRequestErrorDescription(t *testing.T) {
	err := &RequestError{
		Method:   "sendMessage",
		Params:   map[string]any{"chat_id": "1"},
		Envelope: map[string]any{"ok": false, "description": "Bad Request: chat not found"},
	}

	if got := err.Description(); got != "Bad Request: chat not found" {
		t.Fatalf("Description = %q", got)
	}
	want := "provider request sendMessage failed: Bad Request: chat not found"
	if got := err.Error(); got != want {
		t.Fatalf("Error = %q, want %q", got, want)
	}

	bare := &RequestError{Method: "getMe"}
	if got := bare.Error(); got != "provider request getMe failed" {
		t.Fatalf("bare Error = %q", got)
	}
}
