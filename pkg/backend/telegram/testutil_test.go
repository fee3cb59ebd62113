package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordedCall captures one Bot API call the fake server received.
type recordedCall struct {
	Method    string
	Form      url.Values
	At        time.Time
	FileField string
	FileName  string
	FileBytes []byte
}

// apiRecorder is a fake Bot API endpoint. Responses come from the results
// map keyed by method name; methods without an entry get an empty ok result.
type apiRecorder struct {
	mu      sync.Mutex
	calls   []recordedCall
	results map[string]string
	files   map[string][]byte // file_path -> bytes served by the file endpoint
}

func (rec *apiRecorder) record(call recordedCall) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.calls = append(rec.calls, call)
}

func (rec *apiRecorder) setResult(method, body string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.results == nil {
		rec.results = map[string]string{}
	}
	rec.results[method] = body
}

func (rec *apiRecorder) resultFor(method string) (string, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	body, ok := rec.results[method]
	return body, ok
}

func (rec *apiRecorder) snapshot() []recordedCall {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedCall(nil), rec.calls...)
}

func (rec *apiRecorder) methods() []string {
	calls := rec.snapshot()
	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Method)
	}
	return names
}

func (rec *apiRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()

		// File downloads hit GET {base}/file/bot{token}/{file_path}.
		if parts := strings.SplitN(r.URL.Path, "/file/bot", 2); len(parts) == 2 {
			filePath := parts[1][strings.Index(parts[1], "/")+1:]
			rec.record(recordedCall{Method: "(file)", At: time.Now(), FileName: filePath})
			if body, ok := rec.files[filePath]; ok {
				_, _ = w.Write(body)
				return
			}
			http.NotFound(w, r)
			return
		}

		method := path.Base(r.URL.Path)
		call := recordedCall{Method: method, At: time.Now()}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart form: %v", err)
			}
			for field, headers := range r.MultipartForm.File {
				if len(headers) == 0 {
					continue
				}
				file, err := headers[0].Open()
				if err != nil {
					t.Fatalf("open multipart file: %v", err)
				}
				content, err := io.ReadAll(file)
				_ = file.Close()
				if err != nil {
					t.Fatalf("read multipart file: %v", err)
				}
				call.FileField = field
				call.FileName = headers[0].Filename
				call.FileBytes = content
			}
		} else if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		call.Form = r.Form
		rec.record(call)

		body, ok := rec.resultFor(method)
		if !ok {
			body = `{"ok":true,"result":{}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// newTestAdapter wires an adapter to a fake Bot API server.
func newTestAdapter(t *testing.T, results map[string]string, messagesPerSecond int) (*Adapter, *apiRecorder) {
	t.Helper()

	rec := &apiRecorder{results: results}
	srv := httptest.NewServer(rec.handler(t))
	t.Cleanup(srv.Close)

	adapter, err := New(Config{
		Token:             "test-token",
		APIURL:            srv.URL,
		MessagesPerSecond: messagesPerSecond,
	}, discardLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	return adapter, rec
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rawUpdate decodes a JSON literal into the opaque payload shape the
// normalizer consumes, so numbers arrive as float64 like in production.
func rawUpdate(t *testing.T, literal string) map[string]any {
	t.Helper()

	var raw map[string]any
	if err := json.Unmarshal([]byte(literal), &raw); err != nil {
		t.Fatalf("decode raw update literal: %v", err)
	}
	return raw
}
