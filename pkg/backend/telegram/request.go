package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"botwire/pkg/backend"
)

// apiEnvelope is the Bot API response wrapper shared by every method.
type apiEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
}

// request POSTs a form-encoded Bot API call. Parameters with nil values are
// omitted rather than sent. A decoded envelope with ok=false becomes a
// *backend.RequestError carrying the raw envelope.
func (a *Adapter) request(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	form := url.Values{}
	for key, value := range params {
		if value == nil {
			continue
		}
		form.Set(key, paramString(value))
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", a.apiURL, a.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return a.do(req, method, params)
}

// requestUpload POSTs a multipart Bot API call carrying one binary part.
// Used for pending attachments that are sent by content.
func (a *Adapter) requestUpload(ctx context.Context, method string, params map[string]any, field, fileName string, content []byte) (json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for key, value := range params {
		if value == nil {
			continue
		}
		if err := mw.WriteField(key, paramString(value)); err != nil {
			return nil, err
		}
	}

	if fileName == "" {
		fileName = field
	}
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", a.apiURL, a.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return a.do(req, method, params)
}

func (a *Adapter) do(req *http.Request, method string, params map[string]any) (json.RawMessage, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		full := map[string]any{}
		_ = json.Unmarshal(raw, &full)
		return nil, &backend.RequestError{Method: method, Params: params, Envelope: full}
	}

	a.log.Debug("api call", "method", method)

	return envelope.Result, nil
}

// requestFile resolves the provider file path for fileID via getFile, then
// downloads the raw bytes from the file endpoint. Both steps run on every
// call; nothing is cached.
func (a *Adapter) requestFile(ctx context.Context, fileID string) ([]byte, error) {
	result, err := a.request(ctx, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(result, &file); err != nil {
		return nil, fmt.Errorf("decode getFile result: %w", err)
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return nil, fmt.Errorf("getFile returned no file_path for %q", fileID)
	}

	endpoint := fmt.Sprintf("%s/file/bot%s/%s", a.apiURL, a.token, strings.TrimLeft(file.FilePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("file download http %d: %s", resp.StatusCode, strings.TrimSpace(string(preview)))
	}

	return io.ReadAll(resp.Body)
}

// fetcherFor builds the deferred content fetcher attached to existing
// attachments during normalization.
func (a *Adapter) fetcherFor(fileID string) backend.ContentFetcher {
	return func(ctx context.Context) ([]byte, error) {
		return a.requestFile(ctx, fileID)
	}
}

// paramString renders one request parameter the way the Bot API expects
// form values.
func paramString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
