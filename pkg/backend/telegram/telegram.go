// Package telegram implements the backend contract against the Telegram
// Bot API: long-polling ingestion, rate-limited sends, and normalization
// of raw updates into canonical events.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"botwire/pkg/backend"
)

const identity = "telegram"

const (
	defaultAPIURL            = "https://api.telegram.org"
	defaultMessagesPerSecond = 29
	defaultRequestTimeout    = 60 * time.Second
	pollTimeoutSeconds       = 25
	pollCooldown             = time.Second
)

// Config holds the construction parameters for one bot credential.
type Config struct {
	// Token is the bot credential. Required.
	Token string

	// MessagesPerSecond caps outbound send calls. Defaults to 29.
	MessagesPerSecond int

	// APIURL overrides the provider endpoint, mainly for tests.
	APIURL string

	// Proxy is an optional outbound proxy URL. Ignored when HTTPClient is
	// supplied.
	Proxy string

	// HTTPClient, when set, is used for every call and is not closed on
	// shutdown. When nil the adapter builds and owns its own client.
	HTTPClient *http.Client
}

// Adapter is the Telegram backend. One instance serves one bot credential;
// its pacing gate is shared by every concurrent send against that credential.
type Adapter struct {
	token      string
	apiURL     string
	httpClient *http.Client
	ownsClient bool

	pace *pacer
	log  *slog.Logger

	// username is learned from getMe in OnStart, which completes before
	// polling begins; mention scrubbing is inert while it is empty.
	username string

	// offset is the resume cursor, mutated only by AcquireUpdates.
	offset int64
}

var _ backend.Backend = (*Adapter)(nil)

// New validates cfg and returns a ready adapter. The pacing gate is built
// here so it exists before any task that needs it starts.
func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram token is required")
	}

	mps := cfg.MessagesPerSecond
	if mps <= 0 {
		mps = defaultMessagesPerSecond
	}

	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if log == nil {
		log = slog.Default()
	}

	adapter := &Adapter{
		token:  token,
		apiURL: apiURL,
		pace:   &pacer{interval: time.Second / time.Duration(mps)},
		log:    log.With("component", "backend.telegram"),
	}

	if cfg.HTTPClient != nil {
		adapter.httpClient = cfg.HTTPClient
		return adapter, nil
	}

	client := &http.Client{Timeout: defaultRequestTimeout}
	if proxy := strings.TrimSpace(cfg.Proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	adapter.httpClient = client
	adapter.ownsClient = true

	return adapter, nil
}

// Identity returns the backend label used in routing keys and logs.
func (a *Adapter) Identity() string { return identity }

// OnStart logs in with getMe and records the bot's own username, which the
// normalizer needs for mention scrubbing. It must complete before the first
// send and before the first poll iteration.
func (a *Adapter) OnStart(ctx context.Context) error {
	result, err := a.request(ctx, "getMe", nil)
	if err != nil {
		return fmt.Errorf("telegram login: %w", err)
	}

	var me struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.Unmarshal(result, &me); err != nil {
		return fmt.Errorf("decode getMe result: %w", err)
	}

	name := strings.TrimSpace(me.FirstName + " " + me.LastName)
	if name == "" {
		name = "(unknown)"
	}

	a.username = me.Username
	a.log.Info("logged in", "name", name, "username", me.Username)

	return nil
}

// OnShutdown releases the HTTP client only when the adapter created it.
func (a *Adapter) OnShutdown(ctx context.Context) error {
	_ = ctx
	if a.ownsClient {
		a.httpClient.CloseIdleConnections()
	}
	return nil
}

// ExecuteRequest issues an arbitrary Bot API call outside the pacing gate,
// so administrative calls and polling never contend with send pacing.
func (a *Adapter) ExecuteRequest(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	return a.request(ctx, method, params)
}

// Request is a convenience alias for ExecuteRequest.
func (a *Adapter) Request(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	return a.request(ctx, method, params)
}

// pacer is the pacing gate: one mutual-exclusion lock plus a minimum
// interval between consecutive calls, scoped to one bot credential.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
}

// wait sleeps for the pacing interval or until ctx is canceled. It is called
// after each paced call, while the gate is still held.
func (p *pacer) wait(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
