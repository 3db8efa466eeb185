// Package watcher polls a block-explorer receipt-status endpoint until a
// transaction confirms or the attempt ceiling is reached.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrConfirmationTimeout is returned when every polling attempt is exhausted
// without the explorer reporting success. It says nothing about whether the
// transaction failed; the explorer is an observer, not an authority.
var ErrConfirmationTimeout = errors.New("timed out waiting for transaction confirmation")

const (
	// DefaultInterval is the pause between receipt-status polls.
	DefaultInterval = 4 * time.Second

	// DefaultMaxAttempts bounds the poll count; with the default interval the
	// wait tops out around 160 seconds.
	DefaultMaxAttempts = 40
)

// Watcher checks transaction receipt status against an Etherscan-style API.
type Watcher struct {
	baseURL     string
	apiKey      string
	interval    time.Duration
	maxAttempts int
	httpClient  *http.Client
	log         zerolog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the pause between polls.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithMaxAttempts sets the poll ceiling.
func WithMaxAttempts(n int) Option {
	return func(w *Watcher) { w.maxAttempts = n }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Watcher) { w.httpClient = c }
}

// WithLogger sets the watcher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New creates a watcher against the given explorer API endpoint.
func New(baseURL, apiKey string, opts ...Option) *Watcher {
	w := &Watcher{
		baseURL:     baseURL,
		apiKey:      apiKey,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type receiptStatusResponse struct {
	Status string `json:"status"`
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

// Await blocks until txHash is reported confirmed, polling once per interval
// for at most the configured attempt count. Pending and not-found-yet both
// keep the poll going; so do transient explorer failures.
func (w *Watcher) Await(ctx context.Context, txHash string) error {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		confirmed, err := w.Check(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Debug().Err(err).Str("txhash", txHash).Int("attempt", attempt).Msg("receipt status check failed")
		} else if confirmed {
			w.log.Debug().Str("txhash", txHash).Int("attempt", attempt).Msg("transaction confirmed")
			return nil
		}

		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
	return fmt.Errorf("%w: %s", ErrConfirmationTimeout, txHash)
}

// Check performs a single receipt-status query.
func (w *Watcher) Check(ctx context.Context, txHash string) (bool, error) {
	q := url.Values{}
	q.Set("module", "transaction")
	q.Set("action", "gettxreceiptstatus")
	q.Set("txhash", txHash)
	q.Set("apikey", w.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	var status receiptStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("failed to decode status response: %w", err)
	}
	return status.Result.Status == "1", nil
}
