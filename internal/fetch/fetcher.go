// CLAUDE:SUMMARY Never-failing HTTP collection fetcher: transport and parse errors degrade to empty input.
// Package fetch retrieves raw record collections from upstream JSON APIs.
//
// The fetcher never surfaces an error to its caller: transport failures,
// non-2xx statuses, and malformed JSON are logged and converted to an empty
// slice, so downstream stages must treat zero records as a legitimate outcome
// of a degraded source.
package fetch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RawRecord is one untyped record as received from an upstream source. No
// invariants hold until it has passed a transformer.
type RawRecord = map[string]any

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgent sent with requests.
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "storefeed/1.0"
	}
}

// Fetcher performs bounded-timeout GET requests against upstream sources.
type Fetcher struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
}

// Fetch retrieves url and extracts the top-level collection under key.
// An absent key yields an empty slice; so does every failure mode.
func (f *Fetcher) Fetch(ctx context.Context, url, key string) []RawRecord {
	log := f.logger.With("url", url, "key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("fetch: new request", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("fetch: http get", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("fetch: unexpected status", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		log.Error("fetch: read body", "error", err)
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Error("fetch: invalid JSON response", "error", err)
		return nil
	}

	raw, ok := envelope[key]
	if !ok {
		log.Warn("fetch: collection key absent")
		return nil
	}

	var records []RawRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Error("fetch: invalid collection", "error", err)
		return nil
	}
	return records
}
