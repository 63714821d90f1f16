// Package static provides a Fetcher that downloads pages over plain HTTP.
// Scripts are not executed, so it suits server-rendered pages only.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultUserAgent    = "sercha-loader/1.0"
	DefaultMaxBodyBytes = 16 << 20
)

// Config holds configuration for the HTTP fetcher.
type Config struct {
	// Timeout bounds a single page download (default: 60s).
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodyBytes caps the page size read (default: 16 MiB).
	MaxBodyBytes int64
}

// Fetcher downloads pages and hands them to a normaliser.
type Fetcher struct {
	client       *http.Client
	normaliser   driven.Normaliser
	userAgent    string
	maxBodyBytes int64
}

// New creates a new HTTP fetcher.
func New(cfg Config, normaliser driven.Normaliser) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Fetcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		normaliser:   normaliser,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads url and strips its markup.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Document, error) {
	body, err := f.download(ctx, url)
	if err != nil {
		return nil, domain.NewFetchError(url, err)
	}

	doc, err := f.normaliser.Normalise(ctx, url, body)
	if err != nil {
		return nil, domain.NewFetchError(url, fmt.Errorf("normalise: %w", err))
	}
	return doc, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// One extra byte tells a body at the cap apart from a longer one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

// Close releases resources.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
