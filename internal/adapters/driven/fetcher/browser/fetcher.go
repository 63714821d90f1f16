// Package browser provides a Fetcher that renders pages in headless Chrome.
// The body is captured once the DOM is ready, after parser-blocking scripts
// have run. Images, stylesheets and other subresources are not awaited, so
// a slow asset cannot hold up ingestion.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-loader/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// DefaultTimeout is the wait policy for one page render.
const DefaultTimeout = 60 * time.Second

// Config holds configuration for the headless browser fetcher.
type Config struct {
	// Timeout bounds launching the browser, loading the page and reading
	// the DOM (default: 60s).
	Timeout time.Duration

	// ExecPath overrides the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string

	// UserAgent overrides the browser user agent.
	UserAgent string
}

// Fetcher renders pages with chromedp and hands the body markup to a
// normaliser.
type Fetcher struct {
	timeout    time.Duration
	execPath   string
	userAgent  string
	normaliser driven.Normaliser
}

// New creates a new headless browser fetcher.
func New(cfg Config, normaliser driven.Normaliser) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		timeout:    cfg.Timeout,
		execPath:   cfg.ExecPath,
		userAgent:  cfg.UserAgent,
		normaliser: normaliser,
	}
}

// allocatorOptions returns the Chrome launch flags.
func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	return opts
}

// Fetch launches a browser, renders url and returns the body text.
// The browser is torn down before Fetch returns, whatever the outcome.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Document, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, f.timeout)
	defer cancelRun()

	logger.Debug("Rendering %s", url)

	var title, body string
	err := chromedp.Run(runCtx,
		navigateDOMReady(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.InnerHTML("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return nil, domain.NewFetchError(url, fmt.Errorf("render: %w", err))
	}

	doc, err := f.normaliser.Normalise(ctx, url, []byte(body))
	if err != nil {
		return nil, domain.NewFetchError(url, fmt.Errorf("normalise: %w", err))
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

// navigateDOMReady loads url and returns on DOMContentLoaded.
// chromedp.Navigate also waits for the load event.
func navigateDOMReady(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		listenCtx, stopListening := context.WithCancel(ctx)
		defer stopListening()

		ready := make(chan struct{})
		var once sync.Once
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				once.Do(func() { close(ready) })
			}
		})

		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
			return err
		}
		if res.ErrorText != "" {
			return fmt.Errorf("navigate: %s", res.ErrorText)
		}

		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Close releases resources. Browsers live only for the duration of a Fetch.
func (f *Fetcher) Close() error {
	return nil
}
