package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// Renderer executes JavaScript and returns the rendered DOM. Used as a
// fallback for product pages that ship their metadata client-side.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*types.Page, error)
}

// RenderOptions configures the headless rendering fallback.
type RenderOptions struct {
	Timeout            time.Duration
	CaptureDelay       time.Duration
	UserAgent          string
	ProxyURL           string
	MaxBodyBytes       int64
	DisableHeadless    bool
	ConcurrentSessions int
}

// ChromedpRenderer executes headless Chrome sessions using chromedp.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromedpRenderer constructs a renderer with bounded concurrency.
func NewChromedpRenderer(opts RenderOptions, logger *slog.Logger) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CaptureDelay <= 0 {
		opts.CaptureDelay = 1500 * time.Millisecond
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}
	if opts.ConcurrentSessions <= 0 {
		opts.ConcurrentSessions = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    logger,
	}
}

// Render navigates to the target URL and exports the final DOM outer HTML.
func (r *ChromedpRenderer) Render(parentCtx context.Context, rawURL string) (*types.Page, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse render url: %w", err)
	}

	logger := r.logger.With("url", rawURL, "timeout", r.opts.Timeout.String())

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return nil, parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.opts.Timeout)
	defer cancel()

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", !r.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if proxy := strings.TrimSpace(r.opts.ProxyURL); proxy != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	start := time.Now()
	var html string
	var finalLocation string

	err = chromedp.Run(chromeCtx,
		chromedp.Navigate(target.String()),
		chromedp.Sleep(r.opts.CaptureDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalLocation),
	)
	if err != nil {
		logger.Error("chromedp run failed", "error", err)
		return nil, &UpstreamError{URL: rawURL, Err: fmt.Errorf("chromedp run: %w", err)}
	}

	if int64(len(html)) > r.opts.MaxBodyBytes {
		html = html[:r.opts.MaxBodyBytes]
	}

	finalURL := target
	if finalLocation != "" {
		if u, err := url.Parse(finalLocation); err == nil {
			finalURL = u
		}
	}

	latency := time.Since(start)
	logger.Debug("chromedp render complete",
		"latency_ms", latency.Milliseconds(),
		"final_url", finalURL.String(),
		"html_bytes", len(html),
	)
	return &types.Page{
		URL:             target,
		FinalURL:        finalURL,
		Body:            []byte(html),
		ContentType:     "text/html; charset=utf-8",
		StatusCode:      200,
		FetchedAt:       time.Now(),
		Rendered:        true,
		ResponseLatency: latency,
	}, nil
}
