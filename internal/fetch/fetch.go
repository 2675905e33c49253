// Package fetch loads page HTML, either through a live browser session or
// over plain HTTP.
package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tourism_watch/internal/browser"
)

// Fetcher loads url and returns its HTML once the page has settled.
type Fetcher interface {
	Fetch(ctx context.Context, url string, settle time.Duration) (string, error)
}

// BrowserFetcher navigates a session and snapshots the rendered page.
type BrowserFetcher struct {
	session browser.Session
	sleep   browser.Sleeper
	log     *zap.Logger
}

func NewBrowserFetcher(s browser.Session, sleep browser.Sleeper, log *zap.Logger) *BrowserFetcher {
	if sleep == nil {
		sleep = browser.Sleep
	}
	return &BrowserFetcher{session: s, sleep: sleep, log: log.Named("fetch")}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string, settle time.Duration) (string, error) {
	f.log.Info("Fetching page", zap.String("url", url))
	if err := f.session.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := f.sleep(ctx, settle); err != nil {
		return "", err
	}
	html, err := f.session.PageSource(ctx)
	if err != nil {
		return "", fmt.Errorf("page source %s: %w", url, err)
	}
	return html, nil
}
