// Package listing walks a search-results site page by page and extracts
// listing links and per-listing fields.
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/fetch"
	"tourism_watch/internal/models"
)

// Paginator follows a "next page" control until the results run out. The
// fetcher must drive the same session the paginator clicks on.
type Paginator struct {
	session browser.Session
	fetcher fetch.Fetcher
	sleep   browser.Sleeper
	log     *zap.Logger
}

func NewPaginator(s browser.Session, f fetch.Fetcher, sleep browser.Sleeper, log *zap.Logger) *Paginator {
	if sleep == nil {
		sleep = browser.Sleep
	}
	return &Paginator{session: s, fetcher: f, sleep: sleep, log: log}
}

// Traverse returns one document per visited results page, in visit order.
// A missing or ineffective next control ends the traversal normally. Only a
// dead session, a cancelled context or a failed page fetch is returned as an
// error, together with the documents gathered so far.
func (p *Paginator) Traverse(ctx context.Context, startURL string, loadDelay, clickDelay time.Duration, next browser.Selector) ([]*models.Document, error) {
	first, err := p.page(ctx, startURL, 1, loadDelay)
	if err != nil {
		return nil, err
	}
	docs := []*models.Document{first}

	loc, err := p.session.CurrentLocation(ctx)
	if err != nil {
		return docs, fmt.Errorf("current location: %w", err)
	}
	state := models.PaginationState{LastSeenURL: loc, PageIndex: 1, HasMore: true}

	for state.HasMore {
		p.log.Info("Going to page", zap.Int("page", state.PageIndex+1))

		if err := p.advance(ctx, next, clickDelay); err != nil {
			if fatal(err) {
				return docs, err
			}
			p.log.Debug("Next page control unavailable", zap.String("selector", next.Value), zap.Error(err))
			p.log.Info("No more pages")
			state.HasMore = false
		}

		after, err := p.session.CurrentLocation(ctx)
		if err != nil {
			return docs, fmt.Errorf("current location: %w", err)
		}
		if after == state.LastSeenURL {
			// The absent-control branch above has already logged.
			if state.HasMore {
				p.log.Info("No more pages")
			}
			state.HasMore = false
			continue
		}

		state.LastSeenURL = after
		state.PageIndex++
		doc, err := p.page(ctx, after, state.PageIndex, loadDelay)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *Paginator) advance(ctx context.Context, next browser.Selector, clickDelay time.Duration) error {
	el, err := p.session.FindElement(ctx, next)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return p.sleep(ctx, clickDelay)
}

func (p *Paginator) page(ctx context.Context, url string, index int, settle time.Duration) (*models.Document, error) {
	html, err := p.fetcher.Fetch(ctx, url, settle)
	if err != nil {
		return nil, err
	}
	return models.NewDocument(url, index, html)
}

// fatal reports errors that must abort a run instead of counting as missing
// data.
func fatal(err error) bool {
	return errors.Is(err, browser.ErrNullSession) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
