// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tourism_watch/internal/browser"
)

const emptyPage = "<html><head></head><body></body></html>"

// Element is a fake element. Options lists the visible texts of a select.
type Element struct {
	Options  []string
	Selected string
	Clicks   int
	ClickErr error
	// OnClick runs after a successful click.
	OnClick func(s *Session)
}

// Page is the content served at one URL. Elements are keyed by selector value.
type Page struct {
	HTML     string
	Elements map[string]*Element
	// Frames holds the URL of each child frame, in document order.
	Frames []string
}

type Session struct {
	mu       sync.Mutex
	pages    map[string]*Page
	location string
	frame    string
	closed   bool

	Navigations []string
	Clicks      []string
	Waits       []time.Duration
	CloseCalls  int
	CloseErr    error
	NavigateErr error
}

func New() *Session {
	return &Session{pages: map[string]*Page{}}
}

// AddPage serves p at url and returns it.
func (s *Session) AddPage(url string, p *Page) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Elements == nil {
		p.Elements = map[string]*Element{}
	}
	s.pages[url] = p
	return p
}

// NextLink returns an element that moves the session to target when clicked.
func NextLink(target string) *Element {
	return &Element{OnClick: func(s *Session) { s.SetLocation(target) }}
}

// SetLocation changes the current URL without recording a navigation.
func (s *Session) SetLocation(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = url
	s.frame = ""
}

// Opener returns an opener that always hands out s.
func (s *Session) Opener() browser.Opener {
	return func(context.Context) (browser.Session, error) { return s, nil }
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return browser.ErrNullSession
	}
	return nil
}

// active returns the page lookups run against. Callers hold mu.
func (s *Session) active() *Page {
	key := s.location
	if s.frame != "" {
		key = s.frame
	}
	return s.pages[key]
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.Navigations = append(s.Navigations, url)
	s.location = url
	s.frame = ""
	return nil
}

func (s *Session) CurrentLocation(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	return s.location, nil
}

func (s *Session) lookup(sel browser.Selector) (*Element, bool) {
	p := s.active()
	if p == nil {
		return nil, false
	}
	e, ok := p.Elements[sel.Value]
	return e, ok
}

func (s *Session) FindElement(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	e, ok := s.lookup(sel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, sel.Value)
	}
	return &handle{s: s, key: sel.Value, e: e}, nil
}

// WaitForElement never blocks: a missing element times out immediately.
func (s *Session) WaitForElement(ctx context.Context, sel browser.Selector, timeout time.Duration) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.Waits = append(s.Waits, timeout)
	e, ok := s.lookup(sel)
	if !ok {
		return nil, fmt.Errorf("%w: %s after %s", browser.ErrWaitTimeout, sel.Value, timeout)
	}
	return &handle{s: s, key: sel.Value, e: e}, nil
}

func (s *Session) SwitchToFrame(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	p := s.pages[s.location]
	if p == nil || index < 0 || index >= len(p.Frames) {
		return fmt.Errorf("%w: frame %d", browser.ErrElementNotFound, index)
	}
	s.frame = p.Frames[index]
	return nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if p := s.active(); p != nil && p.HTML != "" {
		return p.HTML, nil
	}
	return emptyPage, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if s.closed {
		return nil
	}
	s.closed = true
	return s.CloseErr
}

type handle struct {
	s   *Session
	key string
	e   *Element
}

func (h *handle) Click(ctx context.Context) error {
	h.s.mu.Lock()
	if err := h.s.check(ctx); err != nil {
		h.s.mu.Unlock()
		return err
	}
	if h.e.ClickErr != nil {
		h.s.mu.Unlock()
		return h.e.ClickErr
	}
	h.e.Clicks++
	h.s.Clicks = append(h.s.Clicks, h.key)
	h.s.mu.Unlock()

	if h.e.OnClick != nil {
		h.e.OnClick(h.s)
	}
	return nil
}

func (h *handle) SelectOption(ctx context.Context, text string) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.s.check(ctx); err != nil {
		return err
	}
	for _, o := range h.e.Options {
		if o == text {
			h.e.Selected = text
			return nil
		}
	}
	return fmt.Errorf("%w: %q", browser.ErrOptionNotFound, text)
}

// NoSleep is a browser.Sleeper that returns immediately. It records each
// duration and advances a virtual clock read through Now.
type NoSleep struct {
	mu      sync.Mutex
	Slept   []time.Duration
	elapsed time.Duration
}

func (n *NoSleep) Sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Slept = append(n.Slept, d)
	n.elapsed += d
	return ctx.Err()
}

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func (n *NoSleep) Now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return epoch.Add(n.elapsed)
}
