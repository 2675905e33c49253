// Package browser is the single point of contact with a controlled browser.
// A Session is owned by exactly one pipeline run and is never shared.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNullSession is returned when operating on a session that was never
	// opened or has been closed.
	ErrNullSession = errors.New("null browser session")

	// ErrElementNotFound indicates a lookup matched nothing.
	ErrElementNotFound = errors.New("element not found")

	// ErrWaitTimeout indicates an element did not appear before the deadline.
	ErrWaitTimeout = errors.New("wait timeout")

	// ErrOptionNotFound indicates a select control has no option with the
	// requested visible text.
	ErrOptionNotFound = errors.New("option not found")

	// ErrBrowserNotSupported indicates an unknown browser or one without a driver.
	ErrBrowserNotSupported = errors.New("browser not supported")

	// ErrOptionsNotSupported indicates preference-style options were given to
	// a browser that cannot take them.
	ErrOptionsNotSupported = errors.New("browser options not supported")
)

type By int

const (
	ByClassName By = iota
	ByCSS
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByClassName:
		return "class"
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return "unknown"
	}
}

// ParseBy maps the configuration names class, css and xpath.
func ParseBy(s string) (By, error) {
	switch s {
	case "class":
		return ByClassName, nil
	case "css":
		return ByCSS, nil
	case "xpath":
		return ByXPath, nil
	}
	return 0, fmt.Errorf("unknown selector kind %q", s)
}

type Selector struct {
	By    By
	Value string
}

func ClassName(v string) Selector { return Selector{By: ByClassName, Value: v} }
func CSS(v string) Selector       { return Selector{By: ByCSS, Value: v} }
func XPath(v string) Selector     { return Selector{By: ByXPath, Value: v} }

// String returns the raw selector value, which is what errors are tagged with.
func (s Selector) String() string {
	return s.Value
}

// css returns a CSS equivalent for class and css selectors.
func (s Selector) css() string {
	if s.By == ByClassName {
		return "." + s.Value
	}
	return s.Value
}

// Element is a handle to one located element.
type Element interface {
	Click(ctx context.Context) error
	// SelectOption picks the option whose visible text equals text.
	SelectOption(ctx context.Context, text string) error
}

// Session is the browser contract the pipelines depend on.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentLocation(ctx context.Context) (string, error)
	// FindElement returns the first match or ErrElementNotFound. It never waits.
	FindElement(ctx context.Context, sel Selector) (Element, error)
	// WaitForElement polls until sel is present or timeout elapses, then
	// returns ErrWaitTimeout.
	WaitForElement(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)
	// SwitchToFrame moves element lookups into the index-th frame of the page.
	SwitchToFrame(ctx context.Context, index int) error
	// PageSource serialises the HTML at the current location.
	PageSource(ctx context.Context) (string, error)
	// Close releases the browser. Closing twice is a no-op.
	Close() error
}

func notFound(sel Selector) error {
	return fmt.Errorf("%w: %s %q", ErrElementNotFound, sel.By, sel.Value)
}

func timedOut(sel Selector, timeout time.Duration) error {
	return fmt.Errorf("%w: %s %q after %s", ErrWaitTimeout, sel.By, sel.Value, timeout)
}
