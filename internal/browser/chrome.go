package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type chromeSession struct {
	log *zap.Logger

	mu          sync.Mutex
	tab         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	dataDir     string
}

func openChrome(ctx context.Context, opts Options, log *zap.Logger) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
	)
	for _, arg := range opts.Args {
		name, value, hasValue := flagName(arg)
		if name == "" || name == "headless" {
			continue
		}
		if hasValue {
			allocOpts = append(allocOpts, chromedp.Flag(name, value))
		} else {
			allocOpts = append(allocOpts, chromedp.Flag(name, true))
		}
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	s := &chromeSession{log: log}
	if len(opts.Prefs) > 0 {
		dir, err := writeChromePrefs(opts.Prefs)
		if err != nil {
			return nil, err
		}
		s.dataDir = dir
		allocOpts = append(allocOpts, chromedp.UserDataDir(dir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))
	s.tab, s.cancelAlloc, s.cancelTab = tab, cancelAlloc, cancelTab

	downloadDir := opts.DownloadDir
	if d, ok := opts.Prefs["download.default_directory"].(string); ok && downloadDir == "" {
		downloadDir = d
	}
	start := []chromedp.Action{}
	if downloadDir != "" {
		dir, err := filepath.Abs(downloadDir)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("download dir: %w", err)
		}
		start = append(start, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true))
	}
	// The first run launches the browser, bound to the lifetime of tab. A
	// per-call context here would kill the process when the call returns.
	if err := chromedp.Run(tab, start...); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return s, nil
}

// writeChromePrefs stores dotted preference keys as the nested JSON Chrome
// reads from <user-data-dir>/Default/Preferences.
func writeChromePrefs(prefs map[string]interface{}) (string, error) {
	dir, err := os.MkdirTemp("", "tourism-chrome-")
	if err != nil {
		return "", fmt.Errorf("chrome profile: %w", err)
	}
	nested := map[string]interface{}{}
	for key, value := range prefs {
		node := nested
		parts := strings.Split(key, ".")
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	data, err := json.Marshal(nested)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("chrome prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "Default"), 0o755); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "Default", "Preferences"), data, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func (s *chromeSession) tabContext() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return nil, ErrNullSession
	}
	return s.tab, nil
}

// run executes actions on the tab, aborting when ctx is cancelled. It must
// not be the first run on the tab.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	tab, err := s.tabContext()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromeSession) Navigate(ctx context.Context, u string) error {
	return s.run(ctx, chromedp.Navigate(u))
}

func (s *chromeSession) CurrentLocation(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func queryOpts(sel Selector) (string, chromedp.QueryOption) {
	if sel.By == ByXPath {
		return sel.Value, chromedp.BySearch
	}
	return sel.css(), chromedp.ByQueryAll
}

func (s *chromeSession) FindElement(ctx context.Context, sel Selector) (Element, error) {
	query, by := queryOpts(sel)
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, notFound(sel)
	}
	return &chromeElement{s: s, node: nodes[0]}, nil
}

func (s *chromeSession) WaitForElement(ctx context.Context, sel Selector, timeout time.Duration) (Element, error) {
	query, by := queryOpts(sel)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var nodes []*cdp.Node
	err := s.run(waitCtx, chromedp.WaitReady(query, by), chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0)))
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, timedOut(sel, timeout)
	case err != nil:
		return nil, err
	case len(nodes) == 0:
		return nil, notFound(sel)
	}
	return &chromeElement{s: s, node: nodes[0]}, nil
}

// SwitchToFrame loads the frame's document as the top-level page, which keeps
// later lookups and downloads on a single target.
func (s *chromeSession) SwitchToFrame(ctx context.Context, index int) error {
	var frames []*cdp.Node
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc), chromedp.Nodes("iframe", &frames, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("%w: frame %d of %d", ErrElementNotFound, index, len(frames))
	}
	src := frames[index].AttributeValue("src")
	base, err := url.Parse(loc)
	if err != nil {
		return fmt.Errorf("current location %q: %w", loc, err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("frame src %q: %w", src, err)
	}
	target := base.ResolveReference(ref).String()
	s.log.Debug("Switching to frame", zap.Int("index", index), zap.String("src", target))
	return s.run(ctx, chromedp.Navigate(target))
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return nil
	}
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	s.tab = nil
	if s.dataDir != "" {
		os.RemoveAll(s.dataDir)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

type chromeElement struct {
	s    *chromeSession
	node *cdp.Node
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.s.run(ctx, chromedp.MouseClickNode(e.node))
}

const selectByTextJS = `(function(xp, text) {
	const el = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el || !el.options) { return "missing"; }
	for (const o of el.options) {
		if (o.text.trim() === text) {
			el.value = o.value;
			el.dispatchEvent(new Event("change", {bubbles: true}));
			return "ok";
		}
	}
	return "nooption";
})(%s, %s)`

func (e *chromeElement) SelectOption(ctx context.Context, text string) error {
	xp, _ := json.Marshal(e.node.FullXPath())
	arg, _ := json.Marshal(text)
	var res string
	if err := e.s.run(ctx, chromedp.Evaluate(fmt.Sprintf(selectByTextJS, xp, arg), &res)); err != nil {
		return err
	}
	switch res {
	case "ok":
		return nil
	case "nooption":
		return fmt.Errorf("%w: %q", ErrOptionNotFound, text)
	default:
		return fmt.Errorf("%w: select %s", ErrElementNotFound, e.node.FullXPath())
	}
}
