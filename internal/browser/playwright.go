package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// playwrightSession drives Firefox and WebKit. Playwright calls do not take a
// context, so cancellation is checked between calls.
type playwrightSession struct {
	log *zap.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	frame   playwright.Frame
}

func openFirefox(ctx context.Context, opts Options, log *zap.Logger) (Session, error) {
	return openPlaywright(ctx, opts, log, func(pw *playwright.Playwright) playwright.BrowserType { return pw.Firefox })
}

func openWebKit(ctx context.Context, opts Options, log *zap.Logger) (Session, error) {
	return openPlaywright(ctx, opts, log, func(pw *playwright.Playwright) playwright.BrowserType { return pw.WebKit })
}

func openPlaywright(ctx context.Context, opts Options, log *zap.Logger, pick func(*playwright.Playwright) playwright.BrowserType) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	for _, arg := range opts.Args {
		if name, _, _ := flagName(arg); name == "headless" {
			continue
		}
		launch.Args = append(launch.Args, arg)
	}
	if len(opts.Prefs) > 0 {
		launch.FirefoxUserPrefs = opts.Prefs
	}
	if opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecPath)
	}

	b, err := pick(pw).Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{AcceptDownloads: playwright.Bool(true)})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	if opts.DownloadDir != "" {
		sink := downloadSink{dir: opts.DownloadDir, log: log}
		page.OnDownload(func(d playwright.Download) { sink.handle(d) })
	}

	return &playwrightSession{log: log, pw: pw, browser: b, page: page, frame: page.MainFrame()}, nil
}

type download interface {
	SuggestedFilename() string
	SaveAs(path string) error
}

// downloadSink saves page downloads into dir under their suggested names.
// Playwright delivers events and command replies on one goroutine, so a save
// started from the event handler must run elsewhere.
type downloadSink struct {
	dir string
	log *zap.Logger
}

func (d downloadSink) handle(dl download) {
	go func() { _ = d.save(dl) }()
}

// save writes to a temporary name first so the file only appears once it is
// complete.
func (d downloadSink) save(dl download) error {
	target := filepath.Join(d.dir, filepath.Base(dl.SuggestedFilename()))
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.log.Error("Failed to create download dir", zap.Error(err))
		return err
	}
	partial := target + ".part"
	if err := dl.SaveAs(partial); err != nil {
		d.log.Error("Failed to save download", zap.String("file", target), zap.Error(err))
		_ = os.Remove(partial)
		return err
	}
	if err := os.Rename(partial, target); err != nil {
		d.log.Error("Failed to save download", zap.String("file", target), zap.Error(err))
		return err
	}
	d.log.Debug("Download saved", zap.String("file", target))
	return nil
}

func (s *playwrightSession) current(ctx context.Context) (playwright.Page, playwright.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, nil, ErrNullSession
	}
	return s.page, s.frame, nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	page, _, err := s.current(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.mu.Lock()
	s.frame = page.MainFrame()
	s.mu.Unlock()
	return nil
}

func (s *playwrightSession) CurrentLocation(ctx context.Context) (string, error) {
	page, _, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func locatorFor(sel Selector) string {
	if sel.By == ByXPath {
		return "xpath=" + sel.Value
	}
	return sel.css()
}

func (s *playwrightSession) FindElement(ctx context.Context, sel Selector) (Element, error) {
	_, frame, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	loc := frame.Locator(locatorFor(sel)).First()
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, notFound(sel)
	}
	return &playwrightElement{loc: loc}, nil
}

func (s *playwrightSession) WaitForElement(ctx context.Context, sel Selector, timeout time.Duration) (Element, error) {
	_, frame, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	loc := frame.Locator(locatorFor(sel)).First()
	err = loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, timedOut(sel, timeout)
	}
	if err != nil {
		return nil, err
	}
	return &playwrightElement{loc: loc}, nil
}

func (s *playwrightSession) SwitchToFrame(ctx context.Context, index int) error {
	page, _, err := s.current(ctx)
	if err != nil {
		return err
	}
	frames := page.MainFrame().ChildFrames()
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("%w: frame %d of %d", ErrElementNotFound, index, len(frames))
	}
	s.mu.Lock()
	s.frame = frames[index]
	s.mu.Unlock()
	s.log.Debug("Switched to frame", zap.Int("index", index), zap.String("src", frames[index].URL()))
	return nil
}

func (s *playwrightSession) PageSource(ctx context.Context) (string, error) {
	_, frame, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	return frame.Content()
}

func (s *playwrightSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil
	}
	s.page, s.frame = nil, nil
	return errors.Join(s.browser.Close(), s.pw.Stop())
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func (e *playwrightElement) SelectOption(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	labels, err := e.loc.Locator("option").AllInnerTexts()
	if err != nil {
		return err
	}
	found := false
	for _, l := range labels {
		if strings.TrimSpace(l) == text {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrOptionNotFound, text)
	}
	_, err = e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{text}})
	return err
}
