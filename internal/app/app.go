package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/config"
	"tourism_watch/internal/db"
	"tourism_watch/internal/fetch"
	"tourism_watch/internal/listing"
	"tourism_watch/internal/models"
	"tourism_watch/internal/registry"
)

// App runs the listings and registry pipelines. Each run gets its own browser
// session, released when the run returns.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *db.MongoDB
	runID  string
	opener browser.Opener
	sleep  browser.Sleeper
	now    func() time.Time
}

type Option func(*App)

// WithOpener replaces the configured browser.
func WithOpener(o browser.Opener) Option { return func(a *App) { a.opener = o } }

func WithSleeper(s browser.Sleeper) Option { return func(a *App) { a.sleep = s } }

func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   log,
		runID: uuid.NewString(),
		sleep: browser.Sleep,
		now:   time.Now,
	}
	for _, o := range opts {
		o(a)
	}

	if cfg.Browser.DownloadDir != "" {
		dir, err := filepath.Abs(cfg.Browser.DownloadDir)
		if err != nil {
			return nil, fmt.Errorf("download dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("download dir: %w", err)
		}
		cfg.Browser.DownloadDir = dir
	}

	if a.opener == nil {
		kind, err := browser.ParseKind(cfg.Browser.Name)
		if err != nil {
			return nil, err
		}
		a.opener, err = browser.NewOpener(kind, browser.Options{
			Args:        cfg.Browser.Args,
			Prefs:       cfg.Browser.Prefs,
			Headless:    cfg.Browser.IsHeadless(),
			ExecPath:    cfg.Browser.ExecPath,
			DownloadDir: cfg.Browser.DownloadDir,
		}, log)
		if err != nil {
			return nil, err
		}
	}

	if cfg.DB.Connection != "" {
		store, err := db.NewMongoDB(ctx, cfg.DB, log)
		if err != nil {
			return nil, err
		}
		a.db = store
		log.Info("Mirroring results to MongoDB", zap.String("database", cfg.DB.Database))
	}

	log.Info("Run started", zap.String("run_id", a.runID), zap.String("browser", cfg.Browser.Name))
	return a, nil
}

func (a *App) RunID() string { return a.runID }

// RunListings scrapes the listings site. With explicit listing URLs the
// results pages are not traversed.
func (a *App) RunListings(ctx context.Context, startURL string, listings []string) (*listing.Result, error) {
	var res *listing.Result
	err := browser.WithSession(ctx, a.opener, a.log, func(s browser.Session) error {
		pages := fetch.NewBrowserFetcher(s, a.sleep, a.log)
		deps := listing.Deps{
			Session: s,
			Pages:   pages,
			Sleep:   a.sleep,
			RunID:   a.runID,
		}
		if a.cfg.Listings.Fetcher == "http" {
			deps.Details = fetch.NewHTTPFetcher(a.cfg.HTTP, a.log)
		}
		if a.db != nil {
			deps.Store = a.db
		}
		scraper := listing.NewScraper(a.cfg.Listings, deps, a.log)

		var err error
		if len(listings) > 0 {
			res, err = scraper.ExtractFrom(ctx, listings)
		} else {
			res, err = scraper.Extract(ctx, startURL)
		}
		return err
	})
	if err != nil {
		a.log.Error("Listings run failed", zap.Error(err))
	}
	return res, err
}

// RunRegistry exports the given activities, or the default set when empty.
// Results of successful activities are returned even when others failed.
func (a *App) RunRegistry(ctx context.Context, activities []string) ([]models.ExportResult, error) {
	var results []models.ExportResult
	err := browser.WithSession(ctx, a.opener, a.log, func(s browser.Session) error {
		deps := registry.Deps{
			Session:     s,
			Sleep:       a.sleep,
			Now:         a.now,
			DownloadDir: a.cfg.Browser.DownloadDir,
			RunID:       a.runID,
		}
		if a.db != nil {
			deps.Store = a.db
		}
		scraper, err := registry.NewScraper(a.cfg.Registry, deps, a.log)
		if err != nil {
			return err
		}
		results, err = scraper.Extract(ctx, activities)
		return err
	})
	if err != nil {
		a.log.Error("Registry run failed", zap.Error(err))
	}
	return results, err
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
