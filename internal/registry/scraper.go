package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/config"
	"tourism_watch/internal/models"
)

// HistoryStore records the outcome of each export job.
type HistoryStore interface {
	SaveExportHistory(ctx context.Context, h *models.ExportHistory) error
}

type Scraper struct {
	cfg         config.RegistryConfig
	filler      *FormFiller
	downloadDir string
	store       HistoryStore
	runID       string
	now         func() time.Time
	log         *zap.Logger
}

type Deps struct {
	Session     browser.Session
	Sleep       browser.Sleeper
	Now         func() time.Time
	DownloadDir string
	Store       HistoryStore
	RunID       string
}

func selector(s config.SelectorConfig) (browser.Selector, error) {
	by, err := browser.ParseBy(s.By)
	if err != nil {
		return browser.Selector{}, fmt.Errorf("selector %q: %w", s.Value, err)
	}
	return browser.Selector{By: by, Value: s.Value}, nil
}

// FormFromConfig converts the configured selectors.
func FormFromConfig(cfg config.RegistryConfig) (Form, error) {
	var (
		form Form
		errs []error
	)
	for _, f := range []struct {
		dst *browser.Selector
		src config.SelectorConfig
	}{
		{&form.Activity, cfg.Activity},
		{&form.Province, cfg.Province},
		{&form.Municipality, cfg.Municipality},
		{&form.Search, cfg.Search},
		{&form.Excel, cfg.Excel},
	} {
		sel, err := selector(f.src)
		errs = append(errs, err)
		*f.dst = sel
	}
	return form, errors.Join(errs...)
}

func NewScraper(cfg config.RegistryConfig, deps Deps, log *zap.Logger) (*Scraper, error) {
	log = log.Named("registry")
	form, err := FormFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	timing := Timing{
		LoadTime:          cfg.LoadTime,
		ClickTime:         cfg.ClickTime,
		ResultsWaitFactor: cfg.ResultsWaitFactor,
		PollInterval:      cfg.PollInterval,
		FrameIndex:        cfg.FrameIndexOrNone(),
	}
	return &Scraper{
		cfg:         cfg,
		filler:      NewFormFiller(deps.Session, form, timing, deps.Sleep, deps.Now, log),
		downloadDir: deps.DownloadDir,
		store:       deps.Store,
		runID:       deps.RunID,
		now:         deps.Now,
		log:         log,
	}, nil
}

// Job builds the export job for one activity.
func (s *Scraper) Job(activity string) models.ExportJob {
	return models.ExportJob{
		ActivityName:     activity,
		ProvinceName:     s.cfg.ProvinceName,
		MunicipalityName: s.cfg.MunicipalityName,
		SourceURL:        s.cfg.URL,
		ExpectedFilePath: filepath.Join(s.downloadDir, s.cfg.ExportedFilename),
		Timeout:          s.cfg.LoadTime * time.Duration(s.cfg.DownloadTimeoutFactor),
	}
}

// Activities resolves the activity list: the argument, then the configured
// list, then the default set.
func (s *Scraper) Activities(requested []string) []string {
	switch {
	case len(requested) > 0:
		return requested
	case len(s.cfg.Activities) > 0:
		return s.cfg.Activities
	default:
		return config.DefaultActivities
	}
}

// Extract runs one export job per activity. A failed job does not stop the
// next one; failures are joined into the returned error. A dead session or
// cancelled context aborts the remaining jobs.
func (s *Scraper) Extract(ctx context.Context, activities []string) ([]models.ExportResult, error) {
	var (
		results []models.ExportResult
		errs    []error
	)
	for _, activity := range s.Activities(activities) {
		job := s.Job(activity)
		start := s.now()
		path, err := s.filler.Run(ctx, job)
		elapsed := s.now().Sub(start)
		s.record(ctx, job, path, elapsed, err)

		if err != nil {
			errs = append(errs, fmt.Errorf("activity %q: %w", activity, err))
			if errors.Is(err, browser.ErrNullSession) || ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, models.ExportResult{Job: job, FilePath: path, Duration: elapsed})
	}
	return results, errors.Join(errs...)
}

func (s *Scraper) record(ctx context.Context, job models.ExportJob, path string, elapsed time.Duration, jobErr error) {
	if s.store == nil {
		return
	}
	h := &models.ExportHistory{
		ID:           uuid.NewString(),
		RunID:        s.runID,
		Activity:     job.ActivityName,
		Province:     job.ProvinceName,
		Municipality: job.MunicipalityName,
		Status:       "success",
		FilePath:     path,
		Timestamp:    s.now().Unix(),
		Duration:     int(elapsed.Milliseconds()),
	}
	if jobErr != nil {
		h.Status = "error"
		h.ErrorMessage = jobErr.Error()
	}
	if err := s.store.SaveExportHistory(context.WithoutCancel(ctx), h); err != nil {
		s.log.Error("Failed to save export history", zap.String("activity", job.ActivityName), zap.Error(err))
	}
}
