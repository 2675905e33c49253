// Package registry drives the tourism registry search form and collects one
// spreadsheet export per activity.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/models"
)

// Step names one stage of an export job. Steps run in declaration order.
type Step int

const (
	SelectActivity Step = iota + 1
	SelectProvince
	SelectMunicipality
	Submit
	Download
	AwaitFileArrival
	Rename
)

var stepNames = map[Step]string{
	SelectActivity:     "select activity",
	SelectProvince:     "select province",
	SelectMunicipality: "select municipality",
	Submit:             "submit",
	Download:           "download",
	AwaitFileArrival:   "await file arrival",
	Rename:             "rename",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Form locates the controls of the search form.
type Form struct {
	Activity     browser.Selector
	Province     browser.Selector
	Municipality browser.Selector
	Search       browser.Selector
	Excel        browser.Selector
}

// Timing holds the delays of the form. Element waits are bounded by
// LoadTime; ClickTime and the results wait are fixed pauses.
type Timing struct {
	LoadTime          time.Duration
	ClickTime         time.Duration
	ResultsWaitFactor int
	PollInterval      time.Duration
	// FrameIndex is the frame holding the form, or -1 for the top page.
	FrameIndex int
}

// FormFiller runs export jobs on one session.
type FormFiller struct {
	session browser.Session
	form    Form
	timing  Timing
	sleep   browser.Sleeper
	now     func() time.Time
	log     *zap.Logger
}

func NewFormFiller(s browser.Session, form Form, timing Timing, sleep browser.Sleeper, now func() time.Time, log *zap.Logger) *FormFiller {
	if sleep == nil {
		sleep = browser.Sleep
	}
	if now == nil {
		now = time.Now
	}
	return &FormFiller{session: s, form: form, timing: timing, sleep: sleep, now: now, log: log}
}

// Run drives the form for job and returns the path of the renamed export.
func (f *FormFiller) Run(ctx context.Context, job models.ExportJob) (string, error) {
	log := f.log.With(zap.String("activity", job.ActivityName))
	log.Info("Retrieving activity")

	if err := f.clearStale(job.ExpectedFilePath, log); err != nil {
		return "", err
	}
	if err := f.session.Navigate(ctx, job.SourceURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", job.SourceURL, err)
	}
	if f.timing.FrameIndex >= 0 {
		if err := f.session.SwitchToFrame(ctx, f.timing.FrameIndex); err != nil {
			return "", fmt.Errorf("switch to frame %d: %w", f.timing.FrameIndex, err)
		}
	}

	selects := []struct {
		step Step
		sel  browser.Selector
		text string
	}{
		{SelectActivity, f.form.Activity, job.ActivityName},
		{SelectProvince, f.form.Province, job.ProvinceName},
		{SelectMunicipality, f.form.Municipality, job.MunicipalityName},
	}
	for _, s := range selects {
		if err := f.choose(ctx, s.step, s.sel, s.text, log); err != nil {
			return "", err
		}
	}

	log.Debug("Running step", zap.Stringer("step", Submit))
	if err := f.click(ctx, f.form.Search); err != nil {
		return "", err
	}
	if err := f.sleep(ctx, f.timing.LoadTime*time.Duration(f.timing.ResultsWaitFactor)); err != nil {
		return "", err
	}

	log.Debug("Running step", zap.Stringer("step", Download))
	if err := f.click(ctx, f.form.Excel); err != nil {
		return "", err
	}

	log.Info("Downloading excel file", zap.String("file", job.ExpectedFilePath))
	if err := f.await(ctx, job.ExpectedFilePath, job.Timeout); err != nil {
		log.Error("Timeout waiting for file to download", zap.Error(err))
		return "", err
	}

	path, err := f.rename(job)
	if err != nil {
		log.Error("Error while renaming exported file", zap.Error(err))
		return "", err
	}
	log.Info("Export saved", zap.String("file", path))
	return path, nil
}

// clearStale removes an export left behind by an earlier job so it is not
// mistaken for this job's download.
func (f *FormFiller) clearStale(path string, log *zap.Logger) error {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Warn("Removed stale export", zap.String("file", path))
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return &RenameFileError{Filename: filepath.Base(path), Err: err}
	}
}

func (f *FormFiller) choose(ctx context.Context, step Step, sel browser.Selector, text string, log *zap.Logger) error {
	log.Debug("Running step", zap.Stringer("step", step), zap.String("value", text))

	el, err := f.session.WaitForElement(ctx, sel, f.timing.LoadTime)
	switch {
	case errors.Is(err, browser.ErrWaitTimeout):
		log.Error("Timeout waiting for selector to load", zap.Stringer("step", step), zap.String("selector", sel.Value))
		return &WaitTimeoutError{Element: sel.Value, Err: err}
	case errors.Is(err, browser.ErrElementNotFound):
		return &ElementNotFoundError{Element: sel.Value, Err: err}
	case err != nil:
		return err
	}

	if err := el.SelectOption(ctx, text); err != nil {
		if errors.Is(err, browser.ErrOptionNotFound) || errors.Is(err, browser.ErrElementNotFound) {
			log.Error("Option not found", zap.Stringer("step", step), zap.String("value", text))
			return &ElementNotFoundError{Element: text, Err: err}
		}
		return err
	}
	return f.sleep(ctx, f.timing.ClickTime)
}

func (f *FormFiller) click(ctx context.Context, sel browser.Selector) error {
	el, err := f.session.FindElement(ctx, sel)
	if errors.Is(err, browser.ErrElementNotFound) {
		return &ElementNotFoundError{Element: sel.Value, Err: err}
	}
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// await polls for path once per poll interval until it exists or timeout
// has elapsed.
func (f *FormFiller) await(ctx context.Context, path string, timeout time.Duration) error {
	start := f.now()
	for {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := f.sleep(ctx, f.timing.PollInterval); err != nil {
			return err
		}
		if f.now().Sub(start) > timeout {
			return &WaitTimeoutError{Element: filepath.Base(path)}
		}
	}
}

// ExportName is <YYYY-MM-DD>_<activity with underscores>.xlsx.
func ExportName(activity string, t time.Time) string {
	return t.Format("2006-01-02") + "_" + strings.ReplaceAll(activity, " ", "_") + ".xlsx"
}

func (f *FormFiller) rename(job models.ExportJob) (string, error) {
	target := filepath.Join(filepath.Dir(job.ExpectedFilePath), ExportName(job.ActivityName, f.now()))
	if err := os.Rename(job.ExpectedFilePath, target); err != nil {
		return "", &RenameFileError{Filename: filepath.Base(job.ExpectedFilePath), Err: err}
	}
	return target, nil
}
