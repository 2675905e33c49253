package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/browser/browsertest"
	"tourism_watch/internal/config"
	"tourism_watch/internal/registry"
)

const (
	resultsURL  = "https://www.airbnb.es/s/Granada/homes"
	registryURL = "https://registry.example/buscador.html"
	formURL     = "https://registry.example/form"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Browser.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	cfg.Listings.OutputDir = t.TempDir()
	cfg.Listings.Filename = "listings.csv"
	cfg.Listings.StartURL = resultsURL
	cfg.Registry.URL = registryURL
	return &cfg
}

func newTestApp(t *testing.T, cfg *config.Config, s *browsertest.Session, log *zap.Logger) *App {
	sleep := &browsertest.NoSleep{}
	a, err := NewApp(context.Background(), cfg, log,
		WithOpener(s.Opener()), WithSleeper(sleep.Sleep), WithClock(sleep.Now))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func TestNewAppCreatesDownloadDir(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, browsertest.New(), zap.NewNop())

	require.NotEmpty(t, a.RunID())
	require.True(t, filepath.IsAbs(cfg.Browser.DownloadDir))
	info, err := os.Stat(cfg.Browser.DownloadDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewAppRejectsUnsupportedBrowser(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.Name = "safari"
	cfg.Browser.Prefs = map[string]interface{}{"download.default_directory": "/tmp"}

	_, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.ErrorIs(t, err, browser.ErrOptionsNotSupported)
}

func TestRunListingsClosesSession(t *testing.T) {
	cfg := testConfig(t)
	s := browsertest.New()
	s.AddPage(resultsURL, &browsertest.Page{HTML: `<html><body>
		<div class="c1l1h97y"><meta itemprop="url" content="www.airbnb.es/rooms/1"></div></body></html>`})
	s.AddPage("https://www.airbnb.es/rooms/1", &browsertest.Page{HTML: `<html><body>
		<span class="c2a9hgn">Registro VFT/GR/00042</span></body></html>`})
	core, logs := observer.New(zap.InfoLevel)

	res, err := newTestApp(t, cfg, s, zap.New(core)).RunListings(context.Background(), "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Pages)
	require.Len(t, res.Records, 1)
	require.Equal(t, "VFT/GR/00042", *res.Records[0].Permit)
	require.FileExists(t, filepath.Join(cfg.Listings.OutputDir, "listings.csv"))

	require.True(t, s.Closed())
	require.Equal(t, 1, logs.FilterMessage("Closing browser session").Len())
}

func TestRunRegistryClosesSessionAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	s := browsertest.New()
	s.AddPage(registryURL, &browsertest.Page{Frames: []string{formURL}})
	// The form has no province dropdown.
	s.AddPage(formURL, &browsertest.Page{}).Elements[cfg.Registry.Activity.Value] = &browsertest.Element{
		Options: config.DefaultActivities,
	}

	results, err := newTestApp(t, cfg, s, zap.NewNop()).RunRegistry(context.Background(), []string{"Casa rural"})
	require.Empty(t, results)

	var timeout *registry.WaitTimeoutError
	require.ErrorAs(t, err, &timeout)
	require.Equal(t, "//select[@id='provincia']", timeout.Element)
	require.True(t, s.Closed())

	entries, err := os.ReadDir(cfg.Browser.DownloadDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunReportsCloseFailure(t *testing.T) {
	cfg := testConfig(t)
	s := browsertest.New()
	s.CloseErr = errors.New("driver gone")

	_, err := newTestApp(t, cfg, s, zap.NewNop()).RunListings(context.Background(), "", []string{})
	require.ErrorContains(t, err, "driver gone")
}
