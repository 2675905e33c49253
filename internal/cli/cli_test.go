package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourism_watch/internal/config"
	"tourism_watch/internal/listing"
	"tourism_watch/internal/models"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "tourism-watch dev\n", out.String())
}

func TestRenderListings(t *testing.T) {
	host := "Lucía"
	res := &listing.Result{
		Pages: 2,
		Records: []*models.ListingRecord{
			{URL: "https://www.airbnb.es/rooms/1", Host: &host},
			{URL: "https://www.airbnb.es/rooms/2"},
		},
		File: "out/2024-05-01_listings.csv",
	}

	var out bytes.Buffer
	renderListings(&out, res)
	require.Contains(t, out.String(), "Listings")
	require.Contains(t, out.String(), "out/2024-05-01_listings.csv")
	require.Regexp(t, `│\s+2\s+│\s+2\s+│\s+1\s+│\s+0\s+│`, out.String())
}

func TestRenderExports(t *testing.T) {
	var out bytes.Buffer
	renderExports(&out, []models.ExportResult{{
		Job:      models.ExportJob{ActivityName: "Casa rural"},
		FilePath: "downloads/2024-05-01_Casa_rural.xlsx",
		Duration: 14600 * time.Millisecond,
	}})
	require.Contains(t, out.String(), "Casa rural")
	require.Contains(t, out.String(), "2024-05-01_Casa_rural.xlsx")
	require.Contains(t, out.String(), "15s")
}

func TestSetupTeardownReleasesLogFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("counts descriptors through /proc")
	}
	countFDs := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		require.NoError(t, err)
		return len(entries)
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Browser.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Log.File = filepath.Join(dir, "run.log")
	rootCmd.SetContext(context.Background())

	before := countFDs()
	a, done, err := setup(rootCmd, &cfg)
	require.NoError(t, err)
	require.NotEmpty(t, a.RunID())
	require.Equal(t, before+1, countFDs())

	done()
	require.Equal(t, before, countFDs())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	require.Contains(t, string(data), "Run started")
}
