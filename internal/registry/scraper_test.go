package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/config"
	"tourism_watch/internal/models"
)

type memHistory struct {
	records []*models.ExportHistory
}

func (m *memHistory) SaveExportHistory(_ context.Context, h *models.ExportHistory) error {
	m.records = append(m.records, h)
	return nil
}

func TestExtractContinuesAfterFailedActivity(t *testing.T) {
	s := newSite(t)
	store := &memHistory{}
	sc := s.scraper(t, s.config(), store)

	results, err := sc.Extract(context.Background(), []string{"Camping", "Casa rural"})

	var notFound *ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "Camping", notFound.Element)
	require.ErrorContains(t, err, `activity "Camping"`)

	require.Len(t, results, 1)
	require.Equal(t, "Casa rural", results[0].Job.ActivityName)
	require.FileExists(t, results[0].FilePath)

	require.Len(t, store.records, 2)
	require.Equal(t, "error", store.records[0].Status)
	require.NotEmpty(t, store.records[0].ErrorMessage)
	require.Equal(t, "success", store.records[1].Status)
	require.Equal(t, results[0].FilePath, store.records[1].FilePath)
	require.NotEqual(t, store.records[0].ID, store.records[1].ID)
	require.Equal(t, "run-1", store.records[1].RunID)
}

func TestExtractStopsOnClosedSession(t *testing.T) {
	s := newSite(t)
	require.NoError(t, s.session.Close())
	sc := s.scraper(t, s.config(), nil)

	results, err := sc.Extract(context.Background(), nil)
	require.ErrorIs(t, err, browser.ErrNullSession)
	require.Empty(t, results)
	// only the first activity was attempted
	require.Empty(t, s.session.Navigations)
	require.ErrorContains(t, err, config.DefaultActivities[0])
	require.NotContains(t, err.Error(), config.DefaultActivities[1])
}

func TestActivities(t *testing.T) {
	s := newSite(t)
	cfg := s.config()
	sc := s.scraper(t, cfg, nil)
	require.Equal(t, config.DefaultActivities, sc.Activities(nil))
	require.Equal(t, []string{"Casa rural"}, sc.Activities([]string{"Casa rural"}))

	cfg.Activities = []string{"Vivienda de uso turístico"}
	sc = s.scraper(t, cfg, nil)
	require.Equal(t, cfg.Activities, sc.Activities(nil))
}

func TestJob(t *testing.T) {
	s := newSite(t)
	cfg := s.config()
	cfg.DownloadTimeoutFactor = 5
	job := s.scraper(t, cfg, nil).Job("Casa rural")

	require.Equal(t, models.ExportJob{
		ActivityName:     "Casa rural",
		ProvinceName:     "GRANADA",
		MunicipalityName: "GRANADA",
		SourceURL:        registryURL,
		ExpectedFilePath: s.dir + "/exportacion.xlsx",
		Timeout:          10 * time.Second,
	}, job)
}

func TestFormFromConfigRejectsUnknownKind(t *testing.T) {
	cfg := config.Default().Registry
	cfg.Search.By = "id"
	_, err := FormFromConfig(cfg)
	require.ErrorContains(t, err, "unknown selector kind")
}
