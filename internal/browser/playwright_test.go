package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// blockingDownload holds SaveAs until release is closed, the way a save does
// while its reply has not been delivered.
type blockingDownload struct {
	name    string
	release chan struct{}
	err     error
}

func (d *blockingDownload) SuggestedFilename() string { return d.name }

func (d *blockingDownload) SaveAs(path string) error {
	<-d.release
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(path, []byte("xlsx"), 0o644)
}

func TestDownloadSinkDoesNotBlockEventHandler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	dl := &blockingDownload{name: "exportacion.xlsx", release: make(chan struct{})}
	sink := downloadSink{dir: dir, log: zap.NewNop()}

	returned := make(chan struct{})
	go func() {
		sink.handle(dl)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("download handler blocked until the save completed")
	}

	target := filepath.Join(dir, "exportacion.xlsx")
	require.NoFileExists(t, target)

	close(dl.release)
	require.Eventually(t, func() bool {
		_, err := os.Stat(target)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoFileExists(t, target+".part")
}

func TestDownloadSinkSaveFailure(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.ErrorLevel)
	dl := &blockingDownload{name: "exportacion.xlsx", release: make(chan struct{}), err: errors.New("download canceled")}
	close(dl.release)

	err := downloadSink{dir: dir, log: zap.New(core)}.save(dl)
	require.EqualError(t, err, "download canceled")
	require.Equal(t, 1, logs.FilterMessage("Failed to save download").Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDownloadSinkKeepsFileInsideDir(t *testing.T) {
	dir := t.TempDir()
	dl := &blockingDownload{name: "../../exportacion.xlsx", release: make(chan struct{})}
	close(dl.release)

	require.NoError(t, downloadSink{dir: dir, log: zap.NewNop()}.save(dl))
	require.FileExists(t, filepath.Join(dir, "exportacion.xlsx"))
}
