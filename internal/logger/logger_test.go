package logger

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("chatty")
	require.Error(t, err)
}

func openFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, closeLog, err := New(Options{Level: "info", File: path})
	require.NoError(t, err)

	log.Named("registry").Info("Selecting option", zap.String("option", "GRANADA"))
	log.Debug("hidden")
	require.NoError(t, log.Sync())
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] INFO TourismWatcher\.registry Selecting option \{"option": "GRANADA"\}\n$`, string(data))
}

func TestCloseReleasesLogFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("counts descriptors through /proc")
	}
	before := openFiles(t)
	log, closeLog, err := New(Options{File: filepath.Join(t.TempDir(), "run.log")})
	require.NoError(t, err)
	log.Info("Run started")
	require.Equal(t, before+1, openFiles(t))

	closeLog()
	require.Equal(t, before, openFiles(t))
}

func TestNewWithoutFile(t *testing.T) {
	log, closeLog, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, log)
	closeLog()
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	require.Error(t, err)
}
