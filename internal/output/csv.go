// Package output persists listing records.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"tourism_watch/internal/models"
)

// DefaultHeaders label the url, host and permit columns.
var DefaultHeaders = []string{"URL", "HOST", "PERMIT"}

// CSVWriter appends listing records to a CSV file. Every call writes the
// header row followed by one row per record.
type CSVWriter struct {
	dir string
	now func() time.Time
	log *zap.Logger
}

func NewCSVWriter(dir string, log *zap.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, now: time.Now, log: log}
}

// DefaultFilename is <YYYY-MM-DD>_listings.csv for the day of t.
func DefaultFilename(t time.Time) string {
	return t.Format("2006-01-02") + "_listings.csv"
}

// Path resolves the file a Write with filename would use.
func (w *CSVWriter) Path(filename string) string {
	if filename == "" {
		filename = DefaultFilename(w.now())
	}
	if filepath.IsAbs(filename) || w.dir == "" {
		return filename
	}
	return filepath.Join(w.dir, filename)
}

// Write appends headers and records to filename and returns the file path.
// Absent fields become empty cells.
func (w *CSVWriter) Write(filename string, headers []string, records []*models.ListingRecord) (string, error) {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	path := w.Path(filename)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	w.log.Info("Saving listings", zap.String("file", path), zap.Int("records", len(records)))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(headers); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
