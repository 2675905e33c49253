package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed snapshot of one fetched page. It is owned by the stage
// that fetched it and is never modified after parsing.
type Document struct {
	URL   string
	Index int
	HTML  string

	dom *goquery.Document
}

// NewDocument parses raw HTML into a Document. Index is the 1-based fetch order.
func NewDocument(url string, index int, html string) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", url, err)
	}
	return &Document{URL: url, Index: index, HTML: html, dom: dom}, nil
}

// Find runs a CSS selector against the document root.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.dom.Find(selector)
}

// Selection exposes the whole document as a selection.
func (d *Document) Selection() *goquery.Selection {
	return d.dom.Selection
}

// ListingRecord holds the data extracted for one listing. URL is the unique
// key within a run and is never overwritten. Host and Permit stay nil when
// they could not be extracted.
type ListingRecord struct {
	URL    string
	Host   *string
	Permit *string

	Title       string
	Excerpt     string
	ContentHash string
}

// NewListingRecord creates a record with only the URL populated.
func NewListingRecord(url string) *ListingRecord {
	return &ListingRecord{URL: url}
}

// Row converts the record to a CSV row [url, host, permit]. Absent fields
// become empty cells.
func (r *ListingRecord) Row() []string {
	return []string{r.URL, deref(r.Host), deref(r.Permit)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PaginationState lives for a single traversal call.
type PaginationState struct {
	LastSeenURL string
	PageIndex   int
	HasMore     bool
}

// ExportJob describes one registry activity export.
type ExportJob struct {
	ActivityName     string
	ProvinceName     string
	MunicipalityName string
	SourceURL        string
	ExpectedFilePath string
	Timeout          time.Duration
}

// ExportResult is the terminal state of a successful ExportJob.
type ExportResult struct {
	Job      ExportJob
	FilePath string
	Duration time.Duration
}

type ListingDocument struct {
	ID            string `bson:"_id,omitempty"`
	RunID         string `bson:"run_id"`
	URL           string `bson:"url"`
	NormalizedURL string `bson:"normalized_url"`
	Host          string `bson:"host,omitempty"`
	Permit        string `bson:"permit,omitempty"`
	Title         string `bson:"title,omitempty"`
	Excerpt       string `bson:"excerpt,omitempty"`
	ContentHash   string `bson:"content_hash"`
	LastScraped   int64  `bson:"last_scraped"`
	ScrapedCount  int    `bson:"scraped_count"`
}

type ExportHistory struct {
	ID           string `bson:"_id"`
	RunID        string `bson:"run_id"`
	Activity     string `bson:"activity"`
	Province     string `bson:"province"`
	Municipality string `bson:"municipality"`
	Status       string `bson:"status"` // success, error
	FilePath     string `bson:"file_path,omitempty"`
	Timestamp    int64  `bson:"timestamp"`
	Duration     int    `bson:"duration_ms"`
	ErrorMessage string `bson:"error_message,omitempty"`
}
