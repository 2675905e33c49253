package listing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/config"
	"tourism_watch/internal/fetch"
	"tourism_watch/internal/models"
	"tourism_watch/internal/output"
	urlqueue "tourism_watch/internal/url_queue"
)

// Store mirrors listing records outside the CSV file.
type Store interface {
	SaveListing(ctx context.Context, doc *models.ListingDocument) error
}

// Result summarises one listings run.
type Result struct {
	Pages   int
	Records []*models.ListingRecord
	File    string
}

type Scraper struct {
	cfg       config.ListingsConfig
	paginator *Paginator
	details   fetch.Fetcher
	writer    *output.CSVWriter
	store     Store
	runID     string
	log       *zap.Logger
}

// Deps are the collaborators of a Scraper. Details defaults to Pages and
// Store may be nil.
type Deps struct {
	Session browser.Session
	Pages   fetch.Fetcher
	Details fetch.Fetcher
	Sleep   browser.Sleeper
	Writer  *output.CSVWriter
	Store   Store
	RunID   string
}

func NewScraper(cfg config.ListingsConfig, deps Deps, log *zap.Logger) *Scraper {
	log = log.Named("listings")
	if deps.Details == nil {
		deps.Details = deps.Pages
	}
	if deps.Writer == nil {
		deps.Writer = output.NewCSVWriter(cfg.OutputDir, log)
	}
	return &Scraper{
		cfg:       cfg,
		paginator: NewPaginator(deps.Session, deps.Pages, deps.Sleep, log),
		details:   deps.Details,
		writer:    deps.Writer,
		store:     deps.Store,
		runID:     deps.RunID,
		log:       log,
	}
}

func nextSelector(s config.SelectorConfig) (browser.Selector, error) {
	by, err := browser.ParseBy(s.By)
	if err != nil {
		return browser.Selector{}, err
	}
	return browser.Selector{By: by, Value: s.Value}, nil
}

// Extract walks the results starting at startURL (the configured start URL
// when empty), visits every listing and appends the records to the CSV file.
func (s *Scraper) Extract(ctx context.Context, startURL string) (*Result, error) {
	if startURL == "" {
		startURL = s.cfg.StartURL
	}
	next, err := nextSelector(s.cfg.NextPage)
	if err != nil {
		return nil, err
	}

	docs, err := s.paginator.Traverse(ctx, startURL, s.cfg.LoadTime, s.cfg.ClickTime, next)
	if err != nil {
		return nil, fmt.Errorf("traverse %s: %w", startURL, err)
	}

	s.log.Info("Scraping listings' urls from the pages", zap.Int("pages", len(docs)))
	links := ExtractLinks(docs, LinkSelectors{
		Item:      s.cfg.ListingSelector,
		URL:       s.cfg.URLSelector,
		Attribute: s.cfg.URLAttribute,
	}, s.log)

	records, err := s.Records(links)
	if err != nil {
		return nil, err
	}
	res, err := s.finish(ctx, records)
	if res != nil {
		res.Pages = len(docs)
	}
	return res, err
}

// ExtractFrom skips pagination and visits the given listing URLs.
func (s *Scraper) ExtractFrom(ctx context.Context, listings []string) (*Result, error) {
	records, err := s.Records(listings)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, records)
}

func (s *Scraper) finish(ctx context.Context, records []*models.ListingRecord) (*Result, error) {
	if err := s.Details(ctx, records); err != nil {
		return nil, err
	}
	file, err := s.writer.Write(s.cfg.Filename, s.cfg.CSVHeaders, records)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, records)
	return &Result{Records: records, File: file}, nil
}

// Records turns links into url-only records, dropping duplicates and links
// rejected by the follow and exclude patterns.
func (s *Scraper) Records(links []string) ([]*models.ListingRecord, error) {
	filter, err := urlqueue.NewFilter(s.cfg.FollowPatterns, s.cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	set := urlqueue.NewLinkSet(s.cfg.MaxListings)
	for _, link := range links {
		if !filter.Allows(link) {
			s.log.Debug("Skipping filtered link", zap.String("url", link))
			continue
		}
		set.Add(link)
	}
	records := make([]*models.ListingRecord, 0, set.Size())
	for _, link := range set.Links() {
		records = append(records, models.NewListingRecord(link))
	}
	return records, nil
}

// Details fills host and permit on each record in place. A page that cannot
// be fetched leaves its record's fields absent.
func (s *Scraper) Details(ctx context.Context, records []*models.ListingRecord) error {
	s.log.Info("Extracting the data from the listings", zap.Int("listings", len(records)))
	sel := FieldSelectors{
		HostContainer: s.cfg.HostSelector,
		HostnameClass: s.cfg.HostnameClass,
		PermitClass:   s.cfg.PermitClass,
	}
	for _, r := range records {
		html, err := s.details.Fetch(ctx, r.URL, s.cfg.LoadTime)
		if err != nil {
			if fatal(err) {
				return err
			}
			s.log.Warn("Listing page couldn't be fetched", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		doc, err := models.NewDocument(r.URL, 0, html)
		if err != nil {
			s.log.Warn("Listing page couldn't be parsed", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		f := ExtractListingFields(doc, sel, s.log)
		r.Host, r.Permit = f.Host, f.Permit
		r.ContentHash = urlqueue.ComputeContentHash(html)
		if title, excerpt, err := Summarize(doc); err == nil {
			r.Title, r.Excerpt = title, excerpt
		}
	}
	return nil
}

func (s *Scraper) mirror(ctx context.Context, records []*models.ListingRecord) {
	if s.store == nil {
		return
	}
	now := time.Now().Unix()
	saved := 0
	for _, r := range records {
		doc := &models.ListingDocument{
			RunID:         s.runID,
			URL:           r.URL,
			NormalizedURL: urlqueue.NormalizeURL(r.URL),
			Title:         r.Title,
			Excerpt:       r.Excerpt,
			ContentHash:   r.ContentHash,
			LastScraped:   now,
		}
		if r.Host != nil {
			doc.Host = *r.Host
		}
		if r.Permit != nil {
			doc.Permit = *r.Permit
		}
		if err := s.store.SaveListing(ctx, doc); err != nil {
			s.log.Error("Failed to save listing", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		saved++
	}
	s.log.Info("Listings mirrored", zap.Int("saved", saved))
}
