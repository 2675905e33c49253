package urlqueue

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// LinkSet keeps listing links in discovery order. A link is stored as given
// but compared by its normalized form, so each listing appears once.
type LinkSet struct {
	seen  map[string]bool
	links []string
	limit int
	mu    sync.Mutex
}

// NewLinkSet creates a set holding at most limit links. Zero means unbounded.
func NewLinkSet(limit int) *LinkSet {
	return &LinkSet{
		seen:  make(map[string]bool),
		links: make([]string, 0),
		limit: limit,
	}
}

func (q *LinkSet) Add(link string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.links) >= q.limit {
		return false
	}
	normalized := NormalizeURL(link)
	if q.seen[normalized] {
		return false
	}
	q.seen[normalized] = true
	q.links = append(q.links, link)
	return true
}

func (q *LinkSet) Links() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.links...)
}

func (q *LinkSet) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.links)
}

// NormalizeURL drops the fragment and a leading "www." and defaults the
// scheme to https.
func NormalizeURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	parsed.Fragment = ""
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return parsed.String()
}

func ComputeContentHash(content string) string {
	hash := md5.Sum([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// Filter decides which links are kept. Exclude patterns win over follow
// patterns; with no follow patterns every link not excluded is kept.
type Filter struct {
	follow  []*regexp.Regexp
	exclude []*regexp.Regexp
}

func NewFilter(followPatterns, excludePatterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range followPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("follow pattern %q: %w", p, err)
		}
		f.follow = append(f.follow, re)
	}
	for _, p := range excludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, re)
	}
	return f, nil
}

func (f *Filter) Allows(urlStr string) bool {
	for _, re := range f.exclude {
		if re.MatchString(urlStr) {
			return false
		}
	}

	if len(f.follow) == 0 {
		return true
	}

	for _, re := range f.follow {
		if re.MatchString(urlStr) {
			return true
		}
	}

	return false
}
