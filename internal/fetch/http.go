package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"tourism_watch/internal/config"
)

var ErrDisallowed = errors.New("disallowed by robots.txt")

// HTTPFetcher fetches pages without a browser. It is only suitable for pages
// that render server-side.
type HTTPFetcher struct {
	collector *colly.Collector
	limiter   *rate.Limiter
	robots    *RobotsGate
	randomUA  bool
	log       *zap.Logger
}

func NewHTTPFetcher(cfg config.HTTPConfig, log *zap.Logger) *HTTPFetcher {
	log = log.Named("fetch")

	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if cfg.BypassCloudflare {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}

	c := colly.NewCollector(colly.IgnoreRobotsTxt(), colly.AllowURLRevisit())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(transport)

	f := &HTTPFetcher{
		collector: c,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		randomUA:  cfg.UserAgent == "",
		log:       log,
	}

	if cfg.FollowsRobots() {
		client := resty.New().SetTimeout(cfg.Timeout)
		client.SetTransport(transport)
		agent := cfg.UserAgent
		if agent == "" {
			agent = "*"
		}
		client.SetHeader("User-Agent", agent)
		f.robots = NewRobotsGate(client, agent, log)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, _ time.Duration) (string, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, url) {
		return "", fmt.Errorf("%w: %s", ErrDisallowed, url)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	f.log.Info("Fetching page", zap.String("url", url))

	c := f.collector.Clone()
	extensions.Referer(c)
	if f.randomUA {
		extensions.RandomUserAgent(c)
	}

	var (
		body        []byte
		contentType string
		fetchErr    error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		contentType = r.Headers.Get("Content-Type")
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("fetch %s: %w", url, err)
	}
	if fetchErr != nil {
		return "", fetchErr
	}
	return decodeBody(body, contentType), nil
}

// decodeBody converts bodies whose encoding is only declared inside the
// document. Bodies with a charset in Content-Type are already UTF-8.
func decodeBody(body []byte, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "charset") || utf8.Valid(body) {
		return string(body)
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
