package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tourism_watch/internal/browser"
	"tourism_watch/internal/browser/browsertest"
	"tourism_watch/internal/config"
)

func TestBrowserFetcherNavigatesSettlesAndReads(t *testing.T) {
	s := browsertest.New()
	s.AddPage("https://www.airbnb.es/rooms/1", &browsertest.Page{HTML: "<html><body>room</body></html>"})
	sleep := &browsertest.NoSleep{}

	html, err := NewBrowserFetcher(s, sleep.Sleep, zap.NewNop()).Fetch(context.Background(), "https://www.airbnb.es/rooms/1", 3*time.Second)
	require.NoError(t, err)
	require.Equal(t, "<html><body>room</body></html>", html)
	require.Equal(t, []string{"https://www.airbnb.es/rooms/1"}, s.Navigations)
	require.Equal(t, []time.Duration{3 * time.Second}, sleep.Slept)
}

func TestBrowserFetcherOnClosedSession(t *testing.T) {
	s := browsertest.New()
	require.NoError(t, s.Close())

	_, err := NewBrowserFetcher(s, nil, zap.NewNop()).Fetch(context.Background(), "https://www.airbnb.es/rooms/1", 0)
	require.ErrorIs(t, err, browser.ErrNullSession)
}

func httpConfig() config.HTTPConfig {
	cfg := config.Default().HTTP
	cfg.RatePerSecond = 1000
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestHTTPFetcherDecodesDeclaredCharset(t *testing.T) {
	latin1 := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body>Anfitri\xf3n: Jos\xe9</body></html>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(latin1)
	}))
	defer srv.Close()

	html, err := NewHTTPFetcher(httpConfig(), zap.NewNop()).Fetch(context.Background(), srv.URL+"/rooms/1", 0)
	require.NoError(t, err)
	require.Contains(t, html, "Anfitrión: José")
}

func TestHTTPFetcherReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := httpConfig()
	off := false
	cfg.RespectRobots = &off

	_, err := NewHTTPFetcher(cfg, zap.NewNop()).Fetch(context.Background(), srv.URL+"/rooms/1", 0)
	require.ErrorContains(t, err, "status 500")
}

func TestHTTPFetcherHonoursRobots(t *testing.T) {
	var pageHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		pageHits.Add(1)
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(httpConfig(), zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL+"/private/1", 0)
	require.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Fetch(context.Background(), srv.URL+"/rooms/1", 0)
	require.NoError(t, err)
	require.Equal(t, int32(1), pageHits.Load())
}

func TestRobotsGateLoadsOncePerHost(t *testing.T) {
	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		fmt.Fprint(w, "User-agent: tourism-watch\nDisallow: /s/\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer srv.Close()

	g := NewRobotsGate(resty.New(), "tourism-watch", zap.NewNop())
	ctx := context.Background()
	require.True(t, g.Allowed(ctx, srv.URL+"/rooms/1"))
	require.False(t, g.Allowed(ctx, srv.URL+"/s/granada"))
	require.True(t, g.Allowed(ctx, srv.URL))
	require.Equal(t, int32(1), robotsHits.Load())

	require.False(t, g.Allowed(ctx, "not a url"))
}

func TestRobotsGateAllowsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewRobotsGate(resty.New().SetTimeout(time.Second), "*", zap.NewNop())
	require.True(t, g.Allowed(context.Background(), url+"/rooms/1"))
}

func TestDecodeBody(t *testing.T) {
	require.Equal(t, "José", decodeBody([]byte("José"), "text/html"))
	raw := []byte("Jos\xe9")
	require.Equal(t, string(raw), decodeBody(raw, "text/html; charset=iso-8859-1"))
}
