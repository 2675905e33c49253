package fetch

import (
	"context"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGate answers whether a user agent may fetch a URL. Rules are loaded
// once per host. A host whose robots.txt cannot be loaded is allowed.
type RobotsGate struct {
	client *resty.Client
	agent  string
	log    *zap.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsGate(client *resty.Client, agent string, log *zap.Logger) *RobotsGate {
	return &RobotsGate{
		client: client,
		agent:  agent,
		log:    log,
		groups: make(map[string]*robotstxt.Group),
	}
}

func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	group := g.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *RobotsGate) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	group, ok := g.groups[key]
	g.mu.Unlock()
	if ok {
		return group
	}

	robotsURL := key + "/robots.txt"
	g.log.Debug("Loading robots.txt", zap.String("url", robotsURL))
	resp, err := g.client.R().SetContext(ctx).Get(robotsURL)
	if err != nil {
		g.log.Warn("Failed to load robots.txt, allowing all", zap.String("url", robotsURL), zap.Error(err))
	} else if data, err := robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body()); err != nil {
		g.log.Warn("Failed to parse robots.txt, allowing all", zap.String("url", robotsURL), zap.Error(err))
	} else {
		group = data.FindGroup(g.agent)
	}

	g.mu.Lock()
	g.groups[key] = group
	g.mu.Unlock()
	return group
}
