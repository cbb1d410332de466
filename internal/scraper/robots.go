package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsGuard refuses URLs the host's robots.txt disallows for agent.
// robots.txt is cached per host once loaded; a failed load allows the fetch
// and is retried next time.
type RobotsGuard struct {
	next   Fetcher
	client *http.Client
	agent  string
	log    *zap.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsGuard(next Fetcher, client *http.Client, agent string, log *zap.Logger) *RobotsGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &RobotsGuard{
		next:   next,
		client: client,
		agent:  agent,
		log:    log,
		groups: make(map[string]*robotstxt.Group),
	}
}

func (g *RobotsGuard) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("bad url %q", urlStr)
	}
	group := g.group(ctx, u)
	if group != nil && !group.Test(u.EscapedPath()) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, urlStr)
	}
	return g.next.Fetch(ctx, urlStr)
}

func (g *RobotsGuard) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	if group, ok := g.groups[u.Host]; ok {
		return group
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	group, err := g.load(ctx, robotsURL)
	if err != nil {
		g.log.Warn("robots.txt unavailable, allowing this fetch", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	g.groups[u.Host] = group
	return group
}

func (g *RobotsGuard) load(ctx context.Context, robotsURL string) (*robotstxt.Group, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.agent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}
	return data.FindGroup(g.agent), nil
}
