package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGate checks robots.txt per host before a source starts a run. It is
// deliberately permissive: a robots file that cannot be fetched or parsed
// must never stop a run, only an explicit disallow does.
type RobotsGate struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	logger    *zap.Logger
}

// NewRobotsGate builds a RobotsPolicy honoring the respect toggle. With
// respect disabled every URL is allowed.
func NewRobotsGate(respect bool, userAgent string, logger *zap.Logger) RobotsPolicy {
	if !respect {
		return &allowAllPolicy{}
	}
	return &RobotsGate{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed implements RobotsPolicy.
func (r *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		r.logger.Warn("robots check got unparseable url; allowing", zap.String("url", rawURL), zap.Error(err))
		return true
	}
	data := r.load(ctx, parsed)
	if data == nil {
		return true
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}
	p := parsed.Path
	if p == "" {
		p = "/"
	}
	return group.Test(p)
}

// load returns the parsed robots data for the URL's host, fetching and
// caching it on first use. A nil return means "no restrictions known";
// failed fetches are not cached so the next run probes again.
func (r *RobotsGate) load(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := r.cache.Load(hostKey); ok {
		data, _ := cached.(*robotstxt.RobotsData)
		return data
	}
	data := r.fetch(ctx, parsed)
	if data != nil {
		r.cache.Store(hostKey, data)
	}
	return data
}

func (r *RobotsGate) fetch(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""
	body, status, err := r.get(ctx, robotsURL.String())
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return nil
	}
	if status != http.StatusOK {
		r.logger.Debug("robots not available; allowing access", zap.String("host", parsed.Host), zap.Int("status", status))
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		r.logger.Warn("robots parse failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return nil
	}
	return data
}

func (r *RobotsGate) get(ctx context.Context, robotsURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read robots body: %w", err)
	}
	return body, resp.StatusCode, nil
}

type allowAllPolicy struct{}

func (a *allowAllPolicy) Allowed(context.Context, string) bool { return true }
