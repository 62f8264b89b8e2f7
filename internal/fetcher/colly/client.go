// Package collyfetcher implements plain HTTP fetching with the Colly
// collector. API sources use it to page through ad-listing gateways; no
// browser is needed for those.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	Parallelism int
	RandomDelay time.Duration
}

// Client performs one GET per call and hands back body and status. Colly's
// limit rule adds jittered per-domain pacing underneath whatever pacing the
// sources already do.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	c := colly.NewCollector(colly.Async(false))
	// Robots enforcement happens once per run in the scraper's gate, not
	// per request. Runs refetch the same index URLs every time.
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	// Error statuses still carry payloads worth returning to the caller.
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		logger.Warn("limit rule rejected", zap.Error(err))
	}

	return &Client{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Get executes a single HTTP GET using a clone of the base collector.
func (c *Client) Get(ctx context.Context, url string) ([]byte, int, error) {
	collector := c.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			body = append([]byte(nil), r.Body...)
			status = r.StatusCode
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if status != 0 {
			return body, status, nil
		}
		if fetchErr != nil {
			return nil, 0, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("visit %s: %w", url, err)
		}
		return body, status, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
