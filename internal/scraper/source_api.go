package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// defaultPageSize matches the ad gateways' usual page size.
const defaultPageSize = 20

// APISource pages through a JSON ad-listing gateway using limit/offset
// parameters. The gateway endpoint delivers the same records the site's own
// frontend renders, so no browser is involved.
type APISource struct {
	cfg       SourceConfig
	endpoint  *url.URL
	delay     Delay
	extractor *RecordExtractor
	client    PageClient
	robots    RobotsPolicy
	snapshots snapshotter
	logger    *zap.Logger
}

// NewAPISource wires an API-strategy source. Archiver and hasher are
// optional; without them no payload snapshots are kept.
func NewAPISource(
	cfg SourceConfig,
	logger *zap.Logger,
	client PageClient,
	robots RobotsPolicy,
	archiver Archiver,
	hasher Hasher,
	clock Clock,
) (*APISource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source name required")
	}
	if client == nil {
		return nil, fmt.Errorf("source %s: page client required", cfg.Name)
	}
	if clock == nil {
		return nil, fmt.Errorf("source %s: clock required", cfg.Name)
	}
	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf("source %s: api endpoint required", cfg.Name)
	}
	endpoint, err := url.Parse(cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("source %s: parse api endpoint %q: %w", cfg.Name, cfg.APIEndpoint, err)
	}
	if len(cfg.RecordsChain) == 0 {
		return nil, fmt.Errorf("source %s: records chain required", cfg.Name)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	extractor, err := NewRecordExtractor(cfg, clock)
	if err != nil {
		return nil, err
	}
	if robots == nil {
		robots = &allowAllPolicy{}
	}
	return &APISource{
		cfg:       cfg,
		endpoint:  endpoint,
		delay:     newDelay(cfg.DelayMin, cfg.DelayMax),
		extractor: extractor,
		client:    client,
		robots:    robots,
		snapshots: snapshotter{
			archiver: archiver,
			hasher:   hasher,
			clock:    clock,
			logger:   logger,
			source:   cfg.Name,
			ext:      "json",
		},
		logger: logger,
	}, nil
}

// Name implements Source.
func (s *APISource) Name() string { return s.cfg.Name }

// Status implements Source.
func (s *APISource) Status() SourceStatus {
	return SourceStatus{
		Name:       s.cfg.Name,
		BaseURL:    s.cfg.BaseURL,
		DelayRange: s.delay.Range(),
	}
}

// Scrape implements Source. An empty record page means the data ran out and
// ends the run normally. Only a first-page failure is an error; later pages
// failing surface as a shorter result.
func (s *APISource) Scrape(ctx context.Context, maxPages int) ([]Listing, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if !s.robots.Allowed(ctx, s.cfg.BaseURL) {
		RobotsSkips.WithLabelValues(s.cfg.Name).Inc()
		s.logger.Warn("robots.txt disallows scraping; skipping run", zap.String("source", s.cfg.Name))
		return nil, nil
	}

	var out []Listing
	for page := 1; ; page++ {
		records, err := s.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("source %s: %w", s.cfg.Name, err)
			}
			s.logger.Warn("page fetch failed; returning partial results",
				zap.String("source", s.cfg.Name), zap.Int("page", page), zap.Error(err))
			break
		}
		PagesFetched.WithLabelValues(s.cfg.Name).Inc()
		if len(records) == 0 {
			s.logger.Info("no records returned; assuming end of data",
				zap.String("source", s.cfg.Name), zap.Int("page", page))
			break
		}

		before := len(out)
		for _, rec := range records {
			listing, extractErr := s.extractor.Extract(rec)
			if extractErr != nil {
				ExtractionFailures.WithLabelValues(s.cfg.Name).Inc()
				s.logger.Debug("skipping record",
					zap.String("source", s.cfg.Name), zap.Error(extractErr))
				continue
			}
			ListingsExtracted.WithLabelValues(s.cfg.Name).Inc()
			out = append(out, listing)
		}
		s.logger.Debug("page extracted",
			zap.String("source", s.cfg.Name), zap.Int("page", page), zap.Int("listings", len(out)-before))

		if page >= maxPages {
			s.logger.Debug("page cap reached", zap.String("source", s.cfg.Name), zap.Int("pages", page))
			break
		}
		if len(records) < s.cfg.PageSize {
			s.logger.Debug("short page; assuming end of data",
				zap.String("source", s.cfg.Name), zap.Int("page", page))
			break
		}
		if err := s.delay.Wait(ctx); err != nil {
			s.logger.Warn("run interrupted; returning partial results",
				zap.String("source", s.cfg.Name), zap.Error(err))
			break
		}
	}

	s.logger.Info("scrape finished",
		zap.String("source", s.cfg.Name), zap.Int("listings", len(out)))
	return out, nil
}

func (s *APISource) fetchPage(ctx context.Context, page int) ([]map[string]any, error) {
	target := s.pageURL(page)
	body, status, err := s.client.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, status)
	}
	s.snapshots.save(ctx, body, page)
	return s.decodeRecords(body)
}

func (s *APISource) pageURL(page int) string {
	u := *s.endpoint
	q := u.Query()
	for k, v := range s.cfg.APIParams {
		q.Set(k, v)
	}
	q.Set("limit", strconv.Itoa(s.cfg.PageSize))
	q.Set("o", strconv.Itoa((page-1)*s.cfg.PageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// decodeRecords pulls the record array out of the payload. A payload without
// any of the known record keys counts as empty, not broken; gateways answer
// like that past the last page.
func (s *APISource) decodeRecords(body []byte) ([]map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	v, ok := firstKeyValue(payload, s.cfg.RecordsChain)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("records value is %T, want array", v)
	}
	records := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
