package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DOMSource scrapes one browser-rendered site. Each run checks robots.txt,
// opens the first reachable start URL, then walks listing index pages via
// the next-page control until the page cap, the end of data, or a failure.
type DOMSource struct {
	cfg       SourceConfig
	base      *url.URL
	delay     Delay
	extractor *DOMExtractor
	detector  blockDetector
	renderer  Renderer
	robots    RobotsPolicy
	snapshots snapshotter
	logger    *zap.Logger
}

// NewDOMSource wires a DOM-strategy source. Archiver and hasher are
// optional; without them no page snapshots are kept.
func NewDOMSource(
	cfg SourceConfig,
	logger *zap.Logger,
	renderer Renderer,
	robots RobotsPolicy,
	archiver Archiver,
	hasher Hasher,
	clock Clock,
) (*DOMSource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source name required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("source %s: renderer required", cfg.Name)
	}
	if clock == nil {
		return nil, fmt.Errorf("source %s: clock required", cfg.Name)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: parse base url: %w", cfg.Name, err)
	}
	extractor, err := NewDOMExtractor(cfg.Name, cfg.BaseURL, cfg.FieldChains, clock)
	if err != nil {
		return nil, err
	}
	if robots == nil {
		robots = &allowAllPolicy{}
	}
	return &DOMSource{
		cfg:       cfg,
		base:      base,
		delay:     newDelay(cfg.DelayMin, cfg.DelayMax),
		extractor: extractor,
		detector:  defaultBlockDetector,
		renderer:  renderer,
		robots:    robots,
		snapshots: snapshotter{
			archiver: archiver,
			hasher:   hasher,
			clock:    clock,
			logger:   logger,
			source:   cfg.Name,
			ext:      "html",
		},
		logger: logger,
	}, nil
}

// Name implements Source.
func (s *DOMSource) Name() string { return s.cfg.Name }

// Status implements Source.
func (s *DOMSource) Status() SourceStatus {
	return SourceStatus{
		Name:       s.cfg.Name,
		BaseURL:    s.cfg.BaseURL,
		DelayRange: s.delay.Range(),
	}
}

// Scrape implements Source. A robots disallow or an exhausted page walk both
// end the run normally; only failing to load any start page is an error.
// Failures after the first page surface as a shorter result, never as an
// error, so one bad page cannot throw away the listings already collected.
func (s *DOMSource) Scrape(ctx context.Context, maxPages int) ([]Listing, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if !s.robots.Allowed(ctx, s.cfg.BaseURL) {
		RobotsSkips.WithLabelValues(s.cfg.Name).Inc()
		s.logger.Warn("robots.txt disallows scraping; skipping run", zap.String("source", s.cfg.Name))
		return nil, nil
	}

	doc, pageURL, err := s.firstPage(ctx)
	if err != nil {
		return nil, err
	}

	var out []Listing
	for page := 1; ; page++ {
		PagesFetched.WithLabelValues(s.cfg.Name).Inc()
		if reason, blocked := s.detector.Blocked(doc); blocked {
			BlockedPages.WithLabelValues(s.cfg.Name).Inc()
			s.logger.Warn("page looks blocked; stopping pagination",
				zap.String("source", s.cfg.Name), zap.Int("page", page), zap.String("reason", reason))
			break
		}

		containers := firstSelection(doc.Selection, s.cfg.ContainerChain)
		if containers == nil {
			s.logger.Info("no listing containers found; assuming end of data",
				zap.String("source", s.cfg.Name), zap.Int("page", page))
			break
		}

		before := len(out)
		containers.Each(func(_ int, sel *goquery.Selection) {
			listing, extractErr := s.extractor.Extract(sel)
			if extractErr != nil {
				ExtractionFailures.WithLabelValues(s.cfg.Name).Inc()
				s.logger.Debug("skipping listing candidate",
					zap.String("source", s.cfg.Name), zap.Error(extractErr))
				return
			}
			ListingsExtracted.WithLabelValues(s.cfg.Name).Inc()
			out = append(out, listing)
		})
		s.logger.Debug("page extracted",
			zap.String("source", s.cfg.Name), zap.Int("page", page), zap.Int("listings", len(out)-before))

		if page >= maxPages {
			s.logger.Debug("page cap reached", zap.String("source", s.cfg.Name), zap.Int("pages", page))
			break
		}
		next := resolveURL(s.base, firstLocatorValue(doc.Selection, s.cfg.NextPageChain))
		if next == "" || next == pageURL {
			break
		}
		if err := s.delay.Wait(ctx); err != nil {
			s.logger.Warn("run interrupted; returning partial results",
				zap.String("source", s.cfg.Name), zap.Error(err))
			break
		}
		nextDoc, err := s.loadPage(ctx, next, page+1)
		if err != nil {
			s.logger.Warn("page fetch failed; returning partial results",
				zap.String("source", s.cfg.Name), zap.String("url", next), zap.Error(err))
			break
		}
		doc, pageURL = nextDoc, next
	}

	s.logger.Info("scrape finished",
		zap.String("source", s.cfg.Name), zap.Int("listings", len(out)))
	return out, nil
}

// firstPage tries each configured start URL in order and returns the first
// one that renders. Sites move their index paths around, so a failed
// candidate is only a warning as long as a later one works.
func (s *DOMSource) firstPage(ctx context.Context) (*goquery.Document, string, error) {
	candidates := s.cfg.StartURLs
	if len(candidates) == 0 {
		candidates = []string{s.cfg.BaseURL}
	}
	var lastErr error
	for _, candidate := range candidates {
		target := resolveURL(s.base, candidate)
		if target == "" {
			continue
		}
		doc, err := s.loadPage(ctx, target, 1)
		if err != nil {
			s.logger.Warn("start url failed; trying next candidate",
				zap.String("source", s.cfg.Name), zap.String("url", target), zap.Error(err))
			lastErr = err
			continue
		}
		return doc, target, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable start urls configured")
	}
	return nil, "", fmt.Errorf("source %s: no start page reachable: %w", s.cfg.Name, lastErr)
}

func (s *DOMSource) loadPage(ctx context.Context, pageURL string, page int) (*goquery.Document, error) {
	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	s.snapshots.save(ctx, []byte(html), page)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", pageURL, err)
	}
	return doc, nil
}
