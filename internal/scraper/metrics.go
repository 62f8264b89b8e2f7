package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks listing-index pages fetched, per source.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_pages_fetched_total",
		Help: "The total number of listing index pages fetched.",
	}, []string{"source"})
	// ListingsExtracted tracks listings successfully extracted, per source.
	ListingsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_listings_extracted_total",
		Help: "The total number of listings extracted from pages.",
	}, []string{"source"})
	// ExtractionFailures tracks containers or records skipped as not viable.
	ExtractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_extraction_failures_total",
		Help: "The total number of listing candidates that could not be extracted.",
	}, []string{"source"})
	// SourceRuns tracks per-source run outcomes within fan-out runs.
	SourceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_source_runs_total",
		Help: "The total number of per-source runs by outcome.",
	}, []string{"source", "outcome"})
	// RobotsSkips tracks runs skipped because robots.txt disallowed them.
	RobotsSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_robots_skips_total",
		Help: "The total number of runs skipped by robots.txt.",
	}, []string{"source"})
	// BlockedPages tracks pages abandoned because they looked like an
	// anti-bot interstitial.
	BlockedPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_blocked_pages_total",
		Help: "The total number of pages that looked blocked or challenged.",
	}, []string{"source"})
	// ListingsStored tracks listings newly persisted by the store.
	ListingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_listings_stored_total",
		Help: "The total number of new listings written to storage.",
	})
	// ListingsDuplicate tracks listings skipped because their link was known.
	ListingsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_listings_duplicate_total",
		Help: "The total number of listings already present in storage.",
	})
)
