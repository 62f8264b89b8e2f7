// Package scraper contains the core harvesting engine: per-site sources that
// walk paginated listing indexes, extractors that map raw pages or API
// records onto the canonical Listing shape, and an orchestrator that fans
// sources out concurrently, aggregates their results, and keeps run
// statistics.
//
// The package defines the interfaces it consumes (Renderer, PageClient,
// Store, Publisher, ...) so that infrastructure implementations under
// internal/fetcher, internal/store and internal/publisher stay swappable.
package scraper
