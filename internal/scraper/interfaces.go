package scraper

import (
	"context"
	"time"
)

// Source scrapes one site end to end: robots check, page loop, extraction.
// Scrape returns the listings it managed to collect; a non-nil error means
// the run produced nothing usable (for example the first page never loaded).
// Partial failures surface as a shorter result with a nil error.
type Source interface {
	Name() string
	Status() SourceStatus
	Scrape(ctx context.Context, maxPages int) ([]Listing, error)
}

// Renderer loads a URL in a browser-grade environment and returns the
// rendered HTML. DOM sources need this because the target sites assemble
// their listing markup with client-side scripts.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// PageClient fetches a URL over plain HTTP and returns the body and status
// code. API sources use it to page through listing gateways.
type PageClient interface {
	Get(ctx context.Context, url string) ([]byte, int, error)
}

// RobotsPolicy decides whether a URL may be fetched at all.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Store persists canonical listings and run history. Insert reports whether
// the listing was new; a listing whose link is already stored is left
// untouched and reported as not inserted.
type Store interface {
	Insert(ctx context.Context, listing Listing) (bool, error)
	BeginRun(ctx context.Context, rec RunRecord) error
	FinishRun(ctx context.Context, rec RunRecord) error
}

// Publisher emits an event for every newly stored listing. Implementations
// must tolerate being called from concurrent runs.
type Publisher interface {
	Publish(ctx context.Context, listing Listing) error
	Close() error
}

// NopPublisher drops all events. It stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Listing) error { return nil }
func (NopPublisher) Close() error                           { return nil }

// Archiver stores raw page snapshots for later reprocessing.
type Archiver interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints raw page bytes, used to name archived snapshots.
type Hasher interface {
	Hash(data []byte) (string, error)
}
