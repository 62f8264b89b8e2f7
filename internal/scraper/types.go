package scraper

import (
	"time"
)

// Placeholder values substituted when a non-essential field cannot be
// extracted from a page or record.
const (
	NoTitle         = "No title"
	UnknownLocation = "Unknown"
	UnknownType     = "Unknown"
)

// DefaultMaxPages bounds a run when the caller does not supply a page cap.
const DefaultMaxPages = 10

// Listing is the canonical, source-agnostic property record produced by the
// extractors. Price is in Vietnamese đồng, Area in square meters.
// PricePerArea is always recomputed from Price and Area, never taken from
// the source.
type Listing struct {
	Title        string         `json:"title"`
	Price        int64          `json:"price"`
	Area         float64        `json:"area"`
	PricePerArea float64        `json:"price_per_area"`
	Location     string         `json:"location"`
	PropertyType string         `json:"property_type"`
	Bedrooms     *int           `json:"bedrooms,omitempty"`
	Bathrooms    *int           `json:"bathrooms,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	Link         string         `json:"link"`
	Source       string         `json:"source"`
	Timestamp    time.Time      `json:"timestamp"`
	RawData      map[string]any `json:"raw_data,omitempty"`
}

// Field names a Listing attribute targeted by a fallback chain.
type Field string

const (
	FieldTitle     Field = "title"
	FieldPrice     Field = "price"
	FieldArea      Field = "area"
	FieldLocation  Field = "location"
	FieldType      Field = "property_type"
	FieldBedrooms  Field = "bedrooms"
	FieldBathrooms Field = "bathrooms"
	FieldImage     Field = "image_url"
	FieldLink      Field = "link"
)

// Locator is one candidate in an ordered DOM fallback chain: a CSS selector
// plus an optional attribute to read. An empty Attr means the element's
// text content.
type Locator struct {
	Selector string
	Attr     string
}

// SourceConfig describes one site: where to start, how fast to go, and the
// fallback chains the extractors walk. DOM sources use ContainerChain,
// NextPageChain and FieldChains; API sources use APIEndpoint, RecordsChain
// and KeyChains.
type SourceConfig struct {
	Name      string
	BaseURL   string
	StartURLs []string
	DelayMin  time.Duration
	DelayMax  time.Duration

	// DOM strategy.
	ContainerChain []string
	NextPageChain  []Locator
	FieldChains    map[Field][]Locator

	// API strategy.
	APIEndpoint  string
	APIParams    map[string]string
	PageSize     int
	RecordsChain []string
	KeyChains    map[Field][]string
	IDKeys       []string
	LinkTemplate string
}

// Stats is a snapshot of the orchestrator's aggregate counters. TotalRuns
// counts full fan-out invocations; SuccessfulRuns and FailedRuns count
// per-source outcomes within those runs.
type Stats struct {
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	TotalListings  int        `json:"total_listings"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
}

// SourceStatus describes one registered source for operators.
type SourceStatus struct {
	Name       string     `json:"name"`
	BaseURL    string     `json:"base_url"`
	DelayRange [2]float64 `json:"delay_range"`
}

// RunStatus is the lifecycle state of one source's slice of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of run history: how a single source fared within a
// fan-out run. ListingsNew is filled in after deduplicated storage.
type RunRecord struct {
	RunID         string
	Source        string
	Status        RunStatus
	StartedAt     time.Time
	FinishedAt    time.Time
	ListingsFound int
	ListingsNew   int
	Error         string
}
