// Package sources holds the built-in site configurations. Selector chains
// and API key chains live here as data; the extraction machinery that
// interprets them is source-agnostic.
package sources

import "github.com/lamvh/estate-harvester/internal/scraper"

// Names lists the built-in source identifiers in registration order.
func Names() []string {
	return []string{"batdongsan", "chotot"}
}

// ByName returns the built-in configuration for a source identifier. The
// chotot region and category codes are threaded through because they are
// deployment configuration, not site structure.
func ByName(name, chototRegion, chototCategory string) (scraper.SourceConfig, bool) {
	switch name {
	case "batdongsan":
		return BatDongSan(), true
	case "chotot":
		return Chotot(chototRegion, chototCategory), true
	default:
		return scraper.SourceConfig{}, false
	}
}
