package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The target sites shuffle their markup and API payloads often, so every
// lookup walks an ordered chain of candidates and takes the first one that
// yields a usable value.

// firstSelection returns the nodes matched by the first selector in chain
// that matches at least one element, or nil when none do.
func firstSelection(root *goquery.Selection, chain []string) *goquery.Selection {
	for _, sel := range chain {
		if sel == "" {
			continue
		}
		found := root.Find(sel)
		if found.Length() > 0 {
			return found
		}
	}
	return nil
}

// firstLocatorValue walks a locator chain and returns the first non-empty
// value: the named attribute when the locator has one, the trimmed text
// content otherwise.
func firstLocatorValue(root *goquery.Selection, chain []Locator) string {
	for _, loc := range chain {
		if loc.Selector == "" {
			continue
		}
		found := root.Find(loc.Selector).First()
		if found.Length() == 0 {
			continue
		}
		var v string
		if loc.Attr != "" {
			v, _ = found.Attr(loc.Attr)
		} else {
			v = found.Text()
		}
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

// firstKeyValue walks a key chain over a decoded record and returns the
// first key that is present with a non-nil value.
func firstKeyValue(rec map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
