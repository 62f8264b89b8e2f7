package scraper

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/lamvh/estate-harvester/internal/normalize"
)

// ErrNotViable marks a listing candidate that has neither a title nor a
// link. Everything else degrades to placeholders, but a record with no way
// to identify or reach the property is worthless.
var ErrNotViable = errors.New("listing has neither title nor link")

// DOMExtractor maps one listing container element onto a Listing using
// per-field locator fallback chains.
type DOMExtractor struct {
	source string
	base   *url.URL
	chains map[Field][]Locator
	clock  Clock
}

// NewDOMExtractor builds an extractor for source. Relative links and image
// URLs are resolved against baseURL.
func NewDOMExtractor(source, baseURL string, chains map[Field][]Locator, clock Clock) (*DOMExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &DOMExtractor{source: source, base: base, chains: chains, clock: clock}, nil
}

// Extract maps one container onto a Listing. It returns ErrNotViable when
// neither a title nor a link can be located; any other missing field becomes
// a placeholder or zero value. PricePerArea is recomputed from the extracted
// price and area.
func (e *DOMExtractor) Extract(sel *goquery.Selection) (Listing, error) {
	title := e.value(sel, FieldTitle)
	link := resolveURL(e.base, e.value(sel, FieldLink))
	if title == "" && link == "" {
		return Listing{}, ErrNotViable
	}
	if title == "" {
		title = NoTitle
	}

	priceText := e.value(sel, FieldPrice)
	areaText := e.value(sel, FieldArea)
	price := normalize.Price(priceText)
	area := normalize.Area(areaText)

	location := e.value(sel, FieldLocation)
	if location == "" {
		location = UnknownLocation
	}
	typeText := e.value(sel, FieldType)
	propertyType := typeText
	if propertyType == "" {
		propertyType = UnknownType
	}

	return Listing{
		Title:        title,
		Price:        price,
		Area:         area,
		PricePerArea: normalize.PricePerArea(price, area),
		Location:     location,
		PropertyType: propertyType,
		Bedrooms:     e.count(sel, FieldBedrooms),
		Bathrooms:    e.count(sel, FieldBathrooms),
		ImageURL:     resolveURL(e.base, e.value(sel, FieldImage)),
		Link:         link,
		Source:       e.source,
		Timestamp:    e.clock.Now(),
		RawData: map[string]any{
			"price_text":    priceText,
			"area_text":     areaText,
			"property_type": typeText,
		},
	}, nil
}

func (e *DOMExtractor) value(sel *goquery.Selection, f Field) string {
	return firstLocatorValue(sel, e.chains[f])
}

// count parses fields like "3 PN" where only the leading number matters.
// A missing or non-numeric value stays nil rather than becoming zero.
func (e *DOMExtractor) count(sel *goquery.Selection, f Field) *int {
	text := e.value(sel, f)
	if text == "" {
		return nil
	}
	n, ok := normalize.FirstInt(text)
	if !ok {
		return nil
	}
	return &n
}
