package scraper

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/lamvh/estate-harvester/internal/normalize"
)

// RecordExtractor maps one decoded API record onto a Listing using per-field
// key fallback chains. Gateways wrap values in all sorts of shapes (plain
// numbers, numeric strings, {"value": ...} objects, single-element arrays),
// so every lookup goes through a coercion step.
type RecordExtractor struct {
	source       string
	base         *url.URL
	keys         map[Field][]string
	idKeys       []string
	linkTemplate string
	clock        Clock
}

// NewRecordExtractor builds an extractor from the API strategy parts of cfg.
func NewRecordExtractor(cfg SourceConfig, clock Clock) (*RecordExtractor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", cfg.BaseURL, err)
	}
	return &RecordExtractor{
		source:       cfg.Name,
		base:         base,
		keys:         cfg.KeyChains,
		idKeys:       cfg.IDKeys,
		linkTemplate: cfg.LinkTemplate,
		clock:        clock,
	}, nil
}

// Extract maps one record onto a Listing. The record is kept verbatim in
// RawData. The viability rule matches the DOM extractor: only a record with
// neither a title nor a link fails.
func (e *RecordExtractor) Extract(rec map[string]any) (Listing, error) {
	title := e.text(rec, FieldTitle)
	link := e.link(rec)
	if title == "" && link == "" {
		return Listing{}, ErrNotViable
	}
	if title == "" {
		title = NoTitle
	}

	price := e.price(rec)
	area := e.area(rec)

	location := e.text(rec, FieldLocation)
	if location == "" {
		location = UnknownLocation
	}
	propertyType := e.text(rec, FieldType)
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
		Bedrooms:     e.count(rec, FieldBedrooms),
		Bathrooms:    e.count(rec, FieldBathrooms),
		ImageURL:     resolveURL(e.base, e.text(rec, FieldImage)),
		Link:         link,
		Source:       e.source,
		Timestamp:    e.clock.Now(),
		RawData:      rec,
	}, nil
}

func (e *RecordExtractor) text(rec map[string]any, f Field) string {
	v, ok := firstKeyValue(rec, e.keys[f])
	if !ok {
		return ""
	}
	return coerceString(v)
}

// link prefers an explicit link field; when the record only carries an ad
// identifier the configured template turns it into a detail URL.
func (e *RecordExtractor) link(rec map[string]any) string {
	if raw := e.text(rec, FieldLink); raw != "" {
		return resolveURL(e.base, raw)
	}
	if e.linkTemplate == "" {
		return ""
	}
	v, ok := firstKeyValue(rec, e.idKeys)
	if !ok {
		return ""
	}
	id := coerceString(v)
	if id == "" {
		return ""
	}
	return fmt.Sprintf(e.linkTemplate, id)
}

// price takes a numeric value as đồng directly; strings that do not parse as
// numbers go through the localized text normalizer.
func (e *RecordExtractor) price(rec map[string]any) int64 {
	v, ok := firstKeyValue(rec, e.keys[FieldPrice])
	if !ok {
		return 0
	}
	if n, ok := coerceNumber(v); ok {
		return int64(math.Round(n))
	}
	return normalize.Price(coerceString(v))
}

func (e *RecordExtractor) area(rec map[string]any) float64 {
	v, ok := firstKeyValue(rec, e.keys[FieldArea])
	if !ok {
		return 0
	}
	if n, ok := coerceNumber(v); ok {
		return n
	}
	return normalize.Area(coerceString(v))
}

func (e *RecordExtractor) count(rec map[string]any, f Field) *int {
	v, ok := firstKeyValue(rec, e.keys[f])
	if !ok {
		return nil
	}
	if n, ok := coerceNumber(v); ok {
		c := int(n)
		return &c
	}
	c, ok := normalize.FirstInt(coerceString(v))
	if !ok {
		return nil
	}
	return &c
}

// coerceString renders a raw record value as a trimmed string. Objects
// unwrap their "value" entry and arrays their first element.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return coerceString(inner)
		}
		return ""
	case []any:
		if len(t) > 0 {
			return coerceString(t[0])
		}
		return ""
	default:
		return ""
	}
}

// coerceNumber extracts a numeric value, unwrapping the same shapes as
// coerceString. Strings must parse as plain numbers; localized text is the
// caller's problem.
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return coerceNumber(inner)
		}
		return 0, false
	case []any:
		if len(t) > 0 {
			return coerceNumber(t[0])
		}
		return 0, false
	default:
		return 0, false
	}
}
