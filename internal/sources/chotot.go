package sources

import (
	"time"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

const (
	// DefaultChototRegion is the region_v2 code for Ho Chi Minh City.
	DefaultChototRegion = "13000"
	// DefaultChototCategory is the cg code for the property category.
	DefaultChototCategory = "1000"
)

// Chotot returns the scraping configuration for the Chotot ad gateway.
//
// Chotot exposes its listings through a paginated JSON API, so no browser
// is involved. Region and category are wire codes the gateway expects;
// empty values fall back to Ho Chi Minh City properties.
func Chotot(region, category string) scraper.SourceConfig {
	if region == "" {
		region = DefaultChototRegion
	}
	if category == "" {
		category = DefaultChototCategory
	}

	return scraper.SourceConfig{
		Name:        "chotot",
		BaseURL:     "https://www.chotot.com",
		DelayMin:    2 * time.Second,
		DelayMax:    4 * time.Second,
		APIEndpoint: "https://gateway.chotot.com/v1/public/ad-listing",
		APIParams: map[string]string{
			"cg":        category,
			"region_v2": region,
			"st":        "s,k",
		},
		PageSize:     20,
		RecordsChain: []string{"ads", "data"},
		KeyChains: map[scraper.Field][]string{
			scraper.FieldTitle:     {"subject", "title", "name"},
			scraper.FieldPrice:     {"price", "price_string", "total_price"},
			scraper.FieldArea:      {"size", "area", "square_meter"},
			scraper.FieldLocation:  {"area_name", "region_name", "ward_name"},
			scraper.FieldType:      {"category_name", "type", "house_type"},
			scraper.FieldBedrooms:  {"rooms", "room", "bedrooms"},
			scraper.FieldBathrooms: {"toilets", "toilet", "bathrooms"},
			scraper.FieldImage:     {"image", "thumbnail_image", "images"},
			scraper.FieldLink:      {"ad_link", "url"},
		},
		IDKeys:       []string{"list_id", "ad_id"},
		LinkTemplate: "https://www.chotot.com/%s.htm",
	}
}
