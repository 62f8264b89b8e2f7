package sources

import (
	"time"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

// BatDongSan returns the scraping configuration for batdongsan.com.vn.
//
// The site is rendered client-side and sits behind Cloudflare, so it is
// scraped through the headless renderer. Selector chains are ordered from
// the current markup to progressively older and more generic shapes; the
// site reshuffles its class names often enough that the long tails earn
// their keep.
func BatDongSan() scraper.SourceConfig {
	title := []scraper.Locator{
		{Selector: ".vip-item-title a, .normal-item-title a"},
		{Selector: ".re-title a"},
		{Selector: ".property-title a"},
		{Selector: ".listing-title a"},
		{Selector: ".product-title a"},
		{Selector: "h3 a, h2 a"},
		{Selector: `a[href*="/ban-"], a[href*="/cho-thue-"]`},
		{Selector: ".title a"},
		{Selector: ".name a"},
	}
	link := make([]scraper.Locator, len(title))
	for i, loc := range title {
		link[i] = scraper.Locator{Selector: loc.Selector, Attr: "href"}
	}

	return scraper.SourceConfig{
		Name:     "batdongsan",
		BaseURL:  "https://batdongsan.com.vn",
		DelayMin: 3 * time.Second,
		DelayMax: 6 * time.Second,
		StartURLs: []string{
			"/ban-nha-dat",
			"/ban-can-ho",
			"/ban-nha-rieng",
			"/ban-dat-nen",
		},
		ContainerChain: []string{
			".vip-item, .normal-item",
			".re-item",
			".property-item",
			".listing-item",
			".product-item",
			`[data-component="property-item"]`,
			".item",
			".card",
			".listing-card",
		},
		NextPageChain: []scraper.Locator{
			{Selector: ".pagination .next a", Attr: "href"},
			{Selector: `.pagination a[rel="next"]`, Attr: "href"},
			{Selector: `a[aria-label="Next"]`, Attr: "href"},
			{Selector: `a[title="Next"]`, Attr: "href"},
			{Selector: ".next a", Attr: "href"},
			{Selector: `a:contains("Trang sau")`, Attr: "href"},
			{Selector: ".pagination .page-item:last-child a", Attr: "href"},
			{Selector: `a[href*="page="]`, Attr: "href"},
		},
		FieldChains: map[scraper.Field][]scraper.Locator{
			scraper.FieldTitle: title,
			scraper.FieldLink:  link,
			scraper.FieldPrice: {
				{Selector: ".vip-item-price, .normal-item-price"},
				{Selector: ".re-price"},
				{Selector: ".property-price"},
				{Selector: ".listing-price"},
				{Selector: ".product-price"},
				{Selector: ".price"},
				{Selector: `[class*="price"]`},
				{Selector: ".cost"},
				{Selector: ".value"},
			},
			scraper.FieldArea: {
				{Selector: ".vip-item-area, .normal-item-area"},
				{Selector: ".re-area"},
				{Selector: ".property-area"},
				{Selector: ".listing-area"},
				{Selector: ".product-area"},
				{Selector: ".area"},
				{Selector: `[class*="area"]`},
				{Selector: ".size"},
				{Selector: ".square"},
			},
			scraper.FieldLocation: {
				{Selector: ".vip-item-location, .normal-item-location"},
				{Selector: ".re-location"},
				{Selector: ".property-location"},
				{Selector: ".listing-location"},
				{Selector: ".product-location"},
				{Selector: ".location"},
				{Selector: `[class*="location"]`},
				{Selector: ".address"},
				{Selector: ".place"},
			},
			scraper.FieldImage: {
				{Selector: ".vip-item-image img, .normal-item-image img", Attr: "src"},
				{Selector: ".re-image img", Attr: "src"},
				{Selector: ".property-image img", Attr: "src"},
				{Selector: ".listing-image img", Attr: "src"},
				{Selector: ".product-image img", Attr: "src"},
				{Selector: `img[src*="batdongsan"]`, Attr: "src"},
				{Selector: ".thumbnail img", Attr: "src"},
				{Selector: ".photo img", Attr: "src"},
				{Selector: "img", Attr: "src"},
			},
			scraper.FieldType: {
				{Selector: ".vip-item-type, .normal-item-type"},
				{Selector: ".re-type"},
				{Selector: ".property-type"},
				{Selector: ".listing-type"},
				{Selector: ".product-type"},
				{Selector: ".type"},
				{Selector: `[class*="type"]`},
				{Selector: ".category"},
				{Selector: ".kind"},
			},
			scraper.FieldBedrooms: {
				{Selector: ".vip-item-bedroom, .normal-item-bedroom"},
				{Selector: ".re-bedroom"},
				{Selector: ".property-bedroom"},
				{Selector: ".listing-bedroom"},
				{Selector: ".product-bedroom"},
				{Selector: ".bedroom"},
				{Selector: `[class*="bedroom"]`},
				{Selector: ".phong-ngu"},
				{Selector: ".room"},
			},
			scraper.FieldBathrooms: {
				{Selector: ".vip-item-bathroom, .normal-item-bathroom"},
				{Selector: ".re-bathroom"},
				{Selector: ".property-bathroom"},
				{Selector: ".listing-bathroom"},
				{Selector: ".product-bathroom"},
				{Selector: ".bathroom"},
				{Selector: `[class*="bathroom"]`},
				{Selector: ".phong-tam"},
				{Selector: ".wc"},
			},
		},
	}
}
