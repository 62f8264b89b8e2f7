package scraper

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockDetector spots anti-bot interstitials so a source stops paging
// instead of extracting garbage from a challenge page.
type blockDetector struct {
	titleKeywords []string
	selectors     []string
}

// Signals observed on the target sites: Cloudflare's "Just a moment..."
// challenge title and its verification containers.
var defaultBlockDetector = blockDetector{
	titleKeywords: []string{
		"just a moment",
		"attention required",
		"access denied",
	},
	selectors: []string{
		"#cf-browser-verification",
		"#challenge-form",
		".cf-challenge-running",
	},
}

// Blocked reports whether the document looks like a challenge page and the
// signal that tripped it.
func (d blockDetector) Blocked(doc *goquery.Document) (string, bool) {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, kw := range d.titleKeywords {
		if strings.Contains(title, kw) {
			return "title contains " + strconv.Quote(kw), true
		}
	}
	for _, sel := range d.selectors {
		if doc.Find(sel).Length() > 0 {
			return "matched " + sel, true
		}
	}
	return "", false
}
