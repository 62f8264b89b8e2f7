package scraper

import (
	"net/url"
	"strings"
)

// resolveURL turns a possibly relative href into an absolute URL against
// base. Unparseable refs resolve to "" so callers treat them as missing.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
