package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func domTestConfig() SourceConfig {
	return SourceConfig{
		Name:           "batdongsan",
		BaseURL:        "https://batdongsan.example.vn",
		StartURLs:      []string{"/ban-nha"},
		ContainerChain: []string{"div.re__card-full", "div.item"},
		NextPageChain:  []Locator{{Selector: "a.next", Attr: "href"}},
		FieldChains: map[Field][]Locator{
			FieldTitle: {{Selector: ".title"}},
			FieldPrice: {{Selector: ".price"}},
			FieldArea:  {{Selector: ".area"}},
			FieldLink:  {{Selector: "a.detail", Attr: "href"}},
		},
	}
}

// indexPage builds a listing index page with one card per title and an
// optional next-page link.
func indexPage(next string, titles ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Danh sách</title></head><body>`)
	for i, title := range titles {
		fmt.Fprintf(&b, `<div class="item"><span class="title">%s</span><span class="price">2.5 tỷ</span><span class="area">100 m²</span><a class="detail" href="/tin/%s-%d">xem</a></div>`, title, title, i)
	}
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">Trang sau</a>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func newTestDOMSource(t *testing.T, cfg SourceConfig, r Renderer, robots RobotsPolicy) *DOMSource {
	t.Helper()
	src, err := NewDOMSource(cfg, zap.NewNop(), r, robots, nil, nil, newFakeClock())
	require.NoError(t, err)
	return src
}

func TestDOMSourceWalksPages(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{pages: map[string]string{
		"https://batdongsan.example.vn/ban-nha":     indexPage("/ban-nha?p=2", "Nhà A", "Nhà B"),
		"https://batdongsan.example.vn/ban-nha?p=2": indexPage("", "Nhà C"),
	}}
	src := newTestDOMSource(t, domTestConfig(), r, nil)

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	require.Equal(t, "Nhà A", listings[0].Title)
	require.Equal(t, "Nhà C", listings[2].Title)
	require.Equal(t, []string{
		"https://batdongsan.example.vn/ban-nha",
		"https://batdongsan.example.vn/ban-nha?p=2",
	}, r.visits)
	for _, l := range listings {
		require.Equal(t, int64(2_500_000_000), l.Price)
		require.Equal(t, 25_000_000.0, l.PricePerArea)
		require.True(t, strings.HasPrefix(l.Link, "https://batdongsan.example.vn/tin/"))
	}
}

func TestDOMSourceHonorsPageCap(t *testing.T) {
	t.Parallel()
	// Every page links onward; only the cap stops the walk.
	r := &fakeRenderer{pages: map[string]string{
		"https://batdongsan.example.vn/ban-nha":     indexPage("/ban-nha?p=2", "Nhà 1"),
		"https://batdongsan.example.vn/ban-nha?p=2": indexPage("/ban-nha?p=3", "Nhà 2"),
		"https://batdongsan.example.vn/ban-nha?p=3": indexPage("/ban-nha?p=4", "Nhà 3"),
	}}
	src := newTestDOMSource(t, domTestConfig(), r, nil)

	listings, err := src.Scrape(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Len(t, r.visits, 2, "no page beyond the cap may be fetched")
}

func TestDOMSourceNoContainersMeansEndOfData(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{pages: map[string]string{
		"https://batdongsan.example.vn/ban-nha": `<html><body><p>Không tìm thấy tin nào</p></body></html>`,
	}}
	src := newTestDOMSource(t, domTestConfig(), r, nil)

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err, "an empty first page is the end of data, not a failure")
	require.Empty(t, listings)
}

func TestDOMSourceRobotsDisallowSkipsRun(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{pages: map[string]string{}}
	src := newTestDOMSource(t, domTestConfig(), r, denyAllPolicy{})

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, listings)
	require.Empty(t, r.visits, "a disallowed source must not fetch anything")
}

func TestDOMSourceStartURLFallback(t *testing.T) {
	t.Parallel()
	cfg := domTestConfig()
	cfg.StartURLs = []string{"/moved-away", "/ban-nha"}
	r := &fakeRenderer{
		pages: map[string]string{
			"https://batdongsan.example.vn/ban-nha": indexPage("", "Nhà A"),
		},
		errs: map[string]error{
			"https://batdongsan.example.vn/moved-away": fmt.Errorf("navigation timeout"),
		},
	}
	src := newTestDOMSource(t, cfg, r, nil)

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
}

func TestDOMSourceAllStartURLsFailing(t *testing.T) {
	t.Parallel()
	cfg := domTestConfig()
	cfg.StartURLs = []string{"/a", "/b"}
	r := &fakeRenderer{errs: map[string]error{
		"https://batdongsan.example.vn/a": fmt.Errorf("navigation timeout"),
		"https://batdongsan.example.vn/b": fmt.Errorf("connection refused"),
	}}
	src := newTestDOMSource(t, cfg, r, nil)

	_, err := src.Scrape(context.Background(), 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no start page reachable")
}

func TestDOMSourceMidWalkFailureReturnsPartial(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{
		pages: map[string]string{
			"https://batdongsan.example.vn/ban-nha": indexPage("/ban-nha?p=2", "Nhà A", "Nhà B"),
		},
		errs: map[string]error{
			"https://batdongsan.example.vn/ban-nha?p=2": fmt.Errorf("tab crashed"),
		},
	}
	src := newTestDOMSource(t, domTestConfig(), r, nil)

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err, "a failure past the first page must not discard collected listings")
	require.Len(t, listings, 2)
}

func TestDOMSourceStopsOnBlockedPage(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{pages: map[string]string{
		"https://batdongsan.example.vn/ban-nha": `<html><head><title>Just a moment...</title></head><body><div class="item"><span class="title">fake</span></div></body></html>`,
	}}
	src := newTestDOMSource(t, domTestConfig(), r, nil)

	listings, err := src.Scrape(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, listings, "nothing may be extracted from a challenge page")
}

func TestDOMSourceArchivesSnapshots(t *testing.T) {
	t.Parallel()
	r := &fakeRenderer{pages: map[string]string{
		"https://batdongsan.example.vn/ban-nha": indexPage("", "Nhà A"),
	}}
	arch := newMemArchiver()
	src, err := NewDOMSource(domTestConfig(), zap.NewNop(), r, nil, arch, fakeHasher{}, newFakeClock())
	require.NoError(t, err)

	_, err = src.Scrape(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, arch.objects, 1)
	for name := range arch.objects {
		require.True(t, strings.HasPrefix(name, "batdongsan/"))
		require.True(t, strings.HasSuffix(name, ".html"))
	}
}
