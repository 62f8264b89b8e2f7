package memory

import (
	"context"
	"testing"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

func TestPublisherStoresListings(t *testing.T) {
	t.Parallel()

	pub := New()
	err := pub.Publish(context.Background(), scraper.Listing{Link: "https://example.vn/tin/1", Source: "batdongsan"})
	if err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	err = pub.Publish(context.Background(), scraper.Listing{Link: "https://example.vn/tin/2", Source: "chotot"})
	if err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	got := pub.Published()
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(got))
	}
	if got[0].Source != "batdongsan" || got[1].Source != "chotot" {
		t.Fatalf("sources not recorded correctly: %+v", got)
	}

	got[0].Source = "modified"
	if pub.Published()[0].Source == "modified" {
		t.Fatal("expected Published() to return a copy")
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
