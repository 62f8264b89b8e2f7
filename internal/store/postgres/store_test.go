package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

func intp(n int) *int { return &n }

func testListing() scraper.Listing {
	return scraper.Listing{
		Title:        "Bán nhà riêng Quận 7",
		Price:        2_500_000_000,
		Area:         100,
		PricePerArea: 25_000_000,
		Location:     "Quận 7, TP.HCM",
		PropertyType: "Nhà riêng",
		Bedrooms:     intp(3),
		Bathrooms:    intp(2),
		ImageURL:     "https://cdn.example.vn/photo.jpg",
		Link:         "https://batdongsan.example.vn/tin/123",
		Source:       "batdongsan",
		Timestamp:    time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		RawData:      map[string]any{"price_text": "2,5 tỷ"},
	}
}

func TestInsertNewListing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "listings", "scrape_runs")
	require.NoError(t, err)

	l := testListing()
	mock.ExpectExec("INSERT INTO listings").
		WithArgs(
			l.Title,
			l.Price,
			l.Area,
			l.PricePerArea,
			l.Location,
			l.PropertyType,
			l.Bedrooms,
			l.Bathrooms,
			l.ImageURL,
			l.Link,
			l.Source,
			l.Timestamp,
			[]byte(`{"price_text":"2,5 tỷ"}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := store.Insert(context.Background(), l)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDuplicateListing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "listings", "scrape_runs")
	require.NoError(t, err)

	var noCount *int
	l := testListing()
	l.Bedrooms = nil
	l.Bathrooms = nil
	l.RawData = nil
	mock.ExpectExec("INSERT INTO listings").
		WithArgs(
			l.Title,
			l.Price,
			l.Area,
			l.PricePerArea,
			l.Location,
			l.PropertyType,
			noCount,
			noCount,
			l.ImageURL,
			l.Link,
			l.Source,
			l.Timestamp,
			[]byte(`{}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.Insert(context.Background(), l)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "listings", "scrape_runs")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO listings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	_, err = store.Insert(context.Background(), testListing())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert listing")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunHistoryRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "listings", "scrape_runs")
	require.NoError(t, err)

	started := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)

	mock.ExpectExec("INSERT INTO scrape_runs").
		WithArgs("run-0001", "chotot", "running", started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs("run-0001", "chotot", "completed", finished, 12, 7, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := scraper.RunRecord{
		RunID:     "run-0001",
		Source:    "chotot",
		Status:    scraper.RunRunning,
		StartedAt: started,
	}
	require.NoError(t, store.BeginRun(context.Background(), rec))

	rec.Status = scraper.RunCompleted
	rec.FinishedAt = finished
	rec.ListingsFound = 12
	rec.ListingsNew = 7
	require.NoError(t, store.FinishRun(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(nil, "listings", "scrape_runs")
	require.Error(t, err)

	_, err = NewWithPool(mock, "listings; DROP TABLE listings", "scrape_runs")
	require.Error(t, err)

	_, err = NewWithPool(mock, "listings", "runs--")
	require.Error(t, err)

	store, err := NewWithPool(mock, "", "")
	require.NoError(t, err)
	require.Equal(t, "listings", store.listings)
	require.Equal(t, "scrape_runs", store.runs)
}
