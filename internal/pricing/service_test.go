package pricing

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reytechinc/scprs-backend/internal/knowledge"
	"github.com/reytechinc/scprs-backend/internal/portal"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/db"
	"github.com/reytechinc/scprs-backend/pkg/db/models"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

// fakeSearcher serves canned result rows for every search term and canned
// details per PO number, recording what was asked.
type fakeSearcher struct {
	rows      []portal.SearchResultRow
	details   map[string]*portal.PODetail
	searchErr error

	searched []string
	drilled  []string
}

func (f *fakeSearcher) Search(_ context.Context, criteria portal.SearchCriteria) (*portal.ResultsPage, error) {
	f.searched = append(f.searched, criteria.Description)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &portal.ResultsPage{Rows: f.rows, HTML: "<html/>"}, nil
}

func (f *fakeSearcher) Detail(_ context.Context, _ *portal.ResultsPage, row portal.SearchResultRow) (*portal.PODetail, error) {
	f.drilled = append(f.drilled, row.PONumber)
	detail, ok := f.details[row.PONumber]
	if !ok {
		return &portal.PODetail{PONumber: row.PONumber}, nil
	}
	return detail, nil
}

type recordingIngestor struct {
	records []knowledge.Record
}

func (r *recordingIngestor) Ingest(_ context.Context, record knowledge.Record) error {
	r.records = append(r.records, record)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, searcher Searcher, ingestor knowledge.Ingestor) (Service, *pricestore.Repository) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := db.New(context.Background(), config.StoreConfig{
		Path: filepath.Join(t.TempDir(), "prices.db"),
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := pricestore.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Portal:      searcher,
		Store:       repo,
		Ingestor:    ingestor,
		Logger:      logg,
		Metrics:     metrics.NewPortalMetrics(prometheus.NewRegistry()),
		SearchPacer: pacer.New(0),
		DetailPacer: pacer.New(0),
		Now:         fixedNow,
	})
	require.NoError(t, err)
	return svc, repo
}

func resultRow(idx int, po, firstItem, startDate, total, supplier string) portal.SearchResultRow {
	row := portal.SearchResultRow{
		RowIndex:     idx,
		PONumber:     po,
		FirstItem:    firstItem,
		StartDate:    startDate,
		SupplierName: supplier,
		GrandTotal:   total,
	}
	if total != "" {
		row.GrandTotalAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString(total), Valid: true}
	}
	if startDate != "" {
		parsed, err := time.Parse("01/02/2006", startDate)
		if err == nil {
			row.StartDateParsed = parsed
		}
	}
	return row
}

func detailWithPrice(po, desc, price string) *portal.PODetail {
	l := portal.POLineItem{
		Description: desc,
		Status:      "Active",
		UnitPrice:   "$" + price,
		UnitPriceAmount: decimal.NullDecimal{
			Decimal: decimal.RequireFromString(price), Valid: true,
		},
		QuantityAmount: decimal.NullDecimal{Decimal: decimal.NewFromInt(10), Valid: true},
	}
	return &portal.PODetail{PONumber: po, Lines: []portal.POLineItem{l}}
}

func TestFindPriceRequiresInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeSearcher{}, nil)
	_, err := svc.FindPrice(context.Background(), LookupRequest{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestFindPriceExactCacheHitSkipsPortal(t *testing.T) {
	searcher := &fakeSearcher{}
	svc, repo := newTestService(t, searcher, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.PriceEntry{
		Key:        "6500-001-430",
		Price:      decimal.RequireFromString("62.50"),
		Vendor:     "ACME MEDICAL",
		Source:     SourceLiveScrape,
		ObservedAt: fixedNow(),
	}))

	got, err := svc.FindPrice(ctx, LookupRequest{ItemNumber: "6500-001-430"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SourceLocalExact, got.Source)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("62.50")))
	assert.Empty(t, searcher.searched)
}

func TestFindPriceFuzzyCacheHit(t *testing.T) {
	searcher := &fakeSearcher{}
	svc, repo := newTestService(t, searcher, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.PriceEntry{
		Key:         "NITRILE EXAM GLOVES LARGE POWDER FREE",
		Description: "NITRILE EXAM GLOVES LARGE POWDER FREE",
		Price:       decimal.RequireFromString("62.50"),
		Source:      SourceLiveScrape,
		ObservedAt:  fixedNow(),
	}))

	got, err := svc.FindPrice(ctx, LookupRequest{Description: "nitrile exam gloves large powder free box"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SourceLocalFuzzy, got.Source)
	assert.Equal(t, ConfidenceMedium, got.Confidence)
	assert.Empty(t, searcher.searched)
}

func TestFindPriceLivePicksMinimumUnitPrice(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "PO-A", "NITRILE GLOVES", "03/01/2026", "1000.00", "VENDOR A"),
			resultRow(1, "PO-B", "NITRILE GLOVES", "04/01/2026", "2000.00", "VENDOR B"),
			resultRow(2, "PO-C", "NITRILE GLOVES", "05/01/2026", "3000.00", "VENDOR C"),
		},
		details: map[string]*portal.PODetail{
			"PO-A": detailWithPrice("PO-A", "NITRILE GLOVES LARGE", "10.00"),
			"PO-B": detailWithPrice("PO-B", "NITRILE GLOVES LARGE", "7.00"),
			"PO-C": detailWithPrice("PO-C", "NITRILE GLOVES LARGE", "12.00"),
		},
	}
	ingestor := &recordingIngestor{}
	svc, repo := newTestService(t, searcher, ingestor)
	ctx := context.Background()

	got, err := svc.FindPrice(ctx, LookupRequest{Description: "nitrile gloves large"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SourceLiveScrape, got.Source)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("7.00")))
	assert.Equal(t, "PO-B", got.PONumber)
	assert.Equal(t, "VENDOR B", got.Vendor)

	// Written through to the cache under the description key.
	entry, err := repo.LookupExact(ctx, pricestore.CacheKey("", "nitrile gloves large"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Price.Equal(decimal.RequireFromString("7.00")))

	// Confirmed line price reaches the knowledge base.
	require.Len(t, ingestor.records, 1)
	assert.Equal(t, "PO-B", ingestor.records[0].PONumber)
}

func TestFindPriceSummaryFallback(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "PO-X", "SHARPS CONTAINER", "03/01/2026", "4200.00", "VENDOR X"),
		},
		// No detail entry: the drill-down yields a header with no lines.
	}
	ingestor := &recordingIngestor{}
	svc, _ := newTestService(t, searcher, ingestor)

	got, err := svc.FindPrice(context.Background(), LookupRequest{Description: "sharps container"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SourceLiveSummary, got.Source)
	assert.Equal(t, ConfidenceLow, got.Confidence)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("4200.00")))

	// Summary prices stay out of the knowledge base.
	assert.Empty(t, ingestor.records)
}

func TestFindPricePrefersRecentAwards(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "PO-OLD", "N95 RESPIRATOR", "01/15/2020", "500.00", "OLD VENDOR"),
			resultRow(1, "PO-NEW", "N95 RESPIRATOR", "06/01/2026", "800.00", "NEW VENDOR"),
		},
		details: map[string]*portal.PODetail{
			"PO-OLD": detailWithPrice("PO-OLD", "N95 RESPIRATOR", "1.00"),
			"PO-NEW": detailWithPrice("PO-NEW", "N95 RESPIRATOR", "2.00"),
		},
	}
	svc, _ := newTestService(t, searcher, nil)

	got, err := svc.FindPrice(context.Background(), LookupRequest{Description: "N95 respirator"})
	require.NoError(t, err)
	require.NotNil(t, got)
	// The stale award is filtered before drilling, despite its lower price.
	assert.Equal(t, []string{"PO-NEW"}, searcher.drilled)
	assert.Equal(t, "PO-NEW", got.PONumber)
}

func TestFindPriceStaleOnlyStillResolves(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "PO-OLD", "WALKER FOLDING", "01/15/2020", "900.00", "OLD VENDOR"),
		},
		details: map[string]*portal.PODetail{
			"PO-OLD": detailWithPrice("PO-OLD", "WALKER FOLDING", "45.00"),
		},
	}
	svc, _ := newTestService(t, searcher, nil)

	got, err := svc.FindPrice(context.Background(), LookupRequest{Description: "walker folding"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PO-OLD", got.PONumber)
}

func TestFindPriceMissIsNilNil(t *testing.T) {
	svc, _ := newTestService(t, &fakeSearcher{}, nil)

	got, err := svc.FindPrice(context.Background(), LookupRequest{Description: "unobtainium widget"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindPriceDegradesOnPortalFailure(t *testing.T) {
	searcher := &fakeSearcher{searchErr: pkgerrors.New(pkgerrors.CodeDesync, "stale page")}
	svc, _ := newTestService(t, searcher, nil)

	got, err := svc.FindPrice(context.Background(), LookupRequest{Description: "nitrile gloves large"})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotEmpty(t, searcher.searched)
}

func TestFindPriceEndToEndByItemNumber(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "4500123456", "NITRILE EXAM GLOVES LARGE", "03/15/2026", "12500.00", "ACME MEDICAL"),
		},
		details: map[string]*portal.PODetail{
			"4500123456": {
				PONumber: "4500123456",
				Lines: []portal.POLineItem{
					{
						Description:     "LATEX GLOVES SMALL",
						UnitPriceAmount: decimal.NullDecimal{Decimal: decimal.RequireFromString("30.00"), Valid: true},
					},
					{
						Description:     "NITRILE EXAM GLOVES 6500-001-430 LARGE",
						Status:          "Active",
						UnitPriceAmount: decimal.NullDecimal{Decimal: decimal.RequireFromString("62.50"), Valid: true},
					},
				},
			},
		},
	}
	svc, repo := newTestService(t, searcher, nil)
	ctx := context.Background()

	got, err := svc.FindPrice(ctx, LookupRequest{ItemNumber: "6500-001-430", Description: "Nitrile exam gloves large"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "6500-001-430", searcher.searched[0])
	assert.True(t, got.Price.Equal(decimal.RequireFromString("62.50")))
	assert.Equal(t, "NITRILE EXAM GLOVES 6500-001-430 LARGE", got.LineDescription)

	// A repeat lookup now resolves locally.
	searcher.searched = nil
	again, err := svc.FindPrice(ctx, LookupRequest{ItemNumber: "6500-001-430"})
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, SourceLocalExact, again.Source)
	assert.Empty(t, searcher.searched)
	_ = repo
}

func TestBulkLookupContinuesPastFailures(t *testing.T) {
	searcher := &fakeSearcher{
		rows: []portal.SearchResultRow{
			resultRow(0, "PO-A", "GAUZE PADS", "03/01/2026", "100.00", "VENDOR A"),
		},
		details: map[string]*portal.PODetail{
			"PO-A": detailWithPrice("PO-A", "GAUZE PADS 4X4", "9.80"),
		},
	}
	svc, _ := newTestService(t, searcher, nil)

	items := svc.BulkLookup(context.Background(), []LookupRequest{
		{},
		{Description: "gauze pads 4x4"},
	})
	require.Len(t, items, 2)
	assert.NotEmpty(t, items[0].Error)
	assert.Nil(t, items[0].Result)
	require.NotNil(t, items[1].Result)
	assert.True(t, items[1].Result.Price.Equal(decimal.RequireFromString("9.80")))
}

func TestStats(t *testing.T) {
	svc, repo := newTestService(t, &fakeSearcher{}, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.PriceEntry{
		Key:        "KEY-A",
		Price:      decimal.NewFromInt(1),
		Source:     SourceLiveScrape,
		ObservedAt: fixedNow(),
	}))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)
}
