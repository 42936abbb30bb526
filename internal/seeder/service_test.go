package seeder

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
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

type fakeSearcher struct {
	block chan struct{} // when set, Search blocks until closed
}

func (f *fakeSearcher) Search(ctx context.Context, criteria portal.SearchCriteria) (*portal.ResultsPage, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &portal.ResultsPage{
		Rows: []portal.SearchResultRow{
			{RowIndex: 0, PONumber: "PO-" + criteria.Description, SupplierName: "VENDOR"},
		},
		HTML: "<html/>",
	}, nil
}

func (f *fakeSearcher) Detail(_ context.Context, _ *portal.ResultsPage, row portal.SearchResultRow) (*portal.PODetail, error) {
	return &portal.PODetail{
		PONumber: row.PONumber,
		Supplier: "VENDOR",
		Lines: []portal.POLineItem{
			{
				Description:     "SEEDED ITEM FOR " + row.PONumber,
				UnitPriceAmount: decimal.NullDecimal{Decimal: decimal.RequireFromString("9.99"), Valid: true},
			},
		},
	}, nil
}

type countingIngestor struct {
	records []knowledge.Record
}

func (c *countingIngestor) Ingest(_ context.Context, record knowledge.Record) error {
	c.records = append(c.records, record)
	return nil
}

func newTestSeeder(t *testing.T, searcher *fakeSearcher, ingestor knowledge.Ingestor) (Service, *pricestore.Repository) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := db.New(context.Background(), config.StoreConfig{
		Path: filepath.Join(t.TempDir(), "prices.db"),
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := pricestore.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Portal:            searcher,
		Store:             repo,
		Ingestor:          ingestor,
		Logger:            logg,
		Metrics:           metrics.NewPortalMetrics(prometheus.NewRegistry()),
		SearchPacer:       pacer.New(0),
		DetailPacer:       pacer.New(0),
		CategoryPacer:     pacer.New(0),
		MaxCategories:     3,
		MaxPOsPerCategory: 2,
	})
	require.NoError(t, err)
	return svc, repo
}

func waitForFinish(t *testing.T, svc Service) Status {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		status := svc.Status()
		if !status.Running {
			return status
		}
		select {
		case <-deadline:
			t.Fatal("seeding run did not finish")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCategoriesForTiers(t *testing.T) {
	p0 := CategoriesFor(PriorityP0)
	p1 := CategoriesFor(PriorityP1)
	p2 := CategoriesFor(PriorityP2)

	require.NotEmpty(t, p0)
	assert.Greater(t, len(p1), len(p0))
	assert.Greater(t, len(p2), len(p1))
	for _, c := range p0 {
		assert.Equal(t, PriorityP0, c.Priority)
	}

	// Unknown tier falls back to P0.
	assert.Len(t, CategoriesFor("P9"), len(p0))
}

func TestSeederRunIngestsAndFinishes(t *testing.T) {
	ingestor := &countingIngestor{}
	svc, repo := newTestSeeder(t, &fakeSearcher{}, ingestor)

	status, err := svc.Start(StartOptions{Priority: PriorityP0})
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, 3, status.CategoriesTotal) // capped by MaxCategories

	final := waitForFinish(t, svc)
	assert.Equal(t, 3, final.CategoriesDone)
	assert.Equal(t, 3, final.RecordsIngested)
	assert.Empty(t, final.Errors)
	require.NotNil(t, final.FinishedAt)

	// Lines landed in the store under their description keys.
	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEntries)
	assert.Equal(t, int64(3), stats.BySource[SourceBulkSeed])

	require.Len(t, ingestor.records, 3)
	assert.Equal(t, SourceBulkSeed, ingestor.records[0].Source)
}

func TestSeederStartOptionsOverrideCaps(t *testing.T) {
	svc, repo := newTestSeeder(t, &fakeSearcher{}, nil)

	status, err := svc.Start(StartOptions{Priority: PriorityP0, MaxCategories: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, status.CategoriesTotal)

	final := waitForFinish(t, svc)
	assert.Equal(t, 1, final.CategoriesDone)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)
}

func TestSeederRefusesConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	svc, _ := newTestSeeder(t, &fakeSearcher{block: block}, nil)

	first, err := svc.Start(StartOptions{Priority: PriorityP0})
	require.NoError(t, err)

	again, err := svc.Start(StartOptions{Priority: PriorityP0})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	assert.True(t, again.Running)
	assert.Equal(t, first.RunID, again.RunID)

	close(block)
	waitForFinish(t, svc)

	// A finished run can be started again.
	_, err = svc.Start(StartOptions{Priority: PriorityP0})
	require.NoError(t, err)
	waitForFinish(t, svc)
}

func TestSeederStopIsCooperative(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	svc, _ := newTestSeeder(t, &fakeSearcher{block: block}, nil)

	_, err := svc.Start(StartOptions{Priority: PriorityP0})
	require.NoError(t, err)

	svc.Stop()
	final := waitForFinish(t, svc)
	assert.Equal(t, "stopped", final.Progress)
	assert.Less(t, final.CategoriesDone, final.CategoriesTotal)
}

func TestSeederStatusBeforeAnyRun(t *testing.T) {
	svc, _ := newTestSeeder(t, &fakeSearcher{}, nil)
	status := svc.Status()
	assert.False(t, status.Running)
	assert.Zero(t, status.CategoriesTotal)
}
