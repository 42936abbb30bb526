package seeder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/reytechinc/scprs-backend/internal/knowledge"
	"github.com/reytechinc/scprs-backend/internal/portal"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/internal/pricing"
	"github.com/reytechinc/scprs-backend/pkg/db/models"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

// SourceBulkSeed marks store entries written by a seeding run.
const SourceBulkSeed = "bulk_seed"

// Status is the pollable state of the seeder. A finished run keeps its
// counters until the next run starts.
type Status struct {
	Running         bool       `json:"running"`
	RunID           string     `json:"run_id,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	Progress        string     `json:"progress,omitempty"`
	CategoriesDone  int        `json:"categories_done"`
	CategoriesTotal int        `json:"categories_total"`
	RecordsIngested int        `json:"records_ingested"`
	Errors          []string   `json:"errors,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// ServiceParams groups dependencies for the seeder service.
type ServiceParams struct {
	Portal            pricing.Searcher
	Store             *pricestore.Repository
	Ingestor          knowledge.Ingestor
	Logger            *logger.Logger
	Metrics           *metrics.PortalMetrics
	SearchPacer       *pacer.Pacer
	DetailPacer       *pacer.Pacer
	CategoryPacer     *pacer.Pacer
	MaxCategories     int
	MaxPOsPerCategory int
	Now               func() time.Time
}

// StartOptions tune a single seeding run. Zero values fall back to the
// service defaults.
type StartOptions struct {
	Priority          string
	MaxCategories     int
	MaxPOsPerCategory int
}

// Service runs background seeding passes over the category pull list.
type Service interface {
	Start(opts StartOptions) (Status, error)
	Stop() Status
	Status() Status
}

type service struct {
	portal            pricing.Searcher
	store             *pricestore.Repository
	ingestor          knowledge.Ingestor
	logg              *logger.Logger
	metrics           *metrics.PortalMetrics
	searchPacer       *pacer.Pacer
	detailPacer       *pacer.Pacer
	categoryPacer     *pacer.Pacer
	maxCategories     int
	maxPOsPerCategory int
	now               func() time.Time

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// NewService builds a seeder service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Portal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "portal searcher is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.Ingestor == nil {
		params.Ingestor = knowledge.Nop{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.MaxCategories <= 0 {
		params.MaxCategories = 20
	}
	if params.MaxPOsPerCategory <= 0 {
		params.MaxPOsPerCategory = 5
	}
	return &service{
		portal:            params.Portal,
		store:             params.Store,
		ingestor:          params.Ingestor,
		logg:              params.Logger,
		metrics:           params.Metrics,
		searchPacer:       params.SearchPacer,
		detailPacer:       params.DetailPacer,
		categoryPacer:     params.CategoryPacer,
		maxCategories:     params.MaxCategories,
		maxPOsPerCategory: params.MaxPOsPerCategory,
		now:               params.Now,
	}, nil
}

// Start launches a background run over the pull list. A run already in
// flight is refused; the caller gets the live status either way.
func (s *service) Start(opts StartOptions) (Status, error) {
	maxCats := s.maxCategories
	if opts.MaxCategories > 0 {
		maxCats = opts.MaxCategories
	}
	maxPOs := s.maxPOsPerCategory
	if opts.MaxPOsPerCategory > 0 {
		maxPOs = opts.MaxPOsPerCategory
	}

	cats := CategoriesFor(opts.Priority)
	if len(cats) > maxCats {
		cats = cats[:maxCats]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Running {
		return s.status, pkgerrors.New(pkgerrors.CodeConflict, "a seeding run is already in progress")
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := s.now().UTC()
	s.cancel = cancel
	s.status = Status{
		Running:         true,
		RunID:           uuid.NewString(),
		Priority:        opts.Priority,
		Progress:        "initializing",
		CategoriesTotal: len(cats),
		StartedAt:       &started,
	}

	go s.run(ctx, cats, maxPOs)
	return s.status, nil
}

// Stop requests cooperative cancellation; the run drains at the next
// category or drill boundary. The returned status may still be running.
func (s *service) Stop() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return s.status
}

// Status returns a snapshot of the current or last run.
func (s *service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *service) run(ctx context.Context, cats []Category, maxPOs int) {
	var runErr error
	for i, cat := range cats {
		if ctx.Err() != nil {
			break
		}
		s.setProgress(fmt.Sprintf("[%d/%d] %s", i+1, len(cats), cat.Term))

		ingested, err := s.seedCategory(ctx, cat, maxPOs)
		if err != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("category %q: %w", cat.Term, err))
		}

		s.mu.Lock()
		s.status.CategoriesDone++
		s.status.RecordsIngested += ingested
		s.mu.Unlock()
		s.metrics.AddSeederIngested(ingested)

		if i < len(cats)-1 {
			if err := s.categoryPacer.Wait(ctx); err != nil {
				break
			}
		}
	}

	finished := s.now().UTC()
	s.mu.Lock()
	s.status.Running = false
	s.status.FinishedAt = &finished
	if ctx.Err() != nil {
		s.status.Progress = "stopped"
	} else {
		s.status.Progress = fmt.Sprintf("done, %d records from %d categories",
			s.status.RecordsIngested, s.status.CategoriesDone)
	}
	for _, err := range multierr.Errors(runErr) {
		s.status.Errors = append(s.status.Errors, err.Error())
	}
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(context.Background(), "records", s.Status().RecordsIngested), "seeding run finished")
}

func (s *service) seedCategory(ctx context.Context, cat Category, maxPOs int) (int, error) {
	logCtx := s.logg.WithCategory(ctx, cat.Group)

	if err := s.searchPacer.Wait(ctx); err != nil {
		return 0, nil
	}
	page, err := s.portal.Search(ctx, portal.SearchCriteria{Description: cat.Term})
	if err != nil {
		return 0, err
	}

	var (
		ingested int
		errs     error
	)
	for i, row := range page.Rows {
		if i == maxPOs || ctx.Err() != nil {
			break
		}
		if err := s.detailPacer.Wait(ctx); err != nil {
			break
		}
		detail, err := s.portal.Detail(ctx, page, row)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("po %s: %w", row.PONumber, err))
			continue
		}
		ingested += s.ingestLines(logCtx, row, detail)
	}
	return ingested, errs
}

// ingestLines writes every priced line of a drilled purchase order to the
// store and the knowledge base.
func (s *service) ingestLines(ctx context.Context, row portal.SearchResultRow, detail *portal.PODetail) int {
	supplier := detail.Supplier
	if supplier == "" {
		supplier = row.SupplierName
	}
	poNumber := detail.PONumber
	if poNumber == "" {
		poNumber = row.PONumber
	}

	ingested := 0
	for _, line := range detail.Lines {
		if !line.UnitPriceAmount.Valid || !line.UnitPriceAmount.Decimal.IsPositive() {
			continue
		}

		entry := models.PriceEntry{
			Key:         pricestore.CacheKey(line.ItemID, line.Description),
			Price:       line.UnitPriceAmount.Decimal,
			UnitPrice:   line.UnitPriceAmount,
			Quantity:    line.QuantityAmount,
			ItemNumber:  line.ItemID,
			Description: line.Description,
			Vendor:      supplier,
			PONumber:    poNumber,
			Source:      SourceBulkSeed,
			ObservedAt:  s.now().UTC(),
		}
		if entry.Key == "" {
			continue
		}
		if err := s.store.Save(ctx, entry); err != nil {
			s.logg.Warn(s.logg.WithPONumber(ctx, poNumber), "seeder store write failed")
			continue
		}

		record := knowledge.Record{
			PONumber:    poNumber,
			ItemNumber:  line.ItemID,
			Description: line.Description,
			UnitPrice:   line.UnitPriceAmount.Decimal,
			Quantity:    line.QuantityAmount,
			Supplier:    supplier,
			Department:  detail.DeptName,
			AwardDate:   detail.StartDate,
			Source:      SourceBulkSeed,
		}
		if err := s.ingestor.Ingest(ctx, record); err != nil {
			s.logg.Warn(s.logg.WithPONumber(ctx, poNumber), "seeder knowledge ingest failed")
		}
		ingested++
	}
	return ingested
}

func (s *service) setProgress(progress string) {
	s.mu.Lock()
	s.status.Progress = progress
	s.mu.Unlock()
}
