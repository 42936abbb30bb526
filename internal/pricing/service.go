package pricing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/reytechinc/scprs-backend/internal/knowledge"
	"github.com/reytechinc/scprs-backend/internal/portal"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/pkg/db/models"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

// recencyWindow is the soft freshness cutoff for awards: roughly eighteen
// months. Older awards are only considered when nothing newer matched.
const recencyWindow = 548 * 24 * time.Hour

// maxDrillDowns caps per-lookup detail fetches; each one is a full portal
// round trip.
const maxDrillDowns = 5

// Searcher is the portal surface the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, criteria portal.SearchCriteria) (*portal.ResultsPage, error)
	Detail(ctx context.Context, page *portal.ResultsPage, row portal.SearchResultRow) (*portal.PODetail, error)
}

// ServiceParams groups dependencies for the pricing service.
type ServiceParams struct {
	Portal      Searcher
	Store       *pricestore.Repository
	Ingestor    knowledge.Ingestor
	Logger      *logger.Logger
	Metrics     *metrics.PortalMetrics
	SearchPacer *pacer.Pacer
	DetailPacer *pacer.Pacer
	Now         func() time.Time
}

// Service resolves historical purchase prices, cheapest path first.
type Service interface {
	FindPrice(ctx context.Context, req LookupRequest) (*LookupResult, error)
	BulkLookup(ctx context.Context, reqs []LookupRequest) []BulkItem
	Stats(ctx context.Context) (pricestore.Stats, error)
}

type service struct {
	portal      Searcher
	store       *pricestore.Repository
	ingestor    knowledge.Ingestor
	logg        *logger.Logger
	metrics     *metrics.PortalMetrics
	searchPacer *pacer.Pacer
	detailPacer *pacer.Pacer
	now         func() time.Time
}

// NewService builds a pricing service with the required dependencies.
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
	return &service{
		portal:      params.Portal,
		store:       params.Store,
		ingestor:    params.Ingestor,
		logg:        params.Logger,
		metrics:     params.Metrics,
		searchPacer: params.SearchPacer,
		detailPacer: params.DetailPacer,
		now:         params.Now,
	}, nil
}

// FindPrice resolves one product: exact cache hit, then fuzzy cache hit,
// then a live portal scrape whose outcome is written back to the cache.
// A nil result with a nil error means no price could be found anywhere.
func (s *service) FindPrice(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if req.ItemNumber == "" && req.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an item number or description is required")
	}

	ctx = s.logg.WithTerm(ctx, firstNonEmpty(req.ItemNumber, firstLine(req.Description)))

	if key := pricestore.CacheKey(req.ItemNumber, req.Description); key != "" {
		entry, err := s.store.LookupExact(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			s.metrics.IncCacheLookup("exact", "hit")
			return resultFromEntry(entry, SourceLocalExact, ConfidenceHigh), nil
		}
		s.metrics.IncCacheLookup("exact", "miss")
	}

	if req.Description != "" {
		entry, _, err := s.store.LookupFuzzy(ctx, firstLine(req.Description))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			s.metrics.IncCacheLookup("fuzzy", "hit")
			return resultFromEntry(entry, SourceLocalFuzzy, ConfidenceMedium), nil
		}
		s.metrics.IncCacheLookup("fuzzy", "miss")
	}

	result, err := s.scrapeLive(ctx, req)
	if err != nil {
		s.metrics.IncCacheLookup("live", "error")
		return nil, err
	}
	if result == nil {
		s.metrics.IncCacheLookup("live", "miss")
		return nil, nil
	}
	s.metrics.IncCacheLookup("live", "hit")

	s.persist(ctx, req, result)
	return result, nil
}

// BulkLookup resolves a batch sequentially; pacing between portal round
// trips is handled inside FindPrice. Per-item failures never abort the
// batch.
func (s *service) BulkLookup(ctx context.Context, reqs []LookupRequest) []BulkItem {
	items := make([]BulkItem, 0, len(reqs))
	for _, req := range reqs {
		item := BulkItem{Request: req}
		result, err := s.FindPrice(ctx, req)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = result
		}
		items = append(items, item)
	}
	return items
}

// Stats reports cache contents.
func (s *service) Stats(ctx context.Context) (pricestore.Stats, error) {
	return s.store.Stats(ctx)
}

type candidate struct {
	row  portal.SearchResultRow
	page *portal.ResultsPage
}

func (s *service) scrapeLive(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	terms := buildSearchTerms(req.ItemNumber, req.Description)
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		candidates []candidate
		seen       = make(map[string]struct{})
	)
	for _, term := range terms {
		if err := s.searchPacer.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.portal.Search(ctx, portal.SearchCriteria{Description: term})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logg.Warn(s.logg.WithTerm(ctx, term), "portal search failed, trying next term")
			continue
		}
		for _, row := range page.Rows {
			if _, dup := seen[row.PONumber]; dup {
				continue
			}
			seen[row.PONumber] = struct{}{}
			candidates = append(candidates, candidate{row: row, page: page})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	candidates = s.preferRecent(candidates)

	var (
		best    *LookupResult
		summary *LookupResult
	)
	for i, cand := range candidates {
		if i == maxDrillDowns {
			break
		}
		if err := s.detailPacer.Wait(ctx); err != nil {
			return nil, err
		}
		detail, err := s.portal.Detail(ctx, cand.page, cand.row)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logg.Warn(s.logg.WithPONumber(ctx, cand.row.PONumber), "drill-down failed, skipping purchase order")
			detail = nil
		}

		if detail != nil && len(detail.Lines) > 0 {
			line := bestLine(detail.Lines, req.ItemNumber, req.Description)
			if line != nil && line.UnitPriceAmount.Valid && line.UnitPriceAmount.Decimal.IsPositive() {
				result := &LookupResult{
					Price:           line.UnitPriceAmount.Decimal,
					UnitPrice:       line.UnitPriceAmount,
					Quantity:        line.QuantityAmount,
					Source:          SourceLiveScrape,
					Confidence:      ConfidenceHigh,
					Vendor:          cand.row.SupplierName,
					PONumber:        cand.row.PONumber,
					AwardDate:       cand.row.StartDate,
					LineDescription: line.Description,
				}
				// The lowest confirmed unit price across drilled POs wins.
				if best == nil || result.Price.LessThan(best.Price) {
					best = result
				}
			}
			continue
		}

		if summary == nil && cand.row.GrandTotalAmount.Valid && cand.row.GrandTotalAmount.Decimal.IsPositive() {
			summary = &LookupResult{
				Price:      cand.row.GrandTotalAmount.Decimal,
				Source:     SourceLiveSummary,
				Confidence: ConfidenceLow,
				Vendor:     cand.row.SupplierName,
				PONumber:   cand.row.PONumber,
				AwardDate:  cand.row.StartDate,
			}
		}
	}

	if best != nil {
		return best, nil
	}
	return summary, nil
}

// preferRecent keeps awards inside the freshness window when any exist,
// newest first. A stale-only result set still resolves.
func (s *service) preferRecent(candidates []candidate) []candidate {
	cutoff := s.now().Add(-recencyWindow)
	recent := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.row.StartDateParsed.IsZero() && !c.row.StartDateParsed.Before(cutoff) {
			recent = append(recent, c)
		}
	}
	if len(recent) > 0 {
		candidates = recent
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].row.StartDateParsed.After(candidates[j].row.StartDateParsed)
	})
	return candidates
}

// persist writes the scrape outcome through to the cache and, for confirmed
// line prices, to the knowledge base. Neither failure surfaces to the
// caller.
func (s *service) persist(ctx context.Context, req LookupRequest, result *LookupResult) {
	entry := models.PriceEntry{
		Key:         pricestore.CacheKey(req.ItemNumber, req.Description),
		Price:       result.Price,
		UnitPrice:   result.UnitPrice,
		Quantity:    result.Quantity,
		ItemNumber:  req.ItemNumber,
		Description: firstLine(req.Description),
		Vendor:      result.Vendor,
		PONumber:    result.PONumber,
		Source:      result.Source,
		ObservedAt:  s.now().UTC(),
	}
	if err := s.store.Save(ctx, entry); err != nil {
		s.logg.Error(ctx, "price cache write failed", err)
	}

	if result.Confidence != ConfidenceHigh {
		return
	}
	record := knowledge.Record{
		PONumber:    result.PONumber,
		ItemNumber:  req.ItemNumber,
		Description: firstNonEmpty(result.LineDescription, firstLine(req.Description)),
		UnitPrice:   result.Price,
		Quantity:    result.Quantity,
		Supplier:    result.Vendor,
		AwardDate:   result.AwardDate,
		Source:      result.Source,
	}
	if err := s.ingestor.Ingest(ctx, record); err != nil {
		s.logg.Warn(s.logg.WithPONumber(ctx, result.PONumber), "knowledge ingest failed")
	}
}

func resultFromEntry(entry *models.PriceEntry, source, confidence string) *LookupResult {
	return &LookupResult{
		Price:      entry.Price,
		UnitPrice:  entry.UnitPrice,
		Quantity:   entry.Quantity,
		Source:     source,
		Confidence: confidence,
		Vendor:     entry.Vendor,
		PONumber:   entry.PONumber,
		AwardDate:  entry.ObservedAt.Format("01/02/2006"),
	}
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
