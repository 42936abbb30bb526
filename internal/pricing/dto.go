package pricing

import (
	"github.com/shopspring/decimal"
)

// Source values a lookup result can carry, ordered by distance traveled.
const (
	SourceLocalExact  = "local_exact"
	SourceLocalFuzzy  = "local_fuzzy"
	SourceLiveScrape  = "live_scrape"
	SourceLiveSummary = "live_scrape_summary"
)

// Confidence grades for a resolved price.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// LookupRequest identifies the product to price. At least one field must be
// set.
type LookupRequest struct {
	ItemNumber  string `json:"item_number" validate:"required_without=Description"`
	Description string `json:"description" validate:"required_without=ItemNumber"`
}

// LookupResult is a resolved price with its provenance.
type LookupResult struct {
	Price           decimal.Decimal     `json:"price"`
	UnitPrice       decimal.NullDecimal `json:"unit_price,omitempty"`
	Quantity        decimal.NullDecimal `json:"quantity,omitempty"`
	Source          string              `json:"source"`
	Confidence      string              `json:"confidence"`
	Vendor          string              `json:"vendor,omitempty"`
	PONumber        string              `json:"po_number,omitempty"`
	AwardDate       string              `json:"award_date,omitempty"`
	LineDescription string              `json:"line_description,omitempty"`
}

// BulkItem pairs one request of a bulk lookup with its outcome. A miss is a
// nil result with no error; errors are per-item and never abort the batch.
type BulkItem struct {
	Request LookupRequest `json:"request"`
	Result  *LookupResult `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}
