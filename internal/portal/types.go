package portal

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SearchCriteria carries the caller-supplied values for a portal search.
// Fields left empty are still posted; the form rejects missing inputs.
type SearchCriteria struct {
	Description  string
	Department   string
	PONumber     string
	SupplierID   string
	SupplierName string
	AcqType      string
	AcqMethod    string
	FromDate     string
	ToDate       string
}

func (c SearchCriteria) values() map[string]string {
	return map[string]string{
		fieldDescription:  c.Description,
		fieldDept:         c.Department,
		fieldPONumber:     c.PONumber,
		fieldSupplierID:   c.SupplierID,
		fieldSupplierName: c.SupplierName,
		fieldAcqType:      c.AcqType,
		fieldAcqMethod:    c.AcqMethod,
		fieldFromDate:     c.FromDate,
		fieldToDate:       c.ToDate,
	}
}

// SearchResultRow is one summary row from the results grid.
type SearchResultRow struct {
	RowIndex     int
	Dept         string
	DeptCode     string
	FirstItem    string
	StartDate    string
	EndDate      string
	GrandTotal   string
	SupplierID   string
	SupplierName string
	CertType     string
	AcqType      string
	PONumber     string
	// ClickAction is the element id of the PO hyperlink; posting it as the
	// action token opens the drill-down for this row.
	ClickAction string

	GrandTotalAmount decimal.NullDecimal
	StartDateParsed  time.Time
}

// ResultsPage is a parsed results page. The raw body is retained because a
// drill-down POST must copy the server-echoed criteria forward from it.
type ResultsPage struct {
	Rows []SearchResultRow
	HTML string
}

// POLineItem is one line of a purchase order detail page.
type POLineItem struct {
	LineNumber    string
	ItemID        string
	Description   string
	UnitOfMeasure string
	Quantity      string
	UnitPrice     string
	LineTotal     string
	Status        string

	UnitPriceAmount decimal.NullDecimal
	QuantityAmount  decimal.NullDecimal
}

// PODetail is a parsed purchase order drill-down page.
type PODetail struct {
	DeptCode    string
	DeptName    string
	PONumber    string
	Status      string
	StartDate   string
	EndDate     string
	Supplier    string
	AcqType     string
	AcqMethod   string
	MerchAmount string
	FreightTax  string
	GrandTotal  string
	BuyerName   string
	BuyerEmail  string

	Lines []POLineItem
}

const portalDateLayout = "01/02/2006"

var nonAmountChars = regexp.MustCompile(`[^0-9.]`)

// parseAmount strips currency noise and converts permissively; anything
// unparsable becomes an invalid NullDecimal, never an error.
func parseAmount(text string) decimal.NullDecimal {
	cleaned := nonAmountChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// parseDate converts the portal's MM/DD/YYYY; unparsable dates come back
// zero-valued.
func parseDate(text string) time.Time {
	t, err := time.Parse(portalDateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}
	}
	return t
}
