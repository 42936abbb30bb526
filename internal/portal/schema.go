package portal

import "fmt"

// The SCPRS portal publishes no API. Everything below is an empirically
// discovered contract with its PeopleSoft markup, collected in one place so
// markup drift has a single blast radius.
//
// Naming convention observed on the portal:
//   search page form:  ZZ_SCPRS1_CMP
//   results grid:      ZZ_SCPR_RD_DVW_<SUFFIX>$<row>
//   detail page:       ZZ_SCPRS2_CMP
//   detail grid:       ZZ_SCPR_PDL_DVW_<SUFFIX>$<row>

const (
	// Search criteria field ids.
	fieldDescription  = "ZZ_SCPRS_SP_WRK_DESCR254"
	fieldDept         = "ZZ_SCPRS_SP_WRK_BUSINESS_UNIT"
	fieldPONumber     = "ZZ_SCPRS_SP_WRK_CRDMEM_ACCT_NBR"
	fieldSupplierID   = "ZZ_SCPRS_SP_WRK_SUPPLIER_ID"
	fieldSupplierName = "ZZ_SCPRS_SP_WRK_NAME1"
	fieldAcqType      = "ZZ_SCPRS_SP_WRK_ZZ_ACQ_TYPE"
	fieldAcqMethod    = "ZZ_SCPRS_SP_WRK_ZZ_ACQ_MTHD"
	fieldFromDate     = "ZZ_SCPRS_SP_WRK_FROM_DATE"
	fieldToDate       = "ZZ_SCPRS_SP_WRK_TO_DATE"

	// Action tokens for UI transitions.
	actionSearch = "ZZ_SCPRS_SP_WRK_BUTTON"
	actionClear  = "ZZ_SCPRS_SP_WRK_BUTTON1"

	// Grid prefixes.
	resultGridPrefix = "ZZ_SCPR_RD_DVW"
	detailGridPrefix = "ZZ_SCPR_PDL_DVW"

	// The PO hyperlink carries both the PO number (text) and the
	// click-action token (its element id). No field suffix.
	poLinkPrefix = "ZZ_SCPR_RD_DVW_CRDMEM_ACCT_NBR"

	// Server-echoed hidden field that must be copied forward unmodified;
	// omitting it makes the portal silently reject the POST.
	echoFieldName = "DUMMY_FIELD$hnewpers$0"
)

// criteriaFields is every criteria input the search form carries. All of
// them must be present in a search POST, empty or not.
var criteriaFields = []string{
	fieldDescription,
	fieldDept,
	fieldPONumber,
	fieldAcqType,
	fieldSupplierID,
	fieldSupplierName,
	fieldAcqMethod,
	fieldFromDate,
	fieldToDate,
}

// resultColumns maps results-grid field suffixes onto row fields.
var resultColumns = []struct {
	Suffix string
	Assign func(*SearchResultRow, string)
}{
	{"CRDMEM_ACCT_NBR", func(r *SearchResultRow, v string) { r.PONumber = v }},
	{"AWARDED_AMT", func(r *SearchResultRow, v string) { r.GrandTotal = v }},
	{"START_DATE", func(r *SearchResultRow, v string) { r.StartDate = v }},
	{"END_DATE", func(r *SearchResultRow, v string) { r.EndDate = v }},
	{"NAME1", func(r *SearchResultRow, v string) { r.SupplierName = v }},
	{"SUPPLIER_ID", func(r *SearchResultRow, v string) { r.SupplierID = v }},
	{"DESCR254_MIXED", func(r *SearchResultRow, v string) { r.FirstItem = v }},
	{"DESCR254", func(r *SearchResultRow, v string) {
		if r.FirstItem == "" {
			r.FirstItem = v
		}
	}},
	{"BUSINESS_UNIT", func(r *SearchResultRow, v string) { r.DeptCode = v }},
	{"DESCR", func(r *SearchResultRow, v string) { r.Dept = v }},
	{"ZZ_COMMENT1", func(r *SearchResultRow, v string) { r.CertType = v }},
	{"ZZ_ACQ_MTHD", func(r *SearchResultRow, v string) { r.AcqType = v }},
}

// detailHeaderFields maps fixed (non-indexed) detail-page element ids onto
// header fields.
var detailHeaderFields = []struct {
	ID     string
	Assign func(*PODetail, string)
}{
	{"ZZ_SCPR_SBP_WRK_BUSINESS_UNIT", func(d *PODetail, v string) { d.DeptCode = v }},
	{"ZZ_SCPR_SBP_WRK_DESCR", func(d *PODetail, v string) { d.DeptName = v }},
	{"ZZ_SCPR_SBP_WRK_CRDMEM_ACCT_NBR", func(d *PODetail, v string) { d.PONumber = v }},
	{"ZZ_SCPR_SBP_WRK_STATUS1", func(d *PODetail, v string) { d.Status = v }},
	{"ZZ_SCPR_SBP_WRK_START_DATE", func(d *PODetail, v string) { d.StartDate = v }},
	{"ZZ_SCPR_SBP_WRK_END_DATE", func(d *PODetail, v string) { d.EndDate = v }},
	{"ZZ_SCPR_SBP_WRK_NAME1", func(d *PODetail, v string) { d.Supplier = v }},
	{"ZZ_SCPR_SBP_WRK_ZZ_COMMENT1", func(d *PODetail, v string) { d.AcqType = v }},
	{"ZZ_SCPR_SBP_WRK_ZZ_ACQ_MTHD", func(d *PODetail, v string) { d.AcqMethod = v }},
	{"ZZ_SCPR_SBP_WRK_MERCH_AMT_TTL", func(d *PODetail, v string) { d.MerchAmount = v }},
	{"ZZ_SCPR_SBP_WRK_ADJ_AMT_TTL", func(d *PODetail, v string) { d.FreightTax = v }},
	{"ZZ_SCPR_SBP_WRK_AWARDED_AMT", func(d *PODetail, v string) { d.GrandTotal = v }},
	{"ZZ_SCPR_SBP_WRK_BUYER_DESCR", func(d *PODetail, v string) { d.BuyerName = v }},
	{"ZZ_SCPR_SBP_WRK_EMAILID", func(d *PODetail, v string) { d.BuyerEmail = v }},
}

// Detail line-item field suffixes (row index appended as $0, $1, ...).
const (
	detailLineDescription = "DESCR254_MIXED"
	detailLineItemID      = "INV_ITEM_ID"
	detailLineNumber      = "CRDMEM_ACCT_NBR"
	detailLineUOM         = "DESCR"
	detailLineQuantity    = "QUANTITY"
	detailLineUnitPrice   = "UNIT_PRICE"
	detailLineLineTotal   = "LINE_TOTAL"
	detailLineStatus      = "DESCR1"
)

// gridID renders the id of an indexed grid sub-field.
func gridID(prefix, suffix string, row int) string {
	return fmt.Sprintf("%s_%s$%d", prefix, suffix, row)
}

// linkID renders the id of a row hyperlink (prefix with no field suffix).
func linkID(prefix string, row int) string {
	return fmt.Sprintf("%s$%d", prefix, row)
}
