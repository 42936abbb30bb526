package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The detail grid publishes no row count; the table ends at the first row
// without a description. The cap only guards against runaway markup.
const detailRowScanLimit = 200

// parseDetail turns a drill-down page into header fields plus ordered line
// items. Missing sub-fields degrade to empty values.
func parseDetail(page string) (*PODetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing detail html: %w", err)
	}

	detail := &PODetail{}
	for _, field := range detailHeaderFields {
		if val := elementText(doc, field.ID); val != "" {
			field.Assign(detail, val)
		}
	}

	for rowIdx := 0; rowIdx < detailRowScanLimit; rowIdx++ {
		desc := elementText(doc, gridID(detailGridPrefix, detailLineDescription, rowIdx))
		if desc == "" {
			break
		}
		line := POLineItem{
			LineNumber:    elementText(doc, gridID(detailGridPrefix, detailLineNumber, rowIdx)),
			ItemID:        elementText(doc, gridID(detailGridPrefix, detailLineItemID, rowIdx)),
			Description:   desc,
			UnitOfMeasure: elementText(doc, gridID(detailGridPrefix, detailLineUOM, rowIdx)),
			Quantity:      elementText(doc, gridID(detailGridPrefix, detailLineQuantity, rowIdx)),
			UnitPrice:     elementText(doc, gridID(detailGridPrefix, detailLineUnitPrice, rowIdx)),
			LineTotal:     elementText(doc, gridID(detailGridPrefix, detailLineLineTotal, rowIdx)),
			Status:        elementText(doc, gridID(detailGridPrefix, detailLineStatus, rowIdx)),
		}
		line.UnitPriceAmount = parseAmount(line.UnitPrice)
		line.QuantityAmount = parseAmount(line.Quantity)
		detail.Lines = append(detail.Lines, line)
	}

	return detail, nil
}
