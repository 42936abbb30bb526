package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// parseResults turns a results page into ordered summary rows. An absent
// pagination caption means zero results, which is a normal outcome and not
// an error. Rows whose PO hyperlink has not rendered yet are dropped.
func parseResults(ctx context.Context, logg *logger.Logger, page string) ([]SearchResultRow, error) {
	caption := captionPattern.FindStringSubmatch(page)
	if caption == nil {
		if logg != nil {
			logg.Info(ctx, "no results caption, treating as empty result set")
		}
		return nil, nil
	}
	total, err := strconv.Atoi(caption[3])
	if err != nil || total <= 0 {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing results html: %w", err)
	}

	rows := make([]SearchResultRow, 0, total)
	for rowIdx := 0; rowIdx < total; rowIdx++ {
		row := SearchResultRow{RowIndex: rowIdx}
		populated := 0
		for _, col := range resultColumns {
			val := elementText(doc, gridID(resultGridPrefix, col.Suffix, rowIdx))
			if val == "" {
				continue
			}
			col.Assign(&row, val)
			populated++
		}

		// The PO number and its click-action token live in a hyperlink
		// keyed by the bare prefix; they render independently of the
		// grid sub-fields.
		poLink := linkID(poLinkPrefix, rowIdx)
		if text := elementText(doc, poLink); text != "" {
			row.PONumber = text
			row.ClickAction = poLink
			populated++
		}

		// A row with nothing populated marks the end of a partially
		// rendered grid.
		if populated == 0 {
			break
		}
		if row.PONumber == "" {
			continue
		}
		if row.ClickAction == "" {
			row.ClickAction = poLink
		}

		row.GrandTotalAmount = parseAmount(row.GrandTotal)
		row.StartDateParsed = parseDate(row.StartDate)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		rows = tableFallback(ctx, logg, doc)
	}
	return rows, nil
}

// tableFallback walks the results grid by table structure when id-based
// extraction finds nothing. Column order is positional on this page.
func tableFallback(ctx context.Context, logg *logger.Logger, doc *goquery.Document) []SearchResultRow {
	assigns := []func(*SearchResultRow, string){
		func(r *SearchResultRow, v string) { r.Dept = v },
		func(r *SearchResultRow, v string) { r.PONumber = v },
		func(r *SearchResultRow, v string) {}, // associated POs, unused
		func(r *SearchResultRow, v string) { r.FirstItem = v },
		func(r *SearchResultRow, v string) { r.StartDate = v },
		func(r *SearchResultRow, v string) { r.EndDate = v },
		func(r *SearchResultRow, v string) { r.GrandTotal = v },
		func(r *SearchResultRow, v string) { r.SupplierID = v },
		func(r *SearchResultRow, v string) { r.SupplierName = v },
		func(r *SearchResultRow, v string) { r.CertType = v },
		func(r *SearchResultRow, v string) { r.AcqType = v },
	}

	var rows []SearchResultRow
	doc.Find(`table[class*="PSLEVEL1GRID"]`).EachWithBreak(func(_ int, grid *goquery.Selection) bool {
		grid.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.Find("th").Length() > 0 {
				return
			}
			cells := tr.Find("td")
			if cells.Length() < 5 {
				return
			}
			row := SearchResultRow{RowIndex: len(rows)}
			cells.Each(func(i int, td *goquery.Selection) {
				if i < len(assigns) {
					assigns[i](&row, cleanText(td.Text()))
				}
			})
			if row.PONumber == "" {
				return
			}
			row.ClickAction = linkID(poLinkPrefix, row.RowIndex)
			row.GrandTotalAmount = parseAmount(row.GrandTotal)
			row.StartDateParsed = parseDate(row.StartDate)
			rows = append(rows, row)
		})
		// Only the first grid is the results table.
		return len(rows) == 0
	})

	if logg != nil && len(rows) > 0 {
		logg.Info(logg.WithField(ctx, "rows", len(rows)), "table fallback parsed results grid")
	}
	return rows
}

// elementText returns the trimmed text of the element with the given id, or
// "" when absent. PeopleSoft pads empty cells with a non-breaking space.
func elementText(doc *goquery.Document, id string) string {
	sel := doc.Find(fmt.Sprintf(`[id=%q]`, id))
	if sel.Length() == 0 {
		return ""
	}
	return cleanText(sel.First().Text())
}

func cleanText(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == " " {
		return ""
	}
	return cleaned
}
