package pricing

import (
	"strings"

	"github.com/reytechinc/scprs-backend/internal/portal"
)

// Line match weights. An exact item-number hit dominates everything else; a
// dash-insensitive hit nearly so. Keyword overlap breaks ties between lines
// of the same order.
const (
	weightExactItem   = 100
	weightDashlessHit = 80
	weightPerKeyword  = 5
	weightActiveLine  = 2
	weightHasPrice    = 1
)

// bestLine picks the line item most likely to be the queried product. A
// single-line order needs no scoring. Equal scores keep the earlier line.
func bestLine(lines []portal.POLineItem, itemNumber, description string) *portal.POLineItem {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) == 1 {
		return &lines[0]
	}

	var (
		best  *portal.POLineItem
		score = -1
	)
	for i := range lines {
		if s := scoreLine(&lines[i], itemNumber, description); s > score {
			score = s
			best = &lines[i]
		}
	}
	return best
}

func scoreLine(line *portal.POLineItem, itemNumber, description string) int {
	score := 0
	lineDesc := strings.ToLower(line.Description)

	if item := strings.ToLower(strings.TrimSpace(itemNumber)); item != "" {
		switch {
		case strings.Contains(lineDesc, item):
			score += weightExactItem
		case strings.Contains(stripDashes(lineDesc), stripDashes(item)):
			score += weightDashlessHit
		}
	}

	if description != "" {
		score += sharedWords(description, lineDesc) * weightPerKeyword
	}

	if strings.EqualFold(line.Status, "active") {
		score += weightActiveLine
	}
	if line.UnitPriceAmount.Valid && line.UnitPriceAmount.Decimal.IsPositive() {
		score += weightHasPrice
	}
	return score
}

func stripDashes(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

func sharedWords(a, b string) int {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(a)) {
		seen[word] = struct{}{}
	}
	shared := 0
	counted := make(map[string]struct{})
	for _, word := range strings.Fields(b) {
		if _, dup := counted[word]; dup {
			continue
		}
		if _, ok := seen[word]; ok {
			shared++
			counted[word] = struct{}{}
		}
	}
	return shared
}
