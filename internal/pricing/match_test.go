package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reytechinc/scprs-backend/internal/portal"
)

func line(desc, status, price string) portal.POLineItem {
	l := portal.POLineItem{Description: desc, Status: status, UnitPrice: price}
	if price != "" {
		l.UnitPriceAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString(price), Valid: true}
	}
	return l
}

func TestBestLineExactItemNumberWins(t *testing.T) {
	lines := []portal.POLineItem{
		line("LATEX GLOVES SMALL", "Active", "12.00"),
		line("NITRILE GLOVES 6500-001-430 LARGE", "", ""),
		line("NITRILE GLOVES LARGE POWDER FREE", "Active", "62.50"),
	}

	got := bestLine(lines, "6500-001-430", "nitrile gloves large")
	require.NotNil(t, got)
	assert.Equal(t, "NITRILE GLOVES 6500-001-430 LARGE", got.Description)
}

func TestBestLineDashInsensitiveMatch(t *testing.T) {
	lines := []portal.POLineItem{
		line("SUTURE KIT STANDARD", "Active", "5.00"),
		line("CATHETER 6500001430 FR16", "Active", "9.00"),
	}

	got := bestLine(lines, "6500-001-430", "")
	require.NotNil(t, got)
	assert.Equal(t, "CATHETER 6500001430 FR16", got.Description)
}

func TestBestLineKeywordOverlapBreaksTies(t *testing.T) {
	lines := []portal.POLineItem{
		line("GAUZE SPONGE STERILE 2X2", "Active", "3.00"),
		line("GAUZE PADS STERILE 4X4", "Active", "4.00"),
	}

	got := bestLine(lines, "", "gauze pads sterile 4x4")
	require.NotNil(t, got)
	assert.Equal(t, "GAUZE PADS STERILE 4X4", got.Description)
}

func TestBestLineEqualScoresKeepFirst(t *testing.T) {
	lines := []portal.POLineItem{
		line("WIDGET ALPHA", "Active", "1.00"),
		line("WIDGET BRAVO", "Active", "2.00"),
	}

	got := bestLine(lines, "", "unrelated query")
	require.NotNil(t, got)
	assert.Equal(t, "WIDGET ALPHA", got.Description)
}

func TestBestLineSingleLineSkipsScoring(t *testing.T) {
	lines := []portal.POLineItem{line("ANYTHING AT ALL", "", "")}
	got := bestLine(lines, "NO-MATCH", "no match either")
	require.NotNil(t, got)
	assert.Equal(t, "ANYTHING AT ALL", got.Description)
}

func TestBestLineEmpty(t *testing.T) {
	assert.Nil(t, bestLine(nil, "X", "y"))
}

func TestScoreLineWeights(t *testing.T) {
	l := line("NITRILE GLOVES 6500-001-430 LARGE", "Active", "62.50")

	// Exact hit + 3 shared words + active + priced.
	got := scoreLine(&l, "6500-001-430", "nitrile gloves large")
	assert.Equal(t, weightExactItem+3*weightPerKeyword+weightActiveLine+weightHasPrice, got)

	// Dash-insensitive only.
	dashless := line("NITRILE 6500001430", "", "")
	assert.Equal(t, weightDashlessHit, scoreLine(&dashless, "6500-001-430", ""))
}
