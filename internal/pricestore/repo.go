package pricestore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reytechinc/scprs-backend/pkg/db/models"
)

// maxKeyLen bounds description-derived cache keys.
const maxKeyLen = 50

// fuzzyThreshold is the token-set similarity a stored entry must exceed
// before it counts as a fuzzy hit. Exactly at the threshold is a miss.
const fuzzyThreshold = 0.5

var keyTokenPattern = regexp.MustCompile(`[A-Z0-9]+`)

// Repository encapsulates local price persistence. Writes are last-write-wins
// per cache key; no price history is kept.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a price repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CacheKey derives the canonical store key: the item number when present,
// otherwise the first 50 characters of the uppercased description.
func CacheKey(itemNumber, description string) string {
	if key := strings.ToUpper(strings.TrimSpace(itemNumber)); key != "" {
		return key
	}
	cleaned := strings.ToUpper(strings.TrimSpace(description))
	if len(cleaned) > maxKeyLen {
		cleaned = strings.TrimSpace(cleaned[:maxKeyLen])
	}
	return cleaned
}

// Save upserts an entry under its key. Saving the same observation twice is
// idempotent apart from the update timestamp.
func (r *Repository) Save(ctx context.Context, entry models.PriceEntry) error {
	if entry.Key == "" {
		return gorm.ErrInvalidValue
	}
	if entry.ObservedAt.IsZero() {
		entry.ObservedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&entry).
		Error
}

// LookupExact returns the entry stored under the key, or nil when absent.
func (r *Repository) LookupExact(ctx context.Context, key string) (*models.PriceEntry, error) {
	if key == "" {
		return nil, nil
	}
	var entry models.PriceEntry
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&entry).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LookupFuzzy scans stored descriptions for the best token-set overlap with
// the query. Similarity is intersection over union; a best match at or below
// the threshold is a miss, so near-noise overlap never resolves a price.
func (r *Repository) LookupFuzzy(ctx context.Context, description string) (*models.PriceEntry, float64, error) {
	queryTokens := tokenSet(description)
	if len(queryTokens) == 0 {
		return nil, 0, nil
	}

	var entries []models.PriceEntry
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	var (
		best      *models.PriceEntry
		bestScore float64
	)
	for i := range entries {
		candidate := entries[i].Description
		if candidate == "" {
			candidate = entries[i].Key
		}
		score := tokenSimilarity(queryTokens, tokenSet(candidate))
		if score > bestScore {
			best = &entries[i]
			bestScore = score
		}
	}

	if best == nil || bestScore <= fuzzyThreshold {
		return nil, 0, nil
	}
	return best, bestScore, nil
}

// Stats summarizes the store contents.
type Stats struct {
	TotalEntries int64            `json:"total_entries"`
	BySource     map[string]int64 `json:"by_source"`
	LastUpdated  *time.Time       `json:"last_updated,omitempty"`
}

// Stats reports entry counts by source and the most recent write.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: make(map[string]int64)}

	if err := r.db.WithContext(ctx).Model(&models.PriceEntry{}).Count(&stats.TotalEntries).Error; err != nil {
		return Stats{}, err
	}

	type sourceCount struct {
		Source string
		Count  int64
	}
	var counts []sourceCount
	if err := r.db.WithContext(ctx).
		Model(&models.PriceEntry{}).
		Select("source, COUNT(*) AS count").
		Group("source").
		Scan(&counts).
		Error; err != nil {
		return Stats{}, err
	}
	for _, c := range counts {
		stats.BySource[c.Source] = c.Count
	}

	if stats.TotalEntries > 0 {
		var latest models.PriceEntry
		if err := r.db.WithContext(ctx).
			Order("updated_at DESC").
			First(&latest).
			Error; err == nil {
			stats.LastUpdated = &latest.UpdatedAt
		}
	}

	return stats, nil
}

func tokenSet(text string) map[string]struct{} {
	tokens := keyTokenPattern.FindAllString(strings.ToUpper(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func tokenSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
