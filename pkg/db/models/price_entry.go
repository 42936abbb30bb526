package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceEntry is the latest observed price for a cache key. The key is the
// item number when present, otherwise the first 50 characters of the
// description. Last write wins; no history is kept.
type PriceEntry struct {
	Key         string              `gorm:"column:key;primaryKey"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric;not null"`
	UnitPrice   decimal.NullDecimal `gorm:"column:unit_price;type:numeric"`
	GrandTotal  decimal.NullDecimal `gorm:"column:grand_total;type:numeric"`
	Quantity    decimal.NullDecimal `gorm:"column:quantity;type:numeric"`
	ItemNumber  string              `gorm:"column:item_number"`
	Description string              `gorm:"column:description"`
	Vendor      string              `gorm:"column:vendor"`
	PONumber    string              `gorm:"column:po_number"`
	Source      string              `gorm:"column:source;not null;index"`
	ObservedAt  time.Time           `gorm:"column:observed_at;not null"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table used by the price store.
func (PriceEntry) TableName() string {
	return "price_entries"
}
