package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row of the append-only `inventory` table. The same product
// may appear in many records (re-stocking events).
type Record struct {
	ID          int64           `db:"id" json:"id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LastUpdated time.Time       `db:"last_updated" json:"last_updated"`
}

// Value is quantity × unit price for this single record.
func (r Record) Value() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity))
}

// Summary is a derived per-product row; never persisted.
type Summary struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Aggregate is the summarized ledger with grand totals.
type Aggregate struct {
	Summaries          []Summary       `json:"summaries"`
	GrandTotalQuantity int64           `json:"grand_total_quantity"`
	GrandTotalValue    decimal.Decimal `json:"grand_total_value"`
}
