package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
)

// Summarize groups records by exact product name and computes per-product
// and grand totals. It has no side effects and no error path.
//
// UnitPrice of a summary row is the price of the first record seen for that
// product in input order, while TotalValue sums quantity × price of each
// record, so the two may disagree when prices changed between re-stocks.
// Rows come back in first-seen order.
func Summarize(records []entity.Record) entity.Aggregate {
	agg := entity.Aggregate{
		Summaries:       []entity.Summary{},
		GrandTotalValue: decimal.Zero,
	}
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.ProductName]
		if !ok {
			i = len(agg.Summaries)
			index[r.ProductName] = i
			agg.Summaries = append(agg.Summaries, entity.Summary{
				ProductName: r.ProductName,
				UnitPrice:   r.UnitPrice,
				TotalValue:  decimal.Zero,
			})
		}
		v := r.Value()
		row := &agg.Summaries[i]
		row.TotalQuantity += r.Quantity
		row.TotalValue = row.TotalValue.Add(v)

		agg.GrandTotalQuantity += r.Quantity
		agg.GrandTotalValue = agg.GrandTotalValue.Add(v)
	}
	return agg
}
