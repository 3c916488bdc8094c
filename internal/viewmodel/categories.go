package viewmodel

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"omnishelf-dashboard/internal/models"
)

// DefaultTopCategories is how many categories the breakdown chart shows.
const DefaultTopCategories = 5

type CategoryStat struct {
	Name        string          `json:"name"`
	Value       decimal.Decimal `json:"value"`
	ItemCount   int             `json:"item_count"`
	TotalStock  int             `json:"total_stock"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	StockHealth float64         `json:"stock_health"`
}

// AggregateCategories groups products by category and sums inventory value
// with decimal arithmetic, so per-category totals add up exactly to the
// input total. Sorted by value descending, then name.
func AggregateCategories(products []models.StockProduct) []CategoryStat {
	type acc struct {
		value   decimal.Decimal
		price   decimal.Decimal
		items   int
		stock   int
		healthy int
	}

	groups := make(map[string]*acc)
	for _, p := range products {
		g, ok := groups[p.Category]
		if !ok {
			g = &acc{}
			groups[p.Category] = g
		}
		g.value = g.value.Add(decimal.NewFromFloat(p.InventoryValue))
		g.price = g.price.Add(decimal.NewFromFloat(p.Price))
		g.items++
		g.stock += p.TotalCount
		if level := StockLevelFor(p.TotalCount); level == models.StockMedium || level == models.StockHigh {
			g.healthy++
		}
	}

	stats := make([]CategoryStat, 0, len(groups))
	for name, g := range groups {
		stats = append(stats, CategoryStat{
			Name:        name,
			Value:       g.value,
			ItemCount:   g.items,
			TotalStock:  g.stock,
			AvgPrice:    g.price.Div(decimal.NewFromInt(int64(g.items))).Round(2),
			StockHealth: float64(g.healthy) / float64(g.items) * 100,
		})
	}

	slices.SortFunc(stats, func(a, b CategoryStat) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return stats
}

// TopCategories returns at most n categories by summed value.
func TopCategories(products []models.StockProduct, n int) []CategoryStat {
	stats := AggregateCategories(products)
	if n > 0 && len(stats) > n {
		return stats[:n]
	}
	return stats
}

// TotalValue sums inventory value over products.
func TotalValue(products []models.StockProduct) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(decimal.NewFromFloat(p.InventoryValue))
	}
	return total
}
