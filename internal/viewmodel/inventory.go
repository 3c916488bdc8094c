package viewmodel

import (
	"cmp"
	"slices"
	"strings"

	"omnishelf-dashboard/internal/models"
)

type InventoryRow struct {
	Product     string            `json:"product"`
	ProductName string            `json:"product_name"`
	Category    string            `json:"category"`
	Shelf       string            `json:"shelf"`
	Count       int               `json:"count"`
	Price       float64           `json:"price"`
	Value       float64           `json:"value"`
	StockLevel  models.StockLevel `json:"stock_level"`
	LastSeen    string            `json:"last_seen"`
}

// InventoryFilter narrows inventory rows. Empty fields and "all" match
// everything.
type InventoryFilter struct {
	Category   string
	StockLevel string
	Shelf      string
	Query      string
}

// InventoryRows maps stock products to table rows. The level is always
// recomputed from the count; the backend's stock_level field is ignored.
func InventoryRows(products []models.StockProduct) []InventoryRow {
	rows := make([]InventoryRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, InventoryRow{
			Product:     p.Name(),
			ProductName: p.ProductName,
			Category:    p.Category,
			Shelf:       p.ShelfID,
			Count:       p.TotalCount,
			Price:       p.Price,
			Value:       p.InventoryValue,
			StockLevel:  StockLevelFor(p.TotalCount),
			LastSeen:    p.LastSeen,
		})
	}
	return rows
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "all")
}

func FilterInventory(rows []InventoryRow, f InventoryFilter) []InventoryRow {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]InventoryRow, 0, len(rows))
	for _, r := range rows {
		if !isAll(f.Category) && !strings.EqualFold(r.Category, strings.TrimSpace(f.Category)) {
			continue
		}
		if !isAll(f.StockLevel) && !strings.EqualFold(string(r.StockLevel), strings.TrimSpace(f.StockLevel)) {
			continue
		}
		if !isAll(f.Shelf) && !strings.EqualFold(r.Shelf, strings.TrimSpace(f.Shelf)) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(r.Product), query) &&
			!strings.Contains(strings.ToLower(r.ProductName), query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortInventory orders rows in place by name, count, value, price or level.
// Unknown keys sort by name. Ties always fall back to name ascending.
func SortInventory(rows []InventoryRow, key string, desc bool) {
	var primary func(a, b InventoryRow) int
	switch strings.ToLower(key) {
	case "count":
		primary = func(a, b InventoryRow) int { return cmp.Compare(a.Count, b.Count) }
	case "value":
		primary = func(a, b InventoryRow) int { return cmp.Compare(a.Value, b.Value) }
	case "price":
		primary = func(a, b InventoryRow) int { return cmp.Compare(a.Price, b.Price) }
	case "level":
		primary = func(a, b InventoryRow) int { return cmp.Compare(levelRank(a.StockLevel), levelRank(b.StockLevel)) }
	default:
		primary = func(a, b InventoryRow) int { return strings.Compare(strings.ToLower(a.Product), strings.ToLower(b.Product)) }
	}

	slices.SortStableFunc(rows, func(a, b InventoryRow) int {
		c := primary(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Product), strings.ToLower(b.Product))
	})
}

// Categories lists distinct categories in first-seen order.
func Categories(products []models.StockProduct) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
