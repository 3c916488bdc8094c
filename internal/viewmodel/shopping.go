package viewmodel

import (
	"strings"
	"time"

	"omnishelf-dashboard/internal/models"
)

// ParseShoppingList splits free text on newlines and commas. Items are
// trimmed; empties and case-insensitive repeats are dropped.
func ParseShoppingList(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	seen := make(map[string]struct{}, len(fields))
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		item := strings.TrimSpace(f)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}
	return items
}

// ShoppingSummary counts how much of a SmartCart list is in stock.
type ShoppingSummary struct {
	Requested  int `json:"requested"`
	Found      int `json:"found"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
	NotFound   int `json:"not_found"`
}

// ShoppingResults returns a copy of results with each level restamped from
// its count, and totals the list.
func ShoppingResults(results []models.ShoppingListResult) ([]models.ShoppingListResult, ShoppingSummary) {
	s := ShoppingSummary{Requested: len(results)}
	out := make([]models.ShoppingListResult, len(results))
	for i, r := range results {
		if !r.Found {
			r.StockLevel = models.StockOut
			s.NotFound++
		} else {
			s.Found++
			r.StockLevel = StockLevelFor(r.StockCount)
			if r.StockLevel == models.StockOut {
				s.OutOfStock++
			} else {
				s.InStock++
			}
		}
		out[i] = r
	}
	return out, s
}

type UploadView struct {
	ID         string                       `json:"id"`
	Timestamp  string                       `json:"timestamp"`
	When       string                       `json:"when"`
	Source     string                       `json:"source"`
	TotalItems int                          `json:"total_items"`
	Products   []models.RecentUploadProduct `json:"products"`
}

// UploadViews renders recent upload sessions for the history panel.
func UploadViews(sessions []models.RecentUploadSession, now time.Time) []UploadView {
	views := make([]UploadView, 0, len(sessions))
	for _, s := range sessions {
		total := 0
		for _, p := range s.Products {
			total += p.Count
		}
		products := s.Products
		if products == nil {
			products = []models.RecentUploadProduct{}
		}
		views = append(views, UploadView{
			ID:         s.ID,
			Timestamp:  s.Timestamp,
			When:       FormatRelative(s.Timestamp, now),
			Source:     s.Source,
			TotalItems: total,
			Products:   products,
		})
	}
	return views
}
