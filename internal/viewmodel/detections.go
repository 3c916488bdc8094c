package viewmodel

import (
	"slices"
	"strings"

	"omnishelf-dashboard/internal/models"
)

type DetectionGroup struct {
	ProductName   string  `json:"product_name"`
	DisplayName   string  `json:"display_name"`
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	Corrected     int     `json:"corrected"`
}

// GroupDetections groups detections by product (see models.Detection.Key),
// with count and mean confidence per group. Detections with no class are
// dropped. Sorted by count descending, then name.
func GroupDetections(detections []models.Detection) []DetectionGroup {
	type acc struct {
		group DetectionGroup
		sum   float64
	}

	index := make(map[string]*acc)
	order := make([]string, 0)
	for _, d := range detections {
		key := d.Key()
		if key == "" || key == "unknown" {
			continue
		}
		a, ok := index[key]
		if !ok {
			a = &acc{group: DetectionGroup{ProductName: key, Category: d.Category}}
			index[key] = a
			order = append(order, key)
		}
		if a.group.DisplayName == "" && !d.Verification.Corrected() {
			a.group.DisplayName = d.DisplayName
		}
		if a.group.Category == "" {
			a.group.Category = d.Category
		}
		a.group.Count++
		a.sum += d.Confidence
		if d.Confidence > a.group.MaxConfidence {
			a.group.MaxConfidence = d.Confidence
		}
		if d.Verification.Corrected() {
			a.group.Corrected++
		}
	}

	groups := make([]DetectionGroup, 0, len(order))
	for _, key := range order {
		a := index[key]
		a.group.AvgConfidence = a.sum / float64(a.group.Count)
		if a.group.DisplayName == "" {
			a.group.DisplayName = key
		}
		groups = append(groups, a.group)
	}

	slices.SortStableFunc(groups, func(a, b DetectionGroup) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
	return groups
}

// BulkUpdateFromGroups builds the inventory write for a set of scan groups.
func BulkUpdateFromGroups(groups []DetectionGroup, shelfID, source string) models.BulkUpdateRequest {
	items := make([]models.BulkUpdateItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, models.BulkUpdateItem{
			ProductName: g.ProductName,
			Count:       g.Count,
			ShelfID:     shelfID,
		})
	}
	return models.BulkUpdateRequest{Source: source, Items: items}
}

// LevelTotals returns a copy of products with each level restamped by
// StockLevelFor, and the count per level.
func LevelTotals(products []models.CSVProductCount) ([]models.CSVProductCount, models.LevelTotals) {
	var totals models.LevelTotals
	out := make([]models.CSVProductCount, len(products))
	for i, p := range products {
		p.StockLevel = StockLevelFor(p.Count)
		out[i] = p
		switch p.StockLevel {
		case models.StockHigh:
			totals.High++
		case models.StockMedium:
			totals.Medium++
		case models.StockLow:
			totals.Low++
		default:
			totals.Out++
		}
	}
	return out, totals
}
