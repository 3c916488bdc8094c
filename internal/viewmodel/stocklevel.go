// Package viewmodel turns raw OmniShelf backend records into the shapes the
// dashboard panels render. Every function here is pure.
package viewmodel

import "omnishelf-dashboard/internal/models"

// Bucket boundaries for StockLevelFor. Every panel goes through that one
// function; nothing else compares counts against these.
const (
	HighStockMin   = 10
	MediumStockMin = 6
)

// StockLevelFor buckets an on-shelf count: OUT at 0, LOW for 1-5, MEDIUM for
// 6-9 and HIGH from 10 up. Negative counts are treated as OUT.
func StockLevelFor(count int) models.StockLevel {
	switch {
	case count <= 0:
		return models.StockOut
	case count >= HighStockMin:
		return models.StockHigh
	case count >= MediumStockMin:
		return models.StockMedium
	default:
		return models.StockLow
	}
}

// levelRank orders levels from most to least urgent.
func levelRank(level models.StockLevel) int {
	switch level {
	case models.StockOut:
		return 0
	case models.StockLow:
		return 1
	case models.StockMedium:
		return 2
	default:
		return 3
	}
}

// ParseStockLevel accepts any casing and returns false for unknown values.
func ParseStockLevel(s string) (models.StockLevel, bool) {
	switch models.StockLevel(upper(s)) {
	case models.StockOut:
		return models.StockOut, true
	case models.StockLow:
		return models.StockLow, true
	case models.StockMedium:
		return models.StockMedium, true
	case models.StockHigh:
		return models.StockHigh, true
	}
	return "", false
}
