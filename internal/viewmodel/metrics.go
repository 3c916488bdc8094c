package viewmodel

import (
	"math"

	"github.com/shopspring/decimal"

	"omnishelf-dashboard/internal/models"
)

type Turnover struct {
	Fast     int `json:"fast"`
	Moderate int `json:"moderate"`
	Slow     int `json:"slow"`
}

type DashboardMetrics struct {
	TotalProducts   int                       `json:"total_products"`
	TotalStock      int                       `json:"total_stock"`
	TotalValue      decimal.Decimal           `json:"total_value"`
	AvgStock        float64                   `json:"avg_stock"`
	LowStockCount   int                       `json:"low_stock_count"`
	OutOfStockCount int                       `json:"out_of_stock_count"`
	LevelCounts     map[models.StockLevel]int `json:"level_counts"`
	Turnover        Turnover                  `json:"turnover"`
}

// ComputeMetrics summarizes the stock list for the metric cards. Turnover is
// the rounded share of HIGH (fast), MEDIUM (moderate) and LOW (slow)
// products. An empty list yields zeros.
func ComputeMetrics(products []models.StockProduct) DashboardMetrics {
	m := DashboardMetrics{
		TotalProducts: len(products),
		TotalValue:    TotalValue(products),
		LevelCounts: map[models.StockLevel]int{
			models.StockHigh:   0,
			models.StockMedium: 0,
			models.StockLow:    0,
			models.StockOut:    0,
		},
	}
	if len(products) == 0 {
		return m
	}

	for _, p := range products {
		m.TotalStock += p.TotalCount
		m.LevelCounts[StockLevelFor(p.TotalCount)]++
	}

	total := float64(len(products))
	m.AvgStock = math.Round(float64(m.TotalStock)/total*10) / 10
	m.LowStockCount = m.LevelCounts[models.StockLow]
	m.OutOfStockCount = m.LevelCounts[models.StockOut]
	m.Turnover = Turnover{
		Fast:     percent(m.LevelCounts[models.StockHigh], total),
		Moderate: percent(m.LevelCounts[models.StockMedium], total),
		Slow:     percent(m.LevelCounts[models.StockLow], total),
	}
	return m
}

func percent(n int, total float64) int {
	return int(math.Round(float64(n) / total * 100))
}
