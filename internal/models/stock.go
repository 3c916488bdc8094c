package models

// StockLevel is the coarse bucket derived from an on-shelf count.
type StockLevel string

const (
	StockOut    StockLevel = "OUT"
	StockLow    StockLevel = "LOW"
	StockMedium StockLevel = "MEDIUM"
	StockHigh   StockLevel = "HIGH"
)

// StockProduct is one row of GET /stock/summary. Timestamps stay raw strings
// because the backend emits zone-less ISO times that time.Time rejects.
type StockProduct struct {
	ProductName    string         `json:"product_name"`
	DisplayName    string         `json:"display_name"`
	Category       string         `json:"category"`
	Price          float64        `json:"price"`
	TotalCount     int            `json:"total_count"`
	LastSeen       string         `json:"last_seen"`
	ShelfBreakdown map[string]int `json:"shelf_breakdown,omitempty"`
	StockLevel     StockLevel     `json:"stock_level"`
	ShelfID        string         `json:"shelf_id"`
	InventoryValue float64        `json:"inventory_value"`
}

// Name prefers the display name and falls back to the product code.
func (p StockProduct) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ProductName
}

type ShelfStock struct {
	ProductName string   `json:"product_name"`
	TotalCount  int      `json:"total_count"`
	ShelfIDs    []string `json:"shelf_ids"`
	LastSeen    string   `json:"last_seen"`
}

type ShelfSummary struct {
	ShelfID  string       `json:"shelf_id"`
	Products []ShelfStock `json:"products"`
}

type ShoppingListResult struct {
	Item        string     `json:"item"`
	Found       bool       `json:"found"`
	ProductName string     `json:"product_name,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	ShelfID     string     `json:"shelf_id,omitempty"`
	StockCount  int        `json:"stock_count"`
	Price       float64    `json:"price"`
	Category    string     `json:"category,omitempty"`
	StockLevel  StockLevel `json:"stock_level,omitempty"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AnalyticsSummary struct {
	TotalProducts    int            `json:"total_products"`
	TotalStockItems  int            `json:"total_stock_items"`
	LowStockCount    int            `json:"low_stock_count"`
	OutOfStockCount  int            `json:"out_of_stock_count"`
	HighStockCount   int            `json:"high_stock_count"`
	MediumStockCount int            `json:"medium_stock_count"`
	TotalValue       float64        `json:"total_value"`
	StockByCategory  map[string]int `json:"stock_by_category"`
	StockTrend       []TrendPoint   `json:"stock_trend"`
}

type BulkUpdateItem struct {
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
	ShelfID     string `json:"shelf_id,omitempty"`
}

// BulkUpdateRequest writes scan results back into the backend inventory.
type BulkUpdateRequest struct {
	Source string           `json:"source,omitempty"`
	Items  []BulkUpdateItem `json:"items"`
}

type BulkUpdateResult struct {
	Updated int    `json:"updated"`
	Message string `json:"message,omitempty"`
}

type RecentUploadProduct struct {
	ProductName string  `json:"product_name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Count       int     `json:"count"`
	Confidence  float64 `json:"confidence"`
}

type RecentUploadSession struct {
	ID        string                `json:"id"`
	Timestamp string                `json:"timestamp"`
	Source    string                `json:"source"`
	Products  []RecentUploadProduct `json:"products"`
}
