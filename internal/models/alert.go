package models

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Alert is created by the backend when a stock threshold is crossed. The
// dashboard only ever resolves it.
type Alert struct {
	ID          int64  `json:"id"`
	ProductName string `json:"product_name"`
	AlertType   string `json:"alert_type"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	ShelfID     string `json:"shelf_id"`
	StockCount  int    `json:"stock_count"`
	Threshold   int    `json:"threshold"`
	CreatedAt   string `json:"created_at"`
	Resolved    bool   `json:"resolved"`
}
