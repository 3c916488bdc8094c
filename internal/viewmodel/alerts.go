package viewmodel

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"omnishelf-dashboard/internal/models"
)

type AlertView struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	Product      string `json:"product"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	Shelf        string `json:"shelf"`
	CurrentStock int    `json:"current_stock"`
	Threshold    int    `json:"threshold"`

	createdAt time.Time
}

func severityRank(s string) int {
	switch s {
	case string(models.SeverityCritical):
		return 0
	case string(models.SeverityWarning):
		return 1
	default:
		return 2
	}
}

// AlertViews maps alerts to cards: "out" when stock is zero, else "low".
// Cards are ordered critical first, then newest first.
func AlertViews(alerts []models.Alert, now time.Time) []AlertView {
	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		severity := strings.ToLower(strings.TrimSpace(a.Severity))
		if severity == "" {
			severity = string(models.SeverityWarning)
			if a.StockCount <= 0 {
				severity = string(models.SeverityCritical)
			}
		}

		alertType := "low"
		if a.StockCount <= 0 {
			alertType = "out"
		}

		created, _ := ParseTimestamp(a.CreatedAt)
		timestamp := "Unknown"
		if !created.IsZero() {
			timestamp = RelativeTime(created, now)
		}

		views = append(views, AlertView{
			ID:           strconv.FormatInt(a.ID, 10),
			Type:         alertType,
			Severity:     severity,
			Product:      a.ProductName,
			Message:      a.Message,
			Timestamp:    timestamp,
			Shelf:        a.ShelfID,
			CurrentStock: a.StockCount,
			Threshold:    a.Threshold,
			createdAt:    created,
		})
	}

	slices.SortStableFunc(views, func(a, b AlertView) int {
		if ra, rb := severityRank(a.Severity), severityRank(b.Severity); ra != rb {
			return ra - rb
		}
		return b.createdAt.Compare(a.createdAt)
	})
	return views
}
