package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"omnishelf-dashboard/internal/models"
)

func (c *Client) StockSummary(ctx context.Context) ([]models.StockProduct, error) {
	return getList[models.StockProduct](ctx, c, "fetch stock summary", "/stock/summary", nil, "products")
}

// StockByProduct returns nil, nil when the backend has no such product.
func (c *Client) StockByProduct(ctx context.Context, productName string) (*models.StockProduct, error) {
	var product models.StockProduct
	found, err := c.get(ctx, "fetch product "+productName, "/stock/"+url.PathEscape(productName), nil, &product, true)
	if err != nil || !found {
		return nil, err
	}
	return &product, nil
}

// Shelf returns nil, nil for an unknown shelf.
func (c *Client) Shelf(ctx context.Context, shelfID string) (*models.ShelfSummary, error) {
	var summary models.ShelfSummary
	found, err := c.get(ctx, "fetch shelf "+shelfID, "/shelf/"+url.PathEscape(shelfID), nil, &summary, true)
	if err != nil || !found {
		return nil, err
	}
	if summary.Products == nil {
		summary.Products = []models.ShelfStock{}
	}
	return &summary, nil
}

func (c *Client) Alerts(ctx context.Context, resolved bool) ([]models.Alert, error) {
	query := url.Values{"resolved": {strconv.FormatBool(resolved)}}
	return getList[models.Alert](ctx, c, "fetch alerts", "/alerts", query, "alerts")
}

func (c *Client) ResolveAlert(ctx context.Context, alertID int64) (*models.Alert, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/alerts/%d/resolve", alertID)
	if err := c.sendJSON(ctx, fmt.Sprintf("resolve alert %d", alertID), http.MethodPut, path, nil, &raw); err != nil {
		return nil, err
	}

	var alert models.Alert
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &alert); err != nil {
			return nil, fmt.Errorf("resolve alert %d: decode response: %w", alertID, err)
		}
	}
	if alert.ID == 0 {
		alert.ID = alertID
		alert.Resolved = true
	}
	return &alert, nil
}

func (c *Client) SearchShoppingList(ctx context.Context, items []string) ([]models.ShoppingListResult, error) {
	var raw json.RawMessage
	body := map[string][]string{"items": items}
	if err := c.sendJSON(ctx, "search shopping list", http.MethodPost, "/smartcart/search", body, &raw); err != nil {
		return nil, err
	}
	results, err := decodeList[models.ShoppingListResult](raw, "results")
	if err != nil {
		return nil, fmt.Errorf("search shopping list: decode response: %w", err)
	}
	return results, nil
}

// Predict runs the single-stage model on an image.
func (c *Client) Predict(ctx context.Context, file Upload) (*models.PredictResult, error) {
	var result models.PredictResult
	if err := c.upload(ctx, "predict", "/predict", file, &result); err != nil {
		return nil, err
	}
	if result.Detections == nil {
		result.Detections = []models.Detection{}
	}
	return &result, nil
}

func (c *Client) PredictShelf(ctx context.Context, file Upload) (*models.ShelfScanResult, error) {
	var result models.ShelfScanResult
	if err := c.upload(ctx, "scan shelf", "/predict/shelf", file, &result); err != nil {
		return nil, err
	}
	if result.Detections == nil {
		result.Detections = []models.Detection{}
	}
	return &result, nil
}

func (c *Client) PredictProduct(ctx context.Context, file Upload) (*models.ProductMatch, error) {
	var match models.ProductMatch
	if err := c.upload(ctx, "identify product", "/predict/product", file, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) DetectFromCSV(ctx context.Context, file Upload) (*models.CSVDetectionSummary, error) {
	var summary models.CSVDetectionSummary
	if err := c.upload(ctx, "detect from csv", "/admin/detect-from-csv", file, &summary); err != nil {
		return nil, err
	}
	if summary.Products == nil {
		summary.Products = []models.CSVProductCount{}
	}
	return &summary, nil
}

func (c *Client) ModelMetrics(ctx context.Context) (*models.ModelMetrics, error) {
	var metrics models.ModelMetrics
	if _, err := c.get(ctx, "fetch model metrics", "/model/metrics", nil, &metrics, false); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (c *Client) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var summary models.AnalyticsSummary
	if _, err := c.get(ctx, "fetch analytics", "/analytics/summary", nil, &summary, false); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) RecentUploads(ctx context.Context) ([]models.RecentUploadSession, error) {
	return getList[models.RecentUploadSession](ctx, c, "fetch recent uploads", "/inventory/recent-uploads", nil, "sessions")
}

func (c *Client) BulkUpdate(ctx context.Context, req models.BulkUpdateRequest) (*models.BulkUpdateResult, error) {
	var result models.BulkUpdateResult
	if err := c.sendJSON(ctx, "bulk update inventory", http.MethodPost, "/inventory/bulk-update", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Detections(ctx context.Context, limit int) ([]models.StoredDetection, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	return getList[models.StoredDetection](ctx, c, "fetch detections", "/detections", query, "detections")
}

func (c *Client) Snapshots(ctx context.Context, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	return getList[models.Snapshot](ctx, c, "fetch snapshots", "/snapshots", query, "snapshots")
}

// LatestSnapshot returns nil, nil when no snapshot has been taken yet.
func (c *Client) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	found, err := c.get(ctx, "fetch latest snapshot", "/snapshots/latest", nil, &snapshot, true)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) Health(ctx context.Context) (*models.BackendHealth, error) {
	var health models.BackendHealth
	if _, err := c.get(ctx, "health check", "/health", nil, &health, false); err != nil {
		return nil, err
	}
	return &health, nil
}
