package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"omnishelf-dashboard/internal/backend"
	apperrors "omnishelf-dashboard/internal/errors"
	"omnishelf-dashboard/internal/events"
	"omnishelf-dashboard/internal/models"
	"omnishelf-dashboard/internal/viewmodel"
)

// Inline panel messages shown when one overview fetch fails.
const (
	MsgInventoryFailed = "Failed to load inventory"
	MsgAlertsFailed    = "Failed to load alerts"
	MsgAnalyticsFailed = "Failed to load analytics"
	MsgStockFailed     = "Failed to load stock"
)

// Backend is the subset of the OmniShelf API the dashboard reads and writes.
// *backend.Client satisfies it.
type Backend interface {
	StockSummary(ctx context.Context) ([]models.StockProduct, error)
	StockByProduct(ctx context.Context, productName string) (*models.StockProduct, error)
	Shelf(ctx context.Context, shelfID string) (*models.ShelfSummary, error)
	Alerts(ctx context.Context, resolved bool) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, alertID int64) (*models.Alert, error)
	SearchShoppingList(ctx context.Context, items []string) ([]models.ShoppingListResult, error)
	Predict(ctx context.Context, file backend.Upload) (*models.PredictResult, error)
	PredictShelf(ctx context.Context, file backend.Upload) (*models.ShelfScanResult, error)
	PredictProduct(ctx context.Context, file backend.Upload) (*models.ProductMatch, error)
	DetectFromCSV(ctx context.Context, file backend.Upload) (*models.CSVDetectionSummary, error)
	BulkUpdate(ctx context.Context, req models.BulkUpdateRequest) (*models.BulkUpdateResult, error)
	RecentUploads(ctx context.Context) ([]models.RecentUploadSession, error)
	ModelMetrics(ctx context.Context) (*models.ModelMetrics, error)
	AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error)
	Detections(ctx context.Context, limit int) ([]models.StoredDetection, error)
	Snapshots(ctx context.Context, limit int) ([]models.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
	Health(ctx context.Context) (*models.BackendHealth, error)
}

// MaxHistoryLimit caps the limit accepted for detection and snapshot history.
const MaxHistoryLimit = 1000

type Options struct {
	TopCategories int
	MaxTableRows  int
}

type Dashboard struct {
	backend Backend
	bus     *events.Bus
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	startedAt     time.Time
	upstreamCalls atomic.Int64
	upstreamFails atomic.Int64
	refreshes     atomic.Int64
}

func NewDashboard(b Backend, bus *events.Bus, logger *slog.Logger, opts Options) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopCategories <= 0 {
		opts.TopCategories = viewmodel.DefaultTopCategories
	}
	if opts.MaxTableRows <= 0 {
		opts.MaxTableRows = 200
	}
	return &Dashboard{
		backend:   b,
		bus:       bus,
		logger:    logger.With("component", "dashboard"),
		opts:      opts,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// track counts an upstream call and logs its failure with the request ID.
func (d *Dashboard) track(ctx context.Context, op string, err error) error {
	d.upstreamCalls.Add(1)
	if err != nil {
		d.upstreamFails.Add(1)
		d.logger.ErrorContext(ctx, "backend call failed", "op", op, "error", err)
	}
	return err
}

type Overview struct {
	Metrics        viewmodel.DashboardMetrics `json:"metrics"`
	Categories     []viewmodel.CategoryStat   `json:"categories"`
	Alerts         []viewmodel.AlertView      `json:"alerts"`
	Analytics      *models.AnalyticsSummary   `json:"analytics"`
	InventoryError string                     `json:"inventory_error,omitempty"`
	AlertsError    string                     `json:"alerts_error,omitempty"`
	AnalyticsError string                     `json:"analytics_error,omitempty"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

// Overview loads the stock summary, active alerts and analytics in
// parallel. Each panel fails on its own: a failed fetch leaves empty data and
// an inline message, and never fails the others.
func (d *Dashboard) Overview(ctx context.Context) *Overview {
	var (
		g         errgroup.Group
		products  []models.StockProduct
		alerts    []models.Alert
		analytics *models.AnalyticsSummary
		ov        = &Overview{}
	)

	g.Go(func() error {
		var err error
		products, err = d.backend.StockSummary(ctx)
		if d.track(ctx, "stock summary", err) != nil {
			ov.InventoryError = MsgInventoryFailed
			products = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		alerts, err = d.backend.Alerts(ctx, false)
		if d.track(ctx, "alerts", err) != nil {
			ov.AlertsError = MsgAlertsFailed
			alerts = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		analytics, err = d.backend.AnalyticsSummary(ctx)
		if d.track(ctx, "analytics summary", err) != nil {
			ov.AnalyticsError = MsgAnalyticsFailed
			analytics = nil
		}
		return nil
	})
	_ = g.Wait()

	now := d.now()
	ov.Metrics = viewmodel.ComputeMetrics(products)
	ov.Categories = viewmodel.TopCategories(products, d.opts.TopCategories)
	ov.Alerts = viewmodel.AlertViews(unresolved(alerts), now)
	ov.Analytics = analytics
	ov.GeneratedAt = now
	return ov
}

func unresolved(alerts []models.Alert) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

type InventorySort struct {
	Key  string
	Desc bool
}

type InventoryView struct {
	Rows       []viewmodel.InventoryRow `json:"rows"`
	Total      int                      `json:"total"`
	Matched    int                      `json:"matched"`
	Truncated  bool                     `json:"truncated"`
	Categories []string                 `json:"categories"`
}

// Inventory returns filtered, sorted table rows, capped at MaxTableRows.
func (d *Dashboard) Inventory(ctx context.Context, filter viewmodel.InventoryFilter, sort InventorySort) (*InventoryView, error) {
	if !isAllLevel(filter.StockLevel) {
		if _, ok := viewmodel.ParseStockLevel(filter.StockLevel); !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown stock level %q", filter.StockLevel))
		}
	}

	products, err := d.backend.StockSummary(ctx)
	if d.track(ctx, "stock summary", err) != nil {
		return nil, err
	}

	rows := viewmodel.FilterInventory(viewmodel.InventoryRows(products), filter)
	viewmodel.SortInventory(rows, sort.Key, sort.Desc)

	view := &InventoryView{
		Total:      len(products),
		Matched:    len(rows),
		Categories: viewmodel.Categories(products),
	}
	if len(rows) > d.opts.MaxTableRows {
		rows = rows[:d.opts.MaxTableRows]
		view.Truncated = true
	}
	view.Rows = rows
	return view, nil
}

func isAllLevel(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "all")
}

func (d *Dashboard) ActiveAlerts(ctx context.Context) ([]viewmodel.AlertView, error) {
	alerts, err := d.backend.Alerts(ctx, false)
	if d.track(ctx, "alerts", err) != nil {
		return nil, err
	}
	return viewmodel.AlertViews(unresolved(alerts), d.now()), nil
}

func (d *Dashboard) ResolveAlert(ctx context.Context, alertID int64) (*models.Alert, error) {
	if alertID <= 0 {
		return nil, apperrors.Validation("alert id must be positive")
	}
	alert, err := d.backend.ResolveAlert(ctx, alertID)
	if d.track(ctx, "resolve alert", err) != nil {
		return nil, err
	}
	d.logger.InfoContext(ctx, "alert resolved", "alert_id", alertID)
	return alert, nil
}

// Product returns nil, nil when the backend does not know the product.
func (d *Dashboard) Product(ctx context.Context, name string) (*models.StockProduct, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("product name is required")
	}
	product, err := d.backend.StockByProduct(ctx, name)
	if d.track(ctx, "stock by product", err) != nil {
		return nil, err
	}
	if product != nil {
		product.StockLevel = viewmodel.StockLevelFor(product.TotalCount)
	}
	return product, nil
}

// Shelf returns nil, nil for an unknown shelf.
func (d *Dashboard) Shelf(ctx context.Context, shelfID string) (*models.ShelfSummary, error) {
	shelfID = strings.TrimSpace(shelfID)
	if shelfID == "" {
		return nil, apperrors.Validation("shelf id is required")
	}
	shelf, err := d.backend.Shelf(ctx, shelfID)
	if d.track(ctx, "shelf", err) != nil {
		return nil, err
	}
	return shelf, nil
}

type SmartCartResult struct {
	Items   []models.ShoppingListResult `json:"items"`
	Summary viewmodel.ShoppingSummary   `json:"summary"`
}

// SmartCart parses a free-text shopping list and looks every item up.
func (d *Dashboard) SmartCart(ctx context.Context, text string) (*SmartCartResult, error) {
	items := viewmodel.ParseShoppingList(text)
	if len(items) == 0 {
		return nil, apperrors.Validation("shopping list is empty")
	}

	results, err := d.backend.SearchShoppingList(ctx, items)
	if d.track(ctx, "shopping list search", err) != nil {
		return nil, err
	}
	stamped, summary := viewmodel.ShoppingResults(results)
	return &SmartCartResult{Items: stamped, Summary: summary}, nil
}

type ShelfScan struct {
	ShelfID string                     `json:"shelf_id,omitempty"`
	Result  *models.ShelfScanResult    `json:"result"`
	Groups  []viewmodel.DetectionGroup `json:"groups"`
	Update  models.BulkUpdateRequest   `json:"update"`
}

// ScanShelf runs shelf detection and groups the result per product. The
// returned Update is what ApplyScan would write; nothing is written here.
func (d *Dashboard) ScanShelf(ctx context.Context, file backend.Upload, shelfID string) (*ShelfScan, error) {
	result, err := d.backend.PredictShelf(ctx, file)
	if d.track(ctx, "predict shelf", err) != nil {
		return nil, err
	}

	groups := viewmodel.GroupDetections(result.Detections)
	d.logger.InfoContext(ctx, "shelf scanned",
		"shelf_id", shelfID,
		"detections", len(result.Detections),
		"products", len(groups),
	)
	return &ShelfScan{
		ShelfID: shelfID,
		Result:  result,
		Groups:  groups,
		Update:  viewmodel.BulkUpdateFromGroups(groups, shelfID, "shelf_scan"),
	}, nil
}

type ImageScan struct {
	Detections []models.Detection         `json:"detections"`
	Groups     []viewmodel.DetectionGroup `json:"groups"`
}

// ScanImage runs the single-stage model on an image and groups the result.
func (d *Dashboard) ScanImage(ctx context.Context, file backend.Upload) (*ImageScan, error) {
	result, err := d.backend.Predict(ctx, file)
	if d.track(ctx, "predict", err) != nil {
		return nil, err
	}
	return &ImageScan{
		Detections: result.Detections,
		Groups:     viewmodel.GroupDetections(result.Detections),
	}, nil
}

type VisualSearchResult struct {
	Match      *models.ProductMatch `json:"match"`
	Stock      *models.StockProduct `json:"stock,omitempty"`
	StockLevel models.StockLevel    `json:"stock_level,omitempty"`
	StockError string               `json:"stock_error,omitempty"`
}

// VisualSearch identifies the product in a photo, then looks up its stock.
// A product the inventory does not carry yields a nil Stock. A failed stock
// lookup keeps the match and sets StockError with no level.
func (d *Dashboard) VisualSearch(ctx context.Context, file backend.Upload) (*VisualSearchResult, error) {
	match, err := d.backend.PredictProduct(ctx, file)
	if d.track(ctx, "predict product", err) != nil {
		return nil, err
	}

	out := &VisualSearchResult{Match: match}
	if !match.Found || match.Product == nil || match.Product.ProductName == "" {
		return out, nil
	}

	stock, err := d.backend.StockByProduct(ctx, match.Product.ProductName)
	if d.track(ctx, "stock by product", err) != nil {
		out.StockError = MsgStockFailed
		return out, nil
	}
	if stock != nil {
		out.Stock = stock
		out.StockLevel = viewmodel.StockLevelFor(stock.TotalCount)
	} else {
		out.StockLevel = models.StockOut
	}
	return out, nil
}

// DetectFromCSV forwards a CSV of image paths and recomputes the level totals
// with the shared thresholds.
func (d *Dashboard) DetectFromCSV(ctx context.Context, file backend.Upload) (*models.CSVDetectionSummary, error) {
	summary, err := d.backend.DetectFromCSV(ctx, file)
	if d.track(ctx, "detect from csv", err) != nil {
		return nil, err
	}
	summary.Products, summary.Totals = viewmodel.LevelTotals(summary.Products)
	return summary, nil
}

// ApplyScan writes scan counts into the inventory and, on success, emits an
// inventory refresh.
func (d *Dashboard) ApplyScan(ctx context.Context, req models.BulkUpdateRequest) (*models.BulkUpdateResult, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("bulk update needs at least one item")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return nil, apperrors.Validation(fmt.Sprintf("item %d has no product name", i))
		}
		if item.Count < 0 {
			return nil, apperrors.Validation(fmt.Sprintf("item %d has a negative count", i))
		}
	}

	result, err := d.backend.BulkUpdate(ctx, req)
	if d.track(ctx, "bulk update", err) != nil {
		return nil, err
	}

	d.refreshes.Add(1)
	if d.bus != nil {
		// The write is committed; flag it even if the client has gone.
		d.bus.Emit(context.WithoutCancel(ctx))
	}
	d.logger.InfoContext(ctx, "inventory updated", "items", len(req.Items), "updated", result.Updated, "source", req.Source)
	return result, nil
}

func (d *Dashboard) RecentUploads(ctx context.Context) ([]viewmodel.UploadView, error) {
	sessions, err := d.backend.RecentUploads(ctx)
	if d.track(ctx, "recent uploads", err) != nil {
		return nil, err
	}
	return viewmodel.UploadViews(sessions, d.now()), nil
}

func (d *Dashboard) ModelMetrics(ctx context.Context) (*models.ModelMetrics, error) {
	metrics, err := d.backend.ModelMetrics(ctx)
	if d.track(ctx, "model metrics", err) != nil {
		return nil, err
	}
	return metrics, nil
}

func (d *Dashboard) BackendHealth(ctx context.Context) (*models.BackendHealth, error) {
	health, err := d.backend.Health(ctx)
	if d.track(ctx, "health", err) != nil {
		return nil, err
	}
	return health, nil
}

func checkLimit(limit int) error {
	if limit < 0 || limit > MaxHistoryLimit {
		return apperrors.Validation(fmt.Sprintf("limit must be between 0 and %d", MaxHistoryLimit))
	}
	return nil
}

// DetectionHistory lists stored detections, newest first as the backend
// returns them. A zero limit uses the backend default.
func (d *Dashboard) DetectionHistory(ctx context.Context, limit int) ([]models.StoredDetection, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	detections, err := d.backend.Detections(ctx, limit)
	if d.track(ctx, "detections", err) != nil {
		return nil, err
	}
	return detections, nil
}

func (d *Dashboard) Snapshots(ctx context.Context, limit int) ([]models.Snapshot, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	snapshots, err := d.backend.Snapshots(ctx, limit)
	if d.track(ctx, "snapshots", err) != nil {
		return nil, err
	}
	return snapshots, nil
}

// LatestSnapshot returns nil, nil before the first snapshot is taken.
func (d *Dashboard) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := d.backend.LatestSnapshot(ctx)
	if d.track(ctx, "latest snapshot", err) != nil {
		return nil, err
	}
	return snapshot, nil
}

// PendingRefresh reports, once, whether inventory changed since the last
// check.
func (d *Dashboard) PendingRefresh(ctx context.Context) bool {
	if d.bus == nil {
		return false
	}
	return d.bus.CheckPendingRefresh(ctx)
}

// Subscribe registers fn for inventory changes.
func (d *Dashboard) Subscribe(fn events.Listener) func() {
	if d.bus == nil {
		return func() {}
	}
	return d.bus.Subscribe(fn)
}

// Changes streams inventory changes until ctx is done.
func (d *Dashboard) Changes(ctx context.Context) <-chan struct{} {
	if d.bus == nil {
		return make(chan struct{})
	}
	return d.bus.Stream(ctx)
}

func (d *Dashboard) Stats() map[string]any {
	listeners := 0
	if d.bus != nil {
		listeners = d.bus.Listeners()
	}
	return map[string]any{
		"uptime":            time.Since(d.startedAt).Round(time.Second).String(),
		"upstream_calls":    d.upstreamCalls.Load(),
		"upstream_failures": d.upstreamFails.Load(),
		"inventory_updates": d.refreshes.Load(),
		"refresh_listeners": listeners,
		"top_categories":    d.opts.TopCategories,
		"max_table_rows":    d.opts.MaxTableRows,
	}
}
