package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	apperrors "omnishelf-dashboard/internal/errors"
	"omnishelf-dashboard/internal/models"
	"omnishelf-dashboard/internal/services"
	"omnishelf-dashboard/internal/viewmodel"
)

var funcs = template.FuncMap{
	"levelClass": func(l models.StockLevel) string { return "level-" + strings.ToLower(string(l)) },
	"money":      func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct":        func(v float64) float64 { return v * 100 },
}

var metricsTemplate = template.Must(template.New("metrics").Funcs(funcs).Parse(`
<div id="metrics-content">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else}}<div class="metric-cards">
<div class="metric-card"><span>Products</span><strong>{{.Metrics.TotalProducts}}</strong></div>
<div class="metric-card"><span>Units on shelf</span><strong>{{.Metrics.TotalStock}}</strong></div>
<div class="metric-card"><span>Inventory value</span><strong>${{.Metrics.TotalValue.StringFixed 2}}</strong></div>
<div class="metric-card"><span>Avg stock</span><strong>{{printf "%.1f" .Metrics.AvgStock}}</strong></div>
<div class="metric-card level-low"><span>Low stock</span><strong>{{.Metrics.LowStockCount}}</strong></div>
<div class="metric-card level-out"><span>Out of stock</span><strong>{{.Metrics.OutOfStockCount}}</strong></div>
</div>
<p>Turnover: {{.Metrics.Turnover.Fast}}% fast, {{.Metrics.Turnover.Moderate}}% moderate, {{.Metrics.Turnover.Slow}}% slow</p>{{end}}
</div>`))

var categoriesTemplate = template.Must(template.New("categories").Funcs(funcs).Parse(`
<div id="categories-content">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else if not .Categories}}<p>No categories yet</p>{{else}}<table class="modern-table">
<thead><tr><th>Category</th><th>Value</th><th>Items</th><th>Units</th><th>Avg price</th><th>Health</th></tr></thead>
<tbody>
{{range .Categories}}<tr>
<td><span class="category-badge">{{.Name}}</span></td>
<td><strong>${{.Value.StringFixed 2}}</strong></td>
<td>{{.ItemCount}}</td>
<td>{{.TotalStock}}</td>
<td>${{.AvgPrice.StringFixed 2}}</td>
<td>{{printf "%.0f" .StockHealth}}%</td>
</tr>{{end}}
</tbody>
</table>{{end}}
</div>`))

var inventoryTemplate = template.Must(template.New("inventory").Funcs(funcs).Parse(`
<div id="inventory-content">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else if not .View.Rows}}<p>No products match</p>{{else}}<table class="modern-table">
<thead><tr><th>Product</th><th>Category</th><th>Shelf</th><th>Count</th><th>Price</th><th>Value</th><th>Level</th></tr></thead>
<tbody>
{{range .View.Rows}}<tr>
<td>{{.Product}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.Shelf}}</td>
<td>{{.Count}}</td>
<td>{{money .Price}}</td>
<td><strong>{{money .Value}}</strong></td>
<td><span class="{{levelClass .StockLevel}}">{{.StockLevel}}</span></td>
</tr>{{end}}
</tbody>
</table>
{{if .View.Truncated}}<p>Showing {{len .View.Rows}} of {{.View.Matched}} products</p>{{end}}{{end}}
</div>`))

var alertsTemplate = template.Must(template.New("alerts").Funcs(funcs).Parse(`
<div id="alerts-content">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else if not .Alerts}}<p>No active alerts</p>{{else}}<ul class="alert-list">
{{range .Alerts}}<li class="severity-{{.Severity}}" id="alert-{{.ID}}">
<strong>{{.Product}}</strong> {{if eq .Type "out"}}is out of stock{{else}}is low ({{.CurrentStock}} left){{end}}
<small>{{.Shelf}} &middot; {{.Timestamp}}</small>
<p>{{.Message}}</p>
</li>{{end}}
</ul>{{end}}
</div>`))

var uploadsTemplate = template.Must(template.New("uploads").Funcs(funcs).Parse(`
<div id="uploads-content">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else if not .Uploads}}<p>No uploads yet</p>{{else}}<ul class="upload-list">
{{range .Uploads}}<li>
<strong>{{.Source}}</strong> {{.TotalItems}} items <small>{{.When}}</small>
</li>{{end}}
</ul>{{end}}
</div>`))

var smartCartTemplate = template.Must(template.New("smartcart").Funcs(funcs).Parse(`
<div id="smartcart-results">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else}}<p>{{.Result.Summary.InStock}} of {{.Result.Summary.Requested}} items in stock</p>
<table class="modern-table">
<thead><tr><th>Item</th><th>Product</th><th>Shelf</th><th>Stock</th></tr></thead>
<tbody>
{{range .Result.Items}}<tr>
<td>{{.Item}}</td>
{{if .Found}}<td>{{if .DisplayName}}{{.DisplayName}}{{else}}{{.ProductName}}{{end}}</td>
<td>{{.ShelfID}}</td>
<td><span class="{{levelClass .StockLevel}}">{{.StockCount}}</span></td>{{else}}<td colspan="3">Not carried</td>{{end}}
</tr>{{end}}
</tbody>
</table>{{end}}
</div>`))

var visualSearchTemplate = template.Must(template.New("visual-search").Funcs(funcs).Parse(`
<div id="visual-search-results">
{{if .Error}}<p class="panel-error">{{.Error}}</p>{{else}}{{with .Match}}{{if and .Match.Found .Match.Product}}{{with .Match.Product}}<p><strong>{{if .DisplayName}}{{.DisplayName}}{{else}}{{.ProductName}}{{end}}</strong> ({{printf "%.0f" (pct .Confidence)}}% match)</p>{{end}}
{{if .StockError}}<p class="panel-error">{{.StockError}}</p><p>Stock: Unknown</p>{{else}}<p>Stock: <span class="{{levelClass .StockLevel}}">{{.StockLevel}}</span>{{with .Stock}} ({{.TotalCount}} on shelf {{.ShelfID}}){{end}}</p>{{end}}{{else}}<p>{{if .Match.Message}}{{.Match.Message}}{{else}}No product recognised{{end}}</p>{{end}}{{end}}{{end}}
</div>`))

type SSEHandlers struct {
	dashboard     *services.Dashboard
	logger        *slog.Logger
	maxUploadSize int64
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger, maxUploadSize int64) *SSEHandlers {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUpload
	}
	return &SSEHandlers{
		dashboard:     dashboard,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

type panelData struct {
	Error      string
	Metrics    viewmodel.DashboardMetrics
	Categories []viewmodel.CategoryStat
	View       *services.InventoryView
	Alerts     []viewmodel.AlertView
	Uploads    []viewmodel.UploadView
	Result     *services.SmartCartResult
	Match      *services.VisualSearchResult
}

func execute(t *template.Template, data panelData) (string, error) {
	var buf strings.Builder
	err := t.Execute(&buf, data)
	return buf.String(), err
}

// patch renders t and sends it as an element patch. Render failures are
// logged and the panel is left as is.
func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, t *template.Template, data panelData) {
	html, err := execute(t, data)
	if err != nil {
		h.logger.Error("render panel", "template", t.Name(), "error", err)
		return
	}
	sse.PatchElements(html)
}

func (h *SSEHandlers) sendOverview(ctx context.Context, sse *datastar.ServerSentEventGenerator) {
	ov := h.dashboard.Overview(ctx)

	h.patch(sse, metricsTemplate, panelData{Error: ov.InventoryError, Metrics: ov.Metrics})
	h.patch(sse, categoriesTemplate, panelData{Error: ov.InventoryError, Categories: ov.Categories})
	h.patch(sse, alertsTemplate, panelData{Error: ov.AlertsError, Alerts: ov.Alerts})

	signals := map[string]any{
		"categoryData": ov.Categories,
		"levelCounts":  ov.Metrics.LevelCounts,
	}
	if ov.Analytics != nil {
		signals["trendData"] = ov.Analytics.StockTrend
	}
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal overview signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
}

func (h *SSEHandlers) sendInventory(ctx context.Context, sse *datastar.ServerSentEventGenerator, filter viewmodel.InventoryFilter, sort services.InventorySort) {
	view, err := h.dashboard.Inventory(ctx, filter, sort)
	if err != nil {
		h.patch(sse, inventoryTemplate, panelData{Error: services.MsgInventoryFailed})
		return
	}
	h.patch(sse, inventoryTemplate, panelData{View: view})
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	h.sendOverview(r.Context(), sse)
	flush(w)
}

func (h *SSEHandlers) HandleInventory(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := inventoryQuery(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.patch(sse, inventoryTemplate, panelData{Error: "Invalid inventory filter"})
		flush(w)
		return
	}
	h.sendInventory(r.Context(), sse, filter, sort)
	flush(w)
}

func (h *SSEHandlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	alerts, err := h.dashboard.ActiveAlerts(r.Context())
	if err != nil {
		h.patch(sse, alertsTemplate, panelData{Error: services.MsgAlertsFailed})
	} else {
		h.patch(sse, alertsTemplate, panelData{Alerts: alerts})
	}
	flush(w)
}

func (h *SSEHandlers) HandleUploads(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	uploads, err := h.dashboard.RecentUploads(r.Context())
	if err != nil {
		h.patch(sse, uploadsTemplate, panelData{Error: "Failed to load uploads"})
	} else {
		h.patch(sse, uploadsTemplate, panelData{Uploads: uploads})
	}
	flush(w)
}

// HandleSmartCart reads the page's {text} signal and patches the result
// table.
func (h *SSEHandlers) HandleSmartCart(w http.ResponseWriter, r *http.Request) {
	var req shoppingListRequest
	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req)

	sse := datastar.NewSSE(w, r)
	if decodeErr != nil {
		h.patch(sse, smartCartTemplate, panelData{Error: "Could not read the shopping list"})
		flush(w)
		return
	}

	result, err := h.dashboard.SmartCart(r.Context(), req.joined())
	switch {
	case apperrors.IsCode(err, apperrors.CodeValidation):
		h.patch(sse, smartCartTemplate, panelData{Error: "Add at least one item"})
	case err != nil:
		h.patch(sse, smartCartTemplate, panelData{Error: "Failed to search products"})
	default:
		h.patch(sse, smartCartTemplate, panelData{Result: result})
	}
	flush(w)
}

// HandleVisualSearch takes the SmartCart page's image form and patches the
// identified product with its stock.
func (h *SSEHandlers) HandleVisualSearch(w http.ResponseWriter, r *http.Request) {
	upload, done, uploadErr := readUpload(w, r, h.maxUploadSize)
	if done != nil {
		defer done()
	}

	sse := datastar.NewSSE(w, r)
	if uploadErr != nil {
		msg := "Choose an image to search"
		if apperrors.IsCode(uploadErr, apperrors.CodeTooLarge) {
			msg = "Image is too large"
		}
		h.patch(sse, visualSearchTemplate, panelData{Error: msg})
		flush(w)
		return
	}

	result, err := h.dashboard.VisualSearch(r.Context(), upload)
	if err != nil {
		h.patch(sse, visualSearchTemplate, panelData{Error: "Failed to identify product"})
	} else {
		h.patch(sse, visualSearchTemplate, panelData{Match: result})
	}
	flush(w)
}

// HandleStream keeps the connection open and re-patches the overview and
// inventory panels on every inventory change. A refresh missed while no
// stream was open is delivered on connect.
func (h *SSEHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	changes := h.dashboard.Changes(ctx)
	sse := datastar.NewSSE(w, r)

	if h.dashboard.PendingRefresh(ctx) {
		h.logger.DebugContext(ctx, "delivering missed inventory refresh")
		h.refresh(ctx, sse)
	}
	flush(w)

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			h.refresh(ctx, sse)
			flush(w)
		}
	}
}

func (h *SSEHandlers) refresh(ctx context.Context, sse *datastar.ServerSentEventGenerator) {
	h.sendOverview(ctx, sse)
	h.sendInventory(ctx, sse, viewmodel.InventoryFilter{}, services.InventorySort{})
	sse.PatchSignals([]byte(`{"inventoryRefreshed":true}`))
}
