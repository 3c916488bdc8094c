package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"omnishelf-dashboard/internal/backend"
	apperrors "omnishelf-dashboard/internal/errors"
	"omnishelf-dashboard/internal/models"
	"omnishelf-dashboard/internal/observability"
	"omnishelf-dashboard/internal/services"
	"omnishelf-dashboard/internal/viewmodel"
)

const (
	noStore          = "no-store"
	shortCache       = "public, max-age=60"
	maxJSONBody      = 1 << 20
	multipartMem     = 8 << 20
	defaultMaxUpload = 20 << 20
	version          = "1.0.0"
)

type APIHandlers struct {
	dashboard     *services.Dashboard
	logger        *slog.Logger
	maxUploadSize int64
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger, maxUploadSize int64) *APIHandlers {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUpload
	}
	return &APIHandlers{
		dashboard:     dashboard,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// fail maps service and backend errors onto the JSON error envelope.
func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.WriteError(w, h.logger, classify(err), observability.GetRequestID(r.Context()))
}

func classify(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var status *backend.StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusServiceUnavailable:
			return apperrors.Wrap(err, apperrors.CodeServiceUnavail, "OmniShelf backend is unavailable")
		case status.StatusCode == http.StatusBadRequest || status.StatusCode == http.StatusUnprocessableEntity:
			appErr := apperrors.BadRequestWrap(err, "OmniShelf backend rejected the request")
			appErr.Details = status.Body
			return appErr
		}
	}
	return apperrors.Upstream(err, "OmniShelf backend request failed")
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview := h.dashboard.Overview(r.Context())
	apperrors.WriteSuccessWithHeaders(w, overview, map[string]string{"Cache-Control": noStore})
}

func inventoryQuery(r *http.Request) (viewmodel.InventoryFilter, services.InventorySort, error) {
	q := r.URL.Query()
	filter := viewmodel.InventoryFilter{
		Category:   q.Get("category"),
		StockLevel: q.Get("level"),
		Shelf:      q.Get("shelf"),
		Query:      q.Get("q"),
	}
	sort := services.InventorySort{Key: q.Get("sort")}
	if raw := q.Get("desc"); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, sort, apperrors.ValidationWrap(err, "desc must be a boolean")
		}
		sort.Desc = desc
	}
	return filter, sort, nil
}

func (h *APIHandlers) HandleInventory(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := inventoryQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.dashboard.Inventory(r.Context(), filter, sort)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, view, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleProduct(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("product")
	product, err := h.dashboard.Product(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if product == nil {
		h.fail(w, r, apperrors.NotFound(fmt.Sprintf("product %q not found", name)))
		return
	}
	apperrors.WriteSuccess(w, product)
}

func (h *APIHandlers) HandleShelf(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	shelf, err := h.dashboard.Shelf(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if shelf == nil {
		h.fail(w, r, apperrors.NotFound(fmt.Sprintf("shelf %q not found", id)))
		return
	}
	apperrors.WriteSuccess(w, shelf)
}

func (h *APIHandlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.dashboard.ActiveAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, alerts, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.fail(w, r, apperrors.ValidationWrap(err, "alert id must be an integer"))
		return
	}

	alert, err := h.dashboard.ResolveAlert(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, alert)
}

// shoppingListRequest accepts either free text or an explicit item list.
type shoppingListRequest struct {
	Text  string   `json:"text"`
	Items []string `json:"items"`
}

func (s shoppingListRequest) joined() string {
	if len(s.Items) == 0 {
		return s.Text
	}
	return s.Text + "\n" + strings.Join(s.Items, "\n")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.TooLarge("request body too large")
		}
		return apperrors.BadRequestWrap(err, "invalid JSON body")
	}
	return nil
}

func (h *APIHandlers) HandleSmartCartSearch(w http.ResponseWriter, r *http.Request) {
	var req shoppingListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.dashboard.SmartCart(r.Context(), req.joined())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, result)
}

// readUpload pulls the multipart "file" field. The caller must close the
// returned closer.
func (h *APIHandlers) readUpload(w http.ResponseWriter, r *http.Request) (backend.Upload, func(), error) {
	return readUpload(w, r, h.maxUploadSize)
}

func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (backend.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(multipartMem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return backend.Upload{}, nil, apperrors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", maxSize))
		}
		return backend.Upload{}, nil, apperrors.BadRequestWrap(err, "expected a multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return backend.Upload{}, nil, apperrors.ValidationWrap(err, "missing file field")
	}

	upload := backend.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return upload, func() { _ = file.Close() }, nil
}

func (h *APIHandlers) HandleScanShelf(w http.ResponseWriter, r *http.Request) {
	upload, done, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer done()

	scan, err := h.dashboard.ScanShelf(r.Context(), upload, r.FormValue("shelf_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, scan)
}

func (h *APIHandlers) HandleScanImage(w http.ResponseWriter, r *http.Request) {
	upload, done, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer done()

	scan, err := h.dashboard.ScanImage(r.Context(), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, scan)
}

func (h *APIHandlers) HandleScanProduct(w http.ResponseWriter, r *http.Request) {
	upload, done, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer done()

	result, err := h.dashboard.VisualSearch(r.Context(), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleScanCSV(w http.ResponseWriter, r *http.Request) {
	upload, done, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer done()

	summary, err := h.dashboard.DetectFromCSV(r.Context(), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, summary)
}

func (h *APIHandlers) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.dashboard.ApplyScan(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleRecentUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.dashboard.RecentUploads(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, uploads, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleModelMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboard.ModelMetrics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, metrics, map[string]string{"Cache-Control": shortCache})
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationWrap(err, "limit must be an integer")
	}
	return limit, nil
}

func (h *APIHandlers) HandleDetections(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	detections, err := h.dashboard.DetectionHistory(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, detections, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snapshots, err := h.dashboard.Snapshots(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, snapshots, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.dashboard.LatestSnapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if snapshot == nil {
		h.fail(w, r, apperrors.NotFound("no snapshot has been taken yet"))
		return
	}
	apperrors.WriteSuccessWithHeaders(w, snapshot, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandlePendingRefresh(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccessWithHeaders(w, map[string]bool{
		"pending": h.dashboard.PendingRefresh(r.Context()),
	}, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	}

	apperrors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleBackendHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.dashboard.BackendHealth(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apperrors.WriteSuccessWithHeaders(w, health, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	apperrors.WriteSuccess(w, stats)
}
