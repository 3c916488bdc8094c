package server

import (
	"log/slog"
	"net/http"

	"omnishelf-dashboard/internal/handlers"
	"omnishelf-dashboard/internal/services"
)

type Server struct {
	dashboard   *services.Dashboard
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
	SmartCart http.HandlerFunc
}

func NewServer(dashboard *services.Dashboard, logger *slog.Logger, templateHandlers *TemplateHandlers, maxUploadSize int64) *Server {
	s := &Server{
		dashboard:   dashboard,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(dashboard, logger, maxUploadSize),
		sseHandlers: handlers.NewSSEHandlers(dashboard, logger, maxUploadSize),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Pages
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /smartcart", templateHandlers.SmartCart)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("GET /admin/backend-health", s.apiHandlers.HandleBackendHealth)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/inventory", s.apiHandlers.HandleInventory)
	s.mux.HandleFunc("GET /api/inventory/{product}", s.apiHandlers.HandleProduct)
	s.mux.HandleFunc("POST /api/inventory/bulk-update", s.apiHandlers.HandleBulkUpdate)
	s.mux.HandleFunc("GET /api/shelves/{id}", s.apiHandlers.HandleShelf)
	s.mux.HandleFunc("GET /api/alerts", s.apiHandlers.HandleAlerts)
	s.mux.HandleFunc("PUT /api/alerts/{id}/resolve", s.apiHandlers.HandleResolveAlert)
	s.mux.HandleFunc("POST /api/smartcart/search", s.apiHandlers.HandleSmartCartSearch)
	s.mux.HandleFunc("POST /api/scan/shelf", s.apiHandlers.HandleScanShelf)
	s.mux.HandleFunc("POST /api/scan/image", s.apiHandlers.HandleScanImage)
	s.mux.HandleFunc("POST /api/scan/product", s.apiHandlers.HandleScanProduct)
	s.mux.HandleFunc("POST /api/scan/csv", s.apiHandlers.HandleScanCSV)
	s.mux.HandleFunc("GET /api/uploads/recent", s.apiHandlers.HandleRecentUploads)
	s.mux.HandleFunc("GET /api/model/metrics", s.apiHandlers.HandleModelMetrics)
	s.mux.HandleFunc("GET /api/detections", s.apiHandlers.HandleDetections)
	s.mux.HandleFunc("GET /api/snapshots", s.apiHandlers.HandleSnapshots)
	s.mux.HandleFunc("GET /api/snapshots/latest", s.apiHandlers.HandleLatestSnapshot)
	s.mux.HandleFunc("GET /api/events/pending", s.apiHandlers.HandlePendingRefresh)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/inventory", s.sseHandlers.HandleInventory)
	s.mux.HandleFunc("GET /sse/alerts", s.sseHandlers.HandleAlerts)
	s.mux.HandleFunc("GET /sse/uploads", s.sseHandlers.HandleUploads)
	s.mux.HandleFunc("POST /sse/smartcart", s.sseHandlers.HandleSmartCart)
	s.mux.HandleFunc("POST /sse/visual-search", s.sseHandlers.HandleVisualSearch)
	s.mux.HandleFunc("GET /sse/stream", s.sseHandlers.HandleStream)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
