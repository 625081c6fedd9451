package reports

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ReportHandlers contains HTTP handlers for the report API
type ReportHandlers struct {
	service *Service
	log     zerolog.Logger
}

// NewReportHandlers creates a new report handlers instance
func NewReportHandlers(service *Service, log zerolog.Logger) *ReportHandlers {
	return &ReportHandlers{
		service: service,
		log:     log.With().Str("handler", "reports").Logger(),
	}
}

// RegisterRoutes mounts the report routes
func (h *ReportHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.HandleCategoryBreakdown)
	r.Get("/monthly", h.HandleMonthlySummary)
	r.Get("/anomalies", h.HandleAnomalies)
	r.Get("/recurring", h.HandleTopRecurring)
	r.Get("/quality", h.HandleQuality)
	r.Get("/export.csv", h.HandleExportCSV)
}

// HandleCategoryBreakdown returns the per-category aggregate report
// GET /api/reports/categories
func (h *ReportHandlers) HandleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CategoryBreakdown()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build category breakdown")
		http.Error(w, "Failed to build category breakdown", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleMonthlySummary returns the per-month aggregate report
// GET /api/reports/monthly
func (h *ReportHandlers) HandleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.MonthlySummary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build monthly summary")
		http.Error(w, "Failed to build monthly summary", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleAnomalies returns flagged transactions
// GET /api/reports/anomalies?limit=N
func (h *ReportHandlers) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Anomalies(limitParam(r, 50))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list anomalies")
		http.Error(w, "Failed to list anomalies", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleTopRecurring returns recurring description groups
// GET /api/reports/recurring?limit=N
func (h *ReportHandlers) HandleTopRecurring(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.TopRecurring(limitParam(r, 20))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list recurring groups")
		http.Error(w, "Failed to list recurring groups", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleQuality returns the data quality overview
// GET /api/reports/quality
func (h *ReportHandlers) HandleQuality(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Quality()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build quality overview")
		http.Error(w, "Failed to build quality overview", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}

// HandleExportCSV streams the full enriched batch as CSV
// GET /api/reports/export.csv
func (h *ReportHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="enriched_transactions.csv"`)
	if err := h.service.ExportCSV(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to export CSV")
		// Headers may already be out; nothing more to do than log.
	}
}

func limitParam(r *http.Request, fallback int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// writeJSON writes JSON response
func (h *ReportHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
