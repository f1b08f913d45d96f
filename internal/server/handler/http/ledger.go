package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/teashop/internal/export"
	"github.com/atinyakov/teashop/internal/middleware"
	"github.com/atinyakov/teashop/internal/models"
	"github.com/atinyakov/teashop/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService defines the tally operations required by the LedgerHandler.
type LedgerService interface {
	Current(ctx context.Context, userID uuid.UUID) (service.DayState, error)
	UpdateToday(ctx context.Context, userID uuid.UUID, date string, updates []models.CountUpdate) (service.DayState, error)
	Close(ctx context.Context, userID uuid.UUID) (service.DayState, error)
	ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error)
	DeleteReport(ctx context.Context, userID uuid.UUID, ref string) error
}

// LedgerHandler handles the authenticated tally and report endpoints.
type LedgerHandler struct {
	Ledger LedgerService
	Logger *zap.Logger
}

// UpdateTodayRequest is the body of POST /api/today. Only id and count of
// each category are used; name and price are taken from the catalog.
type UpdateTodayRequest struct {
	Today *TodayPayload `json:"today" validate:"required"`
}

// TodayPayload carries the client's view of today's counts.
type TodayPayload struct {
	Date       string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Categories []CategoryPayload `json:"categories" validate:"required,dive"`
}

// CategoryPayload is a single category count sent by the client.
type CategoryPayload struct {
	ID    int    `json:"id"`
	Name  string `json:"name,omitempty"`
	Count *int64 `json:"count" validate:"required,min=0"`
}

type dataResponse struct {
	Today   models.DailyTally `json:"today"`
	Reports []models.Report   `json:"reports"`
}

type updateResponse struct {
	OK            bool              `json:"ok"`
	Today         models.DailyTally `json:"today"`
	UpdatedReport models.Report     `json:"updatedReport"`
	Reports       []models.Report   `json:"reports"`
}

type closeResponse struct {
	OK      bool              `json:"ok"`
	Today   models.DailyTally `json:"today"`
	Reports []models.Report   `json:"reports"`
}

type reportsResponse struct {
	Reports []models.Report `json:"reports"`
}

// Data handles GET /api/data and returns today's tally and all reports.
func (h *LedgerHandler) Data(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	state, err := h.Ledger.Current(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Logger, "data", err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Today: state.Today, Reports: state.Reports})
}

// UpdateToday handles POST /api/today. Counts in the payload replace the
// stored ones and today's report is refreshed.
func (h *LedgerHandler) UpdateToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateTodayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid today payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationErrors(w, "invalid today payload", err)
		return
	}

	updates := make([]models.CountUpdate, 0, len(req.Today.Categories))
	for _, c := range req.Today.Categories {
		updates = append(updates, models.CountUpdate{ID: c.ID, Count: *c.Count})
	}

	state, err := h.Ledger.UpdateToday(r.Context(), userID, req.Today.Date, updates)
	if err != nil {
		writeServiceError(w, h.Logger, "update_today", err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{
		OK:            true,
		Today:         state.Today,
		UpdatedReport: state.Report,
		Reports:       state.Reports,
	})
}

// Close handles POST /api/close: today's report is written and the live
// counts are reset.
func (h *LedgerHandler) Close(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	state, err := h.Ledger.Close(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Logger, "close", err)
		return
	}
	writeJSON(w, http.StatusOK, closeResponse{OK: true, Today: state.Today, Reports: state.Reports})
}

// Reports handles GET /api/reports.
func (h *LedgerHandler) Reports(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	reports, err := h.Ledger.ListReports(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Logger, "list_reports", err)
		return
	}
	writeJSON(w, http.StatusOK, reportsResponse{Reports: reports})
}

// DeleteReport handles DELETE /api/reports/{id}. The id may also be a date.
func (h *LedgerHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.DeleteReport(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.Logger, "delete_report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ExportReports handles GET /api/reports/export and streams an xlsx workbook.
func (h *LedgerHandler) ExportReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	reports, err := h.Ledger.ListReports(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Logger, "export_reports", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reports.xlsx"`)
	if err := export.WriteReports(w, reports); err != nil {
		h.Logger.Error("export failed", zap.Error(err))
	}
}

func (h *LedgerHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
