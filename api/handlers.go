/*
handlers.go - HTTP handlers for the leave ledger

PURPOSE:
  Thin translation layer: decode JSON, build the typed request, call the
  engine or store, map errors onto the status taxonomy. Validation
  failures are 400, unknown records 404, everything else 500 with the
  detail kept in the log rather than the response.

SEE ALSO:
  - dto.go: wire shapes and the flat-body-to-Request conversion
  - auth.go: login and the session/token gates
  - server.go: route table
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campus/leave-ledger/ledger"
	"github.com/campus/leave-ledger/report"
	"github.com/campus/leave-ledger/store/sqlite"
)

// reportWindowDays is the default report span when the caller supplies
// no explicit dates.
const reportWindowDays = 35

// Handler carries every dependency the routes need.
type Handler struct {
	Store       *sqlite.Store
	Engine      *ledger.Engine
	Renderer    *report.Renderer
	Sessions    *scs.SessionManager
	Log         *zap.Logger
	Validate    *validator.Validate
	TokenSecret []byte
}

func NewHandler(store *sqlite.Store, engine *ledger.Engine, renderer *report.Renderer, sessions *scs.SessionManager, log *zap.Logger, tokenSecret []byte) *Handler {
	return &Handler{
		Store:       store,
		Engine:      engine,
		Renderer:    renderer,
		Sessions:    sessions,
		Log:         log,
		Validate:    validator.New(),
		TokenSecret: tokenSecret,
	}
}

// =============================================================================
// RESPONSE PLUMBING
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"status": "error", "message": msg}
}

// writeError maps domain errors onto the status taxonomy.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case ledger.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	default:
		h.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

// decode unmarshals the body into dst and runs struct validation.
// Returns false after writing the error response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing required fields"))
		return false
	}
	return true
}

// =============================================================================
// LISTING
// =============================================================================

func (h *Handler) handleGetLeaves(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListFacultyWithCounts(r.Context(), h.departmentID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ledger.SortFaculty(rows)

	out := make([]facultyRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toFacultyRow(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": out})
}

func (h *Handler) handleFacultySuggestions(w http.ResponseWriter, r *http.Request) {
	matches, err := h.Store.SearchFaculty(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	type suggestion struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	out := make([]suggestion, 0, len(matches))
	for _, f := range matches {
		out = append(out, suggestion{
			ID:    string(f.ID),
			Label: f.Name + " (" + f.Designation + ")",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": out})
}

func (h *Handler) handleLeaveDetails(w http.ResponseWriter, r *http.Request) {
	id := ledger.FacultyID(chi.URLParam(r, "id"))

	fac, err := h.Store.GetFaculty(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if fac == nil {
		h.writeError(w, r, ledger.ErrFacultyNotFound)
		return
	}

	events, err := h.Store.ListEvents(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rows := make([]leaveEventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toLeaveEventRow(ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"faculty": map[string]string{
			"id":               string(fac.ID),
			"name":             fac.Name,
			"designation":      fac.Designation,
			"granted_leaves":   fac.GrantedLeaves.StringFixed(2),
			"total_leaves":     fac.TotalLeaves.StringFixed(2),
			"remaining_leaves": fac.RemainingLeaves.StringFixed(2),
		},
		"leaves": rows,
	})
}

// =============================================================================
// MUTATIONS
// =============================================================================

func (h *Handler) handleAddLeave(w http.ResponseWriter, r *http.Request) {
	var body addLeaveRequest
	if !h.decode(w, r, &body) {
		return
	}

	req, err := body.buildRequest()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.Engine.AddLeave(r.Context(), ledger.FacultyID(body.FacultyID), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]any{"status": "success"}
	if result != nil {
		resp["updated_data"] = shortLeaveResult{
			ShortLeaves: result.ShortLeaveCount,
			TotalLeaves: result.TotalLeaves.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteLeave(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "leaveID"))
	if err := h.Engine.DeleteLeave(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) handleAddFaculty(w http.ResponseWriter, r *http.Request) {
	var body addFacultyRequest
	if !h.decode(w, r, &body) {
		return
	}

	granted, err := decimal.NewFromString(body.GrantedLeaves)
	if err != nil {
		h.writeError(w, r, ledger.ErrInvalidGrantAmount)
		return
	}

	user, _ := h.sessionUser(r)
	fac, err := h.Engine.AddFaculty(r.Context(), body.Name, body.Designation, user.DepartmentID, granted)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"id":     string(fac.ID),
	})
}

func (h *Handler) handleDeleteFaculty(w http.ResponseWriter, r *http.Request) {
	id := ledger.FacultyID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteFaculty(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id := ledger.FacultyID(chi.URLParam(r, "id"))
	repair := r.URL.Query().Get("repair") == "true"

	rep, err := h.Engine.Reconcile(r.Context(), id, repair)
	var drift *ledger.DriftError
	if err != nil && !errors.As(err, &drift) {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"drifted":         rep.Drifted,
		"repaired":        rep.Repaired,
		"stored_total":    rep.StoredTotal.StringFixed(2),
		"computed_total":  rep.ComputedTotal.StringFixed(2),
		"stored_remain":   rep.StoredRemain.StringFixed(2),
		"computed_remain": rep.ComputedRemain.StringFixed(2),
	})
}

// =============================================================================
// REPORTS
// =============================================================================

// reportWindow reads fromDate/toDate query params, defaulting to the
// trailing reportWindowDays ending today.
func reportWindow(r *http.Request) (ledger.Date, ledger.Date, error) {
	to := ledger.Today()
	from := to.AddDays(-reportWindowDays)

	if s := r.URL.Query().Get("fromDate"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			return ledger.Date{}, ledger.Date{}, ledger.ErrInvalidDateRange
		}
		from = parsed
	}
	if s := r.URL.Query().Get("toDate"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			return ledger.Date{}, ledger.Date{}, ledger.ErrInvalidDateRange
		}
		to = parsed
	}
	if from.After(to) {
		return ledger.Date{}, ledger.Date{}, ledger.ErrInvalidDateRange
	}
	return from, to, nil
}

func (h *Handler) departmentName(r *http.Request) string {
	dept, err := h.Store.GetDepartment(r.Context(), h.departmentID(r))
	if err != nil || dept == nil {
		return ""
	}
	return dept.Name
}

func (h *Handler) handleFacultyPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportWindow(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id := ledger.FacultyID(r.URL.Query().Get("facultyId"))
	fac, err := h.Store.GetFaculty(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if fac == nil {
		h.writeError(w, r, ledger.ErrFacultyNotFound)
		return
	}

	events, err := h.Store.ListEventsInRange(r.Context(), id, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data := report.FacultyReport{
		Faculty:    *fac,
		Department: h.departmentName(r),
		From:       from,
		To:         to,
		Events:     events,
		Summary:    ledger.Summarize(events, fac.RemainingLeaves),
	}

	w.Header().Set("Content-Type", "application/pdf")
	if err := h.Renderer.RenderFacultyReport(w, data); err != nil {
		h.Log.Error("faculty report failed", zap.String("faculty_id", string(id)), zap.Error(err))
	}
}

func (h *Handler) handleCombinedPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportWindow(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	faculty, err := h.Store.ListFacultyWithCounts(r.Context(), h.departmentID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ledger.SortFaculty(faculty)

	department := h.departmentName(r)
	var rows []report.OverviewRow
	var pages []report.FacultyReport
	for _, fac := range faculty {
		events, err := h.Store.ListEventsInRange(r.Context(), fac.ID, from, to)
		if err != nil {
			// One bad row does not sink the whole document.
			h.Log.Warn("skipping faculty in combined report",
				zap.String("faculty_id", string(fac.ID)), zap.Error(err))
			continue
		}
		if len(events) == 0 {
			continue
		}
		summary := ledger.Summarize(events, fac.RemainingLeaves)
		rows = append(rows, report.OverviewRow{
			Name:            fac.Name,
			Designation:     fac.Designation,
			WindowTotal:     summary.TotalLeaves,
			RemainingLeaves: summary.RemainingLeaves,
		})
		pages = append(pages, report.FacultyReport{
			Faculty:    fac.Faculty,
			Department: department,
			From:       from,
			To:         to,
			Events:     events,
			Summary:    summary,
		})
	}

	w.Header().Set("Content-Type", "application/pdf")
	if err := h.Renderer.RenderCombinedReport(w, from, to, rows, pages); err != nil {
		h.Log.Error("combined report failed", zap.Error(err))
	}
}

func (h *Handler) handleTodaysReport(w http.ResponseWriter, r *http.Request) {
	today := ledger.Today()

	faculty, err := h.Store.ListFacultyWithCounts(r.Context(), h.departmentID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ledger.SortFaculty(faculty)

	digest := report.Digest{Date: today, Department: h.departmentName(r)}
	for _, fac := range faculty {
		events, err := h.Store.ListEventsInRange(r.Context(), fac.ID, today, today)
		if err != nil {
			h.Log.Warn("skipping faculty in daily digest",
				zap.String("faculty_id", string(fac.ID)), zap.Error(err))
			continue
		}
		for _, ev := range events {
			digest.Entries = append(digest.Entries, report.DigestEntry{
				FacultyName: fac.Name,
				Designation: fac.Designation,
				Category:    ev.Category,
				Detail:      ev.Detail,
			})
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	if err := h.Renderer.RenderDailyDigest(w, digest); err != nil {
		h.Log.Error("daily digest failed", zap.Error(err))
	}
}
