/*
handlers.go - HTTP API handlers for previewing and exporting qualified beneficiaries

PURPOSE:
  Exposes both export stages over HTTP so benefits staff can inspect what a
  run would produce for a given date before the file is sent. Handlers parse
  the request, call the runner pipeline and serialize the result.

ENDPOINTS:
  Preview:
    GET    /api/health                   Liveness
    GET    /api/extract?asOf=            Stage-one rows
    GET    /api/beneficiaries?asOf=      Stage-two block tree summary
    GET    /api/export?asOf=             Import file download (text/csv)

  Runs:
    GET    /api/runs?limit=              Run history, newest first
    POST   /api/runs?asOf=               Execute a full run to disk

  Scenarios:
    GET    /api/scenarios                List demo data sets
    POST   /api/scenarios/load           Replace the source tables

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Pipeline: source store, rules and both stages
  - Runs: run history (optional)
  - Saver: writable source store for scenarios (optional)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid asOf, unknown scenario
  - 422: the extract violates its contract (missing field, bad date)
  - 501: optional dependency not configured
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Responses contain SSNs; bind to a private interface.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data sets
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/warp/qb-export/eligibility"
	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/runner"
	"github.com/warp/qb-export/segment"
	"github.com/warp/qb-export/source"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pipeline *runner.Pipeline
	Runs     generic.RunStore
	Saver    source.Saver
	Paths    runner.Paths
	Logger   *zap.Logger

	// Today is the default asOf when the query omits it.
	Today func() generic.Date
}

// NewHandler creates a handler around a pipeline. runs and saver may be nil.
func NewHandler(p *runner.Pipeline, runs generic.RunStore, saver source.Saver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Pipeline: p,
		Runs:     runs,
		Saver:    saver,
		Paths:    runner.DefaultPaths,
		Logger:   logger,
		Today:    generic.Today,
	}
}

// =============================================================================
// PREVIEW HANDLERS
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetExtract returns the stage-one rows for asOf.
// GET /api/extract?asOf=2025-06-15
func (h *Handler) GetExtract(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	rows, err := h.Pipeline.Rows(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute extract", err)
		return
	}
	if rows == nil {
		rows = []extract.Row{}
	}

	window := eligibility.NewEngine(h.Pipeline.Rules(), nil).Window(asOf)
	writeJSON(w, http.StatusOK, ExtractResponse{
		AsOf:   asOf.String(),
		Window: WindowDTO{Start: window.Start.String(), End: window.End.String()},
		Count:  len(rows),
		Rows:   rows,
	})
}

// GetBeneficiaries returns a summary of the block tree for asOf.
// GET /api/beneficiaries?asOf=2025-06-15
func (h *Handler) GetBeneficiaries(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	res, ok := h.segments(w, r, asOf)
	if !ok {
		return
	}

	resp := BeneficiariesResponse{
		AsOf:          asOf.String(),
		Count:         len(res.Beneficiaries),
		Beneficiaries: make([]BeneficiaryDTO, 0, len(res.Beneficiaries)),
		Warnings:      make([]string, 0, len(res.Warnings)),
	}
	for _, b := range res.Beneficiaries {
		resp.Beneficiaries = append(resp.Beneficiaries, toBeneficiaryDTO(b))
	}
	for _, warn := range res.Warnings {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetExport streams the import file for asOf. The body is rendered in
// memory first so a build error never yields a partial download.
// GET /api/export?asOf=2025-06-15
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	res, ok := h.segments(w, r, asOf)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := segment.Write(&buf, h.Pipeline.Rules().Output.Version, res.Beneficiaries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render import file", err)
		return
	}

	name := fmt.Sprintf("cobra_qb_import_%s.csv", asOf.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns run history.
// GET /api/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeError(w, http.StatusNotImplemented, "Run history is not configured", nil)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: dtos})
}

// TriggerRun executes both stages to disk and records the run.
// POST /api/runs?asOf=2025-06-15
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	run, err := h.Pipeline.Run(r.Context(), asOf, h.Paths)
	if err != nil {
		status := http.StatusInternalServerError
		if generic.IsContractError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, toRunDTO(run))
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(run))
}

// =============================================================================
// HELPERS
// =============================================================================

// asOf reads the asOf query parameter, defaulting to today. On a bad value
// it writes a 400 and returns false.
func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (generic.Date, bool) {
	s := r.URL.Query().Get("asOf")
	if s == "" {
		return h.Today(), true
	}
	d, err := generic.ParseDate("asOf", s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asOf", err)
		return generic.Date{}, false
	}
	return d, true
}

// segments runs both stages in memory.
func (h *Handler) segments(w http.ResponseWriter, r *http.Request, asOf generic.Date) (*segment.Result, bool) {
	rows, err := h.Pipeline.Rows(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute extract", err)
		return nil, false
	}
	res, err := h.Pipeline.Segments(rows)
	if err != nil {
		status := http.StatusInternalServerError
		if generic.IsContractError(err) || errors.Is(err, generic.ErrInvalidDate) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, "Failed to build beneficiaries", err)
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
