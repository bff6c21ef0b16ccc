package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	applog "wealthtrack/internal/log"
	"wealthtrack/internal/middleware/trace"
)

type (
	recordRequest struct {
		Data core.QuarterData `json:"data"`
	}

	// FormattedMetrics are the headline figures rendered in the display currency.
	FormattedMetrics struct {
		TotalAssets      string `json:"totalAssets"`
		DisposableAssets string `json:"disposableAssets"`
		TotalMarketIndex string `json:"totalMarketIndex"`
	}

	// DashboardResponse is the payload of GET /api/dashboard. Quarter is
	// empty when the store holds no records.
	DashboardResponse struct {
		Quarter   string   `json:"quarter"`
		Timestamp int64    `json:"timestamp,omitempty"`
		Quarters  []string `json:"quarters"`
		core.QuarterMetrics
		Formatted FormattedMetrics `json:"formatted"`
	}

	AdviceResponse struct {
		RecordID string `json:"recordId"`
		Text     string `json:"text"`
	}

	ImportResponse struct {
		Imported int `json:"imported"`
	}
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"records":  s.store.Len(),
		"requests": s.Metrics().TotalRequests,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Registry())
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(quarterParam(r))
	if !ok {
		writeError(w, r, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	id := quarterParam(r)
	var req recordRequest
	if err := decodeJSON(w, r, maxRecordBody, &req); err != nil {
		writeError(w, r, bodyErrorStatus(err), err.Error())
		return
	}

	saved, err := s.store.Upsert(r.Context(), core.NewRecord(id, req.Data, s.now()))
	if err != nil {
		if isValidationError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to save record")
		return
	}

	if s.prefs != nil {
		if err := s.prefs.SetLastQuarter(r.Context(), saved.ID); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to remember quarter", applog.FieldQuarter, saved.ID, applog.FieldError, err)
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteRecord(r.Context(), quarterParam(r))
	noContent(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	category, err := core.ParseCategoryID(r.PathValue("category"))
	if err != nil {
		msg := err.Error()
		if hint, ok := core.SuggestCategory(r.PathValue("category")); ok {
			msg += fmt.Sprintf(", did you mean %q?", hint)
		}
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	s.store.DeleteEntry(r.Context(), quarterParam(r), category, sanitizeInput(r.PathValue("entry")))
	noContent(w)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, r, http.StatusConflict, "clearing all records requires confirm=true")
		return
	}
	s.store.Clear(r.Context())
	noContent(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		rec   core.WealthRecord
		found bool
	)
	if q := core.NormalizeQuarterID(sanitizeInput(r.URL.Query().Get("quarter"))); q != "" {
		rec, found = s.store.Get(q)
		if !found {
			writeError(w, r, http.StatusNotFound, "record not found")
			return
		}
	} else {
		rec, found = s.store.SelectLatest()
	}

	records := s.store.List()
	resp := DashboardResponse{Quarters: make([]string, 0, len(records))}
	for _, rr := range records {
		resp.Quarters = append(resp.Quarters, rr.ID)
	}
	if found {
		resp.Quarter = rec.ID
		resp.Timestamp = rec.Timestamp
	} else {
		rec = core.WealthRecord{Data: core.NewQuarterData()}
	}
	resp.QuarterMetrics = core.ComputeMetrics(rec)
	resp.Formatted = FormattedMetrics{
		TotalAssets:      core.FormatCurrency(resp.Metrics.TotalAssets),
		DisposableAssets: core.FormatCurrency(resp.Metrics.DisposableAssets),
		TotalMarketIndex: core.FormatCurrency(resp.Metrics.TotalMarketIndex),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Trend())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Snapshot()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to export records")
		return
	}
	name := codec.BackupFilename(s.now())
	s.logger.InfoContext(r.Context(), "Records exported",
		applog.FieldOperation, applog.OpExport, applog.FieldFile, name, applog.FieldBytes, len(doc))
	NewJSONResponse().Raw(doc).Attachment(name).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, maxImportBody)
	if err != nil {
		writeError(w, r, bodyErrorStatus(err), err.Error())
		return
	}

	records, err := codec.Decode(body)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}
	if !confirmed(r) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "importing replaces all records; repeat with confirm=true",
			"records": len(records),
		})
		return
	}

	if err := s.store.ReplaceAll(r.Context(), records); err != nil {
		s.writeImportError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Records imported",
		applog.FieldOperation, applog.OpImport, applog.FieldRecordCount, len(records))
	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(records)})
}

func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *codec.ImportValidationError
	if !errors.As(err, &verr) {
		writeError(w, r, http.StatusInternalServerError, "import failed")
		return
	}
	s.logger.WarnContext(r.Context(), "Import rejected", applog.FieldOperation, applog.OpImport, applog.FieldError, err)
	body := ErrorBody{Error: verr.Error(), RequestID: trace.GetRequestID(r.Context())}
	if verr.Index >= 0 {
		idx := verr.Index
		body.Index = &idx
	}
	NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(body).Write(w)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(quarterParam(r))
	if !ok {
		writeError(w, r, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, AdviceResponse{RecordID: rec.ID, Text: s.advice.Advise(r.Context(), rec)})
}

func (s *Server) handleFormQuarter(w http.ResponseWriter, r *http.Request) {
	q := core.QuarterIDFor(s.now())
	if s.prefs != nil {
		q = s.prefs.DefaultQuarter(r.Context(), s.now())
	}
	writeJSON(w, http.StatusOK, map[string]string{"quarter": q})
}
