// CLAUDE:SUMMARY JSON HTTP surface: health, run trigger, run history, stats, table browsing.
package storefeed

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/storefeed/internal/store"
)

// Handler returns the HTTP API. All responses are JSON; there is no HTML
// surface.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := s.store.DB.PingContext(req.Context()); err != nil {
			httpError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/run", func(w http.ResponseWriter, req *http.Request) {
		report, err := s.RunOnce(req.Context())
		if errors.Is(err, ErrRunInProgress) {
			httpError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		entries, err := s.runs.Recent(req.Context(), limit)
		if err != nil {
			s.logger.Error("http: run history", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to read run history")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := s.store.Stats(req.Context())
		if err != nil {
			s.logger.Error("http: stats", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to read stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	r.Get("/api/tables", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, store.Tables())
	})

	r.Get("/api/tables/{table}", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("per_page"))

		tp, err := s.store.TableRows(req.Context(), chi.URLParam(req, "table"),
			page, perPage, q.Get("sort_by"), q.Get("sort_order"))
		if errors.Is(err, store.ErrUnknownTable) {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
