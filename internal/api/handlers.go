package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/star/assetlist/internal/cache"
	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/httputil"
	"github.com/star/assetlist/internal/pipeline"
	"github.com/star/assetlist/internal/session"
	"github.com/star/assetlist/internal/view"
)

const maxRequestBody = 64 << 10

// Viewport bounds accepted by the rows endpoint, in pixels.
const (
	maxViewportHeight = 10000
	maxViewportWidth  = 20000
)

type optionsResponse struct {
	ObjectTypes    []string      `json:"object_types"`
	OrbitCodes     []string      `json:"orbit_codes"`
	SortableFields []string      `json:"sortable_fields"`
	Categories     []string      `json:"categories"`
	Columns        []view.Column `json:"columns"`
}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	cats := pipeline.DefaultCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	httputil.WriteJSON(w, http.StatusOK, optionsResponse{
		ObjectTypes:    catalog.AllObjectTypes,
		OrbitCodes:     catalog.OrbitCodes,
		SortableFields: pipeline.SortableFields,
		Categories:     names,
		Columns:        view.Columns,
	})
}

func cacheStatsHandler(queryCache *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, queryCache.Stats())
	}
}

// purgeCacheHandler drops every cached query result.
// DELETE /api/v1/cache
func purgeCacheHandler(logger *slog.Logger, queryCache *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dropped := queryCache.Stats().Entries
		queryCache.Purge()
		logger.Info("query cache purged", "entries_dropped", dropped)
		w.WriteHeader(http.StatusNoContent)
	}
}

func createSessionHandler(logger *slog.Logger, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessions.Create()
		if errors.Is(err, session.ErrTooManySessions) {
			logger.Warn("session limit reached", "sessions", sessions.Count())
			w.Header().Set("Retry-After", "60")
			httputil.WriteError(w, http.StatusServiceUnavailable, "too many sessions")
			return
		}
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not create session")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, s.Snapshot())
	}
}

func snapshotHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		httputil.WriteJSON(w, http.StatusOK, s.Snapshot())
	})
}

// rowsHandler serves the visible window.
// GET /api/v1/sessions/{id}/rows?offset=0&height=450&width=1280
func rowsHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		q := r.URL.Query()
		offset, err := intParam(q.Get("offset"), 0, 0, 1<<30)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid offset parameter, must be a non-negative integer")
			return
		}
		height, err := intParam(q.Get("height"), view.DefaultHeight, 1, maxViewportHeight)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid height parameter, must be 1-%d", maxViewportHeight))
			return
		}
		width, err := intParam(q.Get("width"), 0, 0, maxViewportWidth)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid width parameter, must be 0-%d", maxViewportWidth))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, s.Window(offset, height, width))
	})
}

type searchRequest struct {
	Term string `json:"term"`
}

func searchHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req searchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, s.Search(req.Term))
	})
}

type filtersRequest struct {
	ObjectTypes []string `json:"object_types"`
	OrbitCodes  []string `json:"orbit_codes"`
}

func filtersHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req filtersRequest
		if !decodeBody(w, r, &req) {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, s.SetFilters(req.ObjectTypes, req.OrbitCodes))
	})
}

type toggleRequest struct {
	Filter string `json:"filter"`
	Value  string `json:"value"`
}

// toggleFilterHandler flips one pending selection without applying it.
// POST /api/v1/sessions/{id}/filters/toggle {"filter":"orbit_codes","value":"LEO"}
func toggleFilterHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req toggleRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Value == "" {
			httputil.WriteError(w, http.StatusBadRequest, "value is required")
			return
		}
		switch req.Filter {
		case "object_types":
			httputil.WriteJSON(w, http.StatusOK, s.ToggleObjectType(req.Value))
		case "orbit_codes":
			httputil.WriteJSON(w, http.StatusOK, s.ToggleOrbitCode(req.Value))
		default:
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter %q, must be object_types or orbit_codes", req.Filter))
		}
	})
}

func applyFiltersHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		httputil.WriteJSON(w, http.StatusOK, s.ApplyFilters())
	})
}

type sortRequest struct {
	Field string `json:"field"`
}

func sortHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req sortRequest
		if !decodeBody(w, r, &req) {
			return
		}
		snap, err := s.Sort(req.Field)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, snap)
	})
}

type categoryRequest struct {
	Name string `json:"name"`
}

func categoryHandler(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req categoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		snap, err := s.SelectCategory(req.Name)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, snap)
	})
}

// reloadHandler drops the cached result for the session's active query and
// fetches it again, so a retry after a failure or a stale result goes upstream.
func reloadHandler(sessions *session.Manager, queryCache *cache.QueryCache) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		queryCache.Invalidate(s.Query())
		s.Reload()
		httputil.WriteJSON(w, http.StatusAccepted, s.Snapshot())
	})
}

func withSession(sessions *session.Manager, fn func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessions.Get(r.PathValue("id"))
		if !ok {
			httputil.WriteError(w, http.StatusNotFound, "session not found")
			return
		}
		fn(w, r, s)
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func intParam(s string, def, lo, hi int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}
