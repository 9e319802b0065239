// Package server exposes explorer sessions over HTTP: JSON endpoints for
// every panel command, GeoJSON per layer, and live streams of layer and
// snapshot changes over websocket or server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/metrics"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/search"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
)

// Searcher runs free-text place searches.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]search.Place, error)
}

// Config configures a Server.
type Config struct {
	Sessions SessionConfig
	Search   Searcher
	Logger   *slog.Logger
	// SearchTimeout bounds one search request (default: 15s)
	SearchTimeout time.Duration
}

// Server serves explorer sessions.
type Server struct {
	sessions      *Sessions
	search        Searcher
	logger        *slog.Logger
	searchTimeout time.Duration
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sessions.Logger == nil {
		cfg.Sessions.Logger = cfg.Logger
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 15 * time.Second
	}
	return &Server{
		sessions:      NewSessions(cfg.Sessions),
		search:        cfg.Search,
		logger:        cfg.Logger.With("component", "server"),
		searchTimeout: cfg.SearchTimeout,
	}
}

// Sessions returns the session registry.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Close stops every session.
func (s *Server) Close() { s.sessions.CloseAll() }

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /v1/basemaps", s.listBasemaps)
	mux.HandleFunc("GET /v1/levels", s.listLevels)
	mux.HandleFunc("GET /v1/search", s.searchPlaces)

	mux.HandleFunc("POST /v1/sessions", s.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.withSession(s.getSession))
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/state", s.withSession(s.selectState))
	mux.HandleFunc("POST /v1/sessions/{id}/district", s.withSession(s.selectDistrict))
	mux.HandleFunc("POST /v1/sessions/{id}/level", s.withSession(s.setLevel))
	mux.HandleFunc("POST /v1/sessions/{id}/basemap", s.withSession(s.setBasemap))
	mux.HandleFunc("POST /v1/sessions/{id}/start", s.withSession(s.setStart))
	mux.HandleFunc("POST /v1/sessions/{id}/end", s.withSession(s.setEnd))
	mux.HandleFunc("POST /v1/sessions/{id}/pick", s.withSession(s.pickPlace))
	mux.HandleFunc("POST /v1/sessions/{id}/toggles", s.withSession(s.setToggles))
	mux.HandleFunc("DELETE /v1/sessions/{id}/route", s.withSession(s.clearRoute))
	mux.Handle("GET /v1/sessions/{id}/layers/{layer}", withGzip(s.withSession(s.getLayer)))
	mux.HandleFunc("GET /v1/sessions/{id}/ws", s.withSession(s.serveWS))
	mux.HandleFunc("GET /v1/sessions/{id}/events", s.withSession(s.serveEvents))

	return withCORS(accessLog(s.logger, mux))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r.PathValue("id"))
		if !ok {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}

type sessionResponse struct {
	Snapshot any    `json:"snapshot"`
	ID       string `json:"id"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.URL.RawQuery)
	respondJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Snapshot: sess.Panel.Snapshot()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sess *Session) {
	respondJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Panel.Snapshot()})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idRequest struct {
	ID *int64 `json:"id"`
}

func (s *Server) selectState(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := decodeID(w, r)
	if !ok {
		return
	}
	sess.Panel.SelectState(id)
	accepted(w)
}

func (s *Server) selectDistrict(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := decodeID(w, r)
	if !ok {
		return
	}
	if id != 0 && sess.Panel.Snapshot().Selection.StateID == 0 {
		respondError(w, http.StatusConflict, selection.ErrInvalidSelection.Error()+": select a state first")
		return
	}
	sess.Panel.SelectDistrict(id)
	accepted(w)
}

func decodeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req idRequest
	if !decodeBody(w, r, &req) {
		return 0, false
	}
	if req.ID == nil || *req.ID < 0 {
		respondError(w, http.StatusBadRequest, "id must be a relation id, or 0 to clear")
		return 0, false
	}
	return *req.ID, true
}

type levelRequest struct {
	Level selection.Level `json:"level"`
}

func (s *Server) setLevel(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req levelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := selection.LookupLevel(req.Level); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Panel.SetLevel(req.Level)
	accepted(w)
}

type basemapRequest struct {
	Basemap string `json:"basemap"`
}

func (s *Server) setBasemap(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req basemapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := selection.LookupBasemap(req.Basemap); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Panel.SetBasemap(req.Basemap)
	accepted(w)
}

func decodePoint(w http.ResponseWriter, r *http.Request) (types.LatLon, bool) {
	var p types.LatLon
	if !decodeBody(w, r, &p) {
		return p, false
	}
	if !p.Valid() {
		respondError(w, http.StatusBadRequest, "lat/lon out of range")
		return p, false
	}
	return p, true
}

func (s *Server) setStart(w http.ResponseWriter, r *http.Request, sess *Session) {
	p, ok := decodePoint(w, r)
	if !ok {
		return
	}
	sess.Panel.SetStart(p)
	accepted(w)
}

func (s *Server) setEnd(w http.ResponseWriter, r *http.Request, sess *Session) {
	p, ok := decodePoint(w, r)
	if !ok {
		return
	}
	sess.Panel.SetEnd(p)
	accepted(w)
}

func (s *Server) pickPlace(w http.ResponseWriter, r *http.Request, sess *Session) {
	var pl search.Place
	if !decodeBody(w, r, &pl) {
		return
	}
	if !pl.LatLon().Valid() {
		respondError(w, http.StatusBadRequest, "lat/lon out of range")
		return
	}
	sess.Panel.PickPlace(pl)
	accepted(w)
}

type togglesRequest struct {
	PointMode *render.PointMode `json:"point_mode"`
	Heat      *bool             `json:"heat"`
}

func (s *Server) setToggles(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req togglesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PointMode != nil && !req.PointMode.Valid() {
		respondError(w, http.StatusBadRequest, "point_mode must be cluster or dots")
		return
	}
	if req.PointMode != nil {
		sess.Panel.SetPointMode(*req.PointMode)
	}
	if req.Heat != nil {
		sess.Panel.SetHeat(*req.Heat)
	}
	accepted(w)
}

func (s *Server) clearRoute(w http.ResponseWriter, r *http.Request, sess *Session) {
	sess.Panel.ClearRoute()
	accepted(w)
}

func (s *Server) getLayer(w http.ResponseWriter, r *http.Request, sess *Session) {
	layer, err := geojson.ParseLayer(r.PathValue("layer"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	data, err := geojson.Marshal(sess.Surface.Layer(layer))
	if err != nil {
		s.logger.Error("failed to encode layer", "layer", layer, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to encode layer")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

type basemapsResponse struct {
	Default  string              `json:"default"`
	Basemaps []selection.Basemap `json:"basemaps"`
}

func (s *Server) listBasemaps(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, basemapsResponse{Default: selection.DefaultBasemap, Basemaps: selection.Basemaps()})
}

type levelResponse struct {
	Key   selection.Level `json:"key"`
	Label string          `json:"label"`
}

func (s *Server) listLevels(w http.ResponseWriter, r *http.Request) {
	var out []levelResponse
	for _, li := range selection.Levels() {
		out = append(out, levelResponse{Key: li.Key, Label: li.Label})
	}
	respondJSON(w, http.StatusOK, out)
}

type searchResponse struct {
	Places []search.Place `json:"places"`
}

func (s *Server) searchPlaces(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.searchTimeout)
	defer cancel()

	places, err := s.search.Search(ctx, r.URL.Query().Get("q"), limit)
	if err != nil {
		s.logger.Warn("search failed", "error", err)
		respondError(w, http.StatusBadGateway, "search is unavailable")
		return
	}
	respondJSON(w, http.StatusOK, searchResponse{Places: places})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func accepted(w http.ResponseWriter) {
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
