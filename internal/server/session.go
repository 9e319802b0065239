package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/mappanel"
	"github.com/MeKo-Tech/geoexplorer/internal/metrics"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/google/uuid"
	orbjson "github.com/paulmach/orb/geojson"
)

// Message is one frame pushed to live clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// LayerPayload carries one surface change.
type LayerPayload struct {
	Data    *orbjson.FeatureCollection `json:"data,omitempty"`
	Op      render.OpKind              `json:"op"`
	Layer   geojson.LayerID            `json:"layer,omitempty"`
	Basemap *selection.Basemap         `json:"basemap,omitempty"`
	Bounds  *types.BoundingBox         `json:"bounds,omitempty"`
	Center  *types.LatLon              `json:"center,omitempty"`
	Zoom    uint32                     `json:"zoom,omitempty"`
}

// Client is one live subscriber of a session.
type Client struct {
	Send chan []byte
	ID   string
}

func newClient(bufferSize int) *Client {
	return &Client{ID: uuid.New().String(), Send: make(chan []byte, bufferSize)}
}

// Session is one explorer map served over HTTP.
type Session struct {
	Created time.Time
	Panel   *mappanel.Panel
	Surface *render.MemorySurface
	cancel  context.CancelFunc
	logger  *slog.Logger
	clients map[*Client]struct{}
	ID      string
	mu      sync.Mutex
}

func (s *Session) subscribe(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) unsubscribe(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Session) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast fans msg out to every client. Slow clients drop frames.
func (s *Session) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to encode message", "type", msg.Type, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.Send <- data:
		default:
			s.logger.Debug("client buffer full, dropping message", "client_id", c.ID, "type", msg.Type)
		}
	}
}

func layerPayload(op render.Op) LayerPayload {
	p := LayerPayload{
		Op:     op.Kind,
		Layer:  op.Layer,
		Data:   op.Data,
		Bounds: op.Bounds,
		Center: op.Center,
		Zoom:   op.Zoom,
	}
	if op.Kind == render.OpReplace && p.Data == nil {
		p.Data = orbjson.NewFeatureCollection()
	}
	if op.Basemap != "" {
		if b, err := selection.LookupBasemap(op.Basemap); err == nil {
			p.Basemap = &b
		}
	}
	return p
}

// SessionConfig is what every new session is built from.
type SessionConfig struct {
	Geo         mappanel.GeoSource
	Router      mappanel.RouteSource
	Logger      *slog.Logger
	CountryCode string
	Render      render.Options
}

// Sessions keeps the live sessions in memory.
type Sessions struct {
	cfg      SessionConfig
	logger   *slog.Logger
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessions creates an empty registry.
func NewSessions(cfg SessionConfig) *Sessions {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sessions{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a session whose selection is decoded from query and loads
// its state list.
func (r *Sessions) Create(query string) *Session {
	id := uuid.New().String()
	logger := r.cfg.Logger.With("session_id", id)

	surface := render.NewMemorySurface(false)
	panel := mappanel.New(mappanel.Config{
		Geo:         r.cfg.Geo,
		Router:      r.cfg.Router,
		Surface:     surface,
		Logger:      logger,
		CountryCode: r.cfg.CountryCode,
		Initial:     selection.DecodeQuery(query),
		Render:      r.cfg.Render,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      id,
		Created: time.Now(),
		Panel:   panel,
		Surface: surface,
		cancel:  cancel,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}

	surface.OnOp(func(op render.Op) {
		s.broadcast(Message{Type: "layer", Payload: layerPayload(op)})
	})
	panel.OnChange(func(snap mappanel.Snapshot) {
		s.broadcast(Message{Type: "snapshot", Payload: snap})
	})

	go panel.Run(ctx)
	panel.Init()

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()

	logger.Info("session created", "query", query)
	return s
}

// Get returns the session with id.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete stops and forgets a session. It reports whether one existed.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.stop(s)
	return true
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll stops every session.
func (r *Sessions) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		r.stop(s)
	}
}

func (r *Sessions) stop(s *Session) {
	s.cancel()
	<-s.Panel.Done()

	s.mu.Lock()
	for c := range s.clients {
		close(c.Send)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	metrics.ActiveSessions.Dec()
	s.logger.Info("session closed", "age", time.Since(s.Created).Round(time.Second).String())
}
