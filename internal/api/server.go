package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
	"github.com/streamshield/streamshield/internal/player"
)

// Server is the HTTP control surface: REST commands in, WebSocket pushes
// out. It implements player.ControlSurface.
type Server struct {
	router   *mux.Router
	player   *player.Player
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*websocket.Conn
}

// errNoPlayer answers requests arriving before the player is attached.
var errNoPlayer = errors.New("player not attached")

// event is one pushed control-surface update.
type event struct {
	Type   string  `json:"type"`
	Value  float64 `json:"value,omitempty"`
	Origin string  `json:"origin,omitempty"`
	Text   string  `json:"text,omitempty"`
	ID     string  `json:"id,omitempty"`
	Label  string  `json:"label,omitempty"`
}

// NewServer creates the API server. The player is attached afterwards:
// the server is the player's control surface, so it must exist first.
func NewServer() *Server {
	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*websocket.Conn),
	}
	s.setupRoutes()
	return s
}

// AttachPlayer wires the player the handlers drive. Must be called before
// Start.
func (s *Server) AttachPlayer(p *player.Player) {
	s.mu.Lock()
	s.player = p
	s.mu.Unlock()
}

func (s *Server) getPlayer() *player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/playback/play", s.handlePlay).Methods("POST")
	api.HandleFunc("/playback/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/playback/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/playback/seek", s.handleSeek).Methods("POST")

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/streams", s.handleStreams).Methods("GET")
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods("GET")

	api.HandleFunc("/filters", s.handleGetFilters).Methods("GET")
	api.HandleFunc("/filters/{id}/toggle", s.handleToggleFilter).Methods("POST")

	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router exposes the handler for serving and for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start runs the HTTP server on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Control surface listening")
	return http.ListenAndServe(addr, s.router)
}

// --- ControlSurface ---

// SetRange propagates a newly discovered duration to connected clients.
func (s *Server) SetRange(max float64) {
	s.broadcast(event{Type: "range", Value: max})
}

// SetPosition pushes the current position. The origin travels with the
// value; only user-origin values may ever be routed into a seek, and the
// server's only seek path is the REST seek endpoint, so pushed refreshes
// cannot feed back.
func (s *Server) SetPosition(value float64, origin player.Origin) {
	s.broadcast(event{Type: "position", Value: value, Origin: origin.String()})
}

// SetReport replaces the stream metadata report on connected clients.
func (s *Server) SetReport(text string) {
	s.broadcast(event{Type: "report", Text: text})
}

// SetToggleLabel updates a filter toggle's label on connected clients.
func (s *Server) SetToggleLabel(id, label string) {
	s.broadcast(event{Type: "toggle", ID: id, Label: label})
}

func (s *Server) broadcast(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, conn := range s.clients {
		if err := conn.WriteJSON(ev); err != nil {
			logger.WithComponent("api").Debug().
				Str("client", id.String()).
				Err(err).
				Msg("Dropping websocket client")
			conn.Close()
			delete(s.clients, id)
		}
	}
}

// --- Handlers ---

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	if err := p.Ctrl.RequestPlay(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	if err := p.Ctrl.RequestPause(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	if err := p.Ctrl.RequestStop(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid seek request: %w", err))
		return
	}

	// The REST endpoint is the only entry into the seek path, so every
	// seek is user-initiated by construction.
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	if err := p.Tracker.RequestSeek(req.Position); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	state := p.Ctrl.State()

	resp := map[string]interface{}{
		"state": state.String(),
	}
	if pos, ok := p.Tracker.Position(); ok {
		resp["position"] = pos.Seconds()
	}
	if dur, ok := p.Tracker.Duration(); ok {
		resp["duration"] = dur.Seconds()
	}
	if lastErr := p.LastError(); lastErr != "" {
		resp["last_error"] = lastErr
	}
	writeJSON(w, resp)
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, p.Meta.Report())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil || p.Ctrl.State() < graph.StatePaused {
		writeSnapshot(w, "NO SIGNAL")
		return
	}
	// At Paused and above the sink renders directly into the overlay
	// window.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	type filterView struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
		Label   string `json:"label"`
	}

	toggles := p.Toggles.List()
	out := make([]filterView, 0, len(toggles))
	for _, ft := range toggles {
		out = append(out, filterView{ID: ft.ID, Enabled: ft.Enabled, Label: ft.Label()})
	}
	writeJSON(w, out)
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	p := s.getPlayer()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPlayer)
		return
	}
	id := mux.Vars(r)["id"]
	if err := p.Toggles.Toggle(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	ft, _ := p.Toggles.Get(id)
	writeJSON(w, map[string]interface{}{
		"id":      ft.ID,
		"enabled": ft.Enabled,
		"label":   ft.Label(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	id := uuid.New()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()

	logger.WithComponent("api").Debug().Str("client", id.String()).Msg("Websocket client connected")

	// Reader loop only to detect disconnect; clients send nothing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				if c, ok := s.clients[id]; ok {
					c.Close()
					delete(s.clients, id)
				}
				s.mu.Unlock()
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
