package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ambient/internal/dayphase"
	"ambient/internal/engine"
	"ambient/internal/geo"
	"ambient/internal/season"
	"ambient/internal/solar"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// Preferences persists the settings the API can change
type Preferences interface {
	SetHemisphere(season.Hemisphere) error
	SaveDebug(engine.DebugState) error
}

// Server provides HTTP API endpoints for the environment engine
type Server struct {
	engine      *engine.Engine
	prefs       Preferences
	hub         *Hub
	logger      *zap.Logger
	server      *http.Server
	unsubscribe func()

	// debugMu keeps saved debug overrides in the order they were applied
	debugMu sync.Mutex
}

// NewServer creates a new API server
func NewServer(eng *engine.Engine, prefs Preferences, logger *zap.Logger, port int) *Server {
	s := &Server{
		engine: eng,
		prefs:  prefs,
		hub:    NewHub(logger),
		logger: logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/environment", s.handleGetEnvironment)
	mux.HandleFunc("/api/solar", s.handleGetSolar)
	mux.HandleFunc("/api/debug", s.handleDebug)
	mux.HandleFunc("/api/debug/cycle", s.handleDebugCycle)
	mux.HandleFunc("/api/hemisphere", s.handleHemisphere)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the route multiplexer, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleGetEnvironment returns every engine output as JSON
func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.State())

	s.logger.Debug("Environment request served",
		zap.String("remote_addr", r.RemoteAddr))
}

// SolarResponse represents the JSON response for the solar endpoint
type SolarResponse struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Sunrise    time.Time      `json:"sunrise"`
	Sunset     time.Time      `json:"sunset"`
	DayLength  string         `json:"day_length"`
	Polar      solar.Polar    `json:"polar"`
	Moonrise   time.Time      `json:"moonrise"`
	Moonset    time.Time      `json:"moonset"`
}

// handleGetSolar returns today's sun times and moon window
func (s *Server) handleGetSolar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	times := s.engine.SolarTimes()
	moon := s.engine.MoonWindow()

	s.writeJSON(w, http.StatusOK, SolarResponse{
		Coordinate: s.engine.Coordinate(),
		Sunrise:    times.Sunrise,
		Sunset:     times.Sunset,
		DayLength:  times.DayLength().String(),
		Polar:      times.Polar,
		Moonrise:   moon.Moonrise,
		Moonset:    moon.Moonset,
	})
}

// DebugRequest updates the debug override. Omitted fields keep their value.
type DebugRequest struct {
	Enabled *bool                `json:"enabled"`
	Period  *dayphase.TimePeriod `json:"period"`
}

// handleDebug returns (GET) or changes (POST) the debug override
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.engine.Debug())

	case http.MethodPost:
		var req DebugRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}

		s.debugMu.Lock()
		next, err := s.engine.UpdateDebug(req.Enabled, req.Period)
		if err == nil {
			s.persistDebug(next)
		}
		s.debugMu.Unlock()

		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, next)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDebugCycle advances the debug period to the next one
func (s *Server) handleDebugCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.debugMu.Lock()
	next := s.engine.CycleDebug()
	s.persistDebug(next)
	s.debugMu.Unlock()

	s.writeJSON(w, http.StatusOK, next)
}

func (s *Server) persistDebug(d engine.DebugState) {
	if err := s.prefs.SaveDebug(d); err != nil {
		s.logger.Error("Failed to persist debug override", zap.Error(err))
	}
}

// HemisphereRequest changes the hemisphere preference
type HemisphereRequest struct {
	Hemisphere string `json:"hemisphere" validate:"required"`
}

// HemisphereResponse reports the hemisphere preference and the season it implies
type HemisphereResponse struct {
	Hemisphere season.Hemisphere `json:"hemisphere"`
	Season     season.Season     `json:"season"`
}

// handleHemisphere returns (GET) or changes (PUT) the hemisphere preference
func (s *Server) handleHemisphere(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st := s.engine.State()
		s.writeJSON(w, http.StatusOK, HemisphereResponse{Hemisphere: st.Hemisphere, Season: st.Season})

	case http.MethodPut:
		var req HemisphereRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
		if err := validate.Struct(req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h, err := season.ParseHemisphere(req.Hemisphere)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := s.prefs.SetHemisphere(h); err != nil {
			s.logger.Error("Failed to save hemisphere", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to save hemisphere")
			return
		}

		st := s.engine.Refresh()
		s.writeJSON(w, http.StatusOK, HemisphereResponse{Hemisphere: st.Hemisphere, Season: st.Season})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.hub.ServeWS(w, r, s.engine.State())
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"clients":     s.hub.Count(),
		"time_of_day": s.engine.TimeOfDay(),
	})
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap - lists all available API endpoints"},
	{Path: "/health", Method: "GET", Description: "Health check endpoint - returns {\"status\": \"ok\"}"},
	{Path: "/api/environment", Method: "GET", Description: "Current period, season, progress, lighting and fauna values"},
	{Path: "/api/solar", Method: "GET", Description: "Today's sunrise, sunset and moon window"},
	{Path: "/api/debug", Method: "GET, POST", Description: "Read or set the debug override: {\"enabled\": true, \"period\": \"midnight\"}"},
	{Path: "/api/debug/cycle", Method: "POST", Description: "Advance the debug period to the next one"},
	{Path: "/api/hemisphere", Method: "GET, PUT", Description: "Read or set the hemisphere: {\"hemisphere\": \"southern\"}"},
	{Path: "/ws", Method: "GET", Description: "WebSocket stream of the environment, pushed every tick"},
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	// Only handle requests to the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accept := r.Header.Get("Accept")
	preferHTML := strings.Contains(accept, "text/html")

	if preferHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Ambient Environment API</title>
    <style>
        body { font-family: monospace; margin: 40px; background: #1e1e1e; color: #d4d4d4; }
        h1 { color: #4ec9b0; }
        .endpoint { background: #2d2d2d; padding: 15px; margin: 10px 0; border-left: 3px solid #007acc; }
        .method { color: #4ec9b0; font-weight: bold; }
        .path { color: #ce9178; }
        .description { color: #9cdcfe; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Ambient Environment API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(w, `    <div class="endpoint">
        <div><span class="method">%s</span> <span class="path">%s</span></div>
        <div class="description">%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprintf(w, "</body>\n</html>\n")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Ambient Environment API\n")
		fmt.Fprintf(w, "=======================\n\n")
		fmt.Fprintf(w, "Available endpoints:\n\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-10s %-20s %s\n", ep.Method, ep.Path, ep.Description)
		}
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("html_format", preferHTML))
}

// Start subscribes the websocket hub to engine ticks and begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	s.unsubscribe = s.engine.OnTick(s.hub.Broadcast)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server and disconnects websocket clients
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
