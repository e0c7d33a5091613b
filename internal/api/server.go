// Package api exposes the observer HTTP surface: health, match state, a
// lightweight clock-tick endpoint, and the cancel/reset controls. The API
// only reads the scoreboard and sets markers; it never drives the match loop.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/gambit/internal/agent"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

// Server provides the HTTP observer API.
type Server struct {
	store    *scoreboard.Client
	registry *agent.Registry
	addr     string
	server   *http.Server

	// now is injectable so tick arithmetic is testable.
	now func() time.Time
}

// NewServer creates an observer API server backed by the scoreboard.
func NewServer(store *scoreboard.Client, registry *agent.Registry, addr string) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{store: store, registry: registry, addr: addr, now: time.Now}
}

// Handler returns the route mux, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/api/state", s.stateHandler)
	mux.HandleFunc("/api/tick", s.tickHandler)
	mux.HandleFunc("/api/cancel", s.cancelHandler)
	mux.HandleFunc("/api/reset", s.resetHandler)
	mux.HandleFunc("/api/agents", s.agentsHandler)
	return mux
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("API server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
	Error  string `json:"error,omitempty"`
}

// healthHandler handles GET /healthz.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{Status: "healthy"}
	if err := s.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Redis = "connected"
	writeJSON(w, http.StatusOK, response)
}

// StateResponse is the frontend-facing match state, camelCase.
type StateResponse struct {
	MatchID     string        `json:"matchId"`
	FEN         string        `json:"fen"`
	MoveHistory []string      `json:"moveHistory"`
	WhiteName   string        `json:"whiteName"`
	BlackName   string        `json:"blackName"`
	Status      string        `json:"status"`
	Outcome     *OutcomeJSON  `json:"outcome,omitempty"`
	MoveLog     []MoveLogJSON `json:"moveLog"`
	Attempts    []AttemptJSON `json:"forfeitAttempts,omitempty"`
}

// OutcomeJSON mirrors scoreboard.Outcome in camelCase.
type OutcomeJSON struct {
	TerminationReason string `json:"terminationReason"`
	Winner            string `json:"winner,omitempty"`
}

// MoveLogJSON is one applied move for the frontend. The full transcript is
// deliberately omitted from the state payload; it stays in the durable record.
type MoveLogJSON struct {
	Move        string `json:"move"`
	Side        string `json:"side"`
	AgentName   string `json:"agentName"`
	Explanation string `json:"explanation"`
}

// AttemptJSON is one rejected attempt from a forfeited final turn.
type AttemptJSON struct {
	Response string `json:"response"`
	Reason   string `json:"reason"`
}

// stateHandler handles GET /api/state?match=<id>.
// Clock values are served by /api/tick, not here.
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, ok := s.loadMatch(w, r)
	if !ok {
		return
	}

	resp := StateResponse{
		MatchID:     state.MatchID,
		FEN:         state.FEN,
		MoveHistory: state.MoveHistory,
		WhiteName:   state.WhiteName,
		BlackName:   state.BlackName,
		Status:      string(state.Status),
		MoveLog:     make([]MoveLogJSON, 0, len(state.MoveLog)),
	}
	if state.Outcome != nil {
		resp.Outcome = &OutcomeJSON{
			TerminationReason: state.Outcome.TerminationReason,
			Winner:            state.Outcome.Winner,
		}
	}
	for _, entry := range state.MoveLog {
		resp.MoveLog = append(resp.MoveLog, MoveLogJSON{
			Move:        entry.Move,
			Side:        entry.Side,
			AgentName:   entry.AgentName,
			Explanation: entry.Explanation,
		})
	}
	for _, attempt := range state.ForfeitAttempts {
		resp.Attempts = append(resp.Attempts, AttemptJSON{
			Response: attempt.Response,
			Reason:   attempt.Reason,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// TickResponse carries live clock values for fast polling.
type TickResponse struct {
	WhiteRemainingSeconds *float64 `json:"whiteRemainingSeconds"`
	BlackRemainingSeconds *float64 `json:"blackRemainingSeconds"`
	IsOver                bool     `json:"isGameOver"`
	TerminationReason     string   `json:"terminationReason,omitempty"`
	Winner                string   `json:"winner,omitempty"`
}

// tickHandler handles GET /api/tick?match=<id>.
//
// Remaining times are advanced on read from the persisted values and the
// last-update timestamp, so polling every second sees moving clocks without
// the match process writing every second. The durable record is never
// touched here. A computed value at or below zero reports the match as over
// on time even before the engine has persisted that verdict.
func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, ok := s.loadMatch(w, r)
	if !ok {
		return
	}

	resp := TickResponse{IsOver: state.Status.Terminal()}
	if state.Outcome != nil {
		resp.TerminationReason = state.Outcome.TerminationReason
		resp.Winner = state.Outcome.Winner
	}

	white := remainingSeconds(state.WhiteRemainingMs)
	black := remainingSeconds(state.BlackRemainingMs)

	if !resp.IsOver && (white != nil || black != nil) && state.LastTimerUpdateMs > 0 {
		side := sideToMoveFromFEN(state.FEN)
		sideStarted := (side == "White" && state.WhiteClockStarted) ||
			(side == "Black" && state.BlackClockStarted)
		if sideStarted {
			elapsed := s.now().Sub(time.UnixMilli(state.LastTimerUpdateMs)).Seconds()
			if elapsed > 0 {
				if side == "White" && white != nil {
					*white = max(0, *white-elapsed)
				} else if side == "Black" && black != nil {
					*black = max(0, *black-elapsed)
				}
			}
		}

		if white != nil && *white <= 0 {
			resp.IsOver = true
			resp.TerminationReason = "time"
			resp.Winner = state.BlackName
		} else if black != nil && *black <= 0 {
			resp.IsOver = true
			resp.TerminationReason = "time"
			resp.Winner = state.WhiteName
		}
	}

	resp.WhiteRemainingSeconds = white
	resp.BlackRemainingSeconds = black
	writeJSON(w, http.StatusOK, resp)
}

// cancelHandler handles POST /api/cancel?match=<id>.
// Setting the marker is idempotent; the running engine observes it
// cooperatively.
func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matchID := matchParam(r)
	if matchID == "" {
		http.Error(w, "match parameter is required", http.StatusBadRequest)
		return
	}

	if err := s.store.RequestCancel(r.Context(), matchID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "cancel_requested",
		"matchId": matchID,
	})
}

// resetHandler handles POST /api/reset?match=<id>.
// Atomically replaces the match record with a fresh one and clears any
// cancellation marker.
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matchID := matchParam(r)
	if matchID == "" {
		http.Error(w, "match parameter is required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.Reset(r.Context(), matchID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "reset",
		"matchId": matchID,
	})
}

// AgentJSON describes one selectable agent.
type AgentJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// agentsHandler handles GET /api/agents.
func (s *Server) agentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agents := []AgentJSON{}
	if s.registry != nil {
		for _, gw := range s.registry.All() {
			agents = append(agents, AgentJSON{ID: gw.ID(), Name: gw.Name()})
		}
	}
	writeJSON(w, http.StatusOK, agents)
}

// loadMatch reads the match record named by the request, writing the HTTP
// error itself when that fails.
func (s *Server) loadMatch(w http.ResponseWriter, r *http.Request) (*scoreboard.MatchState, bool) {
	matchID := matchParam(r)
	if matchID == "" {
		http.Error(w, "match parameter is required", http.StatusBadRequest)
		return nil, false
	}

	state, err := s.store.LoadState(r.Context(), matchID)
	if err != nil {
		if scoreboard.IsNotFound(err) {
			http.Error(w, fmt.Sprintf("no match with ID %q", matchID), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return state, true
}

func matchParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("match"))
}

func remainingSeconds(ms *int64) *float64 {
	if ms == nil {
		return nil
	}
	secs := float64(*ms) / 1000
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// sideToMoveFromFEN reads the active-color field of a FEN string.
func sideToMoveFromFEN(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) >= 2 && strings.EqualFold(parts[1], "b") {
		return "Black"
	}
	return "White"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
