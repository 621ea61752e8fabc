// Package server provides the HTTP server for the waybar-vd daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig is the active configuration the daemon was started with,
// exposed via /api/config so clients can verify what is in effect.
type RunningConfig struct {
	ConfigFile     string        `json:"config_file,omitempty"`
	SortBy         string        `json:"sort_by"`
	RetryMax       int           `json:"retry_max"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	StartedAt      time.Time     `json:"started_at"`
}

// StateResponse is the /api/state payload: the desktop table plus the
// connection status it was observed under.
type StateResponse struct {
	Desktops []vdesk.VirtualDesktop `json:"desktops"`
	Status   engine.ConnStatus      `json:"status"`
}

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	engine        *engine.Engine
	runningConfig *RunningConfig
	upgrader      websocket.Upgrader
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Origin checks are meaningless on a 0600 unix socket.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetEngine sets the reconciliation engine for the server.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/desktop", s.handleGetDesktop)
	mux.HandleFunc("/api/stream", s.handleStreamState)
	mux.HandleFunc("/api/ws", s.handleWebSocket)
	mux.HandleFunc("/api/switch", s.handleSwitch)
	mux.HandleFunc("/api/reconnect", s.handleReconnect)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/metrics", s.handleGetMetrics)

	s.server = &http.Server{
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleGetState returns the desktop table and connection status as JSON.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	resp := StateResponse{
		Desktops: s.engine.Snapshot(),
		Status:   s.engine.Status(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleGetDesktop queries the compositor for a single desktop by id.
func (s *Server) handleGetDesktop(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	var id int
	if _, err := fmt.Sscanf(r.URL.Query().Get("id"), "%d", &id); err != nil || id < 0 {
		http.Error(w, "invalid desktop id", http.StatusBadRequest)
		return
	}

	desktop, err := s.engine.DescribeDesktop(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(desktop)
}

// handleStreamState provides Server-Sent Events (SSE) for desktop table
// updates. Each event carries a full snapshot; per-client coalescing in the
// engine means a slow consumer sees only the newest state, never a backlog.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot, ch, cancel := s.engine.Subscribe()
	defer cancel()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	// Send current state immediately so the client has data right away.
	initial := engine.Update{Desktops: snapshot, Status: s.engine.Status()}
	if data, err := json.Marshal(initial); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleWebSocket streams the same updates as /api/stream over a websocket,
// for clients that want bidirectional framing instead of SSE.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	snapshot, ch, cancel := s.engine.Subscribe()
	defer cancel()

	s.logger.Debug("WebSocket client connected")

	initial := engine.Update{Desktops: snapshot, Status: s.engine.Status()}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	// Reader goroutine only to detect client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			s.logger.Debug("WebSocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	}
}

// handleSwitch requests activation of a desktop on behalf of a client.
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID < 0 {
		http.Error(w, "invalid desktop id", http.StatusBadRequest)
		return
	}

	if err := s.engine.Switch(r.Context(), req.ID); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"switched": req.ID})
}

// handleReconnect resets the retry budget and triggers an immediate
// connection attempt. Used to recover from the failed state without
// restarting the daemon.
func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.engine.Reconnect()
	s.logger.Info("Manual reconnect requested")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "reconnecting"})
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.runningConfig)
}

// handleGetMetrics returns the engine counters as JSON.
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Metrics())
}

// writeError maps coded errors to HTTP statuses and emits the structured
// error body so clients can branch on the code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeCommandBusy:
		status = http.StatusTooManyRequests
	case errors.ErrCodeCommandRejected:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeSocketConnect, errors.ErrCodeSocketClosed, errors.ErrCodeRetryExhausted:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if vderr, ok := err.(*errors.VdError); ok {
		w.Write([]byte(vderr.ToJSON()))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
