package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"campwatch/pkg/metrics"
	"campwatch/pkg/render"
	"campwatch/pkg/theme"
	"campwatch/pkg/watcher"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	watcher *watcher.Watcher
	board   *render.Board
	theme   *theme.Controller
	metrics *metrics.Metrics
	logger  *log.Logger

	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	router  chi.Router
}

// NewServer wires the HTTP surface. theme and m may be nil.
func NewServer(w *watcher.Watcher, board *render.Board, th *theme.Controller, m *metrics.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		watcher: w,
		board:   board,
		theme:   th,
		metrics: m,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}) })
	r.Get("/ws", s.handleWS)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/reload", s.handleReload)
		r.Post("/refresh/contributions", s.handleRefreshContributions)
		r.Post("/visibility", s.handleVisibility)
		r.Post("/theme/toggle", s.handleThemeToggle)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on port until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	go s.listenToWatcher(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("API server listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) status() map[string]interface{} {
	data := map[string]interface{}{
		"state":   s.watcher.Snapshot(),
		"display": s.board.Snapshot(),
	}
	if s.theme != nil {
		data["theme"] = s.theme.Current()
	}
	return data
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleReload is the manual retry action.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.watcher.Load(r.Context())
	switch {
	case errors.Is(err, watcher.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, watcher.ErrStale):
		writeJSON(w, http.StatusAccepted, s.status())
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, s.status())
	}
}

func (s *Server) handleRefreshContributions(w http.ResponseWriter, r *http.Request) {
	err := s.watcher.RefreshContributions(r.Context())
	switch {
	case errors.Is(err, watcher.ErrNoCampaign):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, watcher.ErrStale):
		writeJSON(w, http.StatusAccepted, s.status())
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, s.status())
	}
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// handleVisibility lets a headless client report whether anyone is watching.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Visible {
		s.watcher.Resume()
	} else {
		s.watcher.Pause()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"paused":        !req.Visible,
		"active_timers": s.watcher.ActiveTimers(),
	})
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		writeError(w, http.StatusNotFound, errors.New("theme not configured"))
		return
	}
	t, err := s.theme.Toggle()
	if err != nil {
		s.logger.Warn("toggle theme", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": string(t)})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Send initial state before registering so broadcasts never interleave.
	initialData := map[string]interface{}{
		"type": "initial",
		"data": s.status(),
	}
	s.mu.Lock()
	err = conn.WriteJSON(initialData)
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToWatcher(ctx context.Context) {
	sub := s.watcher.Subscribe()
	defer s.watcher.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			if event.Type == watcher.EventClockTick {
				continue
			}
			s.broadcast(event)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(event watcher.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(event); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
