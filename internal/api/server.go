// Package api is the HTTP and WebSocket front of the world. Handlers only
// call the world's public operations and map rejections to status codes;
// no market rule lives here.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aiverse/internal/config"
	"aiverse/internal/metrics"
	"aiverse/internal/world"
	"aiverse/pkg/types"
)

// Server runs the HTTP/WebSocket API.
type Server struct {
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	mx       *metrics.Collector
	logger   *slog.Logger
}

// NewServer wires the routes against a world.
func NewServer(cfg config.Config, w *world.World, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	hub := NewHub(logger)
	s := &Server{
		hub:      hub,
		handlers: NewHandlers(w, hub, logger),
		mx:       metrics.GetCollector(),
		logger:   logger.With("component", "api-server"),
	}

	mux := http.NewServeMux()

	s.route(mux, "GET /api", s.handlers.Info)
	s.route(mux, "GET /state", s.handlers.State)
	s.route(mux, "GET /news", s.handlers.News)

	s.route(mux, "POST /agents/join", s.handlers.Join)
	s.route(mux, "GET /agents", s.handlers.ListAgents)
	s.route(mux, "GET /agents/{id}", s.handlers.GetAgent)
	s.route(mux, "GET /leaderboard", s.handlers.Leaderboard)

	s.route(mux, "POST /companies/create", s.handlers.CreateCompany)
	s.route(mux, "GET /companies", s.handlers.ListCompanies)
	s.route(mux, "GET /companies/{ticker}", s.handlers.GetCompany)
	s.route(mux, "POST /companies/{ticker}/ipo", s.handlers.LaunchIPO)
	s.route(mux, "POST /companies/{ticker}/use", s.handlers.UseService)

	s.route(mux, "POST /orders", s.handlers.SubmitOrder)
	s.route(mux, "GET /market/{ticker}", s.handlers.GetMarket)
	s.route(mux, "GET /trades", s.handlers.Trades)

	// The exposition handler and the upgrade handler instrument themselves.
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", s.handlers.ServeWS)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// route registers a method-qualified pattern with request metrics attached.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.mx.RecordAPIRequest(method, path, strconv.Itoa(rec.status), timer.ElapsedMs())
	})
}

// statusRecorder captures the response code for the request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Start starts the hub and serves until Stop or a listener error.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server, draining in-flight requests.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Broadcast pushes a world event to every connected WebSocket client. The
// runtime installs this as its broadcast hook.
func (s *Server) Broadcast(ev types.WorldEvent) {
	s.hub.BroadcastEvent(ev)
}

// Handler returns the full route table, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
