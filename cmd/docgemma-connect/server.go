package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/galinilin/docgemma-connect/internal/observability"
	"github.com/galinilin/docgemma-connect/internal/runner"
	"github.com/galinilin/docgemma-connect/internal/sessions"
	"github.com/galinilin/docgemma-connect/internal/tools"
)

// maxAPIRequestBodyBytes bounds request bodies read by decodeJSONRequest.
var maxAPIRequestBodyBytes int64 = 1 << 20

// serverConfig carries the server's collaborators, built once at startup
// in runServe and handed to newServer.
type serverConfig struct {
	Store    sessions.Store
	Runner   *runner.Runner
	Registry *tools.Registry
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// server is the REST + WebSocket Session API (spec §6.1), grounded in
// the teacher's internal/web.Handler route-table shape and
// internal/gateway's WS session pattern.
type server struct {
	cfg      serverConfig
	router   *chi.Mux
	upgrader websocket.Upgrader
}

func newServer(cfg serverConfig) *server {
	s := &server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
		r.Delete("/{id}", s.handleDeleteSession)
		r.Get("/{id}/messages", s.handleGetMessages)
		r.Get("/{id}/ws", s.handleSessionWS)
	})
	r.Get("/tools", s.handleListTools)

	s.router = r
}
