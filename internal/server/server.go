// Package server exposes the game over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"fingle/internal/config"
	"fingle/internal/notify"
	"fingle/internal/service"
)

// Route paths.
const (
	RouteHealth      = "/api/health"
	RouteChallenges  = "/api/challenges"
	RouteReceived    = "/api/challenges/received"
	RouteSent        = "/api/challenges/sent"
	RouteCheckCount  = "/api/challenges/{id}/check-count"
	RouteGuess       = "/api/challenges/{id}/guess"
	RouteLeaderboard = "/api/leaderboard"
	RoutePhoto       = "/api/photos/{id}"
	RouteWebsocket   = "/ws"
)

// Deps bundles what the HTTP layer needs from the rest of the application.
type Deps struct {
	Challenges  *service.ChallengeService
	Leaderboard *service.LeaderboardService
	Users       service.UserStore
	Photos      PhotoSource
	Hub         *notify.Hub
	Verifier    *TokenVerifier
	Health      HealthChecker
}

// Server is the HTTP front end.
type Server struct {
	cfg         config.ServerConfig
	challenges  *service.ChallengeService
	leaderboard *service.LeaderboardService
	photos      PhotoSource
	hub         *notify.Hub
	health      HealthChecker

	maxPhotoBytes int64
	handler       http.Handler
	httpServer    *http.Server
}

// New builds the router. maxPhotoBytes bounds multipart uploads.
func New(cfg config.ServerConfig, maxPhotoBytes int64, deps Deps) *Server {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = service.DefaultMaxPhotoBytes
	}
	s := &Server{
		cfg:           cfg,
		challenges:    deps.Challenges,
		leaderboard:   deps.Leaderboard,
		photos:        deps.Photos,
		hub:           deps.Hub,
		health:        deps.Health,
		maxPhotoBytes: maxPhotoBytes,
	}

	router := mux.NewRouter()
	router.Use(RecoveryMiddleware, LoggingMiddleware)

	// Public routes
	router.HandleFunc(RouteHealth, s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc(RoutePhoto, s.handlePhoto).Methods(http.MethodGet)

	// Authenticated routes
	secured := router.NewRoute().Subrouter()
	secured.Use(AuthMiddleware(deps.Verifier, deps.Users))
	secured.HandleFunc(RouteChallenges, s.handleCreateChallenge).Methods(http.MethodPost)
	secured.HandleFunc(RouteReceived, s.handleReceived).Methods(http.MethodGet)
	secured.HandleFunc(RouteSent, s.handleSent).Methods(http.MethodGet)
	secured.HandleFunc(RouteCheckCount, s.handleCheckCount).Methods(http.MethodPost)
	secured.HandleFunc(RouteGuess, s.handleGuess).Methods(http.MethodPost)
	secured.HandleFunc(RouteLeaderboard, s.handleLeaderboard).Methods(http.MethodGet)
	secured.HandleFunc(RouteWebsocket, s.handleWebsocket).Methods(http.MethodGet)

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	s.handler = co.Handler(router)

	return s
}

// Handler returns the root handler, including CORS.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until the server
// stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	log.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes websocket connections.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP server...")
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
