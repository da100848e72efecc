// Package server is the thin HTTP adapter over the screening core
// (spec.md §6.2): it decodes requests, dispatches to the collector and
// screening engine, and maps domain error kinds to HTTP statuses. It owns
// no screening or collection logic itself.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stockhunter/internal/collector"
	"github.com/aristath/stockhunter/internal/config"
	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/internal/screening"
	"github.com/aristath/stockhunter/internal/store"
)

// CredentialChecker mints a token for the given credentials without
// disturbing the server's own configured session, for the
// validate-credentials endpoint.
type CredentialChecker func(ctx context.Context, appKey, appSecret string, isProduction bool) error

// UniverseFor resolves the current instrument universe for one market.
type UniverseFor func(market domain.Market) ([]domain.Instrument, error)

// BackfillCollectorFor builds a *collector.Collector wired against a broker
// session minted for the supplied credentials, for a database/initialize
// request that overrides the server's own configured session. May be nil,
// in which case the endpoint rejects any credential override.
type BackfillCollectorFor func(ctx context.Context, appKey, appSecret string, isProduction bool) (*collector.Collector, error)

// Config holds everything the HTTP adapter needs. It owns none of these
// components; main wires them and hands the finished set here.
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	PriceStore  *store.PriceStore
	MasterCache *store.MasterCache
	Meta        *store.DB
	Tracker     *collector.Tracker
	Collector   *collector.Collector
	Engine      *screening.Engine
	Cfg         *config.Config

	CredentialCheck      CredentialChecker
	UniverseFor          UniverseFor
	BackfillCollectorFor BackfillCollectorFor
}

// Server is the HTTP adapter.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	priceStore  *store.PriceStore
	masterCache *store.MasterCache
	meta        *store.DB
	tracker     *collector.Tracker
	collector   *collector.Collector
	engine      *screening.Engine
	cfg         *config.Config

	credentialCheck      CredentialChecker
	universeFor          UniverseFor
	backfillCollectorFor BackfillCollectorFor
}

// New constructs a Server ready to Start.
func New(cfg Config) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		log:             cfg.Log.With().Str("component", "server").Logger(),
		priceStore:      cfg.PriceStore,
		masterCache:     cfg.MasterCache,
		meta:            cfg.Meta,
		tracker:         cfg.Tracker,
		collector:       cfg.Collector,
		engine:          cfg.Engine,
		cfg:             cfg.Cfg,
		credentialCheck:      cfg.CredentialCheck,
		universeFor:          cfg.UniverseFor,
		backfillCollectorFor: cfg.BackfillCollectorFor,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/screen", s.handleScreen)
		r.Post("/validate-credentials", s.handleValidateCredentials)
		r.Get("/stock-codes", s.handleStockCodes)

		r.Post("/us/screen", s.handleUSScreen)
		r.Get("/us/symbols", s.handleUSSymbols)

		r.Route("/database", func(r chi.Router) {
			r.Get("/status", s.handleDatabaseStatus)
			r.Get("/progress", s.handleDatabaseProgress)
			r.Post("/initialize", s.handleDatabaseInitialize)
			r.Post("/update", s.handleDatabaseUpdate)
			r.Post("/sync-stock-names", s.handleSyncStockNames)
			r.Post("/upload-stock-master", s.handleUploadStockMaster)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// instrumentNeedsName reports whether inst is missing a display name, the
// predicate the sync-stock-names operation uses to pick its targets.
func (s *Server) instrumentNeedsName(inst domain.Instrument) bool {
	return inst.Name == ""
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
