package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/transferlog/internal/config"
	"github.com/saltyorg/transferlog/internal/history"
	"github.com/saltyorg/transferlog/internal/web/handlers"
	"github.com/saltyorg/transferlog/internal/web/middleware"
)

// Options configures the web server
type Options struct {
	Port          int
	Bind          string
	AllowedNet    *net.IPNet
	StatisticDays int
	Version       string
}

// Server represents the web server
type Server struct {
	history    *history.Oper
	apiKeys    middleware.KeyValidator
	port       int
	bind       string
	allowedNet *net.IPNet
	router     *chi.Mux
	handlers   *handlers.Handlers
}

// NewServer creates a new web server
func NewServer(oper *history.Oper, apiKeys middleware.KeyValidator, opts Options) *Server {
	s := &Server{
		history:    oper,
		apiKeys:    apiKeys,
		port:       opts.Port,
		bind:       opts.Bind,
		allowedNet: opts.AllowedNet,
		router:     chi.NewRouter(),
		handlers:   handlers.New(oper, opts.StatisticDays, opts.Version),
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.GetTimeouts().Request))

	r.Get("/health", h.Health)

	r.Route("/api/v1/history/transfer", func(r chi.Router) {
		if s.apiKeys != nil {
			r.Use(middleware.APIKey(s.apiKeys))
		}

		r.Get("/", h.ListTransfers)
		r.Delete("/", h.TruncateTransfers)
		r.Get("/statistic", h.TransferStatistic)
		r.Get("/storages", h.ListStorages)
		r.Get("/by-src", h.GetTransferBySrc)
		r.Get("/by-dest", h.GetTransferByDest)
		r.Get("/by-hash/{hash}", h.ListTransfersByHash)
		r.Get("/by-title", h.ListTransfersByTitle)
		r.Get("/since", h.ListTransfersSince)
		r.Get("/query", h.QueryTransfers)
		r.Get("/by-tmdbid", h.GetTransferByTmdbID)
		r.Post("/success", h.RecordSuccess)
		r.Post("/fail", h.RecordFailure)
		r.Get("/{id}", h.GetTransfer)
		r.Delete("/{id}", h.DeleteTransfer)
		r.Put("/{id}/download-hash", h.UpdateDownloadHash)
	})
}

// Start starts the web server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	timeouts := config.GetTimeouts()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: timeouts.ReadHeader,
		// ReadTimeout is for reading request body
		ReadTimeout: 15 * time.Second,
		// IdleTimeout for keep-alive connections between requests
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
