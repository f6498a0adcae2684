// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/feed"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/link"
	"github.com/zcomx/zcomix/internal/platform/config"
	"github.com/zcomx/zcomix/internal/platform/constants"
	"github.com/zcomx/zcomix/internal/platform/middleware"
	"github.com/zcomx/zcomix/internal/release"
	"github.com/zcomx/zcomix/internal/torrent"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Book handles the catalogue, the page ledger, and archive downloads.
	Book *book.Handler

	// Release drives the release and unrelease pipeline endpoints.
	Release *release.Handler

	// Creator manages creator profiles, portraits, and indicia.
	Creator *creator.Handler

	// Link manages the ordered link lists attached to books and creators.
	Link *link.Handler

	// Feed serves the RSS channels.
	Feed *feed.Handler

	// Torrent serves torrent downloads.
	Torrent *torrent.Handler

	// Image streams stored image derivatives.
	Image *image.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Management and discovery route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		books := h.Book.Routes()
		h.Release.Register(books)
		books.Mount("/{ownerID}/links", h.Link.Routes(link.OwnerBook))
		api.Mount("/books", books)

		creators := h.Creator.Routes()
		creators.Mount("/{ownerID}/links", h.Link.Routes(link.OwnerCreator))
		api.Mount("/creators", creators)
	})

	// # Distribution Endpoints
	// Public artifact URLs. These appear verbatim in generated documents
	// (feed enclosures, torrent links), so they stay unversioned.
	r.Mount("/rss", h.Feed.Routes())
	r.Mount("/torrent", h.Torrent.Routes())
	r.Route("/image", func(image chi.Router) {
		h.Image.RegisterRoutes(image)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
