// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//   config.Config, *slog.Logger, repository.Store, storage.ImageStore
// Server.New() creates:
//   TokenService + PasswordService + store.Users() → AuthService → AuthHandler
//   store.Items()                                  → ItemService → ItemHandler
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/secondchance/internal/auth"
	"github.com/sakif/secondchance/internal/config"
	"github.com/sakif/secondchance/internal/handler"
	"github.com/sakif/secondchance/internal/middleware"
	"github.com/sakif/secondchance/internal/repository"
	"github.com/sakif/secondchance/internal/service"
	"github.com/sakif/secondchance/internal/storage"
)

const defaultShutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so in-flight requests never see a closed connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	images storage.ImageStore
}

// New wires services and handlers onto a fresh router.
func New(cfg *config.Config, logger *slog.Logger, store repository.Store, images storage.ImageStore) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		images: images,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                       → liveness probe
// GET    /images/*                      → uploaded item images
// POST   /api/auth/register             → create account
// POST   /api/auth/login                → log in
// PUT    /api/auth/update               → change first/last name
// GET    /api/auth/me                   → account behind the bearer token
// GET    /api/secondchance/items        → list items
// POST   /api/secondchance/items        → create item (multipart or JSON)
// GET    /api/secondchance/items/{id}   → get item
// PUT    /api/secondchance/items/{id}   → update item
// DELETE /api/secondchance/items/{id}   → delete item
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with timing info and the request id
// 4. Recoverer — catches panics and returns 500 instead of crashing
// 5. CORS — answers preflight requests before they reach a route
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSAllowedOrigins))

	authService := service.NewAuthService(s.store.Users(), tokens, auth.NewPasswordService(), s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)

	itemService := service.NewItemService(s.store.Items(), s.logger)
	itemHandler := handler.NewItemHandler(itemService, s.images, s.config.MaxUploadBytes, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// === Images ===
	// Disk images are served straight from the upload directory.
	// Object-store images are redirected to a presigned URL.
	if disk, ok := s.images.(*storage.DiskStore); ok {
		fileServer := http.FileServer(http.Dir(disk.Dir()))
		s.router.Handle("/images/*", http.StripPrefix("/images/", fileServer))
	} else {
		s.router.Get("/images/{name}", itemHandler.HandleImage)
	}

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Put("/update", authHandler.HandleUpdate)
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/api/secondchance/items", func(r chi.Router) {
		r.Get("/", itemHandler.HandleList)
		r.Post("/", itemHandler.HandleCreate)
		r.Get("/{id}", itemHandler.HandleGetByID)
		r.Put("/{id}", itemHandler.HandleUpdate)
		r.Delete("/{id}", itemHandler.HandleDelete)
	})
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (ShutdownTimeout, 30s by default)
// 3. Close the store
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("store", s.config.StoreDriver),
			slog.String("images", s.config.ImageStore),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	err := g.Wait()

	if cerr := s.store.Close(); cerr != nil {
		s.logger.Error("failed to close store", slog.String("error", cerr.Error()))
		err = errors.Join(err, cerr)
	}
	return err
}
