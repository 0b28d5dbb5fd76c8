package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"promptstack/internal/api/handlers"
	"promptstack/internal/config"
	"promptstack/internal/core/settings"
	"promptstack/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svc *services.CollectionService, st *settings.Store, log *zap.Logger) *Server {
	itemHandler := handlers.NewItemHandler(svc, log)
	promptHandler := handlers.NewPromptHandler(st)
	settingsHandler := handlers.NewSettingsHandler(st)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/items", itemHandler.ListItems)
		api.Post("/items/manual", itemHandler.AddManual)
		api.Post("/items/files", itemHandler.SubmitFiles)
		api.Post("/items/directory", itemHandler.SubmitDirectory)
		api.Post("/items/remote", itemHandler.SubmitRemote)
		api.Delete("/items", itemHandler.DeleteItems)
		api.Post("/items/reorder", itemHandler.Reorder)
		api.Post("/items/duplicate", itemHandler.Duplicate)
		api.Post("/items/clear", itemHandler.Clear)

		api.Get("/merge", itemHandler.Merge)
		api.Post("/cancel", itemHandler.Cancel)
		api.Get("/progress", itemHandler.GetProgress)

		api.Get("/prompts", promptHandler.ListPrompts)
		api.Post("/prompts", promptHandler.SavePrompt)
		api.Delete("/prompts", promptHandler.DeletePrompt)

		api.Get("/settings", settingsHandler.GetSettings)
		api.Put("/settings", settingsHandler.UpdateSettings)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
