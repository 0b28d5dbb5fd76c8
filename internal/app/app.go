package app

import (
	"go.uber.org/zap"

	"promptstack/internal/config"
	"promptstack/internal/core/extract"
	"promptstack/internal/core/ingest"
	"promptstack/internal/core/scan"
	"promptstack/internal/core/settings"
	"promptstack/internal/core/store"
	"promptstack/internal/services"
)

// App wires the pipeline components behind the HTTP command surface.
type App struct {
	Settings   *settings.Store
	Collection *store.Collection
	Service    *services.CollectionService
	Server     *Server
}

func NewApp(cfg *config.Config, log *zap.Logger) *App {
	settingsStore := settings.Open(cfg.ConfigPath, log)
	collection := store.NewCollection(log)

	extractor := extract.New(log)
	engine := ingest.NewEngine(extractor, cfg.MaxWorkers, cfg.MaxFileSize, log)
	scanner := scan.New(log)
	scanner.MaxFileSize = cfg.MaxFileSize

	svc := services.NewCollectionService(collection, settingsStore, engine, scanner, log)
	server := NewServer(cfg, svc, settingsStore, log)

	return &App{
		Settings:   settingsStore,
		Collection: collection,
		Service:    svc,
		Server:     server,
	}
}
