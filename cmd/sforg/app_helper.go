package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sforg/internal/batch"
	"sforg/internal/config"
	"sforg/internal/handlers"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/registry"
	"sforg/internal/retrieve"
	"sforg/internal/sfcli"
	"sforg/internal/storage"
)

// App is the composition root shared by all commands. It is lazily
// initialized on first use.
type App struct {
	Config      *config.Config
	Logger      *logging.Logger
	Executor    *sfcli.Executor
	Registry    *registry.Registry
	Processor   *batch.Processor
	Coordinator *retrieve.Coordinator
	DB          *storage.DB
}

var (
	appOnce   sync.Once
	sharedApp *App
	appErr    error
)

func getApp() (*App, error) {
	appOnce.Do(func() {
		// A missing config file already falls back to defaults inside
		// LoadConfig; an error here means the file exists and is broken.
		cfg, err := config.LoadConfig(rootFlag)
		if err != nil {
			appErr = fmt.Errorf("failed to load config: %w", err)
			return
		}

		logger := newLogger(cfg)
		executor := sfcli.NewExecutor(cfg.SfBinary, logger)
		reg := registry.New(logger)

		custom, err := metadata.LoadCustomDefinitions(filepath.Join(rootFlag, ".sforg", "types.toml"))
		if err != nil {
			logger.Warn("Failed to load custom type definitions", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, def := range custom {
			reg.AddDefinition(def)
		}

		registerHandlers(reg, cfg, executor, logger)

		processor := batch.NewProcessor(reg, logger)
		processor.SetDefaultConcurrency(cfg.DefaultConcurrency)

		// History storage is best-effort; commands still work without it.
		db, err := storage.Open(rootFlag, logger)
		if err != nil {
			logger.Warn("Failed to open history database", map[string]interface{}{
				"error": err.Error(),
			})
			db = nil
		}

		coordinator := retrieve.NewCoordinator(executor, cfg, reg, db, logger)

		sharedApp = &App{
			Config:      cfg,
			Logger:      logger,
			Executor:    executor,
			Registry:    reg,
			Processor:   processor,
			Coordinator: coordinator,
			DB:          db,
		}
	})

	return sharedApp, appErr
}

// mustGetApp returns the shared App or exits on error.
func mustGetApp() *App {
	app, err := getApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	return app
}

// registerHandlers binds the built-in handler set to the type names
// each one serves. Types with a manifest-retrieve strategy are served
// by the retrieve command instead of a per-item handler.
func registerHandlers(reg *registry.Registry, cfg *config.Config, executor *sfcli.Executor, logger *logging.Logger) {
	defs := make(map[string]metadata.TypeDefinition)
	for _, def := range reg.Definitions() {
		defs[def.Name] = def
	}

	tooling := handlers.NewToolingQueryHandler(
		[]metadata.TypeDefinition{defs["ApexClass"], defs["ApexTrigger"]},
		cfg, executor, logger)
	for _, name := range tooling.SupportedTypes() {
		reg.RegisterHandler(name, tooling)
	}

	soql := handlers.NewSoqlQueryHandler(defs["CustomObject"], cfg, executor, logger)
	reg.RegisterHandler("CustomObject", soql)

	bundle := handlers.NewBundleHandler(
		[]metadata.TypeDefinition{defs["LightningComponentBundle"], defs["AuraDefinitionBundle"]},
		cfg, executor, logger)
	for _, name := range bundle.SupportedTypes() {
		reg.RegisterHandler(name, bundle)
	}
}

// newLogger builds the command logger from the loaded config and the
// --log-level override.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(level),
	})
}

// orgFromFlags resolves the target org. The org id defaults to the
// alias so cache directories stay stable per alias.
func orgFromFlags(alias, id string) metadata.Org {
	if id == "" {
		id = alias
	}
	return metadata.Org{ID: id, Alias: alias}
}
