package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fablesmith/questforge/questforge"
	"github.com/fablesmith/questforge/questforge/database"
	"github.com/fablesmith/questforge/questforge/database/repositories"
	"github.com/fablesmith/questforge/questforge/logger"
	"github.com/fablesmith/questforge/questforge/quest"
	"github.com/fablesmith/questforge/questforge/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Initialize custom logger
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting QuestForge engine",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncDefinitions := flag.Bool("sync-definitions", false, "Whether to sync quest definitions from configured sources on startup")
	validateOnly := flag.Bool("validate-only", false, "Compile every stored quest definition, report problems and exit")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := questforge.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	// Create context with longer timeout for database connection and initial setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Convert questforge.DBConfig to database.DBConfig
	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	// Add automatic schema initialization
	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	defer db.Close()

	app := questforge.New(*cfg, version, commit)
	app.DB = db

	// Initialize repositories
	app.DefinitionRepository = repositories.NewDefinitionRepository(db.BunDB())
	app.ProgressRepository = repositories.NewProgressRepository(db.BunDB())
	app.HeroRepository = repositories.NewHeroRepository(db.BunDB())

	// Compiled definitions and the turn engine on top of them
	app.Store = quest.NewStore(app.DefinitionRepository)
	app.Engine = quest.NewEngine(app.Store, app.ProgressRepository, app.HeroRepository, nil)
	app.Catalog = quest.NewCatalog(app.Store, app.ProgressRepository, app.HeroRepository)

	// Definition sources: local authoring directory plus the remote bucket
	var sources []services.DefinitionSource
	if cfg.Definitions.Dir != "" {
		sources = append(sources, services.NewDirSource(cfg.Definitions.Dir))
	}
	if cfg.Spaces.Bucket != "" {
		sources = append(sources, services.NewSpacesSource(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.Root,
		))
	}
	app.SyncService = services.NewDefinitionSyncService(app.DefinitionRepository, app.Store, sources...)

	if *shouldSyncDefinitions || *validateOnly {
		syncCtx, syncCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		stats, err := app.SyncService.SyncOnce(syncCtx)
		syncCancel()
		if err != nil {
			slog.Error("Definition sync failed",
				slog.String("type", "sys"),
				slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Definition sync finished",
			slog.String("type", "sys"),
			slog.Int("scanned", stats.Scanned),
			slog.Int("upserted", stats.Upserted),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed))
	}

	slog.Info("Preloading quest definitions...")
	loaded, failures, err := app.Store.Preload(ctx)
	if err != nil {
		slog.Error("Failed to preload quest definitions",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Quest definitions preloaded",
		slog.Int("loaded", loaded),
		slog.Int("rejected", len(failures)))

	if *validateOnly {
		for questID, ferr := range failures {
			slog.Error("Definition rejected",
				slog.String("quest_id", questID),
				slog.Any("error", ferr))
		}
		if len(failures) > 0 {
			os.Exit(1)
		}
		slog.Info("All stored definitions compiled cleanly")
		return
	}

	// Periodic definition refresh
	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()
	if cfg.Definitions.SyncMinutes > 0 {
		app.SyncService.Start(syncCtx, time.Duration(cfg.Definitions.SyncMinutes)*time.Minute)
	}

	slog.Info("Engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down engine...")
}
