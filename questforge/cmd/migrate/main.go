package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/fablesmith/questforge/questforge"
	"github.com/fablesmith/questforge/questforge/database"
	"github.com/fablesmith/questforge/questforge/logger"
	"github.com/fablesmith/questforge/questforge/migration"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	configPath := flag.String("config", "config.toml", "path to config")
	dataDir := flag.String("data-dir", "data", "directory holding mongodump .bson files")
	batchSize := flag.Int("batch-size", 1000, "rows per insert batch")
	useMongo := flag.Bool("use-mongo", false, "migrate from a live MongoDB instead of BSON dumps")
	mongoURI := flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	mongoDB := flag.String("mongo-db", "questforge", "MongoDB database name")
	useCopy := flag.Bool("use-copy", false, "use pgx COPY for bulk inserts")
	flag.Parse()

	ctx := context.Background()

	cfg, err := questforge.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Target tables must exist before any batch lands
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	migrator := migration.NewMigrator(db.BunDB(), *dataDir)
	migrator.SetBatchSize(*batchSize)
	migrator.SetUseCopy(*useCopy)
	if *useCopy {
		migrator.UsePool(db.GetPool())
	}

	if *useMongo {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(*mongoURI))
		cancel()
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(ctx)

		migrator.UseMongo(client, *mongoDB)
		if err := migrator.MigrateAllFromMongo(ctx); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	} else {
		if err := migrator.MigrateAll(ctx); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Migration completed successfully!")
}
