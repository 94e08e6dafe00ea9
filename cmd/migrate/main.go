// Command migrate imports the legacy deployment's data files
// (titles_state.json and requests.csv) into Postgres. Run it once
// before first starting the bot against an existing community.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden"
	"github.com/harmonyhold/titlewarden/titlewarden/database"
	"github.com/harmonyhold/titlewarden/titlewarden/logger"
	"github.com/harmonyhold/titlewarden/titlewarden/migration"
	"github.com/harmonyhold/titlewarden/titlewarden/titles"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config")
	dataDir := flag.String("data", "data", "directory holding titles_state.json and requests.csv")
	flag.Parse()

	cfg, err := titlewarden.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler("Titlewarden-Migrate", cfg.Log.Level)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig(cfg.DB))
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// The importer needs the schema and catalog rows in place for its
	// foreign keys.
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.SeedCatalog(ctx, titles.DefaultCatalog()); err != nil {
		slog.Error("Failed to seed catalog", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := migration.NewMigrator(db.BunDB(), *dataDir)
	stats, err := migrator.MigrateAll(ctx)
	if err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migration completed successfully!",
		slog.Int("shifts", stats.ShiftsImported),
		slog.Int("reservations", stats.ReservationsImported),
		slog.Int("log_rows", stats.LogRowsImported),
		slog.Int("skipped", stats.Skipped))
}
