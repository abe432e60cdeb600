package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/booksphere/internal/app"
	"github.com/iliyamo/booksphere/internal/config"
	"github.com/iliyamo/booksphere/internal/database"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.Logging)

	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DB); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		log.Info().Msg("migrations applied")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log, db, rdb).Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}
