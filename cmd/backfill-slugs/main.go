// Command backfill-slugs assigns URL slugs to artworks created before slugs
// existed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gallery-checkout/internal/client"
	"gallery-checkout/internal/config"
	"gallery-checkout/internal/logger"
	"gallery-checkout/internal/repository"
	"gallery-checkout/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Log)

	db, err := client.OpenDatabase(cfg.Database, log)
	if err != nil {
		log.Error("database init failed", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	artworkService := service.NewArtworkService(repository.NewArtworkRepository(db), log)

	assigned, err := artworkService.BackfillSlugs(ctx)
	if err != nil {
		log.Error("slug backfill stopped", "assigned", assigned, "err", err)
		os.Exit(1)
	}

	log.Info("slug backfill complete", "assigned", assigned)
}
