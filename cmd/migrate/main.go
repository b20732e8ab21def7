package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"sentinal-threads/config"
	"sentinal-threads/internal/repository"
	"sentinal-threads/pkg/database"
	"sentinal-threads/pkg/logger"
)

const usage = `
Sentinal Threads - Storage CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create the postgres sync outbox table
  status      Show postgres connection status and local store contents

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	cfg := config.LoadConfig()
	l := logger.New(cfg.AppMode)

	switch command {
	case "up":
		runMigrationsUp(cfg, l)
	case "status":
		showStatus(cfg, l)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(cfg *config.Config, l *logger.Logger) {
	log.Println("Running migrations UP...")

	db, err := database.Connect(cfg, l)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	repo := repository.NewPostgresOutboxRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully!")
}

func showStatus(cfg *config.Config, l *logger.Logger) {
	log.Println("Checking storage status...")

	if cfg.SyncOutboxBackend == config.OutboxBackendPostgres {
		db, err := database.Connect(cfg, l)
		if err != nil {
			log.Printf("Database connection failed: %v", err)
		} else {
			defer func() { _ = database.Close(db) }()
			if err := database.HealthCheck(db); err != nil {
				log.Printf("Health check warning: %v", err)
			} else {
				log.Println("Database connection: OK")
			}
		}
	}

	store, err := repository.Open(cfg.StorePath, l)
	if err != nil {
		log.Fatalf("Failed to open thread store at %s: %v", cfg.StorePath, err)
	}
	defer func() { _ = store.Close() }()

	threads := repository.NewThreadRepository()
	err = store.Read(context.Background(), func(tx *repository.Tx) error {
		all, err := threads.List(tx)
		if err != nil {
			return err
		}
		var visible, archived, deleted int
		for _, t := range all {
			if t.Visible {
				visible++
			}
			if t.Archived {
				archived++
			}
			if t.IsSoftDeleted() {
				deleted++
			}
		}
		log.Printf("Store %s: %d threads (%d visible, %d archived, %d deleted)", cfg.StorePath, len(all), visible, archived, deleted)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to read thread store: %v", err)
	}

	pending, err := repository.NewOutboxRepository(store).GetPending(context.Background(), cfg.SyncBatchSize, cfg.SyncMaxRetries)
	if err != nil {
		log.Fatalf("Failed to read sync outbox: %v", err)
	}
	log.Printf("Local sync outbox: %d pending records", len(pending))
}
