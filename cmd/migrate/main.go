package main

import (
	"context"
	"fmt"
	"log"

	"github.com/checkpointd/checkpointd/internal/config"
	"github.com/checkpointd/checkpointd/internal/store/postgres"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database")

	fmt.Println("Running 001_initial_schema.up.sql...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		log.Fatalf("Failed to run migration: %v", err)
	}

	fmt.Println("All migrations completed")
}
