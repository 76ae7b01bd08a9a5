// Sets or replaces a realm's god key. Run against the same database
// as the server:
//
//	godkey <realm-id> <key>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/checkpointd/checkpointd/internal/config"
	"github.com/checkpointd/checkpointd/internal/godauth"
	"github.com/checkpointd/checkpointd/internal/store/postgres"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: godkey <realm-id> <key>")
		os.Exit(2)
	}
	realmID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil {
		log.Fatalf("Malformed realm id %q: %v", os.Args[1], err)
	}
	key := os.Args[2]

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

	hasher := godauth.NewHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	hash, err := hasher.Hash(key)
	if err != nil {
		log.Fatalf("Failed to hash key: %v", err)
	}

	if err := postgres.NewGodKeyRepository(db).SetKeyHash(ctx, realmID, hash); err != nil {
		log.Fatalf("Failed to store key: %v", err)
	}

	fmt.Printf("God key set for realm %d\n", realmID)
}
