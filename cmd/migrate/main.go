package main

import (
	"context"
	"log"

	"worklog/backend/internal/config"
	"worklog/backend/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lock, err := db.AcquireLock(cfg.LockPath)
	if err != nil {
		log.Fatalf("lock database: %v", err)
	}
	defer lock.Release()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(context.Background(), database)
	if err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	log.Printf("migrations applied successfully (%d new)", len(applied))
}
