package main

import (
	"log"

	"github.com/joho/godotenv"

	"outliner/internal/config"
	"outliner/internal/repository/postgres/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	log.Printf("applying migrations (table prefix %q)", cfg.TablePrefix)
	if err := migrations.MigrateUp(cfg.DatabaseURL, cfg.TablePrefix); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("migrations applied")
}
