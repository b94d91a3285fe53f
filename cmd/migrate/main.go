package main

import (
	"log"

	"github.com/appetora/backend/config"
	"github.com/appetora/backend/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	log.Println("migrations complete")
}
