// Seeds a demo funnel with generated visitors, sessions and events.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/karloscodes/cartridge"

	"funnelscope/internal/config"
	"funnelscope/internal/database"
	"funnelscope/internal/seeder"
)

func main() {
	funnelName := flag.String("funnel", "Demo Funnel", "name of the funnel to seed")
	visitorCount := flag.Int("visitors", 200, "number of visitors to generate")
	flag.Parse()

	cfg := config.GetConfig()
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := seeder.NewSeeder(dbManager, logger, *visitorCount)
	if err := s.Seed(context.Background(), *funnelName); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
