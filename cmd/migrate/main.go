package main

import (
	"brokerage_crm/internal/config" // Custom import path (Config)
	"brokerage_crm/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	gdb := db.Migrate(cfg.DB.DSN()) // Create or update the schema

	// Seed the first administrator when credentials are configured
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return
	}
	created, err := db.SeedAdmin(gdb, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
	if err != nil {
		logrus.Fatalf("failed to seed admin: %v", err)
	}
	if created {
		logrus.WithField("email", cfg.Admin.Email).Info("Administrator created")
	}
}
