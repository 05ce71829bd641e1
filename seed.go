package main

import (
	"context"
	"log"
	"time"

	"helperhand-server/config"
	"helperhand-server/services"
)

// seed makes sure the admin account and the default catalog exist.
func seed(accounts *services.AccountService, catalog *services.CatalogService, admin config.AdminConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := accounts.EnsureAdmin(ctx, admin.Email, admin.Password); err != nil {
		return err
	}
	if err := catalog.SeedDefaults(ctx); err != nil {
		return err
	}
	log.Println("🌱 Seed data verified")
	return nil
}
