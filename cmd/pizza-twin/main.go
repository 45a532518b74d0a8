// pizza-twin simulates the JWT Pizza backend: accounts, menu, franchises,
// stores and signed orders, all in memory, plus the /admin control plane.
//
// Point the web client's VITE_PIZZA_SERVICE_URL at it.
// Default port: 3000
package main

import (
	"context"
	"log"
	"os"

	"github.com/pf274/jwt-pizza/internal/twin"
	"github.com/pf274/jwt-pizza/pkg/admin"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

func main() {
	cfg := twincore.ParseFlags("pizza-twin")
	if cfg.Port == 0 {
		cfg.Port = 3000
	}

	srv := twincore.New(cfg)
	memStore := twin.NewMemoryStore()

	tokens, err := twin.NewTokenManager(memStore.Clock, twin.DefaultVendor)
	if err != nil {
		log.Fatalf("failed to initialize token manager: %v", err)
	}

	twin.NewHandler(memStore, srv.Middleware(), tokens).Routes(srv.Router)
	admin.NewHandler(memStore, srv, memStore.Clock).Routes(srv.Router)

	// Seed data replaces the built-in accounts and survives /admin/reset.
	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("failed to read seed file: %v", err)
		}
		if err := memStore.SetSeed(data); err != nil {
			log.Fatalf("failed to load seed data: %v", err)
		}
		srv.Logger.Info("loaded seed data", "file", cfg.SeedFile)
	}

	srv.Logger.Info("pizza-twin ready",
		"port", cfg.Port,
		"docs_endpoint", "/api/docs",
		"admin_endpoint", "/admin/health",
	)

	if err := srv.Serve(context.Background()); err != nil {
		log.Fatal(err)
	}
}
