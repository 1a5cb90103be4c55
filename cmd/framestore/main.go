// Command framestore runs the FrameStore HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/framestore/internal/app/runtime"
	"github.com/R3E-Network/framestore/internal/app/storage/postgres"
	"github.com/R3E-Network/framestore/internal/config"
	"github.com/R3E-Network/framestore/internal/platform/migrations"
)

func main() {
	configFile := flag.String("config", "", "YAML config overlay (overrides FRAMESTORE_CONFIG)")
	addr := flag.String("addr", "", "Listen address (overrides FRAMESTORE_ADDR)")
	migrateOnly := flag.Bool("migrate", false, "Apply Postgres migrations and exit")
	flag.Parse()

	if *configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, *configFile); err != nil {
			log.Fatalf("set config path: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if err := migrate(ctx, cfg); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	rt, err := runtime.NewApplication(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("build application: %v", err)
	}
	if err := rt.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
	}

	log.Println("Shutting down...")
	if err := rt.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("FrameStore stopped")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.DSN == "" {
		log.Fatalf("DATABASE_URL is required for -migrate")
	}
	db, err := postgres.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	version, err := migrations.Up(db.DB)
	if err != nil {
		return err
	}
	log.Printf("schema at version %d", version)
	return nil
}
