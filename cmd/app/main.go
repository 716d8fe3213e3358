package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/bootstrap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	// The in-memory store has no worker process, so sweep here.
	if cfg.Database.InMemory {
		go app.Sweeper.Run(ctx)
	}

	log.Printf("listening on %s", cfg.HTTP.Address)
	if err := bootstrap.Run(ctx, app); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
