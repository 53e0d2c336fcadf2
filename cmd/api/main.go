package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/daffaahh/HowsTheAir-be/internal/config"
	"github.com/daffaahh/HowsTheAir-be/internal/db"
	httpserver "github.com/daffaahh/HowsTheAir-be/internal/http"
	"github.com/daffaahh/HowsTheAir-be/internal/syncer"
	"github.com/daffaahh/HowsTheAir-be/internal/waqi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
	}
	defer store.Close()

	client := waqi.New(cfg.WaqiBaseURL, cfg.WaqiToken, cfg.RequestTimeout)
	sync := syncer.New(store, client, cfg.SyncConcurrency)

	srv := httpserver.New(cfg, store, client, sync)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
