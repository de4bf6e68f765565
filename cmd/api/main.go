package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/catalog"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/climatology"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/config"
	httpserver "github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/http"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/siar"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var source catalog.Source
	if cfg.CatalogDBURL != "" {
		pg, err := catalog.NewPostgresSource(ctx, cfg.CatalogDBURL)
		if err != nil {
			log.Fatalf("catalog db error: %v", err)
		}
		defer pg.Close()
		source = pg
		log.Printf("station catalog: postgres")
	} else {
		source = catalog.NewFileSource(cfg.CatalogPath)
		log.Printf("station catalog: %s", cfg.CatalogPath)
	}

	client := siar.New(cfg.SIARBaseURL, cfg.AuthTimeout, cfg.DataTimeout)
	tokens := siar.NewTokenProvider(client, cfg.SIARUser, cfg.SIARPass)
	orch := climatology.NewOrchestrator(tokens, client)

	srv := httpserver.New(cfg, source, orch)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
