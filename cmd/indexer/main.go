package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synergyayush/lookindharamshala/internal/adapters/database"
	"github.com/synergyayush/lookindharamshala/internal/adapters/search"
	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/typesense"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger("lookindharamshala-indexer", cfg.Env)

	if cfg.Typesense.URL == "" {
		log.Fatal().Msg("TYPESENSE_URL is not set")
	}

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset || os.Getenv("RESET_TYPESENSE") == "true"); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset {
		log.Warn().Str("collection", typesense.ServicesCollection).Msg("resetting search collection")
		err = tsClient.ResetSchema(ctx)
	} else {
		err = tsClient.InitSchema(ctx)
	}
	if err != nil {
		return err
	}

	catalog := services.NewCatalogService(
		nil,
		database.NewServiceAdapter(pgClient),
		search.NewTypesenseAdapter(tsClient),
		validation.New(),
		nil,
		cfg.Directory.Region,
	)

	start := time.Now()
	indexed, err := catalog.Reindex(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("indexed", indexed).Dur("took", time.Since(start)).Msg("services indexed")
	return nil
}
