package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/synergyayush/lookindharamshala/internal/adapters/database"
	"github.com/synergyayush/lookindharamshala/internal/adapters/search"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/typesense"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

// Seeds a development database with a handful of catalog entries and
// approved testimonials.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("lookindharamshala-seed", cfg.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	var searchRepo *search.TypesenseAdapter
	if cfg.Typesense.URL != "" {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable; seeding without search")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to init Typesense schema")
		} else {
			searchRepo = search.NewTypesenseAdapter(tsClient)
		}
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Warn().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx,
			`TRUNCATE TABLE services, businesses, reviews, popup_leads CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	serviceRepo := database.NewServiceAdapter(pgClient)
	reviewRepo := database.NewReviewAdapter(pgClient)

	region := cfg.Directory.Region
	seedServices := []*entities.Service{
		{Name: "Moonpeak Espresso", Category: "Food", About: "Cafe with valley views", Location: "Temple Road, McLeod Ganj", Rating: 4.7,
			Description: "Single-origin coffee, Tibetan bread and a terrace facing the Dhauladhar range."},
		{Name: "Triund Trail Guides", Category: "Guides", About: "Certified trekking guides", Location: "Dharamkot", Rating: 4.8,
			Description: "Day hikes to Triund and overnight treks to Indrahar Pass with local guides."},
		{Name: "Bhagsu Homestay", Category: "Stays", About: "Family run homestay", Location: "Bhagsu Nag", Rating: 4.5,
			Description: "Six rooms, home cooked meals and a five minute walk to the waterfall."},
		{Name: "Kangra Valley Paragliding", Category: "Adventure", About: "Tandem paragliding flights", Location: "Indrunag", Rating: 4.6,
			Description: "Tandem flights with licensed pilots from the Indrunag take-off point."},
		{Name: "Dhauladhar Yoga Shala", Category: "Wellness", About: "Hatha and Vinyasa classes", Location: region, Rating: 4.9,
			Description: "Drop-in classes every morning and week long retreats."},
	}

	for _, s := range seedServices {
		created, err := serviceRepo.Create(ctx, s)
		if err != nil {
			log.Error().Err(err).Str("service", s.Name).Msg("failed to create service")
			continue
		}
		if searchRepo != nil {
			if err := searchRepo.Index(ctx, created); err != nil {
				log.Warn().Err(err).Str("service_id", created.ID).Msg("failed to index service")
			}
		}
	}

	approved := true
	seedReviews := []*entities.Review{
		{Name: "Pema", Review: "Found our homestay and a trekking guide in ten minutes.", Rating: 5},
		{Name: "Rahul", Review: "Handy list of cafes around McLeod Ganj.", Rating: 4},
	}
	for _, r := range seedReviews {
		created, err := reviewRepo.Create(ctx, r)
		if err != nil {
			log.Error().Err(err).Str("reviewer", r.Name).Msg("failed to create review")
			continue
		}
		if _, err := reviewRepo.Update(ctx, created.ID, entities.ReviewPatch{Approved: &approved}); err != nil {
			log.Error().Err(err).Str("review_id", created.ID).Msg("failed to approve review")
		}
	}

	log.Info().Int("services", len(seedServices)).Int("reviews", len(seedReviews)).Msg("seed complete")
}
