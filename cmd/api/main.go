package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synergyayush/lookindharamshala/internal/adapters/cache"
	"github.com/synergyayush/lookindharamshala/internal/adapters/database"
	"github.com/synergyayush/lookindharamshala/internal/adapters/events"
	"github.com/synergyayush/lookindharamshala/internal/adapters/search"
	"github.com/synergyayush/lookindharamshala/internal/adapters/storage"
	"github.com/synergyayush/lookindharamshala/internal/api/handlers"
	"github.com/synergyayush/lookindharamshala/internal/api/middleware"
	"github.com/synergyayush/lookindharamshala/internal/api/routes"
	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/redis"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/typesense"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/notifications"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional: without it the event bus stays in-process and
	// submission throttling falls back to local state
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; using in-process event bus")
		eventBus = events.NewLocalEventBus()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	// Relay writes made by other clients of the database
	if cfg.Database.ChangeFeed {
		feed := events.NewPostgresChangeFeed(pgClient.DSN(), eventBus)
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change feed stopped")
			}
		}()
	}

	var searchRepo repositories.ServiceSearchRepository
	if cfg.Typesense.URL != "" {
		typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable; searching the live catalog instead")
		} else {
			if err := typesenseClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to init Typesense schema")
			}
			searchRepo = search.NewTypesenseAdapter(typesenseClient)
		}
	}

	objectStorage, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	serviceAdapter := database.NewServiceAdapter(pgClient)
	listingAdapter := database.NewListingAdapter(pgClient)
	reviewAdapter := database.NewReviewAdapter(pgClient)
	leadAdapter := database.NewLeadAdapter(pgClient)

	defaults := entities.PromotionDefaults{Location: cfg.Directory.Region, Rating: cfg.Directory.DefaultRating}
	views := services.NewViews(serviceAdapter, listingAdapter, reviewAdapter, eventBus, defaults, metrics)
	if err := views.Open(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to open live collections")
	}
	defer views.Close()
	views.LogStates(log.Logger)

	validator := validation.New()
	images := services.NewImageUploader(objectStorage, metrics)

	catalogService := services.NewCatalogService(views.Services, serviceAdapter, searchRepo, validator, images, cfg.Directory.Region)
	submissionService := services.NewSubmissionService(validator, views.Pending, views.Reviews, leadAdapter, images, eventBus, metrics)
	reviewService := services.NewReviewService(views.Reviews, reviewAdapter, eventBus, metrics)
	contactService := services.NewContactService(validator, cfg.Directory.ContactEmail, cfg.Directory.ContactPhone)

	moderationOpts := []services.ModerationOption{
		services.WithLiveViews(views.Pending, views.Services),
		services.WithIndexer(catalogService),
		services.WithEventBus(eventBus),
		services.WithMetrics(metrics),
	}
	if cfg.WhatsApp.WhatsAppEnabled() {
		sender, err := notifications.NewWhatsAppCloudSender(cfg.WhatsApp)
		if err != nil {
			log.Warn().Err(err).Msg("WhatsApp sender disabled")
		} else {
			moderationOpts = append(moderationOpts, services.WithMessenger(sender))
		}
	}
	moderationService := services.NewModerationService(listingAdapter, services.ModerationConfig{
		SiteName:  cfg.Directory.SiteName,
		SiteURL:   cfg.Directory.SiteURL,
		Region:    cfg.Directory.Region,
		Signature: cfg.Directory.OwnerName,
		Defaults:  defaults,
	}, moderationOpts...)

	indexSyncDone, err := catalogService.StartIndexSync(ctx, eventBus)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start search index sync")
	}

	var reconcileDone <-chan struct{}
	if cfg.Directory.ReconcileInterval > 0 {
		reconcileDone = moderationService.StartPeriodicReconcile(ctx, cfg.Directory.ReconcileInterval)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
	}

	router := routes.NewRouter(
		handlers.NewHealthHandler(pgClient.DB(), views.Services, views.Pending, views.Reviews),
		handlers.NewCatalogHandler(catalogService, contactService, cfg.Directory.Region),
		handlers.NewSubmissionHandler(submissionService, reviewService, validator, handlers.NewSubmissionGuard(cacheProvider)),
		handlers.NewAdminHandler(catalogService, moderationService, reviewService, submissionService),
		handlers.NewSSEHandler(eventBus),
		cacheMiddleware,
		metrics,
		middleware.ParseAllowedOrigins(cfg.Server.AllowedOrigins),
		routes.AdminAuthConfig{JWTSecret: cfg.Auth.JWTSecret, AdminEmails: cfg.Auth.AdminEmails},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// streams stay open; handlers bound their own work
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if reconcileDone != nil {
		<-reconcileDone
	}
	<-indexSyncDone
	// let in-flight approval messages finish
	moderationService.Wait()

	log.Info().Msg("server stopped")
}
