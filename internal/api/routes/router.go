package routes

import (
	"net/http"

	"github.com/synergyayush/lookindharamshala/internal/api/handlers"
	"github.com/synergyayush/lookindharamshala/internal/api/middleware"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
)

// AdminAuthConfig configures the back office guard
type AdminAuthConfig struct {
	JWTSecret   string
	AdminEmails []string
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	healthHandler     *handlers.HealthHandler
	catalogHandler    *handlers.CatalogHandler
	submissionHandler *handlers.SubmissionHandler
	adminHandler      *handlers.AdminHandler
	sseHandler        *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
	adminAuth       AdminAuthConfig
}

// NewRouter creates a new router. cacheMiddleware, metrics and sseHandler may be nil.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	catalogHandler *handlers.CatalogHandler,
	submissionHandler *handlers.SubmissionHandler,
	adminHandler *handlers.AdminHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
	adminAuth AdminAuthConfig,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		healthHandler:     healthHandler,
		catalogHandler:    catalogHandler,
		submissionHandler: submissionHandler,
		adminHandler:      adminHandler,
		sseHandler:        sseHandler,
		cacheMiddleware:   cacheMiddleware,
		metrics:           metrics,
		allowedOrigins:    allowedOrigins,
		adminAuth:         adminAuth,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Catalog endpoints
	r.mux.HandleFunc("GET /api/services", r.catalogHandler.ListServices)
	r.mux.HandleFunc("GET /api/services/{id}", r.catalogHandler.GetService)
	r.mux.HandleFunc("GET /api/categories", r.catalogHandler.ListCategories)
	r.mux.HandleFunc("GET /api/links/map", r.catalogHandler.MapLink)
	r.mux.HandleFunc("POST /api/contact", r.catalogHandler.Contact)

	// Public submissions
	r.mux.HandleFunc("POST /api/listings", r.submissionHandler.SubmitListing)
	r.mux.HandleFunc("POST /api/reviews", r.submissionHandler.SubmitReview)
	r.mux.HandleFunc("POST /api/leads", r.submissionHandler.SubmitLead)
	r.mux.HandleFunc("GET /api/testimonials", r.submissionHandler.ListTestimonials)

	// Live change streams
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/stats", r.sseHandler.Stats)
		r.mux.HandleFunc("GET /api/stream/{table}", r.sseHandler.StreamTableChanges)
	}

	r.mux.Handle("/api/admin/", middleware.AdminAuth(r.adminAuth.JWTSecret, r.adminAuth.AdminEmails)(r.adminRoutes()))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) adminRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/admin/services", r.adminHandler.ListServices)
	mux.HandleFunc("POST /api/admin/services", r.adminHandler.CreateService)
	mux.HandleFunc("POST /api/admin/services/images", r.adminHandler.UploadServiceImages)
	mux.HandleFunc("PATCH /api/admin/services/{id}", r.adminHandler.UpdateService)
	mux.HandleFunc("DELETE /api/admin/services/{id}", r.adminHandler.DeleteService)

	mux.HandleFunc("GET /api/admin/listings", r.adminHandler.ListPendingListings)
	mux.HandleFunc("POST /api/admin/listings/{id}/approve", r.adminHandler.ApproveListing)
	mux.HandleFunc("POST /api/admin/listings/{id}/reject", r.adminHandler.RejectListing)
	mux.HandleFunc("POST /api/admin/reconcile", r.adminHandler.Reconcile)

	mux.HandleFunc("GET /api/admin/reviews", r.adminHandler.ListReviews)
	mux.HandleFunc("POST /api/admin/reviews/{id}/approve", r.adminHandler.ApproveReview)
	mux.HandleFunc("DELETE /api/admin/reviews/{id}", r.adminHandler.DeleteReview)

	mux.HandleFunc("GET /api/admin/leads", r.adminHandler.ListLeads)

	return mux
}
