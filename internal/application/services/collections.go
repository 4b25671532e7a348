package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/internal/livecollection"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

type (
	// ServiceView is the live services catalog
	ServiceView = livecollection.View[*entities.Service, entities.ServicePatch]
	// ListingView is the live list of pending business submissions
	ListingView = livecollection.View[*entities.Listing, entities.ListingPatch]
	// ReviewView is the live list of all reviews, newest first
	ReviewView = livecollection.View[*entities.Review, entities.ReviewPatch]
)

// Views bundles the live collections the API serves from
type Views struct {
	Services *ServiceView
	Pending  *ListingView
	Reviews  *ReviewView
}

// NewViews builds the three live collections over their repositories. The
// views are not opened. metrics may be nil.
func NewViews(
	serviceRepo repositories.ServiceRepository,
	listingRepo repositories.ListingRepository,
	reviewRepo repositories.ReviewRepository,
	bus providers.EventBus,
	defaults entities.PromotionDefaults,
	metrics *observability.Metrics,
) *Views {
	hook := func(ctx context.Context, name string, err error, took time.Duration) {
		observability.RecordRefresh(ctx, metrics, name, err, took)
	}

	return &Views{
		Services: livecollection.New[*entities.Service, entities.ServicePatch](
			"services", entities.TableServices, &serviceStore{repo: serviceRepo}, bus,
			livecollection.WithOrdering(entities.ServiceNewestFirst),
			livecollection.WithLogger[*entities.Service](observability.ComponentLogger("collection")),
			livecollection.WithRefreshHook[*entities.Service](hook),
		),
		Pending: livecollection.New[*entities.Listing, entities.ListingPatch](
			"pending_listings", entities.TableBusinesses, &pendingListingStore{repo: listingRepo, defaults: defaults}, bus,
			livecollection.WithMembership(func(l *entities.Listing) bool {
				return l.Status == entities.ListingStatusPending
			}),
			livecollection.WithOrdering(entities.ListingNewestFirst),
			livecollection.WithLogger[*entities.Listing](observability.ComponentLogger("collection")),
			livecollection.WithRefreshHook[*entities.Listing](hook),
		),
		Reviews: livecollection.New[*entities.Review, entities.ReviewPatch](
			"reviews", entities.TableReviews, &reviewStore{repo: reviewRepo}, bus,
			livecollection.WithOrdering(entities.NewestFirst),
			livecollection.WithLogger[*entities.Review](observability.ComponentLogger("collection")),
			livecollection.WithRefreshHook[*entities.Review](hook),
		),
	}
}

// Open opens every view. Views opened before a failure are closed again.
func (v *Views) Open(ctx context.Context) error {
	if err := v.Services.Open(ctx); err != nil {
		return err
	}
	if err := v.Pending.Open(ctx); err != nil {
		_ = v.Services.Close()
		return err
	}
	if err := v.Reviews.Open(ctx); err != nil {
		_ = v.Services.Close()
		_ = v.Pending.Close()
		return err
	}
	return nil
}

// Close closes every view
func (v *Views) Close() {
	_ = v.Services.Close()
	_ = v.Pending.Close()
	_ = v.Reviews.Close()
}

// LogStates reports each view's state and last refresh error
func (v *Views) LogStates(logger zerolog.Logger) {
	for _, s := range []struct {
		name  string
		state livecollection.State
		count int
		err   error
	}{
		{v.Services.Name(), v.Services.State(), len(v.Services.List()), v.Services.LastError()},
		{v.Pending.Name(), v.Pending.State(), len(v.Pending.List()), v.Pending.LastError()},
		{v.Reviews.Name(), v.Reviews.State(), len(v.Reviews.List()), v.Reviews.LastError()},
	} {
		ev := logger.Info()
		if s.err != nil {
			ev = logger.Warn().Err(s.err)
		}
		ev.Str("collection", s.name).Str("state", s.state.String()).Int("count", s.count).Msg("live collection")
	}
}

type serviceStore struct {
	repo repositories.ServiceRepository
}

func (s *serviceStore) FetchAll(ctx context.Context) ([]*entities.Service, error) {
	return s.repo.List(ctx, repositories.ServiceFilter{})
}

func (s *serviceStore) Insert(ctx context.Context, item *entities.Service) (*entities.Service, error) {
	return s.repo.Create(ctx, item)
}

func (s *serviceStore) Update(ctx context.Context, id string, patch entities.ServicePatch) (*entities.Service, error) {
	return s.repo.Update(ctx, id, patch)
}

func (s *serviceStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// pendingListingStore exposes the businesses table filtered to pending rows.
// An update is a moderation decision.
type pendingListingStore struct {
	repo     repositories.ListingRepository
	defaults entities.PromotionDefaults
}

func (s *pendingListingStore) FetchAll(ctx context.Context) ([]*entities.Listing, error) {
	return s.repo.ListByStatus(ctx, entities.ListingStatusPending)
}

func (s *pendingListingStore) Insert(ctx context.Context, item *entities.Listing) (*entities.Listing, error) {
	return s.repo.Create(ctx, item)
}

func (s *pendingListingStore) Update(ctx context.Context, id string, patch entities.ListingPatch) (*entities.Listing, error) {
	switch patch.Status {
	case entities.ListingStatusApproved:
		listing, _, err := s.repo.Approve(ctx, id, s.defaults)
		return listing, err
	case entities.ListingStatusRejected:
		return s.repo.Reject(ctx, id)
	}
	return nil, apperrors.NewValidationError("a listing can only be approved or rejected")
}

func (s *pendingListingStore) Delete(ctx context.Context, id string) error {
	return apperrors.NewValidationError("business submissions cannot be deleted")
}

type reviewStore struct {
	repo repositories.ReviewRepository
}

func (s *reviewStore) FetchAll(ctx context.Context) ([]*entities.Review, error) {
	return s.repo.List(ctx, false)
}

func (s *reviewStore) Insert(ctx context.Context, item *entities.Review) (*entities.Review, error) {
	return s.repo.Create(ctx, item)
}

func (s *reviewStore) Update(ctx context.Context, id string, patch entities.ReviewPatch) (*entities.Review, error) {
	return s.repo.Update(ctx, id, patch)
}

func (s *reviewStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
