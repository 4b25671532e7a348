package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
)

// ReviewService moderates reviews and serves the public testimonials
type ReviewService struct {
	view    *ReviewView
	repo    repositories.ReviewRepository
	bus     providers.EventBus
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewReviewService creates a review service. When view is nil every call
// goes to the store and changes are announced on bus.
func NewReviewService(view *ReviewView, repo repositories.ReviewRepository, bus providers.EventBus, metrics *observability.Metrics) *ReviewService {
	return &ReviewService{
		view:    view,
		repo:    repo,
		bus:     bus,
		metrics: metrics,
		logger:  observability.ComponentLogger("reviews"),
	}
}

// List returns every review, newest first
func (s *ReviewService) List(ctx context.Context) ([]*entities.Review, error) {
	if s.view != nil {
		return s.view.List(), nil
	}
	return s.repo.List(ctx, false)
}

// Testimonials returns approved reviews only, newest first
func (s *ReviewService) Testimonials(ctx context.Context) ([]*entities.Review, error) {
	if s.view == nil {
		return s.repo.List(ctx, true)
	}
	all := s.view.List()
	out := make([]*entities.Review, 0, len(all))
	for _, r := range all {
		if r.Approved {
			out = append(out, r)
		}
	}
	return out, nil
}

// Approve makes a review public
func (s *ReviewService) Approve(ctx context.Context, id string) (*entities.Review, error) {
	approved := true
	patch := entities.ReviewPatch{Approved: &approved}

	var (
		review *entities.Review
		err    error
	)
	if s.view != nil {
		review, err = s.view.Update(ctx, id, patch)
	} else {
		review, err = s.repo.Update(ctx, id, patch)
		if err == nil {
			publishChange(ctx, s.bus, s.logger, entities.TableReviews, entities.ChangeTypeUpdate, id)
		}
	}
	if err != nil {
		return nil, err
	}

	observability.RecordModeration(ctx, s.metrics, "review_approved")
	return review, nil
}

// Delete removes a review
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	if s.view != nil {
		if err := s.view.Delete(ctx, id); err != nil {
			return err
		}
	} else {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		publishChange(ctx, s.bus, s.logger, entities.TableReviews, entities.ChangeTypeDelete, id)
	}

	observability.RecordModeration(ctx, s.metrics, "review_deleted")
	return nil
}
