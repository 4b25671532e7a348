package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
)

// ListingWriter inserts business submissions. Both ListingView and
// repositories.ListingRepository satisfy it.
type ListingWriter interface {
	Create(ctx context.Context, listing *entities.Listing) (*entities.Listing, error)
}

// ReviewWriter inserts reviews. Both ReviewView and
// repositories.ReviewRepository satisfy it.
type ReviewWriter interface {
	Create(ctx context.Context, review *entities.Review) (*entities.Review, error)
}

// ListingReceipt is the outcome of a business submission
type ListingReceipt struct {
	Listing        *entities.Listing `json:"listing"`
	RejectedImages []ImageRejection  `json:"rejected_images,omitempty"`
}

// SubmissionService handles the public forms
type SubmissionService struct {
	validator *validation.Validator
	listings  ListingWriter
	reviews   ReviewWriter
	leads     repositories.LeadRepository
	images    *ImageUploader
	bus       providers.EventBus
	metrics   *observability.Metrics
	now       func() time.Time
	logger    zerolog.Logger
}

// NewSubmissionService creates a new submission service. bus and metrics may be nil.
func NewSubmissionService(
	v *validation.Validator,
	listings ListingWriter,
	reviews ReviewWriter,
	leads repositories.LeadRepository,
	images *ImageUploader,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *SubmissionService {
	return &SubmissionService{
		validator: v,
		listings:  listings,
		reviews:   reviews,
		leads:     leads,
		images:    images,
		bus:       bus,
		metrics:   metrics,
		now:       time.Now,
		logger:    observability.ComponentLogger("submissions"),
	}
}

// SubmitListing validates the form, uploads its images and inserts a pending
// listing. Validation runs before anything is uploaded. Images that fail are
// skipped and reported; a failed insert fails the whole submission.
func (s *SubmissionService) SubmitListing(ctx context.Context, form ListingSubmission, images *ImageSet) (*ListingReceipt, error) {
	ctx, span := observability.StartSpan(ctx, "SubmissionService.SubmitListing")
	defer span.End()

	form.Normalize()
	if err := s.validator.Validate(form); err != nil {
		observability.RecordSubmission(ctx, s.metrics, "listing", "invalid")
		return nil, err
	}

	var (
		urls     []string
		rejected []ImageRejection
	)
	if images != nil && images.Len() > 0 {
		urls, rejected = s.images.UploadListingImages(ctx, images)
	}

	listing, err := s.listings.Create(ctx, &entities.Listing{
		BusinessName: form.BusinessName,
		OwnerName:    form.OwnerName,
		Phone:        form.Phone,
		Email:        form.Email,
		Category:     form.Category,
		About:        form.About,
		Description:  form.Description,
		Images:       append([]string{}, urls...),
		Status:       entities.ListingStatusPending,
		SubmittedAt:  s.now().UTC(),
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordSubmission(ctx, s.metrics, "listing", "failed")
		s.logger.Error().Err(err).Str("business", form.BusinessName).Msg("failed to store business submission")
		return nil, err
	}

	observability.RecordSubmission(ctx, s.metrics, "listing", "accepted")
	s.logger.Info().
		Str("listing_id", listing.ID).
		Int("images", len(urls)).
		Int("rejected_images", len(rejected)).
		Msg("business submitted for review")

	return &ListingReceipt{Listing: listing, RejectedImages: rejected}, nil
}

// SubmitReview validates and stores a testimonial. New reviews are never public
// until an admin approves them.
func (s *SubmissionService) SubmitReview(ctx context.Context, form ReviewSubmission) (*entities.Review, error) {
	form.Normalize()
	if err := s.validator.Validate(form); err != nil {
		observability.RecordSubmission(ctx, s.metrics, "review", "invalid")
		return nil, err
	}

	review, err := s.reviews.Create(ctx, &entities.Review{
		Name:      form.Name,
		Email:     form.Email,
		Review:    form.Review,
		Rating:    form.Rating,
		Approved:  false,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		observability.RecordSubmission(ctx, s.metrics, "review", "failed")
		return nil, err
	}

	observability.RecordSubmission(ctx, s.metrics, "review", "accepted")
	return review, nil
}

// SubmitLead validates and stores a popup lead
func (s *SubmissionService) SubmitLead(ctx context.Context, form LeadSubmission) (*entities.Lead, error) {
	form.Normalize()
	if err := s.validator.Validate(form); err != nil {
		observability.RecordSubmission(ctx, s.metrics, "lead", "invalid")
		return nil, err
	}

	lead, err := s.leads.Create(ctx, &entities.Lead{
		Name:      form.Name,
		Phone:     form.Phone,
		Email:     form.Email,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		observability.RecordSubmission(ctx, s.metrics, "lead", "failed")
		return nil, err
	}

	observability.RecordSubmission(ctx, s.metrics, "lead", "accepted")
	publishChange(ctx, s.bus, s.logger, entities.TablePopupLeads, entities.ChangeTypeInsert, lead.ID)
	return lead, nil
}

// ListLeads returns the captured popup leads, newest first
func (s *SubmissionService) ListLeads(ctx context.Context) ([]*entities.Lead, error) {
	return s.leads.List(ctx)
}

func publishChange(ctx context.Context, bus providers.EventBus, logger zerolog.Logger, table string, changeType entities.ChangeType, id string) {
	if bus == nil {
		return
	}
	ev := entities.NewChangeEvent(table, changeType, id)
	if err := bus.Publish(context.WithoutCancel(ctx), providers.TableChannel(table), ev); err != nil {
		logger.Warn().Err(err).Str("table", table).Str("record_id", id).Msg("failed to publish change event")
	}
}
