package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/deeplink"
)

const messengerTimeout = 30 * time.Second

// ModerationConfig holds what the approval message and promotion need
type ModerationConfig struct {
	SiteName  string
	SiteURL   string
	Region    string
	Signature string
	Defaults  entities.PromotionDefaults
}

// ApprovalResult is returned to the admin client after an approval. The
// client opens WhatsAppLink to congratulate the owner.
type ApprovalResult struct {
	Listing      *entities.Listing `json:"listing"`
	Service      *entities.Service `json:"service"`
	Message      string            `json:"message"`
	WhatsAppLink string            `json:"whatsapp_link,omitempty"`
}

// ReconcileReport summarises one reconciliation sweep
type ReconcileReport struct {
	Checked  int               `json:"checked"`
	Promoted []string          `json:"promoted"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// ServiceIndexer keeps search in step with services written outside the catalog service
type ServiceIndexer interface {
	Indexed(ctx context.Context, svc *entities.Service)
}

// ModerationService approves and rejects business submissions
type ModerationService struct {
	listings  repositories.ListingRepository
	pending   *ListingView
	services  *ServiceView
	indexer   ServiceIndexer
	messenger providers.Messenger
	bus       providers.EventBus
	metrics   *observability.Metrics
	cfg       ModerationConfig
	logger    zerolog.Logger

	sends sync.WaitGroup
}

// ModerationOption configures a ModerationService
type ModerationOption func(*ModerationService)

// WithLiveViews patches the pending and services views after each decision
func WithLiveViews(pending *ListingView, services *ServiceView) ModerationOption {
	return func(s *ModerationService) {
		s.pending = pending
		s.services = services
	}
}

// WithIndexer indexes promoted services
func WithIndexer(indexer ServiceIndexer) ModerationOption {
	return func(s *ModerationService) { s.indexer = indexer }
}

// WithMessenger sends the approval message server-side as well
func WithMessenger(m providers.Messenger) ModerationOption {
	return func(s *ModerationService) { s.messenger = m }
}

// WithEventBus publishes change events when no live view does it
func WithEventBus(bus providers.EventBus) ModerationOption {
	return func(s *ModerationService) { s.bus = bus }
}

// WithMetrics records moderation decisions
func WithMetrics(m *observability.Metrics) ModerationOption {
	return func(s *ModerationService) { s.metrics = m }
}

// NewModerationService creates a new moderation service
func NewModerationService(listings repositories.ListingRepository, cfg ModerationConfig, opts ...ModerationOption) *ModerationService {
	s := &ModerationService{
		listings: listings,
		cfg:      cfg,
		logger:   observability.ComponentLogger("moderation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Approve promotes a listing to the public catalog. The status change and the
// Service insert commit together; approving twice returns the same Service.
func (s *ModerationService) Approve(ctx context.Context, id string) (*ApprovalResult, error) {
	ctx, span := observability.StartSpan(ctx, "ModerationService.Approve")
	defer span.End()

	listing, service, err := s.listings.Approve(ctx, id, s.cfg.Defaults)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordModeration(ctx, s.metrics, "approved")

	s.applyPromotion(ctx, listing, service)

	message := s.ApprovalMessage(listing)
	result := &ApprovalResult{Listing: listing, Service: service, Message: message}
	if deeplink.Digits(listing.Phone) != "" {
		result.WhatsAppLink = deeplink.WhatsApp(listing.Phone, message)
		s.sendAsync(ctx, listing, message)
	}

	s.logger.Info().
		Str("listing_id", listing.ID).
		Str("service_id", service.ID).
		Msg("listing approved")
	return result, nil
}

// Pending returns the listings awaiting a decision
func (s *ModerationService) Pending(ctx context.Context) ([]*entities.Listing, error) {
	if s.pending != nil {
		return s.pending.List(), nil
	}
	return s.listings.ListByStatus(ctx, entities.ListingStatusPending)
}

// Reject marks a pending listing rejected. No Service is created.
func (s *ModerationService) Reject(ctx context.Context, id string) (*entities.Listing, error) {
	var (
		listing *entities.Listing
		err     error
	)
	if s.pending != nil {
		listing, err = s.pending.Update(ctx, id, entities.ListingPatch{Status: entities.ListingStatusRejected})
	} else {
		listing, err = s.listings.Reject(ctx, id)
		if err == nil {
			publishChange(ctx, s.bus, s.logger, entities.TableBusinesses, entities.ChangeTypeUpdate, listing.ID)
		}
	}
	if err != nil {
		return nil, err
	}

	observability.RecordModeration(ctx, s.metrics, "rejected")
	s.logger.Info().Str("listing_id", listing.ID).Msg("listing rejected")
	return listing, nil
}

// Reconcile promotes approved listings that never got a Service, such as rows
// approved by another client whose follow-up insert failed
func (s *ModerationService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	orphans, err := s.listings.ListApprovedWithoutService(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Checked: len(orphans), Promoted: []string{}}
	for _, l := range orphans {
		listing, service, err := s.listings.Approve(ctx, l.ID, s.cfg.Defaults)
		if err != nil {
			if report.Failed == nil {
				report.Failed = map[string]string{}
			}
			report.Failed[l.ID] = err.Error()
			s.logger.Error().Err(err).Str("listing_id", l.ID).Msg("failed to promote approved listing")
			continue
		}
		s.applyPromotion(ctx, listing, service)
		report.Promoted = append(report.Promoted, listing.ID)
	}

	if len(report.Promoted) > 0 || len(report.Failed) > 0 {
		s.logger.Info().
			Int("checked", report.Checked).
			Int("promoted", len(report.Promoted)).
			Int("failed", len(report.Failed)).
			Msg("reconciliation sweep finished")
	}
	return report, nil
}

// StartPeriodicReconcile runs Reconcile every interval until ctx is done.
// The returned channel is closed once the loop has stopped.
func (s *ModerationService) StartPeriodicReconcile(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("stopping reconciliation sweep")
				return
			case <-ticker.C:
				if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error().Err(err).Msg("reconciliation sweep failed")
				}
			}
		}
	}()
	s.logger.Info().Dur("interval", interval).Msg("started periodic reconciliation sweep")
	return done
}

// ApprovalMessage composes the congratulation text sent to the owner
func (s *ModerationService) ApprovalMessage(l *entities.Listing) string {
	return fmt.Sprintf(`🎉 *Congratulations %s!* 🎉

Your business *%s* has been ✅ *approved* and is now live on *%s* 🌐

📍 Location: %s
📂 Category: %s

You can check your live listing here 👇
🔗 %s

Thank you for trusting us! 🚀

Regards,
*%s*
%s`, l.OwnerName, l.BusinessName, s.cfg.SiteName, s.cfg.Region, l.Category, s.cfg.SiteURL, s.cfg.Signature, s.cfg.SiteName)
}

// Wait blocks until every pending server-side message has been attempted
func (s *ModerationService) Wait() {
	s.sends.Wait()
}

func (s *ModerationService) applyPromotion(ctx context.Context, listing *entities.Listing, service *entities.Service) {
	if s.pending != nil {
		s.pending.Observe(ctx, entities.ChangeTypeUpdate, listing)
	} else {
		publishChange(ctx, s.bus, s.logger, entities.TableBusinesses, entities.ChangeTypeUpdate, listing.ID)
	}

	if s.services != nil {
		s.services.Observe(ctx, entities.ChangeTypeInsert, service)
	} else {
		publishChange(ctx, s.bus, s.logger, entities.TableServices, entities.ChangeTypeInsert, service.ID)
	}

	if s.indexer != nil {
		s.indexer.Indexed(ctx, service)
	}
}

func (s *ModerationService) sendAsync(ctx context.Context, listing *entities.Listing, message string) {
	if s.messenger == nil {
		return
	}

	s.sends.Add(1)
	go func() {
		defer s.sends.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), messengerTimeout)
		defer cancel()

		if err := s.messenger.SendText(sendCtx, listing.Phone, message); err != nil {
			s.logger.Warn().Err(err).Str("listing_id", listing.ID).Msg("failed to send approval message")
			return
		}
		s.logger.Info().Str("listing_id", listing.ID).Msg("approval message sent")
	}()
}
