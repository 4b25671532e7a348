package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/deeplink"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const searchLimit = 50

var errReadOnlyCatalog = apperrors.NewInternalError("catalog has no live view", nil)

// ServiceLinks are the outbound links shown on a service page
type ServiceLinks struct {
	Directions string `json:"directions"`
	WhatsApp   string `json:"whatsapp,omitempty"`
	Email      string `json:"email,omitempty"`
}

// ServiceDetail is a service with its deep links
type ServiceDetail struct {
	*entities.Service
	Links ServiceLinks `json:"links"`
}

// CatalogService serves the public catalog and the admin service editor
type CatalogService struct {
	view      *ServiceView
	repo      repositories.ServiceRepository
	search    repositories.ServiceSearchRepository
	validator *validation.Validator
	images    *ImageUploader
	region    string
	logger    zerolog.Logger
}

// NewCatalogService creates a catalog service. search may be nil, in which
// case free-text queries are answered from the live view. Without a view,
// reads go to the store and writes are unavailable.
func NewCatalogService(
	view *ServiceView,
	repo repositories.ServiceRepository,
	search repositories.ServiceSearchRepository,
	v *validation.Validator,
	images *ImageUploader,
	region string,
) *CatalogService {
	return &CatalogService{
		view:      view,
		repo:      repo,
		search:    search,
		validator: v,
		images:    images,
		region:    region,
		logger:    observability.ComponentLogger("catalog"),
	}
}

// List returns the catalog filtered by category ("" or "All" for every
// category) and by a free-text query
func (s *CatalogService) List(ctx context.Context, category, query string) ([]*entities.Service, error) {
	category = strings.TrimSpace(category)
	if category == entities.CategoryAll {
		category = ""
	}
	query = strings.TrimSpace(query)

	if query != "" && s.search != nil {
		results, err := s.search.Search(ctx, repositories.ServiceSearchParams{
			Query:    query,
			Category: category,
			Limit:    searchLimit,
		})
		if err == nil {
			return s.hydrate(ctx, results, category)
		}
		s.logger.Warn().Err(err).Str("query", query).Msg("search unavailable, filtering live catalog")
	}

	if s.view == nil {
		all, err := s.repo.List(ctx, repositories.ServiceFilter{Category: category})
		if err != nil {
			return nil, err
		}
		return FilterServices(all, category, query), nil
	}
	return FilterServices(s.view.List(), category, query), nil
}

// hydrate maps search hits back onto current catalog rows, keeping the
// search ranking. Hits for rows that no longer exist are dropped.
func (s *CatalogService) hydrate(ctx context.Context, hits []*entities.Service, category string) ([]*entities.Service, error) {
	var lookup func(id string) (*entities.Service, bool)
	if s.view != nil {
		lookup = s.view.Get
	} else {
		all, err := s.repo.List(ctx, repositories.ServiceFilter{Category: category})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*entities.Service, len(all))
		for _, svc := range all {
			byID[svc.ID] = svc
		}
		lookup = func(id string) (*entities.Service, bool) {
			svc, ok := byID[id]
			return svc, ok
		}
	}

	out := make([]*entities.Service, 0, len(hits))
	for _, hit := range hits {
		svc, ok := lookup(hit.ID)
		if !ok {
			continue
		}
		out = append(out, svc)
	}
	return FilterServices(out, category, ""), nil
}

// FilterServices keeps the services in category whose name, description,
// location or category contains query, ignoring case
func FilterServices(services []*entities.Service, category, query string) []*entities.Service {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*entities.Service, 0, len(services))
	for _, svc := range services {
		if category != "" && category != entities.CategoryAll && svc.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(svc.Name), q) &&
			!strings.Contains(strings.ToLower(svc.Description), q) &&
			!strings.Contains(strings.ToLower(svc.Location), q) &&
			!strings.Contains(strings.ToLower(svc.Category), q) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

// Get returns one service with its deep links. The live view answers first;
// the store is asked when the view does not have the row yet.
func (s *CatalogService) Get(ctx context.Context, id string) (*ServiceDetail, error) {
	var (
		svc *entities.Service
		ok  bool
	)
	if s.view != nil {
		svc, ok = s.view.Get(id)
	}
	if !ok {
		var err error
		if svc, err = s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return &ServiceDetail{Service: svc, Links: s.links(svc)}, nil
}

func (s *CatalogService) links(svc *entities.Service) ServiceLinks {
	parts := []string{svc.Name}
	if svc.Location != "" && !strings.EqualFold(svc.Location, s.region) {
		parts = append(parts, svc.Location)
	}
	parts = append(parts, s.region, "Himachal Pradesh")

	links := ServiceLinks{Directions: deeplink.MapSearch(strings.Join(parts, ", "))}
	if deeplink.Digits(svc.Contact.Phone) != "" {
		links.WhatsApp = deeplink.WhatsApp(svc.Contact.Phone, "")
	}
	if svc.Contact.Email != "" {
		links.Email = deeplink.Mailto(svc.Contact.Email, "", "")
	}
	return links
}

// Create validates and stores a new service
func (s *CatalogService) Create(ctx context.Context, in ServiceInput) (*entities.Service, error) {
	if s.view == nil {
		return nil, errReadOnlyCatalog
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	svc := in.toService()
	if svc.Location == "" {
		svc.Location = s.region
	}

	created, err := s.view.Create(ctx, svc)
	if err != nil {
		return nil, err
	}
	s.index(ctx, created)
	return created, nil
}

// Update validates and applies a partial update
func (s *CatalogService) Update(ctx context.Context, id string, patch entities.ServicePatch) (*entities.Service, error) {
	if s.view == nil {
		return nil, errReadOnlyCatalog
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("nothing to update")
	}
	if err := s.validator.Validate(patchRules(patch)); err != nil {
		return nil, err
	}

	updated, err := s.view.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)
	return updated, nil
}

// Delete removes a service
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if s.view == nil {
		return errReadOnlyCatalog
	}
	if err := s.view.Delete(ctx, id); err != nil {
		return err
	}
	s.unindex(ctx, id)
	return nil
}

// UploadImages stores images for the admin service form. existing is the
// number of images already on the service.
func (s *CatalogService) UploadImages(ctx context.Context, existing int, files []ImageFile) ([]string, []ImageRejection, error) {
	return s.images.UploadServiceImages(ctx, existing, files)
}

// Reindex pushes every stored service into the search index and returns how many were indexed
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, apperrors.NewValidationError("search is not configured")
	}
	all, err := s.repo.List(ctx, repositories.ServiceFilter{})
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, svc := range all {
		if err := s.search.Index(ctx, svc); err != nil {
			s.logger.Error().Err(err).Str("service_id", svc.ID).Msg("failed to index service")
			continue
		}
		indexed++
	}
	return indexed, nil
}

// Indexed keeps the search index in step with a service written elsewhere
func (s *CatalogService) Indexed(ctx context.Context, svc *entities.Service) {
	s.index(ctx, svc)
}

// StartIndexSync keeps the search index in step with service changes made by
// any client. The returned channel is closed once the loop has stopped.
func (s *CatalogService) StartIndexSync(ctx context.Context, bus providers.EventBus) (<-chan struct{}, error) {
	done := make(chan struct{})
	if s.search == nil || bus == nil {
		close(done)
		return done, nil
	}

	events, err := bus.Subscribe(ctx, providers.TableChannel(entities.TableServices))
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.syncIndex(ctx, ev)
			}
		}
	}()
	s.logger.Info().Msg("started search index sync")
	return done, nil
}

func (s *CatalogService) syncIndex(ctx context.Context, ev *entities.ChangeEvent) {
	if ev.Type == entities.ChangeTypeAny || ev.RecordID == "" {
		if _, err := s.Reindex(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("search reindex failed")
		}
		return
	}

	if ev.Type == entities.ChangeTypeDelete {
		s.unindex(ctx, ev.RecordID)
		return
	}

	svc, err := s.repo.GetByID(ctx, ev.RecordID)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		s.unindex(ctx, ev.RecordID)
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("service_id", ev.RecordID).Msg("failed to load service for indexing")
		return
	}
	s.index(ctx, svc)
}

func (s *CatalogService) index(ctx context.Context, svc *entities.Service) {
	if s.search == nil || svc == nil {
		return
	}
	if err := s.search.Index(ctx, svc); err != nil {
		s.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("failed to index service")
	}
}

func (s *CatalogService) unindex(ctx context.Context, id string) {
	if s.search == nil {
		return
	}
	if err := s.search.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("service_id", id).Msg("failed to remove service from search index")
	}
}
