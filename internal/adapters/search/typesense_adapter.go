package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	tsclient "github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	defaultSearchLimit = 50
	queryByFields      = "name,category,description,about"
)

// TypesenseAdapter implements catalog search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ServiceSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

func serviceDocument(s *entities.Service) map[string]interface{} {
	return map[string]interface{}{
		"id":          s.ID,
		"name":        s.Name,
		"category":    s.Category,
		"description": s.Description,
		"about":       s.About,
		"location":    s.Location,
		"rating":      s.Rating,
		"created_at":  s.CreatedAt.Unix(),
	}
}

// Index indexes a service
func (a *TypesenseAdapter) Index(ctx context.Context, service *entities.Service) error {
	_, err := a.client.Client().Collection(tsclient.ServicesCollection).Documents().Upsert(ctx, serviceDocument(service))
	if err != nil {
		return fmt.Errorf("failed to index service: %w", err)
	}
	return nil
}

// Delete removes a service from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.ServicesCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete service from index: %w", err)
	}
	return nil
}

// Search searches services by free text, best match first. Returned services
// carry only indexed fields.
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.ServiceSearchParams) ([]*entities.Service, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(queryByFields),
		PerPage: pointer.Int(limit),
	}
	if params.Category != "" && params.Category != entities.CategoryAll {
		searchParams.FilterBy = pointer.String(categoryFilter(params.Category))
	}

	result, err := a.client.Client().Collection(tsclient.ServicesCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search services: %w", err)
	}

	services := []*entities.Service{}
	if result.Hits == nil {
		return services, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		services = append(services, serviceFromDocument(*hit.Document))
	}
	return services, nil
}

// categoryFilter builds an exact-match filter; backticks keep categories
// containing '&', ',' or parentheses intact.
func categoryFilter(category string) string {
	return fmt.Sprintf("category:=`%s`", strings.ReplaceAll(category, "`", ""))
}

func serviceFromDocument(doc map[string]interface{}) *entities.Service {
	s := &entities.Service{
		ID:          stringField(doc, "id"),
		Name:        stringField(doc, "name"),
		Category:    stringField(doc, "category"),
		Description: stringField(doc, "description"),
		About:       stringField(doc, "about"),
		Location:    stringField(doc, "location"),
	}
	if rating, ok := doc["rating"].(float64); ok {
		s.Rating = rating
	}
	return s
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
