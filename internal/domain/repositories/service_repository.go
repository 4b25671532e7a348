package repositories

import (
	"context"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// ServiceFilter narrows a catalog listing
type ServiceFilter struct {
	Category string
}

// ServiceRepository defines the interface for catalog data operations
type ServiceRepository interface {
	// List retrieves services, newest first
	List(ctx context.Context, filter ServiceFilter) ([]*entities.Service, error)

	// GetByID retrieves a service by ID
	GetByID(ctx context.Context, id string) (*entities.Service, error)

	// Create inserts a service and returns the stored row
	Create(ctx context.Context, service *entities.Service) (*entities.Service, error)

	// Update applies a partial update and returns the stored row
	Update(ctx context.Context, id string, patch entities.ServicePatch) (*entities.Service, error)

	// Delete deletes a service
	Delete(ctx context.Context, id string) error
}

// ServiceSearchParams defines free-text catalog search parameters
type ServiceSearchParams struct {
	Query    string
	Category string
	Limit    int
}

// ServiceSearchRepository defines the interface for catalog search (e.g. Typesense)
type ServiceSearchRepository interface {
	// Search searches services by free text
	Search(ctx context.Context, params ServiceSearchParams) ([]*entities.Service, error)

	// Index indexes or re-indexes a service
	Index(ctx context.Context, service *entities.Service) error

	// Delete removes a service from the index
	Delete(ctx context.Context, id string) error
}
