package repositories

import (
	"context"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// LeadRepository defines the interface for popup lead data operations
type LeadRepository interface {
	Create(ctx context.Context, lead *entities.Lead) (*entities.Lead, error)
	List(ctx context.Context) ([]*entities.Lead, error)
}
