package repositories

import (
	"context"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// ReviewRepository defines the interface for review data operations
type ReviewRepository interface {
	Create(ctx context.Context, review *entities.Review) (*entities.Review, error)

	// List retrieves reviews newest first; approvedOnly restricts to public testimonials
	List(ctx context.Context, approvedOnly bool) ([]*entities.Review, error)

	Update(ctx context.Context, id string, patch entities.ReviewPatch) (*entities.Review, error)
	Delete(ctx context.Context, id string) error
}
