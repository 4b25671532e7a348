package repositories

import (
	"context"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// ListingRepository defines the interface for business submission data operations
type ListingRepository interface {
	Create(ctx context.Context, listing *entities.Listing) (*entities.Listing, error)
	GetByID(ctx context.Context, id string) (*entities.Listing, error)

	// ListByStatus retrieves listings in a moderation state, newest first
	ListByStatus(ctx context.Context, status entities.ListingStatus) ([]*entities.Listing, error)

	// Approve marks the listing approved and promotes it to a Service in one
	// transaction. Promotion happens at most once per listing; approving an
	// already approved listing only fills in a missing Service. Approving a
	// rejected listing is a conflict.
	Approve(ctx context.Context, id string, defaults entities.PromotionDefaults) (*entities.Listing, *entities.Service, error)

	// Reject moves a pending listing to rejected. Rejecting an approved listing is a conflict.
	Reject(ctx context.Context, id string) (*entities.Listing, error)

	// ListApprovedWithoutService finds approved listings that were never promoted
	ListApprovedWithoutService(ctx context.Context) ([]*entities.Listing, error)
}
