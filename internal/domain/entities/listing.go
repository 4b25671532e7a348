package entities

import "time"

// ListingStatus is the moderation state of a submitted listing
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusPending, ListingStatusApproved, ListingStatusRejected:
		return true
	}
	return false
}

// MaxImages is the most images a listing or service may carry
const MaxImages = 3

// Listing is a business submission awaiting moderation (table "businesses")
type Listing struct {
	ID           string        `json:"id" db:"id"`
	BusinessName string        `json:"business_name" db:"business_name"`
	OwnerName    string        `json:"owner_name" db:"owner_name"`
	Phone        string        `json:"phone" db:"phone"`
	Email        string        `json:"email" db:"email"`
	Category     string        `json:"category" db:"category"`
	About        string        `json:"about" db:"about"`
	Description  string        `json:"description" db:"description"`
	Images       []string      `json:"images" db:"-"`
	Status       ListingStatus `json:"status" db:"status"`
	SubmittedAt  time.Time     `json:"submitted_at" db:"submitted_at"`
	// PromotedAt is set once the listing's Service has been created
	PromotedAt *time.Time `json:"promoted_at,omitempty" db:"promoted_at"`
}

// RecordID returns the listing identifier
func (l *Listing) RecordID() string { return l.ID }

// ListingNewestFirst orders listings by submission time, most recent first
func ListingNewestFirst(a, b *Listing) bool {
	return a.SubmittedAt.After(b.SubmittedAt)
}

// ListingPatch carries a moderation decision
type ListingPatch struct {
	Status ListingStatus `json:"status"`
}
