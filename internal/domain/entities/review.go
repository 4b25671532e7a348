package entities

import "time"

// Review is a visitor testimonial. Only approved reviews are public.
type Review struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Review    string    `json:"review" db:"review"`
	Rating    int       `json:"rating" db:"rating"`
	Approved  bool      `json:"approved" db:"approved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RecordID returns the review identifier
func (r *Review) RecordID() string { return r.ID }

// ReviewPatch is a moderation change to a review
type ReviewPatch struct {
	Approved *bool `json:"approved,omitempty"`
}

// NewestFirst orders reviews by creation time, most recent first
func NewestFirst(a, b *Review) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
