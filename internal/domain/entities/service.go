package entities

import "time"

// Contact holds the public ways to reach a business
type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Service is a published directory entry visible in the public catalog
type Service struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Category        string    `json:"category" db:"category"`
	Description     string    `json:"description" db:"description"`
	About           string    `json:"about" db:"about"`
	Location        string    `json:"location" db:"location"`
	Rating          float64   `json:"rating" db:"rating"`
	Images          []string  `json:"images" db:"-"`
	Contact         Contact   `json:"contact" db:"-"`
	Owner           string    `json:"owner,omitempty" db:"owner"`
	SourceListingID *string   `json:"source_listing_id,omitempty" db:"source_listing_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RecordID returns the service identifier
func (s *Service) RecordID() string { return s.ID }

// ServiceNewestFirst orders services by creation time, most recent first
func ServiceNewestFirst(a, b *Service) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

// ServicePatch is a partial update of a Service. Nil fields are left unchanged.
type ServicePatch struct {
	Name        *string   `json:"name,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	About       *string   `json:"about,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ServicePatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Description == nil && p.About == nil &&
		p.Location == nil && p.Rating == nil && p.Images == nil && p.Phone == nil && p.Email == nil
}

// Apply returns a copy of s with the patch applied
func (p ServicePatch) Apply(s *Service) *Service {
	out := *s
	out.Images = append([]string(nil), s.Images...)
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.About != nil {
		out.About = *p.About
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	if p.Images != nil {
		out.Images = append([]string(nil), (*p.Images)...)
	}
	if p.Phone != nil {
		out.Contact.Phone = *p.Phone
	}
	if p.Email != nil {
		out.Contact.Email = *p.Email
	}
	return &out
}

// PromotionDefaults are the values a promoted listing does not carry itself
type PromotionDefaults struct {
	Location string
	Rating   float64
}

// ServiceFromListing maps an approved listing onto a new catalog entry
func ServiceFromListing(l *Listing, defaults PromotionDefaults) *Service {
	listingID := l.ID
	return &Service{
		Name:            l.BusinessName,
		Category:        l.Category,
		Description:     l.Description,
		About:           l.About,
		Location:        defaults.Location,
		Rating:          defaults.Rating,
		Images:          append([]string(nil), l.Images...),
		Contact:         Contact{Phone: l.Phone, Email: l.Email},
		Owner:           l.OwnerName,
		SourceListingID: &listingID,
	}
}
