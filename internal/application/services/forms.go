package services

import (
	"strings"

	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
)

// ListingSubmission is the public "list your business" form
type ListingSubmission struct {
	BusinessName string `json:"business_name" validate:"required,max=120"`
	OwnerName    string `json:"owner_name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"required,contact_email"`
	Category     string `json:"category" validate:"required,category"`
	About        string `json:"about" validate:"about"`
	Description  string `json:"description" validate:"required,max=2000"`
}

func (s *ListingSubmission) Normalize() {
	s.BusinessName = strings.TrimSpace(s.BusinessName)
	s.OwnerName = strings.TrimSpace(s.OwnerName)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.TrimSpace(s.Email)
	s.Category = strings.TrimSpace(s.Category)
	s.Description = strings.TrimSpace(s.Description)
}

// ReviewSubmission is the public testimonial form
type ReviewSubmission struct {
	Name   string `json:"name" validate:"required,max=120"`
	Email  string `json:"email" validate:"omitempty,contact_email"`
	Review string `json:"review" validate:"required,max=1000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

// Normalize trims surrounding whitespace. Validation runs on the normalized form.
func (s *ReviewSubmission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Review = strings.TrimSpace(s.Review)
}

// LeadSubmission is the site popup form
type LeadSubmission struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,lead_phone"`
	Email string `json:"email" validate:"omitempty,contact_email"`
}

func (s *LeadSubmission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.TrimSpace(s.Email)
}

// ServiceInput is the admin service form
type ServiceInput struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Category    string   `json:"category" validate:"required,category"`
	Description string   `json:"description" validate:"max=2000"`
	About       string   `json:"about" validate:"about"`
	Location    string   `json:"location" validate:"max=200"`
	Rating      float64  `json:"rating" validate:"min=0,max=5"`
	Images      []string `json:"images" validate:"max=3"`
	Phone       string   `json:"phone" validate:"omitempty,phone"`
	Email       string   `json:"email" validate:"omitempty,contact_email"`
}

func (in *ServiceInput) toService() *entities.Service {
	return &entities.Service{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		About:       in.About,
		Location:    strings.TrimSpace(in.Location),
		Rating:      in.Rating,
		Images:      append([]string{}, in.Images...),
		Contact:     entities.Contact{Phone: strings.TrimSpace(in.Phone), Email: strings.TrimSpace(in.Email)},
	}
}

// servicePatchRules validates the fields a ServicePatch sets
type servicePatchRules struct {
	Name        *string   `json:"name" validate:"omitnil,min=1,max=120"`
	Category    *string   `json:"category" validate:"omitnil,category"`
	Description *string   `json:"description" validate:"omitnil,max=2000"`
	About       *string   `json:"about" validate:"omitnil,about"`
	Location    *string   `json:"location" validate:"omitnil,max=200"`
	Rating      *float64  `json:"rating" validate:"omitnil,min=0,max=5"`
	Images      *[]string `json:"images" validate:"omitnil,max=3"`
	Phone       *string   `json:"phone" validate:"omitempty,phone"`
	Email       *string   `json:"email" validate:"omitempty,contact_email"`
}

func patchRules(p entities.ServicePatch) servicePatchRules {
	return servicePatchRules{
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		About:       p.About,
		Location:    p.Location,
		Rating:      p.Rating,
		Images:      p.Images,
		Phone:       p.Phone,
		Email:       p.Email,
	}
}

// ContactRequest is the contact page form
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"omitempty,contact_email"`
	Phone   string `json:"phone" validate:"max=20"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=2000"`
}

func (s *ContactRequest) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)
}
