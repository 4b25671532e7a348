package services

import (
	"fmt"

	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/pkg/deeplink"
)

// ContactLinks are the two ways the contact page hands a message to the site owner
type ContactLinks struct {
	Mailto   string `json:"mailto"`
	WhatsApp string `json:"whatsapp"`
}

// ContactService turns contact-page forms into outbound links. Nothing is
// delivered server-side.
type ContactService struct {
	validator *validation.Validator
	email     string
	phone     string
}

// NewContactService creates a contact service addressed to the owner's email and phone
func NewContactService(v *validation.Validator, email, phone string) *ContactService {
	return &ContactService{validator: v, email: email, phone: phone}
}

// Links validates the form and builds its mail draft and WhatsApp chat
func (s *ContactService) Links(form ContactRequest) (*ContactLinks, error) {
	form.Normalize()
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	subject := "Contact Form: " + form.Subject
	body := fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\nMessage:\n%s",
		form.Name, form.Email, form.Phone, form.Message)
	text := fmt.Sprintf("Hello, my name is %s.\nEmail: %s\nPhone: %s\nSubject: %s\n\nMessage:\n%s",
		form.Name, form.Email, form.Phone, form.Subject, form.Message)

	return &ContactLinks{
		Mailto:   deeplink.Mailto(s.email, subject, body),
		WhatsApp: deeplink.WhatsApp(s.phone, text),
	}, nil
}
