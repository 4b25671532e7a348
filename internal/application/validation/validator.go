// Package validation checks submitted forms before anything reaches the store.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

// AboutMaxLength is the longest "about" text accepted on a listing or service
const AboutMaxLength = 50

var (
	phonePattern     = regexp.MustCompile(`^\+?\d{7,15}$`)
	leadPhonePattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	aboutPattern     = regexp.MustCompile(`^[A-Za-z\s]*$`)
)

// Validator wraps go-playground/validator with the directory's form rules
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom tags registered
func New() *Validator {
	v := validator.New()

	// Report json field names so clients can map errors onto their inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation tag %q: %v", tag, err))
		}
	}
	mustRegister("phone", matches(phonePattern))
	mustRegister("lead_phone", matches(leadPhonePattern))
	mustRegister("contact_email", matches(emailPattern))
	mustRegister("about", validateAbout)
	mustRegister("category", validateCategory)

	return &Validator{validate: v}
}

// Validate checks s and returns a VALIDATION AppError carrying one message per failed field
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewInternalError("validation failed", err)
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return apperrors.NewFieldValidationError(fields)
}

// ValidAbout reports whether s satisfies the "about" rule
func ValidAbout(s string) bool {
	return utf8.RuneCountInString(s) <= AboutMaxLength && aboutPattern.MatchString(s)
}

// ValidPhone reports whether s is an acceptable listing phone number
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func validateAbout(fl validator.FieldLevel) bool {
	return ValidAbout(fl.Field().String())
}

func validateCategory(fl validator.FieldLevel) bool {
	return entities.IsValidCategory(fl.Field().String())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "phone":
		return "Must be 7 to 15 digits, optionally starting with +"
	case "lead_phone":
		return "Must be exactly 10 digits"
	case "contact_email":
		return "Must be a valid email address"
	case "about":
		return fmt.Sprintf("Only letters and spaces, at most %d characters", AboutMaxLength)
	case "category":
		return "Must be one of the listed categories"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	}
	return fmt.Sprintf("Invalid value (failed on '%s' tag)", fe.Tag())
}
