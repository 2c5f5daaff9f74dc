package checkout

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const challengeField = "challenge_answer"

// ShippingForm is the checkout submission. Values are trimmed by Normalize
// before validation.
type ShippingForm struct {
	FullName        string `json:"full_name" validate:"required"`
	Phone           string `json:"phone" validate:"required,phone_digits"`
	Wilaya          string `json:"wilaya" validate:"required"`
	Commune         string `json:"commune" validate:"required"`
	Address         string `json:"address" validate:"required"`
	PostalCode      string `json:"postal_code"`
	Notes           string `json:"notes"`
	ChallengeAnswer string `json:"challenge_answer" validate:"required"`
}

// FieldError is one violation shown next to its form field.
type FieldError struct {
	Field   string         `json:"field"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		return isPhoneDigits(fl.Field().String())
	})
	return v
}

// Normalize trims every field in place.
func (f *ShippingForm) Normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Wilaya = strings.TrimSpace(f.Wilaya)
	f.Commune = strings.TrimSpace(f.Commune)
	f.Address = strings.TrimSpace(f.Address)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.Notes = strings.TrimSpace(f.Notes)
	f.ChallengeAnswer = strings.TrimSpace(f.ChallengeAnswer)
}

// Validate reports every field violation rather than stopping at the first.
func (f ShippingForm) Validate() []FieldError {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "form", Code: pkgerrors.CodeValidation, Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Code: pkgerrors.CodeValidation, Message: fieldMessage(fe)})
	}
	return out
}

// PhoneDigits strips spaces and one leading plus sign.
func PhoneDigits(phone string) string {
	cleaned := strings.ReplaceAll(phone, " ", "")
	return strings.TrimPrefix(cleaned, "+")
}

func isPhoneDigits(phone string) bool {
	digits := PhoneDigits(phone)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "phone_digits":
		return "Phone number must contain digits only."
	}
	return "Invalid value."
}

// optional turns an empty string into nil for nullable columns.
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
