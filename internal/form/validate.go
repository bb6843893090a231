package form

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
	"github.com/woozymasta/ecoleta/internal/api"
)

// Rules tunes submission validation.
type Rules struct {
	PhoneRegion  string
	RequireItems bool
}

// DefaultRules validates Brazilian phone numbers and requires at least one item.
func DefaultRules() Rules {
	return Rules{PhoneRegion: "BR", RequireItems: true}
}

// ValidationError lists the invalid fields of a submission, keyed by payload field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// submission mirrors api.Point with validation tags. Values are checked, never rewritten.
type submission struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Whatsapp string  `json:"whatsapp" validate:"required,whatsapp"`
	UF       string  `json:"uf" validate:"required,len=2,alpha,uppercase"`
	City     string  `json:"city" validate:"required,ne=0"`
	Items    []int   `json:"items" validate:"omitempty,dive,gt=0"`
	Lat      float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Lng      float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validator checks a point before it is posted.
type Validator struct {
	v     *validator.Validate
	rules Rules
}

// NewValidator builds a validator for rules.
func NewValidator(rules Rules) *Validator {
	if rules.PhoneRegion == "" {
		rules.PhoneRegion = "BR"
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	region := rules.PhoneRegion
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("whatsapp", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String(), region)
	})

	return &Validator{v: v, rules: rules}
}

// ValidPhone reports whether s parses as a valid number for region.
func ValidPhone(s, region string) bool {
	num, err := phonenumbers.Parse(s, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// Validate returns a *ValidationError describing every invalid field of p.
func (val *Validator) Validate(p api.Point) error {
	fields := map[string]string{}

	err := val.v.Struct(submission{
		Name:     strings.TrimSpace(p.Name),
		Email:    p.Email,
		Whatsapp: p.Whatsapp,
		UF:       p.UF,
		City:     p.City,
		Items:    p.Items,
		Lat:      p.Latitude,
		Lng:      p.Longitude,
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := fe.Field()
			if i := strings.IndexByte(name, '['); i >= 0 {
				name = name[:i]
			}
			if _, ok := fields[name]; !ok {
				fields[name] = message(fe)
			}
		}
	} else if err != nil {
		return err
	}

	if p.Latitude == 0 && p.Longitude == 0 {
		fields["position"] = "select the address on the map"
	}
	if val.rules.RequireItems && len(p.Items) == 0 {
		fields["items"] = "select at least one item"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "whatsapp":
		return "must be a valid phone number"
	case "ne":
		return "must be selected"
	case "len", "alpha", "uppercase":
		return "must be a state code"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
