package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/utils"
)

// ListingInput is the editable content of a listing. Exactly one of Machine
// and Property is read, according to the listing variant.
type ListingInput struct {
	Title      string `json:"title"`
	PriceCents *int64 `json:"price_cents,omitempty"`

	// Price accepts a formatted amount ("R$ 20.000,00") when PriceCents is
	// not given.
	Price string `json:"price,omitempty"`

	State       string `json:"state"`
	City        string `json:"city"`
	Description string `json:"description"`

	Machine  *domain.MachineDetails  `json:"machine,omitempty"`
	Property *domain.PropertyDetails `json:"property,omitempty"`

	// PrincipalIndex picks the principal among the uploaded images on
	// create. Defaults to the first one.
	PrincipalIndex *int `json:"principal_index,omitempty"`

	// Message is an optional note a moderator attaches to an edit.
	Message string `json:"message,omitempty"`
}

const minYear = 1950

// normalize trims free text and resolves the price. It returns the
// validation result for variant.
func (in *ListingInput) normalize(variant domain.Variant, now time.Time) error {
	v := &ValidationError{}

	in.Title = strings.TrimSpace(in.Title)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.City = strings.TrimSpace(in.City)
	in.Description = strings.TrimSpace(in.Description)

	minTitle := 3
	if variant == domain.VariantProperty {
		minTitle = 5
	}
	if utf8.RuneCountInString(in.Title) < minTitle {
		v.add("title", fmt.Sprintf("must be at least %d characters", minTitle))
	}

	if in.PriceCents == nil && strings.TrimSpace(in.Price) != "" {
		cents, err := utils.ParseBRL(in.Price)
		if err != nil {
			v.add("price", "is not a valid amount")
		} else {
			in.PriceCents = &cents
		}
	}
	switch {
	case in.PriceCents == nil:
		v.add("price", "is required")
	case *in.PriceCents < 0:
		v.add("price", "must not be negative")
	case variant == domain.VariantProperty && *in.PriceCents == 0:
		v.add("price", "must be greater than zero")
	}

	if utf8.RuneCountInString(in.State) < 2 {
		v.add("state", "is required")
	}
	if in.City == "" {
		v.add("city", "is required")
	}

	switch variant {
	case domain.VariantMachine:
		in.Property = nil
		validateMachine(v, in.Machine, now)
	case domain.VariantProperty:
		in.Machine = nil
		validateProperty(v, in.Property)
	default:
		v.add("variant", "must be machine or property")
	}
	return v.orNil()
}

func validateMachine(v *ValidationError, m *domain.MachineDetails, now time.Time) {
	if m == nil {
		v.add("machine", "is required")
		return
	}
	m.Type = strings.TrimSpace(m.Type)
	m.Brand = strings.TrimSpace(m.Brand)
	if m.Type == "" {
		v.add("type", "is required")
	}
	if m.Brand == "" {
		v.add("brand", "is required")
	}
	if m.Year < minYear || m.Year > now.Year() {
		v.add("year", fmt.Sprintf("must be between %d and %d", minYear, now.Year()))
	}
	if m.Hours < 0 {
		v.add("hours", "must not be negative")
	}
}

func validateProperty(v *ValidationError, p *domain.PropertyDetails) {
	if p == nil {
		v.add("property", "is required")
		return
	}
	if p.TotalArea <= 0 {
		v.add("total_area", "must be greater than zero")
	}
	for field, area := range map[string]*float64{
		"crop_area":    p.CropArea,
		"pasture_area": p.PastureArea,
		"reserve_area": p.ReserveArea,
	} {
		if area != nil && *area < 0 {
			v.add(field, "must not be negative")
		}
	}
}

// imageCountError validates the number of images a listing would end up with.
func imageCountError(n, limit int) error {
	switch {
	case n < 1:
		return invalid("images", "at least one image is required")
	case limit > 0 && n > limit:
		return invalid("images", fmt.Sprintf("at most %d images are allowed", limit))
	}
	return nil
}

// mergeValidation joins two validation results into one.
func mergeValidation(errs ...error) error {
	out := &ValidationError{}
	for _, err := range errs {
		var v *ValidationError
		if errors.As(err, &v) {
			for k, msg := range v.Fields {
				out.add(k, msg)
			}
		}
	}
	return out.orNil()
}
