package search

import (
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

// Filters narrows a listing search. Zero values are ignored. Range bounds are
// inclusive.
type Filters struct {
	Q     string `json:"q,omitempty"`
	Type  string `json:"type,omitempty"`
	Brand string `json:"brand,omitempty"`
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`

	PriceMin *int64   `json:"price_min,omitempty"` // centavos
	PriceMax *int64   `json:"price_max,omitempty"`
	YearMin  *int64   `json:"year_min,omitempty"`
	YearMax  *int64   `json:"year_max,omitempty"`
	HoursMin *int64   `json:"hours_min,omitempty"`
	HoursMax *int64   `json:"hours_max,omitempty"`
	AreaMin  *float64 `json:"area_min,omitempty"` // hectares (total area)
	AreaMax  *float64 `json:"area_max,omitempty"`

	// Moderation and dashboard views only; public feeds ignore these.
	Variant        domain.Variant `json:"variant,omitempty"`
	Status         domain.Status  `json:"status,omitempty"`
	OwnerID        string         `json:"owner_id,omitempty"`
	IncludeDeleted bool           `json:"include_deleted,omitempty"`
}

const (
	machineSubquery  = "listings.id IN (SELECT listing_id FROM machine_details WHERE "
	propertySubquery = "listings.id IN (SELECT listing_id FROM property_details WHERE "
	escapeClause     = " ESCAPE '\\'"
)

func likePattern(s string) string {
	return "%" + repo.EscapeLike(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func variantScope(v domain.Variant) repo.Scope {
	return func(q *gorm.DB) *gorm.DB { return q.Where("listings.variant = ?", v) }
}

func slugScope(slugs []string) repo.Scope {
	return func(q *gorm.DB) *gorm.DB { return q.Where("listings.slug IN ?", slugs) }
}

// publicScope keeps only what anonymous visitors may see.
func publicScope(q *gorm.DB) *gorm.DB {
	return q.Where("listings.status = ? AND listings.deleted_at IS NULL", domain.StatusActive)
}

// textScope ORs a case-insensitive substring match over title, city, state
// and, for machines, type and brand.
func textScope(text string) repo.Scope {
	return func(q *gorm.DB) *gorm.DB {
		p := likePattern(text)
		return q.Where(
			"(LOWER(listings.title) LIKE ?"+escapeClause+
				" OR LOWER(listings.city) LIKE ?"+escapeClause+
				" OR LOWER(listings.state) LIKE ?"+escapeClause+
				" OR "+machineSubquery+"LOWER(type) LIKE ?"+escapeClause+" OR LOWER(brand) LIKE ?"+escapeClause+"))",
			p, p, p, p, p,
		)
	}
}

func rangeScope(column string, lo, hi any, wrap func(string) string) repo.Scope {
	return func(q *gorm.DB) *gorm.DB {
		if lo != nil {
			q = q.Where(wrap(column+" >= ?"), lo)
		}
		if hi != nil {
			q = q.Where(wrap(column+" <= ?"), hi)
		}
		return q
	}
}

func direct(cond string) string { return cond }
func inMachine(cond string) string { return machineSubquery + cond + ")" }
func inProperty(cond string) string { return propertySubquery + cond + ")" }

// scopes translates f into AND-combined predicates.
func (f Filters) scopes() []repo.Scope {
	var out []repo.Scope
	if strings.TrimSpace(f.Q) != "" {
		out = append(out, textScope(f.Q))
	}
	if t := strings.TrimSpace(f.Type); t != "" {
		out = append(out, func(q *gorm.DB) *gorm.DB {
			return q.Where(inMachine("LOWER(type) = ?"), strings.ToLower(t))
		})
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		out = append(out, func(q *gorm.DB) *gorm.DB {
			return q.Where(inMachine("LOWER(brand) = ?"), strings.ToLower(b))
		})
	}
	if s := strings.TrimSpace(f.State); s != "" {
		out = append(out, func(q *gorm.DB) *gorm.DB {
			return q.Where("UPPER(listings.state) = ?", strings.ToUpper(s))
		})
	}
	if c := strings.TrimSpace(f.City); c != "" {
		out = append(out, func(q *gorm.DB) *gorm.DB {
			return q.Where("LOWER(listings.city) = ?", strings.ToLower(c))
		})
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		out = append(out, rangeScope("listings.price_cents", ptr(f.PriceMin), ptr(f.PriceMax), direct))
	}
	if f.YearMin != nil || f.YearMax != nil {
		out = append(out, rangeScope("year", ptr(f.YearMin), ptr(f.YearMax), inMachine))
	}
	if f.HoursMin != nil || f.HoursMax != nil {
		out = append(out, rangeScope("hours", ptr(f.HoursMin), ptr(f.HoursMax), inMachine))
	}
	if f.AreaMin != nil || f.AreaMax != nil {
		out = append(out, rangeScope("total_area", ptr(f.AreaMin), ptr(f.AreaMax), inProperty))
	}
	return out
}

// moderationScopes adds the filters only moderators and owners may use.
func (f Filters) moderationScopes() []repo.Scope {
	out := f.scopes()
	if f.Variant.Valid() {
		out = append(out, variantScope(f.Variant))
	}
	if f.Status.Valid() {
		out = append(out, func(q *gorm.DB) *gorm.DB { return q.Where("listings.status = ?", f.Status) })
	}
	if f.OwnerID != "" {
		out = append(out, func(q *gorm.DB) *gorm.DB { return q.Where("listings.owner_id = ?", f.OwnerID) })
	}
	return out
}

// ptr turns a typed nil pointer into an untyped nil so rangeScope can skip it.
func ptr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
