// Package domain defines the persistence models for classified listings,
// their photographs, and the moderation audit trail. These types are mapped
// with GORM and form the core data layer of the marketplace.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Variant discriminates the two listing kinds sold on the marketplace.
type Variant string

const (
	VariantMachine  Variant = "machine"
	VariantProperty Variant = "property"
)

// Variants lists every supported variant in a stable order.
var Variants = []Variant{VariantMachine, VariantProperty}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantMachine || v == VariantProperty
}

// FilePrefix is the prefix used for stored image names of this variant.
func (v Variant) FilePrefix() string {
	if v == VariantProperty {
		return "fazenda"
	}
	return "maquina"
}

// ParseVariant accepts the canonical names plus the plural path forms used by
// the HTTP layer ("machines", "properties").
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "machine", "machines":
		return VariantMachine, true
	case "property", "properties":
		return VariantProperty, true
	}
	return "", false
}

// Status is the moderation/lifecycle state of a listing.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusSuspended Status = "SUSPENDED"
	StatusSold      Status = "SOLD"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusSuspended, StatusSold:
		return true
	}
	return false
}

// Listing is the shared base record of a classified advertisement. Exactly
// one of Machine or Property is populated, selected by Variant.
//
// Fields:
//   - Slug: URL-safe identifier, unique per variant (soft-deleted rows included).
//   - SuspensionReason: non-nil iff Status is SUSPENDED.
//   - PriceCents: exact price in minor currency units (centavos).
//   - DeletedAt: soft deletion marker; hides the row from public feeds.
type Listing struct {
	ID               string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	Variant          Variant        `json:"variant"            gorm:"type:varchar(16);not null;uniqueIndex:ux_listing_variant_slug,priority:1;check:variant IN ('machine','property')"`
	Slug             string         `json:"slug"               gorm:"type:varchar(255);not null;uniqueIndex:ux_listing_variant_slug,priority:2"`
	OwnerID          string         `json:"owner_id"           gorm:"type:varchar(64);not null;index:idx_listing_owner"`
	Title            string         `json:"title"              gorm:"type:varchar(255);not null"`
	Status           Status         `json:"status"             gorm:"type:varchar(16);not null;default:'ACTIVE';index;check:status IN ('ACTIVE','PAUSED','SUSPENDED','SOLD')"`
	SuspensionReason *string        `json:"suspension_reason"  gorm:"type:text"`
	PriceCents       int64          `json:"price_cents"        gorm:"not null;check:price_cents >= 0"`
	State            string         `json:"state"              gorm:"type:varchar(64);not null;index"`
	City             string         `json:"city"               gorm:"type:varchar(128);not null"`
	Description      string         `json:"description"        gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"         gorm:"index"`
	UpdatedAt        time.Time      `json:"updated_at"         gorm:"index"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at"         gorm:"index" swaggertype:"string"`

	Machine  *MachineDetails  `json:"machine,omitempty"  gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Property *PropertyDetails `json:"property,omitempty" gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Images   []ListingImage   `json:"images"             gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// IsDeleted reports whether the listing has been soft-deleted.
func (l *Listing) IsDeleted() bool { return l.DeletedAt.Valid }

// Principal returns the principal image, or nil when the listing has none.
func (l *Listing) Principal() *ListingImage {
	for i := range l.Images {
		if l.Images[i].IsPrincipal {
			return &l.Images[i]
		}
	}
	return nil
}

// MachineDetails carries the machinery-specific attributes of a listing.
type MachineDetails struct {
	ListingID         string `json:"-"                  gorm:"type:char(36);primaryKey"`
	Type              string `json:"type"               gorm:"type:varchar(128);not null;index"`
	Brand             string `json:"brand"              gorm:"type:varchar(128);not null;index"`
	Year              int    `json:"year"               gorm:"not null;index"`
	Hours             int    `json:"hours"              gorm:"not null"`
	Condition         string `json:"condition"          gorm:"type:varchar(64)"`
	EnginePower       string `json:"engine_power"       gorm:"type:varchar(64)"`
	Transmission      string `json:"transmission"       gorm:"type:varchar(64)"`
	Traction          string `json:"traction"           gorm:"type:varchar(64)"`
	Cab               string `json:"cab"                gorm:"type:varchar(64)"`
	PreviousOperation string `json:"previous_operation" gorm:"type:varchar(255)"`
	TireCondition     string `json:"tire_condition"     gorm:"type:varchar(64)"`
	FrontTires        string `json:"front_tires"        gorm:"type:varchar(64)"`
	RearTires         string `json:"rear_tires"         gorm:"type:varchar(64)"`
	AdditionalInfo    string `json:"additional_info"    gorm:"type:text"`
	AirConditioning   bool   `json:"air_conditioning"`
	FrontBlade        bool   `json:"front_blade"`
	FrontLoader       bool   `json:"front_loader"`
	GPS               bool   `json:"gps"`
	Autopilot         bool   `json:"autopilot"`
	SingleOwner       bool   `json:"single_owner"`
}

// TableName returns the database table name for MachineDetails.
func (MachineDetails) TableName() string { return "machine_details" }

// PropertyDetails carries the rural-property attributes of a listing.
// Areas are expressed in hectares.
type PropertyDetails struct {
	ListingID         string   `json:"-"                   gorm:"type:char(36);primaryKey"`
	TotalArea         float64  `json:"total_area"          gorm:"not null;index"`
	CropArea          *float64 `json:"crop_area"`
	PastureArea       *float64 `json:"pasture_area"`
	ReserveArea       *float64 `json:"reserve_area"`
	SoilType          string   `json:"soil_type"           gorm:"type:varchar(128)"`
	Topography        string   `json:"topography"          gorm:"type:varchar(128)"`
	Improvements      string   `json:"improvements"        gorm:"type:text"`
	HasMainHouse      bool     `json:"has_main_house"`
	HasCorral         bool     `json:"has_corral"`
	HasWaterResources bool     `json:"has_water_resources"`
}

// TableName returns the database table name for PropertyDetails.
func (PropertyDetails) TableName() string { return "property_details" }

// ListingImage is one stored photograph of a listing: a full-size raster and
// its thumbnail. Position preserves upload order; at most one image per
// listing is principal (enforced by a partial unique index).
type ListingImage struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ListingID    string    `json:"listing_id"    gorm:"type:char(36);not null;index:idx_listing_images,priority:1"`
	URL          string    `json:"url"           gorm:"type:varchar(512);not null"`
	ThumbnailURL string    `json:"thumbnail_url" gorm:"type:varchar(512);not null"`
	IsPrincipal  bool      `json:"is_principal"  gorm:"not null;default:false"`
	Position     int       `json:"position"      gorm:"not null;index:idx_listing_images,priority:2"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for ListingImage.
func (ListingImage) TableName() string { return "listing_images" }
