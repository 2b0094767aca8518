// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing
// aggregate (base row plus variant details).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - Missing rows yield gorm.ErrRecordNotFound (exported as ErrNotFound).
//   - Constraint violations and connectivity errors are propagated raw; use
//     IsDuplicate to detect unique violations (slug collisions).
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// Scope is a reusable GORM query fragment.
type Scope = func(*gorm.DB) *gorm.DB

// withAggregate preloads variant details and images (ordered by position).
func withAggregate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Machine").
		Preload("Property").
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") })
}

// CreateListing inserts the listing together with its details and images.
// Missing IDs are generated; timestamps are set to UTC now.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	now := time.Now().UTC()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	for i := range l.Images {
		if l.Images[i].ID == "" {
			l.Images[i].ID = uuid.NewString()
		}
		if l.Images[i].CreatedAt.IsZero() {
			l.Images[i].CreatedAt = now
		}
	}
	return db.WithContext(ctx).Create(l).Error
}

// GetListing loads a listing aggregate by ID. Soft-deleted rows are only
// returned when includeDeleted is true.
func GetListing(ctx context.Context, db *gorm.DB, id string, includeDeleted bool) (*domain.Listing, error) {
	q := db.WithContext(ctx)
	if includeDeleted {
		q = q.Unscoped()
	}
	var l domain.Listing
	if err := withAggregate(q).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListingBySlug loads a listing aggregate by (variant, slug), including
// soft-deleted rows. Visibility is decided by the caller.
func GetListingBySlug(ctx context.Context, db *gorm.DB, variant domain.Variant, slug string) (*domain.Listing, error) {
	var l domain.Listing
	err := withAggregate(db.WithContext(ctx).Unscoped()).
		Where("variant = ? AND slug = ?", variant, slug).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateListing applies column updates to a live listing. updated_at is
// always refreshed. Returns ErrNotFound when no live row matches.
func UpdateListing(ctx context.Context, db *gorm.DB, id string, cols map[string]any) error {
	if cols == nil {
		cols = map[string]any{}
	}
	cols["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchListing bumps updated_at of a listing, soft-deleted or not.
func TouchListing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Unscoped().
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMachineDetails overwrites every machine attribute of a listing.
func UpdateMachineDetails(ctx context.Context, db *gorm.DB, listingID string, d *domain.MachineDetails) error {
	d.ListingID = listingID
	return db.WithContext(ctx).
		Model(&domain.MachineDetails{}).
		Where("listing_id = ?", listingID).
		Select("*").Omit("listing_id").
		Updates(d).Error
}

// UpdatePropertyDetails overwrites every property attribute of a listing.
func UpdatePropertyDetails(ctx context.Context, db *gorm.DB, listingID string, d *domain.PropertyDetails) error {
	d.ListingID = listingID
	return db.WithContext(ctx).
		Model(&domain.PropertyDetails{}).
		Where("listing_id = ?", listingID).
		Select("*").Omit("listing_id").
		Updates(d).Error
}

// SetStatus stores a new status and suspension reason (nil clears it).
func SetStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status, reason *string) error {
	var r any
	if reason != nil {
		r = *reason
	}
	return UpdateListing(ctx, db, id, map[string]any{
		"status":            status,
		"suspension_reason": r,
	})
}

// SoftDeleteListing marks a live listing as deleted.
func SoftDeleteListing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreListing clears the soft-delete marker of a deleted listing.
func RestoreListing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Unscoped().
		Model(&domain.Listing{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TakenSlugs returns the slugs of the variant equal to base or of the form
// base-*, soft-deleted rows included. excludeID (when non-empty) is ignored
// so a listing being renamed does not collide with itself.
func TakenSlugs(ctx context.Context, db *gorm.DB, variant domain.Variant, base, excludeID string) ([]string, error) {
	q := db.WithContext(ctx).Unscoped().
		Model(&domain.Listing{}).
		Where("variant = ?", variant).
		Where("slug = ? OR slug LIKE ? ESCAPE '\\'", base, escapeLike(base)+"-%")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []string
	err := q.Pluck("slug", &out).Error
	return out, err
}

// FindListings runs the composed scopes and returns one page of aggregates.
func FindListings(ctx context.Context, db *gorm.DB, scopes []Scope, order string, offset, limit int) ([]domain.Listing, error) {
	var out []domain.Listing
	err := withAggregate(db.WithContext(ctx)).
		Scopes(scopes...).
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountListings counts rows matched by the composed scopes.
func CountListings(ctx context.Context, db *gorm.DB, scopes []Scope) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Scopes(scopes...).
		Count(&total).Error
	return total, err
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike is the exported variant of escapeLike for query composers.
func EscapeLike(s string) string { return escapeLike(s) }
