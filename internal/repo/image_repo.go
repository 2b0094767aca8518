// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for listing images.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

// ListImages returns the images of a listing in upload order.
func ListImages(ctx context.Context, db *gorm.DB, listingID string) ([]domain.ListingImage, error) {
	var out []domain.ListingImage
	err := db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// GetImage fetches an image that belongs to listingID, or ErrNotFound.
func GetImage(ctx context.Context, db *gorm.DB, listingID, imageID string) (*domain.ListingImage, error) {
	var img domain.ListingImage
	err := db.WithContext(ctx).
		Where("id = ? AND listing_id = ?", imageID, listingID).
		First(&img).Error
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// CreateImages appends images to a listing, assigning IDs and positions
// after the current last image.
func CreateImages(ctx context.Context, db *gorm.DB, listingID string, imgs []domain.ListingImage) error {
	if len(imgs) == 0 {
		return nil
	}
	next, err := nextImagePosition(ctx, db, listingID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range imgs {
		imgs[i].ID = uuid.NewString()
		imgs[i].ListingID = listingID
		imgs[i].Position = next + i
		imgs[i].CreatedAt = now
	}
	return db.WithContext(ctx).Create(&imgs).Error
}

// DeleteImage removes an image row that belongs to listingID.
func DeleteImage(ctx context.Context, db *gorm.DB, listingID, imageID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND listing_id = ?", imageID, listingID).
		Delete(&domain.ListingImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsurePrincipal promotes the oldest remaining image when a listing has
// images but no principal. It returns the promoted image, or nil when nothing
// changed.
func EnsurePrincipal(ctx context.Context, db *gorm.DB, listingID string) (*domain.ListingImage, error) {
	var n int64
	if err := db.WithContext(ctx).
		Model(&domain.ListingImage{}).
		Where("listing_id = ? AND is_principal = ?", listingID, true).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}

	var first domain.ListingImage
	err := db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("position asc").
		Limit(1).
		Find(&first).Error
	if err != nil || first.ID == "" {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.ListingImage{}).
		Where("id = ?", first.ID).
		Update("is_principal", true).Error; err != nil {
		return nil, err
	}
	first.IsPrincipal = true
	return &first, nil
}

// nextImagePosition returns max(position)+1 for the listing, or 0.
func nextImagePosition(ctx context.Context, db *gorm.DB, listingID string) (int, error) {
	var row struct {
		Position int
	}
	res := db.WithContext(ctx).
		Model(&domain.ListingImage{}).
		Select("position").
		Where("listing_id = ?", listingID).
		Order("position desc").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return row.Position + 1, nil
}
