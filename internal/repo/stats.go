// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags on public feeds).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

// ListingsStats returns the number of publicly visible listings of a variant
// and the greatest UpdatedAt among them. When there are none, count is 0 and
// maxUpdatedAt is nil.
func ListingsStats(ctx context.Context, db *gorm.DB, variant domain.Variant) (count int64, maxUpdatedAt *time.Time, err error) {
	q := func() *gorm.DB {
		return db.WithContext(ctx).
			Model(&domain.Listing{}).
			Where("variant = ? AND status = ?", variant, domain.StatusActive)
	}

	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
