// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides append and read access to the audit
// trail. No update or delete helpers exist; the model's hooks reject them.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

// AuditFilter narrows audit-log reads. Empty fields are ignored.
type AuditFilter struct {
	TargetID string
	ActorID  string
	Action   domain.Action
}

func (f AuditFilter) apply(db *gorm.DB) *gorm.DB {
	if f.TargetID != "" {
		db = db.Where("target_id = ?", f.TargetID)
	}
	if f.ActorID != "" {
		db = db.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	return db
}

// CreateAuditLog appends one entry, assigning ID and timestamp when unset.
func CreateAuditLog(ctx context.Context, db *gorm.DB, e *domain.AuditLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}

// ListAuditLogs returns entries newest first.
func ListAuditLogs(ctx context.Context, db *gorm.DB, f AuditFilter, offset, limit int) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountAuditLogs counts entries matching f.
func CountAuditLogs(ctx context.Context, db *gorm.DB, f AuditFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.AuditLogEntry{})).Count(&total).Error
	return total, err
}
