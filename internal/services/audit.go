package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
	"github.com/tbourn/agro-classifieds/internal/utils"
)

// AuditAppender writes audit entries on the caller's transaction.
type AuditAppender interface {
	Append(ctx context.Context, tx *gorm.DB, e *domain.AuditLogEntry) error
}

var errIncompleteEntry = errors.New("audit entry needs actor, action and target")

// AuditLogger is the append-only trail of listing changes.
type AuditLogger struct {
	DB *gorm.DB
	// PageSize is the default page size of List.
	PageSize int
}

// NewAuditLogger returns an AuditLogger with the moderator page size of 100.
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{DB: db, PageSize: 100}
}

// Append writes e using tx, so the entry commits or rolls back together with
// the change it describes.
func (a *AuditLogger) Append(ctx context.Context, tx *gorm.DB, e *domain.AuditLogEntry) error {
	if e.ActorID == "" || e.Action == "" || e.TargetID == "" {
		return errIncompleteEntry
	}
	return repo.CreateAuditLog(ctx, tx, e)
}

// AuditPage is one page of the audit trail.
type AuditPage struct {
	Items      []domain.AuditLogEntry `json:"items"`
	Total      int64                  `json:"total"`
	TotalPages int                    `json:"total_pages"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
}

// List returns entries newest first. Only moderators may read the trail.
func (a *AuditLogger) List(ctx context.Context, actor domain.Actor, f repo.AuditFilter, page, pageSize int) (*AuditPage, error) {
	ctx, span := otel.Tracer("services/AuditLogger").Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if !actor.IsModerator() {
		return nil, ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = a.PageSize
	}
	total, err := repo.CountAuditLogs(ctx, a.DB, f)
	if err != nil {
		return nil, persistErr(err)
	}
	out := &AuditPage{
		Items:      []domain.AuditLogEntry{},
		Total:      total,
		TotalPages: utils.TotalPages(total, pageSize),
		Page:       page,
		PageSize:   pageSize,
	}
	if total == 0 {
		return out, nil
	}
	items, err := repo.ListAuditLogs(ctx, a.DB, f, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, persistErr(err)
	}
	out.Items = items
	return out, nil
}

// entry builds the audit row for a change to l. The actor name is copied so
// the trail survives renames.
func entry(actor domain.Actor, action domain.Action, l *domain.Listing, reason *string, details map[string]any) *domain.AuditLogEntry {
	e := &domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  sysutil.FirstNonEmpty(actor.Name, actor.ID),
		Action:     action,
		TargetType: l.Variant,
		TargetID:   l.ID,
		Reason:     reason,
	}
	if len(details) > 0 {
		e.Details = datatypes.JSONMap(details)
	}
	return e
}
