package domain

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action names the kind of event recorded in the audit trail.
type Action string

const (
	ActionCreate            Action = "CREATE_AD"
	ActionEdit              Action = "EDIT_AD"
	ActionAdminEdit         Action = "ADMIN_EDIT_AD"
	ActionPause             Action = "PAUSE_AD"
	ActionReactivateByOwner Action = "REACTIVATE_AD_USER"
	ActionMarkSold          Action = "MARK_AD_SOLD"
	ActionSuspend           Action = "SUSPEND_AD"
	ActionReactivateByAdmin Action = "REACTIVATE_AD_ADMIN"
	ActionSoftDelete        Action = "DELETE_AD_LOGICAL"
	ActionRestore           Action = "RESTORE_AD"
	ActionDeleteImage       Action = "DELETE_AD_IMAGE"
)

// ErrAuditImmutable is returned by the GORM hooks when code attempts to
// update or delete an audit entry.
var ErrAuditImmutable = errors.New("audit log entries are append-only")

// AuditLogEntry is one immutable record of a state-changing operation.
// ActorName is copied at write time so the trail survives renames and
// account deletion.
type AuditLogEntry struct {
	ID         string            `json:"id"          gorm:"type:char(36);primaryKey"`
	ActorID    string            `json:"actor_id"    gorm:"type:varchar(64);not null;index"`
	ActorName  string            `json:"actor_name"  gorm:"type:varchar(255);not null"`
	Action     Action            `json:"action"      gorm:"type:varchar(32);not null;index"`
	TargetType Variant           `json:"target_type" gorm:"type:varchar(16);not null"`
	TargetID   string            `json:"target_id"   gorm:"type:char(36);not null;index"`
	Reason     *string           `json:"reason"      gorm:"type:text"`
	Details    datatypes.JSONMap `json:"details"     swaggertype:"object"`
	CreatedAt  time.Time         `json:"created_at"  gorm:"not null;index"`
}

// TableName returns the database table name for AuditLogEntry.
func (AuditLogEntry) TableName() string { return "audit_logs" }

// BeforeUpdate rejects any mutation of a persisted entry.
func (*AuditLogEntry) BeforeUpdate(*gorm.DB) error { return ErrAuditImmutable }

// BeforeDelete rejects removal of a persisted entry.
func (*AuditLogEntry) BeforeDelete(*gorm.DB) error { return ErrAuditImmutable }
