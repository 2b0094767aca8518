package domain

import (
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestAuditLogEntry_AppendOnly(t *testing.T) {
	db := newDomainDB(t)

	reason := "Fotos de baixa qualidade"
	e := &AuditLogEntry{
		ID: "a1", ActorID: "m1", ActorName: "Mod", Action: ActionSuspend,
		TargetType: VariantMachine, TargetID: "l1", Reason: &reason,
		Details:   datatypes.JSONMap{"changed_fields": []any{"status"}},
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var got AuditLogEntry
	if err := db.First(&got, "id = ?", "a1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Reason == nil || *got.Reason != reason || got.Action != ActionSuspend {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if _, ok := got.Details["changed_fields"]; !ok {
		t.Fatalf("details not persisted: %+v", got.Details)
	}

	err := db.Model(&got).Update("actor_name", "someone else").Error
	if !errors.Is(err, ErrAuditImmutable) {
		t.Fatalf("expected ErrAuditImmutable on update, got %v", err)
	}
	err = db.Delete(&got).Error
	if !errors.Is(err, ErrAuditImmutable) {
		t.Fatalf("expected ErrAuditImmutable on delete, got %v", err)
	}

	var n int64
	db.Model(&AuditLogEntry{}).Where("actor_name = ?", "Mod").Count(&n)
	if n != 1 {
		t.Fatalf("entry should be unchanged, count=%d", n)
	}
}
