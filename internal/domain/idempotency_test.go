package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserScopeKey(t *testing.T) {
	db := newDomainDB(t)

	if !db.Migrator().HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index ux_user_scope_key")
	}

	now := time.Now().UTC()
	first := &Idempotency{ID: "i1", UserID: "u1", Scope: "listing.create", Key: "k1", ResourceID: "l1", Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be auto-filled")
	}

	dup := &Idempotency{ID: "i2", UserID: "u1", Scope: "listing.create", Key: "k1", ResourceID: "l2", Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation")
	}

	otherScope := &Idempotency{ID: "i3", UserID: "u1", Scope: "other", Key: "k1", ResourceID: "l3", Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(otherScope).Error; err != nil {
		t.Fatalf("different scope should be allowed: %v", err)
	}
}
