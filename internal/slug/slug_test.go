package slug

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

func TestMake(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Trator X", "trator-x"},
		{"  Trator   Valtra  A950 ", "trator-valtra-a950"},
		{"Colheitadeira São João", "colheitadeira-sao-joao"},
		{"Fazenda Açaí & Café", "fazenda-acai-e-cafe"},
		{"Pá carregadeira / 4x4", "pa-carregadeira-4x4"},
		{"Trator_John:Deere;6110", "trator-john-deere-6110"},
		{"Ñandú Œuvre", "nandu-ouvre"},
		{"Ẽxtra ũ", "extra-u"},
		{"!!!", ""},
		{"---a---b---", "a-b"},
	}
	for _, c := range cases {
		if got := Make(c.in); got != c.want {
			t.Fatalf("Make(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestMake_OnlyURLSafe(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	for _, in := range []string{"Trator 2024 (novo!)", "Área rural — 50ha", "ÀÉÎÕÜ çÇ", "über_größe"} {
		got := Make(in)
		if !re.MatchString(got) {
			t.Fatalf("Make(%q) = %q is not URL-safe", in, got)
		}
	}
}

func TestNext(t *testing.T) {
	if got := Next("trator-x", nil); got != "trator-x" {
		t.Fatalf("free base: got %q", got)
	}
	if got := Next("trator-x", []string{"trator-x"}); got != "trator-x-2" {
		t.Fatalf("one taken: got %q", got)
	}
	if got := Next("trator-x", []string{"trator-x", "trator-x-2", "trator-x-4"}); got != "trator-x-3" {
		t.Fatalf("gap: got %q", got)
	}
	// A suffixed slug alone does not block the base.
	if got := Next("trator-x", []string{"trator-x-2"}); got != "trator-x" {
		t.Fatalf("base free: got %q", got)
	}
}

func TestNext_IdenticalTitlesStayDistinct(t *testing.T) {
	re := regexp.MustCompile(`^trator-x(-[0-9]+)?$`)
	var taken []string
	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		s := Next("trator-x", taken)
		if seen[s] {
			t.Fatalf("duplicate slug %q at step %d", s, i)
		}
		if !re.MatchString(s) {
			t.Fatalf("slug %q does not match base or base-k", s)
		}
		seen[s] = true
		taken = append(taken, s)
	}
}

func newSlugDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("slug_%s.db", uuid.NewString()))
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAllocator_AgainstDatabase(t *testing.T) {
	db := newSlugDB(t)
	ctx := context.Background()
	a := NewAllocator()

	var firstID string
	for i, want := range []string{"trator-x", "trator-x-2", "trator-x-3"} {
		s, err := a.Allocate(ctx, db, domain.VariantMachine, "Trator X", "")
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if s != want {
			t.Fatalf("allocation %d = %q; want %q", i, s, want)
		}
		l := &domain.Listing{
			Variant: domain.VariantMachine, Slug: s, OwnerID: "u1", Title: "Trator X",
			Status: domain.StatusActive, State: "SP", City: "Campinas",
			Machine: &domain.MachineDetails{Type: "Trator", Brand: "Valtra", Year: 2020},
		}
		if err := repo.CreateListing(ctx, db, l); err != nil {
			t.Fatalf("CreateListing: %v", err)
		}
		if i == 0 {
			firstID = l.ID
		}
	}

	// Editing the first listing with an unchanged base keeps its own slug free.
	s, err := a.Allocate(ctx, db, domain.VariantMachine, "Trator X", firstID)
	if err != nil || s != "trator-x" {
		t.Fatalf("Allocate excluding self = %q, %v", s, err)
	}

	// The other variant has its own namespace.
	s, err = a.Allocate(ctx, db, domain.VariantProperty, "Trator X", "")
	if err != nil || s != "trator-x" {
		t.Fatalf("property Allocate = %q, %v", s, err)
	}
}

func TestAllocator_EmptyTitleFallsBackToPrefix(t *testing.T) {
	a := &Allocator{Taken: func(context.Context, *gorm.DB, domain.Variant, string, string) ([]string, error) {
		return []string{"fazenda"}, nil
	}}
	s, err := a.Allocate(context.Background(), nil, domain.VariantProperty, "???", "")
	if err != nil || s != "fazenda-2" {
		t.Fatalf("Allocate = %q, %v", s, err)
	}
}

func TestAllocator_PropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	a := &Allocator{Taken: func(context.Context, *gorm.DB, domain.Variant, string, string) ([]string, error) {
		return nil, boom
	}}
	if _, err := a.Allocate(context.Background(), nil, domain.VariantMachine, "x", ""); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
