package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/events"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%s.db", uuid.NewString()))
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var (
	owner     = domain.Actor{ID: "u1", Name: "Ana", Role: domain.RoleUser}
	stranger  = domain.Actor{ID: "u2", Name: "Bia", Role: domain.RoleUser}
	moderator = domain.Actor{ID: "m1", Name: "Mod", Role: domain.RoleModerator}
)

// fakeImages stands in for the media pipeline.
type fakeImages struct {
	mu        sync.Mutex
	n         int
	max       int
	failWith  error
	ingested  int
	discarded []media.Stored
	removed   []string
}

func (f *fakeImages) Ingest(_ context.Context, v domain.Variant, uploads []media.Upload) ([]media.Stored, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if len(uploads) == 0 {
		return nil, media.ErrNoImages
	}
	out := make([]media.Stored, len(uploads))
	for i := range uploads {
		f.n++
		name := fmt.Sprintf("/uploads/%s_%d", v.FilePrefix(), f.n)
		out[i] = media.Stored{URL: name + ".jpg", ThumbnailURL: name + "_thumb.jpg"}
	}
	return out, nil
}

func (f *fakeImages) Discard(_ context.Context, stored []media.Stored) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, stored...)
}

func (f *fakeImages) Remove(_ context.Context, url, thumb string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url, thumb)
}

func (f *fakeImages) MaxFiles() int {
	if f.max > 0 {
		return f.max
	}
	return 10
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, *gorm.DB, *domain.AuditLogEntry) error {
	return errors.New("audit store unavailable")
}

type recordingFeeds struct {
	mu    sync.Mutex
	calls []domain.Variant
}

func (r *recordingFeeds) Invalidate(_ context.Context, v domain.Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

type recordingEvents struct {
	mu   sync.Mutex
	sent []events.ListingEvent
	err  error
}

func (r *recordingEvents) Publish(_ context.Context, e events.ListingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.err
}

func (r *recordingEvents) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, e := range r.sent {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	images    *fakeImages
	feeds     *recordingFeeds
	events    *recordingEvents
	listings  *ListingService
	lifecycle *LifecycleService
	audit     *AuditLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newSvcDB(t)
	f := &fixture{
		db:     db,
		images: &fakeImages{},
		feeds:  &recordingFeeds{},
		events: &recordingEvents{},
		audit:  NewAuditLogger(db),
	}
	fx := Effects{Feeds: f.feeds, Events: f.events}
	f.listings = NewListingService(db, f.images, f.audit)
	f.listings.Effects = fx
	f.lifecycle = NewLifecycleService(db, f.audit, f.images)
	f.lifecycle.Effects = fx
	return f
}

func machineInput(title string) ListingInput {
	price := int64(1_000_000)
	return ListingInput{
		Title:      title,
		PriceCents: &price,
		State:      "SP",
		City:       "Campinas",
		Machine:    &domain.MachineDetails{Type: "Trator", Brand: "Valtra", Year: 2020, Hours: 1500},
	}
}

func uploads(n int) []media.Upload {
	out := make([]media.Upload, n)
	for i := range out {
		out[i] = media.Upload{Filename: fmt.Sprintf("foto%d.jpg", i), Data: []byte{0xff, 0xd8}}
	}
	return out
}

func (f *fixture) create(t *testing.T, actor domain.Actor, title string, images int) *domain.Listing {
	t.Helper()
	l, _, err := f.listings.Create(context.Background(), actor, domain.VariantMachine, machineInput(title), uploads(images), "")
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return l
}

// auditActions counts the audit entries of a listing by action.
func (f *fixture) auditActions(t *testing.T, targetID string) map[domain.Action]int {
	t.Helper()
	entries, err := repo.ListAuditLogs(context.Background(), f.db, repo.AuditFilter{TargetID: targetID}, 0, 100)
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	out := map[domain.Action]int{}
	for _, e := range entries {
		out[e.Action]++
	}
	return out
}

func (f *fixture) lastAudit(t *testing.T, targetID string, action domain.Action) domain.AuditLogEntry {
	t.Helper()
	entries, err := repo.ListAuditLogs(context.Background(), f.db, repo.AuditFilter{TargetID: targetID, Action: action}, 0, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("no %s entry for %s: %v", action, targetID, err)
	}
	return entries[0]
}

func (f *fixture) listingCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Unscoped().Model(&domain.Listing{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return v.Fields
}
