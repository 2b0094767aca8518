package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/slug"
)

func TestEndToEnd_TratorX(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, owner, "Trator X", 1)
	if first.Slug != "trator-x" || first.Status != domain.StatusActive || first.PriceCents != 1_000_000 {
		t.Fatalf("first listing = %+v", first)
	}
	if len(first.Images) != 1 || !first.Images[0].IsPrincipal {
		t.Fatalf("expected one principal image, got %+v", first.Images)
	}

	second := f.create(t, stranger, "Trator X", 1)
	if second.Slug != "trator-x-2" {
		t.Fatalf("second slug = %q; want trator-x-2", second.Slug)
	}

	reason := "Fotos de baixa qualidade"
	got, err := f.lifecycle.Transition(ctx, moderator, first.ID, domain.StatusSuspended, reason)
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if got.Status != domain.StatusSuspended || got.SuspensionReason == nil || *got.SuspensionReason != reason {
		t.Fatalf("after suspend: %+v", got)
	}
	if e := f.lastAudit(t, first.ID, domain.ActionSuspend); e.Reason == nil || *e.Reason != reason || e.ActorName != "Mod" {
		t.Fatalf("suspend entry = %+v", e)
	}

	if _, err := f.lifecycle.Transition(ctx, owner, first.ID, domain.StatusActive, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("owner reactivation: expected ErrUnauthorized, got %v", err)
	}

	got, err = f.lifecycle.Transition(ctx, moderator, first.ID, domain.StatusActive, "")
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if got.Status != domain.StatusActive || got.SuspensionReason != nil {
		t.Fatalf("after reactivation: %+v", got)
	}

	acts := f.auditActions(t, first.ID)
	if acts[domain.ActionCreate] != 1 || acts[domain.ActionSuspend] != 1 || acts[domain.ActionReactivateByAdmin] != 1 || len(acts) != 3 {
		t.Fatalf("audit trail = %v", acts)
	}

	kinds := f.events.kinds()
	if len(kinds) != 4 || kinds[0] != "created" || kinds[3] != "status_changed" {
		t.Fatalf("events = %v", kinds)
	}
	if len(f.feeds.calls) != 4 {
		t.Fatalf("feed invalidations = %d; want 4", len(f.feeds.calls))
	}
}

func TestCreate_IdenticalTitlesGetDistinctSlugs(t *testing.T) {
	f := newFixture(t)
	re := regexp.MustCompile(`^colheitadeira-jd(-\d+)?$`)
	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		l := f.create(t, owner, "Colheitadeira JD", 1)
		if !re.MatchString(l.Slug) || seen[l.Slug] {
			t.Fatalf("slug %q invalid or repeated (seen %v)", l.Slug, seen)
		}
		seen[l.Slug] = true
	}
}

func TestCreate_ValidationFailed(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine,
		ListingInput{Title: " x ", Machine: &domain.MachineDetails{Year: 1900, Hours: -1}}, nil, "")
	fields := fieldsOf(t, err)
	for _, k := range []string{"title", "price", "state", "city", "type", "brand", "year", "hours", "images"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing field error %q in %v", k, fields)
		}
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidationError must match ErrValidation")
	}
	if f.images.ingested != 0 || f.listingCount(t) != 0 {
		t.Fatalf("nothing should be ingested or stored")
	}
}

func TestCreate_PropertyRules(t *testing.T) {
	f := newFixture(t)
	zero := int64(0)
	neg := -3.0
	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantProperty, ListingInput{
		Title: "Sito", PriceCents: &zero, State: "MG", City: "Uberaba",
		Property: &domain.PropertyDetails{TotalArea: 0, CropArea: &neg},
	}, uploads(1), "")
	fields := fieldsOf(t, err)
	for _, k := range []string{"title", "price", "total_area", "crop_area"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing field error %q in %v", k, fields)
		}
	}

	l, _, err := f.listings.Create(context.Background(), owner, domain.VariantProperty, ListingInput{
		Title: "Fazenda Boa Vista", Price: "R$ 2.500.000,00", State: "mg", City: "Uberaba",
		Property: &domain.PropertyDetails{TotalArea: 350.5},
	}, uploads(2), "")
	if err != nil {
		t.Fatalf("Create property: %v", err)
	}
	if l.PriceCents != 250_000_000 || l.State != "MG" || l.Slug != "fazenda-boa-vista" || l.Property == nil {
		t.Fatalf("property listing = %+v", l)
	}
}

func TestCreate_ImageBounds(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine, machineInput("Trator X"), uploads(11), "")
	if _, ok := fieldsOf(t, err)["images"]; !ok {
		t.Fatalf("expected images error, got %v", err)
	}

	idx := 2
	in := machineInput("Trator X")
	in.PrincipalIndex = &idx
	l, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine, in, uploads(3), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Principal() == nil || l.Principal().Position != 2 {
		t.Fatalf("principal should be the third upload: %+v", l.Images)
	}

	bad := 5
	in.PrincipalIndex = &bad
	_, _, err = f.listings.Create(context.Background(), owner, domain.VariantMachine, in, uploads(3), "")
	if _, ok := fieldsOf(t, err)["principal_index"]; !ok {
		t.Fatalf("expected principal_index error, got %v", err)
	}
}

func TestCreate_IngestFailures(t *testing.T) {
	f := newFixture(t)

	f.images.failWith = media.ErrUnsupportedImage
	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine, machineInput("Trator X"), uploads(1), "")
	if _, ok := fieldsOf(t, err)["images"]; !ok {
		t.Fatalf("bad content should be a validation error, got %v", err)
	}

	f.images.failWith = errors.New("disk full")
	_, _, err = f.listings.Create(context.Background(), owner, domain.VariantMachine, machineInput("Trator X"), uploads(1), "")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if f.listingCount(t) != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestCreate_AuditFailureRollsBackAndDiscardsFiles(t *testing.T) {
	f := newFixture(t)
	f.listings.Audit = failingAudit{}

	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine, machineInput("Trator X"), uploads(2), "")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if f.listingCount(t) != 0 {
		t.Fatalf("listing must not survive a failed audit write")
	}
	if len(f.images.discarded) != 2 {
		t.Fatalf("stored files should be discarded, got %v", f.images.discarded)
	}
	if len(f.events.sent) != 0 {
		t.Fatalf("no event on failure")
	}
}

func TestCreate_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, replayed, err := f.listings.Create(ctx, owner, domain.VariantMachine, machineInput("Trator X"), uploads(1), "key-1")
	if err != nil || replayed {
		t.Fatalf("first create = %v, replayed=%v", err, replayed)
	}
	b, replayed, err := f.listings.Create(ctx, owner, domain.VariantMachine, machineInput("Trator X"), uploads(1), "key-1")
	if err != nil || !replayed || b.ID != a.ID {
		t.Fatalf("replay = %+v, replayed=%v, err=%v", b, replayed, err)
	}
	if f.images.ingested != 1 || f.listingCount(t) != 1 {
		t.Fatalf("replay must not ingest or insert again (ingested=%d)", f.images.ingested)
	}

	c, replayed, err := f.listings.Create(ctx, stranger, domain.VariantMachine, machineInput("Trator X"), uploads(1), "key-1")
	if err != nil || replayed || c.ID == a.ID {
		t.Fatalf("keys are per user: %v, replayed=%v", err, replayed)
	}
}

// collidingSlugs hands out an already used slug first, as a concurrent writer
// would cause, then defers to the real allocator.
type collidingSlugs struct {
	first string
	calls int
	next  SlugAllocator
}

func (c *collidingSlugs) Allocate(ctx context.Context, db *gorm.DB, v domain.Variant, title, excludeID string) (string, error) {
	c.calls++
	if c.calls == 1 {
		return c.first, nil
	}
	return c.next.Allocate(ctx, db, v, title, excludeID)
}

func TestCreate_RetriesOnSlugCollision(t *testing.T) {
	f := newFixture(t)
	f.create(t, owner, "Trator X", 1)

	slugs := &collidingSlugs{first: "trator-x", next: slug.NewAllocator()}
	f.listings.Slugs = slugs
	l := f.create(t, owner, "Trator X", 1)
	if slugs.calls != 2 || l.Slug != "trator-x-2" {
		t.Fatalf("calls=%d slug=%q", slugs.calls, l.Slug)
	}
	if len(f.images.discarded) != 0 {
		t.Fatalf("a retried create keeps its files")
	}

	f.listings.Slugs = &collidingSlugs{first: "trator-x", next: &collidingSlugs{first: "trator-x"}}
	f.listings.SlugAttempts = 2
	_, _, err := f.listings.Create(context.Background(), owner, domain.VariantMachine, machineInput("Trator X"), uploads(1), "")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("exhausted retries should surface ErrPersistence, got %v", err)
	}
}

func TestCreate_RequiresActor(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.listings.Create(context.Background(), domain.Actor{}, domain.VariantMachine, machineInput("Trator X"), uploads(1), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	_, _, err = f.listings.Create(context.Background(), owner, domain.Variant("boat"), machineInput("Trator X"), uploads(1), "")
	if _, ok := fieldsOf(t, err)["variant"]; !ok {
		t.Fatalf("expected variant error, got %v", err)
	}
}

func TestEdit_ReslugsOnlyOnTitleChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)
	f.create(t, owner, "Trator Y", 1)

	in := machineInput("Trator X")
	in.City = "Piracicaba"
	got, err := f.listings.Edit(ctx, owner, l.ID, in, nil, nil)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got.Slug != "trator-x" || got.City != "Piracicaba" {
		t.Fatalf("slug must be kept: %+v", got)
	}
	e := f.lastAudit(t, l.ID, domain.ActionEdit)
	if cf, _ := e.Details["changed_fields"].([]any); len(cf) != 1 || cf[0] != "city" {
		t.Fatalf("changed_fields = %v", e.Details["changed_fields"])
	}

	in = machineInput("Trator Y")
	in.Machine.Brand = "Massey Ferguson"
	got, err = f.listings.Edit(ctx, owner, l.ID, in, nil, nil)
	if err != nil {
		t.Fatalf("Edit title: %v", err)
	}
	if got.Slug != "trator-y-2" || got.Machine.Brand != "Massey Ferguson" {
		t.Fatalf("expected new slug and brand: %+v", got)
	}
	if f.auditActions(t, l.ID)[domain.ActionEdit] != 2 {
		t.Fatalf("each edit logs one entry")
	}

	// Renaming back must not collide with the listing's own slug.
	got, err = f.listings.Edit(ctx, owner, l.ID, machineInput("Trator Y"), nil, nil)
	if err != nil {
		t.Fatalf("Edit same title: %v", err)
	}
	if got.Slug != "trator-y-2" {
		t.Fatalf("unchanged title keeps slug: %q", got.Slug)
	}
}

func TestEdit_Images(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 2)
	principal := l.Principal()

	_, err := f.listings.Edit(ctx, owner, l.ID, machineInput("Trator X"), nil, []string{l.Images[0].ID, l.Images[1].ID})
	if _, ok := fieldsOf(t, err)["images"]; !ok {
		t.Fatalf("removing every image must fail, got %v", err)
	}

	_, err = f.listings.Edit(ctx, owner, l.ID, machineInput("Trator X"), nil, []string{"not-mine"})
	if !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}

	got, err := f.listings.Edit(ctx, owner, l.ID, machineInput("Trator X"), uploads(2), []string{principal.ID})
	if err != nil {
		t.Fatalf("Edit images: %v", err)
	}
	if len(got.Images) != 3 {
		t.Fatalf("images = %d; want 3", len(got.Images))
	}
	if p := got.Principal(); p == nil || p.ID != l.Images[1].ID {
		t.Fatalf("next-oldest image should be promoted, got %+v", got.Images)
	}
	if got.Images[2].Position != 3 {
		t.Fatalf("new images go after the current max position: %+v", got.Images)
	}
	if len(f.images.removed) != 2 || f.images.removed[0] != principal.URL {
		t.Fatalf("removed files = %v", f.images.removed)
	}
	e := f.lastAudit(t, l.ID, domain.ActionEdit)
	if cf, _ := e.Details["changed_fields"].([]any); len(cf) != 1 || cf[0] != "images" {
		t.Fatalf("changed_fields = %v", e.Details["changed_fields"])
	}

	_, err = f.listings.Edit(ctx, owner, l.ID, machineInput("Trator X"), uploads(8), nil)
	if _, ok := fieldsOf(t, err)["images"]; !ok {
		t.Fatalf("more than 10 images must fail, got %v", err)
	}
}

func TestEdit_Authority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	if _, err := f.listings.Edit(ctx, stranger, l.ID, machineInput("Trator X"), nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger: expected ErrUnauthorized, got %v", err)
	}

	if _, err := f.lifecycle.Transition(ctx, moderator, l.ID, domain.StatusSuspended, "Anúncio duplicado"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := f.listings.Edit(ctx, owner, l.ID, machineInput("Trator X"), nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("owner on suspended: expected ErrUnauthorized, got %v", err)
	}

	in := machineInput("Trator X revisado")
	in.Message = "Título corrigido"
	got, err := f.listings.Edit(ctx, moderator, l.ID, in, nil, nil)
	if err != nil {
		t.Fatalf("moderator edit: %v", err)
	}
	if got.Status != domain.StatusSuspended {
		t.Fatalf("edit must not change status")
	}
	e := f.lastAudit(t, l.ID, domain.ActionAdminEdit)
	if e.Details["message"] != "Título corrigido" {
		t.Fatalf("moderator message not logged: %+v", e.Details)
	}

	if _, err := f.lifecycle.SoftDelete(ctx, owner, l.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := f.listings.Edit(ctx, moderator, l.ID, in, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted listing: expected ErrNotFound, got %v", err)
	}
}

func TestEdit_FailureDiscardsNewFiles(t *testing.T) {
	f := newFixture(t)
	l := f.create(t, owner, "Trator X", 1)
	f.listings.Audit = failingAudit{}

	_, err := f.listings.Edit(context.Background(), owner, l.ID, machineInput("Trator Z"), uploads(1), nil)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(f.images.discarded) != 1 {
		t.Fatalf("new files should be discarded: %v", f.images.discarded)
	}
	got, err := f.listings.Get(context.Background(), owner, domain.VariantMachine, "trator-x")
	if err != nil || got.Title != "Trator X" || len(got.Images) != 1 {
		t.Fatalf("listing should be unchanged: %+v, %v", got, err)
	}
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	if _, err := f.listings.Get(ctx, domain.Actor{}, domain.VariantMachine, l.Slug); err != nil {
		t.Fatalf("anonymous read of active listing: %v", err)
	}
	if _, err := f.listings.Get(ctx, domain.Actor{}, domain.VariantProperty, l.Slug); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong variant: expected ErrNotFound, got %v", err)
	}

	if _, err := f.lifecycle.Transition(ctx, owner, l.ID, domain.StatusPaused, ""); err != nil {
		t.Fatalf("pause: %v", err)
	}
	for _, tc := range []struct {
		actor domain.Actor
		ok    bool
	}{
		{domain.Actor{}, false},
		{stranger, false},
		{owner, true},
		{moderator, true},
	} {
		_, err := f.listings.Get(ctx, tc.actor, domain.VariantMachine, l.Slug)
		if (err == nil) != tc.ok {
			t.Fatalf("actor %q: err=%v, want visible=%v", tc.actor.ID, err, tc.ok)
		}
	}
}

func TestChangedFields_Sorted(t *testing.T) {
	price := int64(5)
	cur := &domain.Listing{
		Title: "a", PriceCents: 1, State: "SP", City: "x",
		Machine: &domain.MachineDetails{Type: "Trator", Brand: "Valtra", Year: 2020},
	}
	in := &ListingInput{
		Title: "b", PriceCents: &price, State: "SP", City: "x",
		Machine: &domain.MachineDetails{Type: "Trator", Brand: "Valtra", Year: 2021, GPS: true},
	}
	got := fmt.Sprint(changedFields(cur, in))
	if got != "[gps price title year]" {
		t.Fatalf("changedFields = %s", got)
	}
}
