package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/search"
)

func TestTransition_SuspensionRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	for _, reason := range []string{"", "too short", "          "} {
		_, err := f.lifecycle.Transition(ctx, moderator, l.ID, domain.StatusSuspended, reason)
		if _, ok := fieldsOf(t, err)["reason"]; !ok {
			t.Fatalf("reason %q: expected reason error, got %v", reason, err)
		}
	}

	reason := "  Preço incompatível com o mercado  "
	got, err := f.lifecycle.Transition(ctx, moderator, l.ID, domain.StatusSuspended, reason)
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if *got.SuspensionReason != reason {
		t.Fatalf("reason must be stored verbatim: %q", *got.SuspensionReason)
	}

	if _, err := f.lifecycle.Transition(ctx, owner, l.ID, domain.StatusSuspended, reason); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("owner cannot suspend: %v", err)
	}
}

func TestTransition_Table(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	steps := []struct {
		name   string
		actor  domain.Actor
		to     domain.Status
		want   error
		action domain.Action
	}{
		{"same state", owner, domain.StatusActive, ErrInvalidTransition, ""},
		{"unknown status", owner, domain.Status("ARCHIVED"), ErrInvalidTransition, ""},
		{"stranger", stranger, domain.StatusPaused, ErrUnauthorized, ""},
		{"owner pauses", owner, domain.StatusPaused, nil, domain.ActionPause},
		{"owner reactivates", owner, domain.StatusActive, nil, domain.ActionReactivateByOwner},
		{"moderator pauses for owner", moderator, domain.StatusPaused, nil, domain.ActionPause},
		{"owner sells from paused", owner, domain.StatusSold, nil, domain.ActionMarkSold},
		{"sold is final for owner", owner, domain.StatusActive, ErrInvalidTransition, ""},
		{"moderator suspends sold", moderator, domain.StatusSuspended, nil, domain.ActionSuspend},
		{"owner cannot leave suspension", owner, domain.StatusPaused, ErrUnauthorized, ""},
		{"moderator only reactivates", moderator, domain.StatusSold, ErrInvalidTransition, ""},
		{"moderator reactivates", moderator, domain.StatusActive, nil, domain.ActionReactivateByAdmin},
	}
	for _, st := range steps {
		got, err := f.lifecycle.Transition(ctx, st.actor, l.ID, st.to, "Conteúdo em revisão")
		if st.want != nil {
			if !errors.Is(err, st.want) {
				t.Fatalf("%s: expected %v, got %v", st.name, st.want, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if got.Status != st.to {
			t.Fatalf("%s: status = %s", st.name, got.Status)
		}
		if (got.SuspensionReason != nil) != (st.to == domain.StatusSuspended) {
			t.Fatalf("%s: suspension reason present iff suspended, got %v", st.name, got.SuspensionReason)
		}
		f.lastAudit(t, l.ID, st.action)
	}

	if _, err := f.lifecycle.Transition(ctx, owner, "missing", domain.StatusPaused, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing listing: expected ErrNotFound, got %v", err)
	}
	if _, err := f.lifecycle.Transition(ctx, domain.Actor{}, l.ID, domain.StatusPaused, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous: expected ErrUnauthorized, got %v", err)
	}
}

func TestTransition_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	f.lifecycle.Audit = failingAudit{}
	_, err := f.lifecycle.Transition(ctx, moderator, l.ID, domain.StatusSuspended, "Fotos de baixa qualidade")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	got, err := repo.GetListing(ctx, f.db, l.ID, true)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if got.Status != domain.StatusActive || got.SuspensionReason != nil {
		t.Fatalf("status change must be rolled back: %+v", got)
	}
	if n := f.auditActions(t, l.ID)[domain.ActionSuspend]; n != 0 {
		t.Fatalf("no suspend entry expected, got %d", n)
	}

	if _, err := f.lifecycle.SoftDelete(ctx, owner, l.ID); !errors.Is(err, ErrPersistence) {
		t.Fatalf("soft delete: expected ErrPersistence, got %v", err)
	}
	if got, _ := repo.GetListing(ctx, f.db, l.ID, false); got == nil {
		t.Fatalf("soft delete must be rolled back")
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 1)

	if _, err := f.lifecycle.SoftDelete(ctx, stranger, l.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger delete: expected ErrUnauthorized, got %v", err)
	}
	got, err := f.lifecycle.SoftDelete(ctx, owner, l.ID)
	if err != nil || !got.IsDeleted() {
		t.Fatalf("SoftDelete = %+v, %v", got, err)
	}
	if _, err := f.lifecycle.SoftDelete(ctx, owner, l.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double delete: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.lifecycle.Transition(ctx, owner, l.ID, domain.StatusPaused, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition on deleted: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.lifecycle.Transition(ctx, stranger, l.ID, domain.StatusPaused, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger on deleted: expected ErrUnauthorized, got %v", err)
	}

	if _, err := f.listings.Get(ctx, stranger, domain.VariantMachine, l.Slug); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted listing must be hidden: %v", err)
	}
	if _, err := f.listings.Get(ctx, owner, domain.VariantMachine, l.Slug); err != nil {
		t.Fatalf("owner still sees the deleted listing: %v", err)
	}

	got, err = f.lifecycle.Restore(ctx, owner, l.ID)
	if err != nil || got.IsDeleted() {
		t.Fatalf("Restore = %+v, %v", got, err)
	}
	if _, err := f.lifecycle.Restore(ctx, moderator, l.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("restoring a live listing: expected ErrInvalidTransition, got %v", err)
	}

	acts := f.auditActions(t, l.ID)
	if acts[domain.ActionSoftDelete] != 1 || acts[domain.ActionRestore] != 1 {
		t.Fatalf("audit trail = %v", acts)
	}
	if _, err := f.lifecycle.SoftDelete(ctx, moderator, l.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
}

func TestRetireImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 3)
	principal := l.Principal()

	if err := f.lifecycle.RetireImage(ctx, owner, l.ID, principal.ID, "Imagem imprópria"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("owner: expected ErrUnauthorized, got %v", err)
	}
	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, principal.ID, "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason: expected ErrValidation, got %v", err)
	}
	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, "nope", "Imagem imprópria"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("unknown image: expected ErrImageNotFound, got %v", err)
	}

	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, principal.ID, "Imagem imprópria"); err != nil {
		t.Fatalf("RetireImage: %v", err)
	}
	imgs, _ := repo.ListImages(ctx, f.db, l.ID)
	if len(imgs) != 2 || !imgs[0].IsPrincipal || imgs[0].ID != l.Images[1].ID || imgs[1].IsPrincipal {
		t.Fatalf("next-oldest image should be the only principal: %+v", imgs)
	}
	if len(f.images.removed) != 2 || f.images.removed[1] != principal.ThumbnailURL {
		t.Fatalf("files not removed: %v", f.images.removed)
	}

	e := f.lastAudit(t, l.ID, domain.ActionDeleteImage)
	if e.Reason == nil || *e.Reason != "Imagem imprópria" ||
		e.Details["deleted_image_url"] != principal.URL ||
		e.Details["promoted_image_id"] != l.Images[1].ID {
		t.Fatalf("audit entry = %+v", e)
	}

	// Non-principal retirement promotes nothing.
	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, l.Images[2].ID, "Imagem repetida"); err != nil {
		t.Fatalf("RetireImage: %v", err)
	}
	imgs, _ = repo.ListImages(ctx, f.db, l.ID)
	if len(imgs) != 1 || !imgs[0].IsPrincipal {
		t.Fatalf("remaining principal changed: %+v", imgs)
	}
}

func TestRetireImage_ChangesFeedETag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewSearchService(f.db, search.NewComposer(f.db))
	l := f.create(t, owner, "Trator X", 2)

	before, err := svc.FeedETag(ctx, domain.VariantMachine)
	if err != nil {
		t.Fatalf("FeedETag: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, l.Images[1].ID, "Imagem repetida"); err != nil {
		t.Fatalf("RetireImage: %v", err)
	}
	after, _ := svc.FeedETag(ctx, domain.VariantMachine)
	if after == before {
		t.Fatalf("etag unchanged after image retirement: %s", after)
	}
	got, _ := repo.GetListing(ctx, f.db, l.ID, false)
	if !got.UpdatedAt.After(l.UpdatedAt) {
		t.Fatalf("updated_at not bumped: %v -> %v", l.UpdatedAt, got.UpdatedAt)
	}
}

func TestRetireImage_DeletedListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 2)
	if _, err := f.lifecycle.SoftDelete(ctx, owner, l.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, l.Images[0].ID, "Imagem imprópria"); err != nil {
		t.Fatalf("RetireImage on deleted listing: %v", err)
	}
	imgs, _ := repo.ListImages(ctx, f.db, l.ID)
	if len(imgs) != 1 || !imgs[0].IsPrincipal {
		t.Fatalf("images = %+v", imgs)
	}
}

func TestRetireImage_AuditFailureKeepsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, owner, "Trator X", 2)
	f.lifecycle.Audit = failingAudit{}

	if err := f.lifecycle.RetireImage(ctx, moderator, l.ID, l.Images[0].ID, "Imagem imprópria"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	imgs, _ := repo.ListImages(ctx, f.db, l.ID)
	if len(imgs) != 2 || !imgs[0].IsPrincipal {
		t.Fatalf("image deletion must be rolled back: %+v", imgs)
	}
	if len(f.images.removed) != 0 {
		t.Fatalf("files must stay when the row stays")
	}
}

func TestEffects_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("nats down")
	l := f.create(t, owner, "Trator X", 1)
	if _, err := f.lifecycle.Transition(context.Background(), owner, l.ID, domain.StatusPaused, ""); err != nil {
		t.Fatalf("publish failures are logged only: %v", err)
	}
	if len(f.events.sent) != 2 {
		t.Fatalf("events attempted = %d", len(f.events.sent))
	}
}
