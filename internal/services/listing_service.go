// Package services – ListingService
//
// ListingService owns listing content: creation, edits and the public detail
// read. A create stores the images first, then writes the listing, its
// details, its images and the CREATE_AD audit entry in one transaction.
// Slugs are protected by a unique index; a collision with a concurrent writer
// re-allocates and retries a bounded number of times.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/events"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/slug"
)

// SlugAllocator picks a free slug for a title.
type SlugAllocator interface {
	Allocate(ctx context.Context, db *gorm.DB, variant domain.Variant, title, excludeID string) (string, error)
}

// ImageStore ingests and removes listing images. *media.Pipeline
// implements it.
type ImageStore interface {
	Ingest(ctx context.Context, variant domain.Variant, uploads []media.Upload) ([]media.Stored, error)
	Discard(ctx context.Context, stored []media.Stored)
	Remove(ctx context.Context, url, thumbnailURL string)
	MaxFiles() int
}

const (
	defaultSlugAttempts   = 5
	defaultIdempotencyTTL = 24 * time.Hour
)

// ListingService creates, edits and reads listings.
type ListingService struct {
	DB     *gorm.DB
	Slugs  SlugAllocator
	Images ImageStore
	Audit  AuditAppender
	Effects

	// SlugAttempts bounds the retries after a slug collision.
	SlugAttempts int
	// IdempotencyTTL is how long a create can be replayed with the same key.
	IdempotencyTTL time.Duration
	// Now is the clock used for year validation.
	Now func() time.Time
}

// NewListingService wires a ListingService with default policies.
func NewListingService(db *gorm.DB, images ImageStore, audit AuditAppender) *ListingService {
	return &ListingService{
		DB:             db,
		Slugs:          slug.NewAllocator(),
		Images:         images,
		Audit:          audit,
		Effects:        defaultEffects(),
		SlugAttempts:   defaultSlugAttempts,
		IdempotencyTTL: defaultIdempotencyTTL,
		Now:            time.Now,
	}
}

func (s *ListingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ListingService) attempts() int {
	if s.SlugAttempts > 0 {
		return s.SlugAttempts
	}
	return defaultSlugAttempts
}

func idempotencyScope(v domain.Variant) string { return "listing.create." + string(v) }

// Create validates the input, stores the images and persists the listing
// owned by actor. With a non-empty key, a repeated call by the same actor
// returns the listing created by the first call and replayed=true.
func (s *ListingService) Create(ctx context.Context, actor domain.Actor, variant domain.Variant, in ListingInput, uploads []media.Upload, key string) (l *domain.Listing, replayed bool, err error) {
	ctx, span := otel.Tracer("services/ListingService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("variant", string(variant)),
			attribute.Int("images", len(uploads)),
		),
	)
	defer span.End()

	if actor.ID == "" {
		return nil, false, ErrUnauthorized
	}
	if !variant.Valid() {
		return nil, false, invalid("variant", "must be machine or property")
	}

	if key != "" {
		if prev, ok := s.replay(ctx, actor, variant, key); ok {
			return prev, true, nil
		}
	}

	countErr := imageCountError(len(uploads), s.Images.MaxFiles())
	principal := 0
	if in.PrincipalIndex != nil {
		principal = *in.PrincipalIndex
		if principal < 0 || principal >= len(uploads) {
			countErr = mergeValidation(countErr, invalid("principal_index", "does not match an uploaded image"))
		}
	}
	if err := mergeValidation(in.normalize(variant, s.now()), countErr); err != nil {
		return nil, false, err
	}

	stored, err := s.Images.Ingest(ctx, variant, uploads)
	if err != nil {
		return nil, false, ingestErr(err)
	}

	l = &domain.Listing{
		Variant:     variant,
		OwnerID:     actor.ID,
		Title:       in.Title,
		Status:      domain.StatusActive,
		PriceCents:  *in.PriceCents,
		State:       in.State,
		City:        in.City,
		Description: in.Description,
		Machine:     in.Machine,
		Property:    in.Property,
		Images:      make([]domain.ListingImage, len(stored)),
	}
	for i, st := range stored {
		l.Images[i] = domain.ListingImage{
			URL:          st.URL,
			ThumbnailURL: st.ThumbnailURL,
			IsPrincipal:  i == principal,
			Position:     i,
		}
	}

	for attempt := 1; ; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sl, err := s.Slugs.Allocate(ctx, tx, variant, l.Title, "")
			if err != nil {
				return err
			}
			l.Slug = sl
			if err := repo.CreateListing(ctx, tx, l); err != nil {
				return err
			}
			if err := s.Audit.Append(ctx, tx, entry(actor, domain.ActionCreate, l, nil, nil)); err != nil {
				return err
			}
			if key != "" {
				if _, err := repo.CreateIdempotency(ctx, tx, actor.ID, idempotencyScope(variant), key, l.ID, 201, s.IdempotencyTTL); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil || !repo.IsDuplicate(err) || attempt >= s.attempts() {
			break
		}
		if key != "" {
			if prev, ok := s.replay(ctx, actor, variant, key); ok {
				s.Images.Discard(ctx, stored)
				return prev, true, nil
			}
		}
		span.AddEvent("slug collision", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	if err != nil {
		span.RecordError(err)
		s.Images.Discard(ctx, stored)
		return nil, false, persistErr(err)
	}

	s.committed(ctx, events.KindCreated, domain.ActionCreate, actor, l)
	return l, false, nil
}

// replay returns the listing recorded for an idempotency key, if any.
func (s *ListingService) replay(ctx context.Context, actor domain.Actor, variant domain.Variant, key string) (*domain.Listing, bool) {
	rec, err := repo.GetIdempotency(ctx, s.DB, actor.ID, idempotencyScope(variant), key, time.Now().UTC())
	if err != nil {
		return nil, false
	}
	l, err := repo.GetListing(ctx, s.DB, rec.ResourceID, true)
	if err != nil {
		return nil, false
	}
	return l, true
}

// ingestErr splits pipeline failures into bad content and backend trouble.
func ingestErr(err error) error {
	if media.IsInvalid(err) {
		return invalid("images", err.Error())
	}
	return errors.Join(ErrStorage, err)
}

// Edit replaces the content of a listing, removes the given images and
// appends the uploaded ones. Owners may edit their own ACTIVE or PAUSED
// listings; moderators may edit any live listing. The slug is regenerated
// only when the title changes.
func (s *ListingService) Edit(ctx context.Context, actor domain.Actor, id string, in ListingInput, uploads []media.Upload, removeIDs []string) (*domain.Listing, error) {
	ctx, span := otel.Tracer("services/ListingService").Start(ctx, "Edit",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("listing.id", id),
			attribute.Int("images.added", len(uploads)),
			attribute.Int("images.removed", len(removeIDs)),
		),
	)
	defer span.End()

	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	removeIDs = dedupe(removeIDs)

	cur, err := repo.GetListing(ctx, s.DB, id, false)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr(err)
	}
	if err := s.checkEdit(actor, cur, &in, len(uploads), removeIDs); err != nil {
		return nil, err
	}

	var stored []media.Stored
	if len(uploads) > 0 {
		if stored, err = s.Images.Ingest(ctx, cur.Variant, uploads); err != nil {
			return nil, ingestErr(err)
		}
	}

	var (
		updated *domain.Listing
		removed []domain.ListingImage
		action  domain.Action
	)
	for attempt := 1; ; attempt++ {
		removed = removed[:0]
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cur, err := repo.GetListing(ctx, tx, id, false)
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			if err := s.checkEdit(actor, cur, &in, len(stored), removeIDs); err != nil {
				return err
			}

			changed := changedFields(cur, &in)
			cols := map[string]any{
				"title":       in.Title,
				"price_cents": *in.PriceCents,
				"state":       in.State,
				"city":        in.City,
				"description": in.Description,
			}
			if in.Title != cur.Title {
				sl, err := s.Slugs.Allocate(ctx, tx, cur.Variant, in.Title, cur.ID)
				if err != nil {
					return err
				}
				cols["slug"] = sl
			}
			if err := repo.UpdateListing(ctx, tx, cur.ID, cols); err != nil {
				return err
			}
			if in.Machine != nil {
				err = repo.UpdateMachineDetails(ctx, tx, cur.ID, in.Machine)
			} else if in.Property != nil {
				err = repo.UpdatePropertyDetails(ctx, tx, cur.ID, in.Property)
			}
			if err != nil {
				return err
			}

			for _, imgID := range removeIDs {
				img := findImage(cur.Images, imgID)
				if err := repo.DeleteImage(ctx, tx, cur.ID, imgID); err != nil {
					return err
				}
				removed = append(removed, *img)
			}
			if len(stored) > 0 {
				add := make([]domain.ListingImage, len(stored))
				for i, st := range stored {
					add[i] = domain.ListingImage{URL: st.URL, ThumbnailURL: st.ThumbnailURL}
				}
				if err := repo.CreateImages(ctx, tx, cur.ID, add); err != nil {
					return err
				}
			}
			if len(removed) > 0 || len(stored) > 0 {
				if _, err := repo.EnsurePrincipal(ctx, tx, cur.ID); err != nil {
					return err
				}
				changed = append(changed, "images")
			}

			action = domain.ActionEdit
			details := map[string]any{"changed_fields": changed}
			if !actor.Owns(cur) {
				action = domain.ActionAdminEdit
				if in.Message != "" {
					details["message"] = in.Message
				}
			}
			if err := s.Audit.Append(ctx, tx, entry(actor, action, cur, nil, details)); err != nil {
				return err
			}

			updated, err = repo.GetListing(ctx, tx, cur.ID, false)
			return err
		})
		if err == nil || !repo.IsDuplicate(err) || attempt >= s.attempts() {
			break
		}
		span.AddEvent("slug collision", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	if err != nil {
		span.RecordError(err)
		s.Images.Discard(ctx, stored)
		return nil, persistErr(err)
	}

	for _, img := range removed {
		s.Images.Remove(ctx, img.URL, img.ThumbnailURL)
	}
	s.committed(ctx, events.KindUpdated, action, actor, updated)
	return updated, nil
}

// checkEdit authorizes the edit and validates the resulting listing.
func (s *ListingService) checkEdit(actor domain.Actor, cur *domain.Listing, in *ListingInput, added int, removeIDs []string) error {
	switch {
	case actor.IsModerator():
	case actor.Owns(cur):
		if cur.Status != domain.StatusActive && cur.Status != domain.StatusPaused {
			return ErrUnauthorized
		}
	default:
		return ErrUnauthorized
	}
	for _, imgID := range removeIDs {
		if findImage(cur.Images, imgID) == nil {
			return ErrImageNotFound
		}
	}
	return mergeValidation(
		in.normalize(cur.Variant, s.now()),
		imageCountError(len(cur.Images)-len(removeIDs)+added, s.Images.MaxFiles()),
	)
}

// Get returns the listing behind a public link. Listings that are not
// ACTIVE, or are deleted, are visible only to their owner and moderators.
func (s *ListingService) Get(ctx context.Context, actor domain.Actor, variant domain.Variant, slugText string) (*domain.Listing, error) {
	ctx, span := otel.Tracer("services/ListingService").Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("variant", string(variant)),
			attribute.String("slug", slugText),
		),
	)
	defer span.End()

	l, err := repo.GetListingBySlug(ctx, s.DB, variant, slugText)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr(err)
	}
	public := l.Status == domain.StatusActive && !l.IsDeleted()
	if !public && !actor.Owns(l) && !actor.IsModerator() {
		return nil, ErrNotFound
	}
	return l, nil
}

// changedFields lists the names of the content fields in differs from cur,
// sorted.
func changedFields(cur *domain.Listing, in *ListingInput) []string {
	var out []string
	if cur.Title != in.Title {
		out = append(out, "title")
	}
	if in.PriceCents != nil && cur.PriceCents != *in.PriceCents {
		out = append(out, "price")
	}
	if cur.State != in.State {
		out = append(out, "state")
	}
	if cur.City != in.City {
		out = append(out, "city")
	}
	if cur.Description != in.Description {
		out = append(out, "description")
	}
	switch {
	case in.Machine != nil:
		out = append(out, diffJSON(cur.Machine, in.Machine)...)
	case in.Property != nil:
		out = append(out, diffJSON(cur.Property, in.Property)...)
	}
	sort.Strings(out)
	return out
}

// diffJSON compares two detail records by their JSON field names.
func diffJSON(a, b any) []string {
	am, bm := jsonFields(a), jsonFields(b)
	var out []string
	for k, bv := range bm {
		if !reflect.DeepEqual(am[k], bv) {
			out = append(out, k)
		}
	}
	return out
}

func jsonFields(v any) map[string]any {
	m := map[string]any{}
	if b, err := json.Marshal(v); err == nil {
		_ = json.Unmarshal(b, &m)
	}
	return m
}

func findImage(imgs []domain.ListingImage, id string) *domain.ListingImage {
	for i := range imgs {
		if imgs[i].ID == id {
			return &imgs[i]
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
