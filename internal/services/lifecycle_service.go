// Package services – LifecycleService
//
// LifecycleService is the listing state machine. Status transitions,
// soft-delete, restore and image retirement each run in one transaction that
// updates the listing and appends exactly one audit entry; if the audit write
// fails the change is rolled back.
//
//	owner:     ACTIVE -> PAUSED, PAUSED -> ACTIVE, ACTIVE|PAUSED -> SOLD
//	moderator: the owner moves on any listing, * -> SUSPENDED (with reason),
//	           SUSPENDED -> ACTIVE
//
// Nobody but a moderator moves a listing out of SUSPENDED.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/events"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

const defaultMinReasonLength = 10

// LifecycleService changes listing status and visibility.
type LifecycleService struct {
	DB     *gorm.DB
	Audit  AuditAppender
	Images ImageStore
	Effects

	// MinReasonLength is the minimum rune count of a suspension reason.
	MinReasonLength int
}

// NewLifecycleService wires a LifecycleService with default policies.
func NewLifecycleService(db *gorm.DB, audit AuditAppender, images ImageStore) *LifecycleService {
	return &LifecycleService{
		DB:              db,
		Audit:           audit,
		Images:          images,
		Effects:         defaultEffects(),
		MinReasonLength: defaultMinReasonLength,
	}
}

func (s *LifecycleService) minReason() int {
	if s.MinReasonLength > 0 {
		return s.MinReasonLength
	}
	return defaultMinReasonLength
}

// decide returns the audit action for moving l to status to, or why the move
// is refused.
func (s *LifecycleService) decide(actor domain.Actor, l *domain.Listing, to domain.Status, reason string) (domain.Action, error) {
	owner, mod := actor.Owns(l), actor.IsModerator()
	if !owner && !mod {
		return "", ErrUnauthorized
	}
	if !to.Valid() || l.Status == to {
		return "", ErrInvalidTransition
	}

	switch {
	case to == domain.StatusSuspended:
		if !mod {
			return "", ErrUnauthorized
		}
		if utf8.RuneCountInString(strings.TrimSpace(reason)) < s.minReason() {
			return "", invalid("reason", fmt.Sprintf("must be at least %d characters", s.minReason()))
		}
		return domain.ActionSuspend, nil
	case l.Status == domain.StatusSuspended:
		if !mod {
			return "", ErrUnauthorized
		}
		if to != domain.StatusActive {
			return "", ErrInvalidTransition
		}
		return domain.ActionReactivateByAdmin, nil
	case l.Status == domain.StatusActive && to == domain.StatusPaused:
		return domain.ActionPause, nil
	case l.Status == domain.StatusPaused && to == domain.StatusActive:
		return domain.ActionReactivateByOwner, nil
	case l.Status != domain.StatusSold && to == domain.StatusSold:
		return domain.ActionMarkSold, nil
	}
	return "", ErrInvalidTransition
}

// Transition moves listing id to status to. reason is required, and stored
// verbatim, when suspending; a moderator may also pass one when reactivating
// and it is kept in the audit entry only.
func (s *LifecycleService) Transition(ctx context.Context, actor domain.Actor, id string, to domain.Status, reason string) (*domain.Listing, error) {
	ctx, span := otel.Tracer("services/LifecycleService").Start(ctx, "Transition",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("listing.id", id),
			attribute.String("status.to", string(to)),
		),
	)
	defer span.End()

	if actor.ID == "" {
		return nil, ErrUnauthorized
	}

	var (
		out    *domain.Listing
		action domain.Action
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(l) && !actor.IsModerator() {
			return ErrUnauthorized
		}
		if l.IsDeleted() {
			return ErrInvalidTransition
		}
		if action, err = s.decide(actor, l, to, reason); err != nil {
			return err
		}

		var stored, logged *string
		if to == domain.StatusSuspended {
			stored, logged = &reason, &reason
		} else if r := strings.TrimSpace(reason); r != "" {
			logged = &r
		}
		if err := repo.SetStatus(ctx, tx, l.ID, to, stored); err != nil {
			return err
		}
		details := map[string]any{"from": string(l.Status), "to": string(to)}
		if err := s.Audit.Append(ctx, tx, entry(actor, action, l, logged, details)); err != nil {
			return err
		}
		out, err = repo.GetListing(ctx, tx, l.ID, false)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, persistErr(err)
	}

	s.committed(ctx, events.KindStatusChanged, action, actor, out)
	return out, nil
}

// SoftDelete hides a listing from every public read. Owners may delete their
// own listings in any status; moderators may delete any listing.
func (s *LifecycleService) SoftDelete(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error) {
	return s.setDeleted(ctx, actor, id, true)
}

// Restore clears the soft-delete marker. Same authority as SoftDelete.
func (s *LifecycleService) Restore(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error) {
	return s.setDeleted(ctx, actor, id, false)
}

func (s *LifecycleService) setDeleted(ctx context.Context, actor domain.Actor, id string, deleted bool) (*domain.Listing, error) {
	op, action, kind := "Restore", domain.ActionRestore, events.KindRestored
	if deleted {
		op, action, kind = "SoftDelete", domain.ActionSoftDelete, events.KindDeleted
	}
	ctx, span := otel.Tracer("services/LifecycleService").Start(ctx, op,
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("listing.id", id),
		),
	)
	defer span.End()

	if actor.ID == "" {
		return nil, ErrUnauthorized
	}

	var out *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(l) && !actor.IsModerator() {
			return ErrUnauthorized
		}
		if l.IsDeleted() == deleted {
			return ErrInvalidTransition
		}
		if deleted {
			err = repo.SoftDeleteListing(ctx, tx, l.ID)
		} else {
			err = repo.RestoreListing(ctx, tx, l.ID)
		}
		if err != nil {
			return err
		}
		if err := s.Audit.Append(ctx, tx, entry(actor, action, l, nil, nil)); err != nil {
			return err
		}
		out, err = repo.GetListing(ctx, tx, l.ID, true)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, persistErr(err)
	}

	s.committed(ctx, kind, action, actor, out)
	return out, nil
}

// RetireImage deletes one image of a listing on a moderator's decision. When
// the principal image is removed the next-oldest image is promoted, and the
// listing counts as updated either way. The
// stored files are removed after commit; failures there are only logged.
func (s *LifecycleService) RetireImage(ctx context.Context, actor domain.Actor, listingID, imageID, reason string) error {
	ctx, span := otel.Tracer("services/LifecycleService").Start(ctx, "RetireImage",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("listing.id", listingID),
			attribute.String("image.id", imageID),
		),
	)
	defer span.End()

	if !actor.IsModerator() {
		return ErrUnauthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason", "is required")
	}

	var (
		l   *domain.Listing
		img *domain.ListingImage
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if l, err = s.load(ctx, tx, listingID); err != nil {
			return err
		}
		img, err = repo.GetImage(ctx, tx, l.ID, imageID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrImageNotFound
		}
		if err != nil {
			return err
		}
		if err := repo.DeleteImage(ctx, tx, l.ID, img.ID); err != nil {
			return err
		}
		details := map[string]any{"reason": reason, "deleted_image_url": img.URL}
		promoted, err := repo.EnsurePrincipal(ctx, tx, l.ID)
		if err != nil {
			return err
		}
		if promoted != nil {
			details["promoted_image_id"] = promoted.ID
		}
		// Feed ETags and ordering follow updated_at.
		if err := repo.TouchListing(ctx, tx, l.ID); err != nil {
			return err
		}
		return s.Audit.Append(ctx, tx, entry(actor, domain.ActionDeleteImage, l, &reason, details))
	})
	if err != nil {
		span.RecordError(err)
		return persistErr(err)
	}

	s.Images.Remove(ctx, img.URL, img.ThumbnailURL)
	s.committed(ctx, events.KindImageRetired, domain.ActionDeleteImage, actor, l)
	return nil
}

// load reads a listing, deleted or not, mapping a miss to ErrNotFound.
func (s *LifecycleService) load(ctx context.Context, tx *gorm.DB, id string) (*domain.Listing, error) {
	l, err := repo.GetListing(ctx, tx, id, true)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return l, err
}
