package services

import (
	"context"
	"time"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/events"
	"github.com/tbourn/agro-classifieds/internal/observability"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
)

// FeedInvalidator drops cached feed pages of a variant. *search.Composer
// implements it.
type FeedInvalidator interface {
	Invalidate(ctx context.Context, variant domain.Variant)
}

type noFeeds struct{}

func (noFeeds) Invalidate(context.Context, domain.Variant) {}

// Effects are the post-commit side effects shared by the mutating services.
// None of them can fail the operation.
type Effects struct {
	Feeds  FeedInvalidator
	Events events.Publisher
}

func defaultEffects() Effects {
	return Effects{Feeds: noFeeds{}, Events: events.Noop{}}
}

// committed records a finished change: metrics, cache, event bus.
func (fx Effects) committed(ctx context.Context, kind string, action domain.Action, actor domain.Actor, l *domain.Listing) {
	observability.ListingActions.WithLabelValues(string(action)).Inc()

	if fx.Feeds != nil {
		fx.Feeds.Invalidate(ctx, l.Variant)
	}
	if fx.Events == nil {
		return
	}
	ev := events.ListingEvent{
		Kind:       kind,
		ListingID:  l.ID,
		Variant:    string(l.Variant),
		Slug:       l.Slug,
		Status:     string(l.Status),
		Action:     string(action),
		ActorID:    actor.ID,
		OccurredAt: time.Now().UTC(),
	}
	if err := fx.Events.Publish(ctx, ev); err != nil {
		sysutil.Logger(ctx).Warn().Err(err).
			Str("listing_id", l.ID).
			Str("kind", kind).
			Msg("listing event not published")
	}
}
