package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/search"
)

const (
	// MaxCompare is how many listings can be compared side by side.
	MaxCompare = 3
	// dashboardRecent is how many newest listings per variant the
	// moderator dashboard shows.
	dashboardRecent = 3
)

// SearchService applies actor rules on top of the query composer.
type SearchService struct {
	DB       *gorm.DB
	Composer *search.Composer
}

// NewSearchService returns a SearchService reading through c.
func NewSearchService(db *gorm.DB, c *search.Composer) *SearchService {
	return &SearchService{DB: db, Composer: c}
}

// Feed returns one page of the public feed of variant.
func (s *SearchService) Feed(ctx context.Context, variant domain.Variant, f search.Filters, page, pageSize int) (*search.Page, error) {
	if !variant.Valid() {
		return nil, invalid("variant", "must be machine or property")
	}
	p, err := s.Composer.Feed(ctx, variant, f, page, pageSize)
	return p, persistErr(err)
}

// FeedETag is a weak validator that changes whenever the public set of
// variant changes.
func (s *SearchService) FeedETag(ctx context.Context, variant domain.Variant) (string, error) {
	ctx, span := otel.Tracer("services/SearchService").Start(ctx, "FeedETag",
		trace.WithAttributes(attribute.String("variant", string(variant))))
	defer span.End()

	count, maxTS, err := repo.ListingsStats(ctx, s.DB, variant)
	if err != nil {
		return "", persistErr(err)
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UTC().UnixNano()
	}
	return fmt.Sprintf(`W/"%s-%d-%d"`, variant, count, ts), nil
}

// Featured returns the newest public listings of variant.
func (s *SearchService) Featured(ctx context.Context, variant domain.Variant) ([]domain.Listing, error) {
	if !variant.Valid() {
		return nil, invalid("variant", "must be machine or property")
	}
	items, err := s.Composer.Featured(ctx, variant)
	return items, persistErr(err)
}

// Moderation returns the moderator feed over both variants.
func (s *SearchService) Moderation(ctx context.Context, actor domain.Actor, f search.Filters, page, pageSize int) (*search.Page, error) {
	if !actor.IsModerator() {
		return nil, ErrUnauthorized
	}
	p, err := s.Composer.Moderation(ctx, f, page, pageSize)
	return p, persistErr(err)
}

// Owned returns the actor's own listings, every status included.
func (s *SearchService) Owned(ctx context.Context, actor domain.Actor, f search.Filters, page, pageSize int) (*search.Page, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	p, err := s.Composer.Owned(ctx, actor.ID, f, page, pageSize)
	return p, persistErr(err)
}

// Compare returns up to MaxCompare public listings of variant in the order
// of slugs. Blank and repeated slugs are ignored. When slugs were asked for
// and none is public the result is ErrNotFound.
func (s *SearchService) Compare(ctx context.Context, variant domain.Variant, slugs []string) ([]domain.Listing, error) {
	if !variant.Valid() {
		return nil, invalid("variant", "must be machine or property")
	}
	seen := make(map[string]struct{}, len(slugs))
	wanted := make([]string, 0, len(slugs))
	for _, sl := range slugs {
		sl = strings.TrimSpace(sl)
		if _, dup := seen[sl]; sl == "" || dup {
			continue
		}
		seen[sl] = struct{}{}
		wanted = append(wanted, sl)
	}
	if len(wanted) > MaxCompare {
		return nil, invalid("slugs", fmt.Sprintf("at most %d listings can be compared", MaxCompare))
	}

	items, err := s.Composer.Compare(ctx, variant, wanted)
	if err != nil {
		return nil, persistErr(err)
	}
	if len(wanted) > 0 && len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

// Stats returns the moderator dashboard summary.
func (s *SearchService) Stats(ctx context.Context, actor domain.Actor) ([]search.VariantStats, error) {
	if !actor.IsModerator() {
		return nil, ErrUnauthorized
	}
	out, err := s.Composer.Stats(ctx, dashboardRecent)
	return out, persistErr(err)
}
