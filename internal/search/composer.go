// Package search composes filtered, paginated listing queries for the public
// feeds, the featured strip, the owner dashboard, and the moderation view.
//
// All predicates are GORM scopes over the shared listings table. Variant
// attributes are matched through IN-subqueries on the detail tables, so one
// query serves both variants and the moderation feed needs no in-memory
// merge. Totals always come from a separate COUNT over the same scopes.
package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/cache"
	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
	"github.com/tbourn/agro-classifieds/internal/utils"
)

// Page is one slice of a result set.
type Page struct {
	Items      []domain.Listing `json:"items"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// HasNext reports whether another page follows.
func (p *Page) HasNext() bool { return p.Page < p.TotalPages }

const (
	orderUpdated = "listings.updated_at desc, listings.id desc"
	orderCreated = "listings.created_at desc, listings.id desc"
)

type config struct {
	feedPageSize       int
	moderationPageSize int
	maxPageSize        int
	featuredCount      int
	cache              cache.FeedCache
}

func defaultConfig() config {
	return config{
		feedPageSize:       12,
		moderationPageSize: 15,
		maxPageSize:        100,
		featuredCount:      4,
		cache:              cache.Noop{},
	}
}

// Option customizes a Composer.
type Option func(*config)

// WithCache serves public feed pages from c.
func WithCache(c cache.FeedCache) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.cache = c
		}
	}
}

// WithPageSizes overrides the default feed and moderation page sizes.
func WithPageSizes(feed, moderation int) Option {
	return func(cfg *config) {
		if feed > 0 {
			cfg.feedPageSize = feed
		}
		if moderation > 0 {
			cfg.moderationPageSize = moderation
		}
	}
}

// WithMaxPageSize caps caller-supplied page sizes.
func WithMaxPageSize(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxPageSize = n
		}
	}
}

// Composer runs listing searches.
type Composer struct {
	DB  *gorm.DB
	cfg config
}

// NewComposer builds a Composer over db.
func NewComposer(db *gorm.DB, opts ...Option) *Composer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Composer{DB: db, cfg: cfg}
}

// FeedPageSize is the default public page size.
func (c *Composer) FeedPageSize() int { return c.cfg.feedPageSize }

// ModerationPageSize is the default moderation page size.
func (c *Composer) ModerationPageSize() int { return c.cfg.moderationPageSize }

func (c *Composer) clamp(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > c.cfg.maxPageSize {
		size = c.cfg.maxPageSize
	}
	return page, size
}

// run counts and fetches one page for the given scopes.
func (c *Composer) run(ctx context.Context, db *gorm.DB, scopes []repo.Scope, order string, page, size int) (*Page, error) {
	total, err := repo.CountListings(ctx, db, scopes)
	if err != nil {
		return nil, err
	}
	out := &Page{
		Items:      []domain.Listing{},
		Total:      total,
		TotalPages: utils.TotalPages(total, size),
		Page:       page,
		PageSize:   size,
	}
	if total == 0 {
		return out, nil
	}
	items, err := repo.FindListings(ctx, db, scopes, order, utils.Offset(page, size), size)
	if err != nil {
		return nil, err
	}
	out.Items = items
	return out, nil
}

// Feed returns the public feed of a variant: ACTIVE, not deleted, most
// recently updated first.
func (c *Composer) Feed(ctx context.Context, variant domain.Variant, f Filters, page, pageSize int) (*Page, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Feed",
		trace.WithAttributes(attribute.String("variant", string(variant)), attribute.Int("page", page)))
	defer span.End()

	page, pageSize = c.clamp(page, pageSize, c.cfg.feedPageSize)
	public := Filters{
		Q: f.Q, Type: f.Type, Brand: f.Brand, State: f.State, City: f.City,
		PriceMin: f.PriceMin, PriceMax: f.PriceMax, YearMin: f.YearMin, YearMax: f.YearMax,
		HoursMin: f.HoursMin, HoursMax: f.HoursMax, AreaMin: f.AreaMin, AreaMax: f.AreaMax,
	}

	key := cacheKey("feed", public, page, pageSize)
	ver, cacheable := c.cacheVersion(ctx, variant)
	if cacheable {
		var cached Page
		if hit, err := c.cfg.cache.Get(ctx, string(variant), ver, key, &cached); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Msg("feed cache read failed")
		} else if hit {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &cached, nil
		}
	}

	scopes := append([]repo.Scope{variantScope(variant), publicScope}, public.scopes()...)
	out, err := c.run(ctx, c.DB, scopes, orderUpdated, page, pageSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cacheable {
		if err := c.cfg.cache.Set(ctx, string(variant), ver, key, out); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Msg("feed cache write failed")
		}
	}
	return out, nil
}

// Featured returns the newest public listings of a variant.
func (c *Composer) Featured(ctx context.Context, variant domain.Variant) ([]domain.Listing, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Featured",
		trace.WithAttributes(attribute.String("variant", string(variant))))
	defer span.End()

	key := cacheKey("featured", nil, 1, c.cfg.featuredCount)
	ver, cacheable := c.cacheVersion(ctx, variant)
	if cacheable {
		var cached []domain.Listing
		if hit, err := c.cfg.cache.Get(ctx, string(variant), ver, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	items, err := repo.FindListings(ctx, c.DB,
		[]repo.Scope{variantScope(variant), publicScope}, orderCreated, 0, c.cfg.featuredCount)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cacheable {
		if err := c.cfg.cache.Set(ctx, string(variant), ver, key, items); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Msg("featured cache write failed")
		}
	}
	return items, nil
}

// Moderation returns both variants in one feed, newest first. Soft-deleted
// listings are always included.
func (c *Composer) Moderation(ctx context.Context, f Filters, page, pageSize int) (*Page, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Moderation",
		trace.WithAttributes(attribute.Int("page", page)))
	defer span.End()

	page, pageSize = c.clamp(page, pageSize, c.cfg.moderationPageSize)
	out, err := c.run(ctx, c.DB.Unscoped(), f.moderationScopes(), orderCreated, page, pageSize)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

// Owned returns the owner's listings in every status. Soft-deleted ones are
// included only when f.IncludeDeleted is set.
func (c *Composer) Owned(ctx context.Context, ownerID string, f Filters, page, pageSize int) (*Page, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Owned")
	defer span.End()

	page, pageSize = c.clamp(page, pageSize, c.cfg.feedPageSize)
	f.OwnerID = ownerID
	db := c.DB
	if f.IncludeDeleted {
		db = db.Unscoped()
	}
	out, err := c.run(ctx, db, f.moderationScopes(), orderCreated, page, pageSize)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

// Compare returns the public listings of variant whose slugs are given, in
// the order given. Unknown, hidden and repeated slugs are skipped.
func (c *Composer) Compare(ctx context.Context, variant domain.Variant, slugs []string) ([]domain.Listing, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Compare",
		trace.WithAttributes(attribute.String("variant", string(variant)), attribute.Int("slugs", len(slugs))))
	defer span.End()

	if len(slugs) == 0 {
		return []domain.Listing{}, nil
	}
	items, err := repo.FindListings(ctx, c.DB,
		[]repo.Scope{variantScope(variant), publicScope, slugScope(slugs)}, orderCreated, 0, len(slugs))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	bySlug := make(map[string]domain.Listing, len(items))
	for _, l := range items {
		bySlug[l.Slug] = l
	}
	out := make([]domain.Listing, 0, len(items))
	for _, s := range slugs {
		if l, found := bySlug[s]; found {
			out = append(out, l)
			delete(bySlug, s)
		}
	}
	return out, nil
}

// VariantStats summarizes one variant for the moderator dashboard.
type VariantStats struct {
	Variant domain.Variant   `json:"variant"`
	Total   int64            `json:"total"`
	Recent  []domain.Listing `json:"recent"`
}

// Stats counts the non-deleted listings of every variant, any status, and
// lists the recent newest ones. Recent listings include deleted ones.
func (c *Composer) Stats(ctx context.Context, recent int) ([]VariantStats, error) {
	ctx, span := otel.Tracer("search").Start(ctx, "Stats")
	defer span.End()

	out := make([]VariantStats, 0, len(domain.Variants))
	for _, v := range domain.Variants {
		scopes := []repo.Scope{variantScope(v)}
		total, err := repo.CountListings(ctx, c.DB, scopes)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		items := []domain.Listing{}
		if recent > 0 {
			if items, err = repo.FindListings(ctx, c.DB.Unscoped(), scopes, orderCreated, 0, recent); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		out = append(out, VariantStats{Variant: v, Total: total, Recent: items})
	}
	return out, nil
}

// cacheVersion reads the cache version of variant before the database is
// queried. When it cannot be read the request bypasses the cache.
func (c *Composer) cacheVersion(ctx context.Context, variant domain.Variant) (int64, bool) {
	ver, err := c.cfg.cache.Version(ctx, string(variant))
	if err != nil {
		sysutil.Logger(ctx).Warn().Err(err).Msg("feed cache version read failed")
		return 0, false
	}
	return ver, true
}

// Invalidate drops cached pages of variant after a committed mutation.
func (c *Composer) Invalidate(ctx context.Context, variant domain.Variant) {
	if err := c.cfg.cache.Invalidate(ctx, string(variant)); err != nil {
		sysutil.Logger(ctx).Warn().Err(err).Str("variant", string(variant)).Msg("feed cache invalidation failed")
	}
}

func cacheKey(kind string, f any, page, size int) string {
	b, _ := json.Marshal(f)
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d", kind, b, page, size)))
	return kind + ":" + hex.EncodeToString(sum[:])
}
