package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/http/middleware"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/search"
	"github.com/tbourn/agro-classifieds/internal/services"
	"github.com/tbourn/agro-classifieds/internal/utils"
)

//
// Service contracts (context-aware)
//

// ListingService creates, edits and reads individual listings.
type ListingService interface {
	Create(ctx context.Context, actor domain.Actor, variant domain.Variant, in services.ListingInput, uploads []media.Upload, key string) (*domain.Listing, bool, error)
	Edit(ctx context.Context, actor domain.Actor, id string, in services.ListingInput, uploads []media.Upload, removeIDs []string) (*domain.Listing, error)
	Get(ctx context.Context, actor domain.Actor, variant domain.Variant, slug string) (*domain.Listing, error)
}

// LifecycleService applies status changes, deletion and image retirement.
type LifecycleService interface {
	Transition(ctx context.Context, actor domain.Actor, id string, to domain.Status, reason string) (*domain.Listing, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error)
	Restore(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error)
	RetireImage(ctx context.Context, actor domain.Actor, listingID, imageID, reason string) error
}

// SearchService serves the feeds.
type SearchService interface {
	Feed(ctx context.Context, variant domain.Variant, f search.Filters, page, pageSize int) (*search.Page, error)
	FeedETag(ctx context.Context, variant domain.Variant) (string, error)
	Featured(ctx context.Context, variant domain.Variant) ([]domain.Listing, error)
	Moderation(ctx context.Context, actor domain.Actor, f search.Filters, page, pageSize int) (*search.Page, error)
	Owned(ctx context.Context, actor domain.Actor, f search.Filters, page, pageSize int) (*search.Page, error)
	Compare(ctx context.Context, variant domain.Variant, slugs []string) ([]domain.Listing, error)
	Stats(ctx context.Context, actor domain.Actor) ([]search.VariantStats, error)
}

// AuditReader browses the moderation trail.
type AuditReader interface {
	List(ctx context.Context, actor domain.Actor, f repo.AuditFilter, page, pageSize int) (*services.AuditPage, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	listings  ListingService
	lifecycle LifecycleService
	search    SearchService
	audit     AuditReader
}

// New constructs Handlers bound to the given services.
func New(listings ListingService, lifecycle LifecycleService, search SearchService, audit AuditReader) *Handlers {
	return &Handlers{listings: listings, lifecycle: lifecycle, search: search, audit: audit}
}

// requireActor returns the authenticated actor or answers 401.
func requireActor(c *gin.Context) (domain.Actor, bool) {
	a, authed := middleware.ActorFrom(c)
	if !authed {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return domain.Actor{}, false
	}
	return a, true
}

// optionalActor returns the actor or the zero (anonymous) actor.
func optionalActor(c *gin.Context) domain.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// variantParam parses :variant ("machines", "property", ...) or answers 404.
func variantParam(c *gin.Context) (domain.Variant, bool) {
	v, known := domain.ParseVariant(c.Param("variant"))
	if !known {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown listing variant")
		return "", false
	}
	return v, true
}

//
// DTOs
//

// ListingResponse is a listing plus its formatted price.
type ListingResponse struct {
	domain.Listing
	PriceDisplay string `json:"price_display" example:"R$ 20.000,00"`
}

func listingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{Listing: *l, PriceDisplay: utils.FormatBRL(l.PriceCents)}
}

func listingResponses(ls []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(ls))
	for i := range ls {
		out = append(out, listingResponse(&ls[i]))
	}
	return out
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListingPageResponse wraps a page of listings and pagination information.
type ListingPageResponse struct {
	Items      []ListingResponse `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

func pageResponse(p *search.Page) ListingPageResponse {
	return ListingPageResponse{
		Items: listingResponses(p.Items),
		Pagination: Pagination{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      p.Total,
			TotalPages: p.TotalPages,
			HasNext:    p.HasNext(),
		},
	}
}

//
// Helpers
//

// pageParams reads page and page_size. A missing page_size is passed on as 0
// so the service applies the default for the feed kind.
func pageParams(c *gin.Context) (page, pageSize int) {
	const maxPageSize = 100
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), 0)
	if pageSize < 0 {
		pageSize = 0
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
