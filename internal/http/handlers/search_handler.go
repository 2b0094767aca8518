// Search and moderation HTTP handlers.
//
// This file exposes the read-side endpoints:
//   - GET /feeds/{variant}           (public feed, ETag support)
//   - GET /feeds/{variant}/featured  (four newest)
//   - GET /compare/{variant}         (side by side, by slug)
//   - GET /me/listings               (owner dashboard)
//   - GET /admin/listings            (moderation feed, both variants)
//   - GET /admin/audit-logs          (audit trail)
//   - GET /admin/stats               (moderator dashboard)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/search"
	"github.com/tbourn/agro-classifieds/internal/services"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
	"github.com/tbourn/agro-classifieds/internal/utils"
)

// FeaturedResponse wraps the featured listings.
type FeaturedResponse struct {
	Items []ListingResponse `json:"items"`
}

// CompareResponse holds the compared listings in the order asked for.
type CompareResponse struct {
	Items []ListingResponse `json:"items"`
}

// VariantStatsResponse summarizes one variant on the moderator dashboard.
type VariantStatsResponse struct {
	Variant domain.Variant    `json:"variant" example:"machine"`
	Total   int64             `json:"total" example:"42"`
	Recent  []ListingResponse `json:"recent"`
}

// StatsResponse is the moderator dashboard summary.
type StatsResponse struct {
	Variants []VariantStatsResponse `json:"variants"`
}

// publicFilters reads the filters every feed accepts. Malformed numbers are
// ignored rather than rejected.
func publicFilters(c *gin.Context) search.Filters {
	return search.Filters{
		Q:        strings.TrimSpace(c.Query("q")),
		Type:     strings.TrimSpace(c.Query("type")),
		Brand:    strings.TrimSpace(c.Query("brand")),
		State:    strings.TrimSpace(c.Query("state")),
		City:     strings.TrimSpace(c.Query("city")),
		PriceMin: utils.Int64Ptr(c.Query("price_min")),
		PriceMax: utils.Int64Ptr(c.Query("price_max")),
		YearMin:  utils.Int64Ptr(c.Query("year_min")),
		YearMax:  utils.Int64Ptr(c.Query("year_max")),
		HoursMin: utils.Int64Ptr(c.Query("hours_min")),
		HoursMax: utils.Int64Ptr(c.Query("hours_max")),
		AreaMin:  utils.Float64Ptr(c.Query("area_min")),
		AreaMax:  utils.Float64Ptr(c.Query("area_max")),
	}
}

// privateFilters adds the dashboard and moderation filters. Unknown variant
// or status values answer 400.
func privateFilters(c *gin.Context) (search.Filters, bool) {
	f := publicFilters(c)
	if v := c.Query("variant"); v != "" {
		variant, known := domain.ParseVariant(v)
		if !known {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown variant")
			return f, false
		}
		f.Variant = variant
	}
	if s := c.Query("status"); s != "" {
		st := domain.Status(strings.ToUpper(s))
		if !st.Valid() {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
			return f, false
		}
		f.Status = st
	}
	f.OwnerID = strings.TrimSpace(c.Query("owner_id"))
	f.IncludeDeleted = sysutil.IsTruthy(c.Query("include_deleted"))
	return f, true
}

// ListFeed godoc
// @ID          listFeed
// @Summary     Public feed
// @Description Returns ACTIVE listings of one variant, newest change first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Feeds
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"machine-12-1718000000000000000\")
// @Param       variant        path    string  true  "Listing variant"  Enums(machines, properties)
// @Param       page           query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"   minimum(1) maximum(100) default(12)
// @Param       q              query   string  false "Free text (title, city, state; type and brand for machines)"
// @Param       type           query   string  false "Machine type"
// @Param       brand          query   string  false "Machine brand"
// @Param       state          query   string  false "State (UF)"  example(SP)
// @Param       city           query   string  false "City"
// @Param       price_min      query   int     false "Minimum price in centavos"
// @Param       price_max      query   int     false "Maximum price in centavos"
// @Param       year_min       query   int     false "Minimum year (machines)"
// @Param       year_max       query   int     false "Maximum year (machines)"
// @Param       hours_min      query   int     false "Minimum hours (machines)"
// @Param       hours_max      query   int     false "Maximum hours (machines)"
// @Param       area_min       query   number  false "Minimum total area in hectares (properties)"
// @Param       area_max       query   number  false "Maximum total area in hectares (properties)"
//
// @Success     200  {object} handlers.ListingPageResponse
// @Header      200  {string} ETag "Weak ETag for the variant's public data"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Unknown variant"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feeds/{variant} [get]
func (h *Handlers) ListFeed(c *gin.Context) {
	variant, known := variantParam(c)
	if !known {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if etag, err := h.search.FeedETag(ctx, variant); err == nil {
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := pageParams(c)
	p, err := h.search.Feed(ctx, variant, publicFilters(c), page, pageSize)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, pageResponse(p))
}

// ListFeatured godoc
// @ID          listFeatured
// @Summary     Featured listings
// @Description Returns the four most recently created ACTIVE listings of one variant.
// @Tags        Feeds
// @Produce     json
//
// @Param       variant  path  string  true  "Listing variant"  Enums(machines, properties)
//
// @Success     200  {object} handlers.FeaturedResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown variant"
// @Router      /feeds/{variant}/featured [get]
func (h *Handlers) ListFeatured(c *gin.Context) {
	variant, known := variantParam(c)
	if !known {
		return
	}
	items, err := h.search.Featured(c.Request.Context(), variant)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, FeaturedResponse{Items: listingResponses(items)})
}

// CompareListings godoc
// @ID          compareListings
// @Summary     Compare listings
// @Description Returns up to three ACTIVE listings of one variant by slug, in the order given. Unknown or hidden slugs are skipped; 404 when none is left.
// @Tags        Feeds
// @Produce     json
//
// @Param       variant  path   string  true  "Listing variant"  Enums(machines, properties)
// @Param       slugs    query  string  false "Comma-separated slugs"  example(valtra-bh-180,valtra-bh-194)
//
// @Success     200  {object} handlers.CompareResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown variant or nothing to compare"
// @Failure     422  {object} handlers.ErrorResponse "Too many slugs"
// @Router      /compare/{variant} [get]
func (h *Handlers) CompareListings(c *gin.Context) {
	variant, known := variantParam(c)
	if !known {
		return
	}
	var slugs []string
	if raw := c.Query("slugs"); raw != "" {
		slugs = strings.Split(raw, ",")
	}
	items, err := h.search.Compare(c.Request.Context(), variant, slugs)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, CompareResponse{Items: listingResponses(items)})
}

// ListMyListings godoc
// @ID          listMyListings
// @Summary     Owner dashboard
// @Description Returns the caller's listings in every status. Deleted ones are included with include_deleted=true.
// @Tags        Listings
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       variant        query   string  false "Listing variant"  Enums(machine, property)
// @Param       status           query   string  false "Status"  Enums(ACTIVE, PAUSED, SUSPENDED, SOLD)
// @Param       include_deleted  query   bool    false "Include deleted listings"
// @Param       page             query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"  minimum(1) maximum(100)
//
// @Success     200  {object} handlers.ListingPageResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Router      /me/listings [get]
func (h *Handlers) ListMyListings(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	f, valid := privateFilters(c)
	if !valid {
		return
	}
	page, pageSize := pageParams(c)
	p, err := h.search.Owned(c.Request.Context(), actor, f, page, pageSize)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, pageResponse(p))
}

// ListModeration godoc
// @ID          listModeration
// @Summary     Moderation feed
// @Description Returns listings of both variants, deleted ones included, newest first. Moderators only.
// @Tags        Moderation
// @Produce     json
//
// @Param       Authorization    header  string  false "Bearer token"
// @Param       variant          query   string  false "Listing variant"  Enums(machine, property)
// @Param       status           query   string  false "Status"  Enums(ACTIVE, PAUSED, SUSPENDED, SOLD)
// @Param       owner_id         query   string  false "Owner id"
// @Param       q                query   string  false "Free text"
// @Param       page             query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"  minimum(1) maximum(100) default(15)
//
// @Success     200  {object} handlers.ListingPageResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     403  {object} handlers.ErrorResponse "Moderators only"
// @Router      /admin/listings [get]
func (h *Handlers) ListModeration(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	f, valid := privateFilters(c)
	if !valid {
		return
	}
	page, pageSize := pageParams(c)
	p, err := h.search.Moderation(c.Request.Context(), actor, f, page, pageSize)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, pageResponse(p))
}

// ListAuditLogs godoc
// @ID          listAuditLogs
// @Summary     Audit trail
// @Description Returns audit entries newest first. Moderators only.
// @Tags        Moderation
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       target_id      query   string  false "Listing id"
// @Param       actor_id       query   string  false "Actor id"
// @Param       action         query   string  false "Action"  example(SUSPEND_AD)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(100)
//
// @Success     200  {object} services.AuditPage
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     403  {object} handlers.ErrorResponse "Moderators only"
// @Router      /admin/audit-logs [get]
func (h *Handlers) ListAuditLogs(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	f := repo.AuditFilter{
		TargetID: strings.TrimSpace(c.Query("target_id")),
		ActorID:  strings.TrimSpace(c.Query("actor_id")),
		Action:   domain.Action(strings.ToUpper(strings.TrimSpace(c.Query("action")))),
	}
	page, pageSize := pageParams(c)
	p, err := h.audit.List(c.Request.Context(), actor, f, page, pageSize)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DashboardStats godoc
// @ID          dashboardStats
// @Summary     Moderator dashboard
// @Description Counts non-deleted listings per variant and lists the three newest of each. Moderators only.
// @Tags        Moderation
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
//
// @Success     200  {object} handlers.StatsResponse
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     403  {object} handlers.ErrorResponse "Moderators only"
// @Router      /admin/stats [get]
func (h *Handlers) DashboardStats(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	stats, err := h.search.Stats(c.Request.Context(), actor)
	if err != nil {
		failFromErr(c, err)
		return
	}
	out := StatsResponse{Variants: make([]VariantStatsResponse, 0, len(stats))}
	for _, st := range stats {
		out.Variants = append(out.Variants, VariantStatsResponse{
			Variant: st.Variant,
			Total:   st.Total,
			Recent:  listingResponses(st.Recent),
		})
	}
	ok(c, http.StatusOK, out)
}

var _ AuditReader = (*services.AuditLogger)(nil)
