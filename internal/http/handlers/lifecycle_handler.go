// Lifecycle HTTP handlers.
//
// This file exposes status changes, logical deletion and photo retirement:
//   - PATCH  /listings/{id}/status
//   - DELETE /listings/{id}
//   - POST   /listings/{id}/restore
//   - DELETE /admin/listings/{id}/images/{imageId}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

// TransitionRequest is the JSON payload for a status change.
type TransitionRequest struct {
	// Target status
	Status string `json:"status" binding:"required" example:"SUSPENDED" enums:"ACTIVE,PAUSED,SUSPENDED,SOLD"`
	// Required when suspending, optional otherwise
	Reason string `json:"reason" example:"Fotos de baixa qualidade"`
}

// RetireImageRequest is the JSON payload for removing a photo as moderator.
type RetireImageRequest struct {
	Reason string `json:"reason" example:"Imagem com dados de contato"`
}

// TransitionStatus godoc
// @ID          transitionStatus
// @Summary     Change listing status
// @Description Owners pause, reactivate or mark as sold; moderators suspend (reason required) and reactivate suspended listings.
// @Tags        Lifecycle
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Listing ID (UUID)"  format(uuid)
// @Param       body           body    handlers.TransitionRequest  true  "Target status"
//
// @Success     200  {object}  handlers.ListingResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     409  {object}  handlers.ErrorResponse "Transition not allowed"
// @Failure     422  {object}  handlers.ErrorResponse "Validation failed"
// @Router      /listings/{id}/status [patch]
func (h *Handlers) TransitionStatus(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	to := domain.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !to.Valid() {
		failWith(c, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: "validation failed: status: unknown status",
			Fields:  map[string]string{"status": "unknown status"},
		})
		return
	}

	l, err := h.lifecycle.Transition(c.Request.Context(), actor, c.Param("id"), to, req.Reason)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, listingResponse(l))
}

// DeleteListing godoc
// @ID          deleteListing
// @Summary     Delete a listing (logical)
// @Description Hides the listing from every public read. The record, its slug and its photos are kept.
// @Tags        Lifecycle
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Listing ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     409  {object}  handlers.ErrorResponse "Already deleted"
// @Router      /listings/{id} [delete]
func (h *Handlers) DeleteListing(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	if _, err := h.lifecycle.SoftDelete(c.Request.Context(), actor, c.Param("id")); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// RestoreListing godoc
// @ID          restoreListing
// @Summary     Restore a deleted listing
// @Tags        Lifecycle
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Listing ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ListingResponse
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     409  {object}  handlers.ErrorResponse "Not deleted"
// @Router      /listings/{id}/restore [post]
func (h *Handlers) RestoreListing(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	l, err := h.lifecycle.Restore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, listingResponse(l))
}

// RetireImage godoc
// @ID          retireImage
// @Summary     Remove a listing photo (moderator)
// @Description Deletes one photo for a stated reason. When the principal photo is removed the oldest remaining one is promoted.
// @Tags        Moderation
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Listing ID (UUID)"  format(uuid)
// @Param       imageId        path    string  true  "Image ID (UUID)"    format(uuid)
// @Param       body           body    handlers.RetireImageRequest  false "Reason (may also be sent as ?reason=)"
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Moderators only"
// @Failure     404  {object}  handlers.ErrorResponse "Listing or image not found"
// @Failure     422  {object}  handlers.ErrorResponse "Reason required"
// @Router      /admin/listings/{id}/images/{imageId} [delete]
func (h *Handlers) RetireImage(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	var req RetireImageRequest
	if c.Request.ContentLength != 0 && strings.Contains(c.ContentType(), "json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = c.Query("reason")
	}

	if err := h.lifecycle.RetireImage(c.Request.Context(), actor, c.Param("id"), c.Param("imageId"), req.Reason); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}
