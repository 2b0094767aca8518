// Listing HTTP handlers.
//
// This file exposes the endpoints that write or read a single listing:
//   - POST /ads/{variant}         (create, multipart, Idempotency-Key aware)
//   - PUT  /listings/{id}         (edit, multipart or JSON)
//   - GET  /ads/{variant}/{slug}  (public detail)
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/http/middleware"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/services"
)

// Multipart field names.
const (
	formPayload = "payload"
	formImages  = "images[]"
	formRemove  = "remove_image_ids"
)

// EditListingRequest is the JSON payload of PUT /listings/{id}. In multipart
// requests it travels in the "payload" field.
type EditListingRequest struct {
	services.ListingInput
	// Images to delete, by id
	RemoveImageIDs []string `json:"remove_image_ids,omitempty"`
}

// errBadForm marks client-side problems with the request body.
var errBadForm = errors.New("bad form")

// listingForm is the decoded body of a create or edit request.
type listingForm struct {
	payload   []byte
	uploads   []media.Upload
	removeIDs []string
}

// readListingForm accepts multipart/form-data (payload + images[]) and, when
// allowJSON is set, a plain JSON body without images.
func readListingForm(c *gin.Context, allowJSON bool) (*listingForm, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if !allowJSON {
			return nil, fmt.Errorf("%w: expected multipart/form-data", errBadForm)
		}
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		return &listingForm{payload: b}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	out := &listingForm{}
	if v := form.Value[formPayload]; len(v) > 0 {
		out.payload = []byte(v[0])
	}
	for _, v := range form.Value[formRemove] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out.removeIDs = append(out.removeIDs, id)
			}
		}
	}
	files := append(form.File[formImages], form.File["images"]...)
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out.uploads = append(out.uploads, up)
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) (media.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return media.Upload{}, err
	}
	return media.Upload{Filename: fh.Filename, Data: data}, nil
}

// failForm answers a body that could not be read.
func failForm(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
	case errors.Is(err, errBadForm):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, strings.TrimPrefix(err.Error(), errBadForm.Error()+": "))
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
	}
}

// CreateListing godoc
// @ID          createListing
// @Summary     Publish a listing
// @Description Validates the payload, stores the photos and creates an ACTIVE listing owned by the caller.
// @Description Replays with the same Idempotency-Key return the original listing with 200.
// @Tags        Listings
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       Authorization    header    string  false "Bearer token"
// @Param       Idempotency-Key  header    string  false "Client key for safe retries"  example(3f1c9a52-create)
// @Param       variant          path      string  true  "Listing variant"  Enums(machines, properties)
// @Param       payload          formData  string  true  "services.ListingInput as JSON"
// @Param       images[]         formData  file    true  "Photos (JPEG, PNG, GIF or WebP), 1 to 10"
//
// @Success     201  {object}  handlers.ListingResponse
// @Success     200  {object}  handlers.ListingResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     413  {object}  handlers.ErrorResponse "Body too large"
// @Failure     422  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse "Image storage failed"
// @Failure     500  {object}  handlers.ErrorResponse "Persistence failed"
// @Router      /ads/{variant} [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}
	variant, known := variantParam(c)
	if !known {
		return
	}

	form, err := readListingForm(c, false)
	if err != nil {
		failForm(c, err)
		return
	}
	if len(form.payload) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload is required")
		return
	}
	var in services.ListingInput
	if err := json.Unmarshal(form.payload, &in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload must be a JSON object")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	l, replayed, err := h.listings.Create(c.Request.Context(), actor, variant, in, form.uploads, key)
	if err != nil {
		failFromErr(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
		c.Header("Idempotent-Replayed", "true")
	}
	ok(c, status, listingResponse(l))
}

// EditListing godoc
// @ID          editListing
// @Summary     Edit a listing
// @Description Replaces the listing fields, adds uploaded photos and removes the listed ones.
// @Description Owners may edit ACTIVE or PAUSED listings; moderators any listing.
// @Tags        Listings
// @Accept      multipart/form-data
// @Accept      json
// @Produce     json
//
// @Param       Authorization     header    string  false "Bearer token"
// @Param       id                path      string  true  "Listing ID (UUID)"  format(uuid)
// @Param       payload           formData  string  false "handlers.EditListingRequest as JSON"
// @Param       images[]          formData  file    false "Photos to add"
// @Param       remove_image_ids  formData  string  false "Comma-separated image ids to remove"
//
// @Success     200  {object}  handlers.ListingResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse "Listing or image not found"
// @Failure     422  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse "Image storage failed"
// @Router      /listings/{id} [put]
func (h *Handlers) EditListing(c *gin.Context) {
	actor, authed := requireActor(c)
	if !authed {
		return
	}

	form, err := readListingForm(c, true)
	if err != nil {
		failForm(c, err)
		return
	}
	var req EditListingRequest
	if err := json.Unmarshal(form.payload, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload must be a JSON object")
		return
	}
	remove := append(req.RemoveImageIDs, form.removeIDs...)

	l, err := h.listings.Edit(c.Request.Context(), actor, c.Param("id"), req.ListingInput, form.uploads, remove)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, listingResponse(l))
}

// GetListing godoc
// @ID          getListing
// @Summary     Listing detail
// @Description Returns an ACTIVE listing by slug. Paused, suspended, sold or deleted listings are visible to their owner and moderators only.
// @Tags        Listings
// @Produce     json
//
// @Param       variant  path  string  true  "Listing variant"  Enums(machines, properties)
// @Param       slug     path  string  true  "Listing slug"     example(trator-valtra-bh180)
//
// @Success     200  {object}  handlers.ListingResponse
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Router      /ads/{variant}/{slug} [get]
func (h *Handlers) GetListing(c *gin.Context) {
	variant, known := variantParam(c)
	if !known {
		return
	}
	l, err := h.listings.Get(c.Request.Context(), optionalActor(c), variant, c.Param("slug"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, listingResponse(l))
}
