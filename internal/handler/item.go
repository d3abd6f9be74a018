package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/service"
	"github.com/sakif/secondchance/internal/storage"
)

// ItemCatalog is the part of service.ItemService the handler calls.
type ItemCatalog interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, in service.CreateItemInput, attachment string) (*model.Item, error)
	GetByID(ctx context.Context, id string) (*model.Item, error)
	Update(ctx context.Context, id string, in service.UpdateItemInput) (*model.Item, error)
	Delete(ctx context.Context, id string) error
}

// imageURLExpiry bounds the presigned links handed out by HandleImage.
const imageURLExpiry = 15 * time.Minute

// ItemHandler serves the secondChanceItems catalog.
type ItemHandler struct {
	items     ItemCatalog
	images    storage.ImageStore
	maxUpload int64
	logger    *slog.Logger
}

// NewItemHandler creates an ItemHandler. maxUpload caps the size of a
// multipart create request in bytes.
func NewItemHandler(items ItemCatalog, images storage.ImageStore, maxUpload int64, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:     items,
		images:    images,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// HandleList returns every item.
//
// HTTP: GET /api/secondchance/items
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		writeItemError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// flexFloat decodes a JSON number or a numeric string. Form posts from the
// web client send "age_days":"400".
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		f.value = nil
		return nil
	}
	raw := string(b)
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	v, err := parseAge(raw)
	if err != nil {
		return err
	}
	f.value = v
	return nil
}

// parseAge turns a submitted age_days into a value. Blank means "not sent".
func parseAge(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.ValidationFailed("age_days", "age_days must be a number")
	}
	// ParseFloat accepts "Inf" and "NaN"; neither can be stored or encoded.
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, apperror.ValidationFailed("age_days", "age_days must be a finite number")
	}
	return &v, nil
}

type itemRequest struct {
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	PostedBy    string    `json:"posted_by"`
	Zipcode     string    `json:"zipcode"`
	AgeDays     flexFloat `json:"age_days"`
	Description string    `json:"description"`
}

func (req itemRequest) createInput() service.CreateItemInput {
	return service.CreateItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Condition:   req.Condition,
		PostedBy:    req.PostedBy,
		Zipcode:     req.Zipcode,
		AgeDays:     req.AgeDays.value,
		Description: req.Description,
	}
}

// HandleCreate adds an item.
//
// HTTP: POST /api/secondchance/items
//
// Two body encodings are accepted:
//   - multipart/form-data with the item fields as form values and an optional
//     image in the "file" field
//   - application/json with the item fields
//
// The fields are validated before the image is stored, so a rejected item
// never writes to the image store. A valid image is stored
// under its original filename, replacing any earlier file of that name.
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.createMultipart(w, r)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid item JSON", slog.String("error", err.Error()))
		writeItemError(w, invalidBody(err))
		return
	}
	h.create(w, r, req.createInput(), "")
}

func (h *ItemHandler) createMultipart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				ErrorResponse{Error: fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)})
			return
		}
		h.logger.Warn("invalid multipart form", slog.String("error", err.Error()))
		writeItemError(w, apperror.ValidationFailed("", "Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	age, err := parseAge(r.FormValue("age_days"))
	if err != nil {
		writeItemError(w, err)
		return
	}
	in := service.CreateItemInput{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		PostedBy:    r.FormValue("posted_by"),
		Zipcode:     r.FormValue("zipcode"),
		AgeDays:     age,
		Description: r.FormValue("description"),
	}
	if err := service.ValidateCreate(in); err != nil {
		h.logger.Warn("item rejected before upload", slog.String("reason", err.Error()))
		writeItemError(w, err)
		return
	}

	attachment := ""
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// no image sent
	case err != nil:
		writeItemError(w, fmt.Errorf("reading upload: %w", err))
		return
	default:
		defer file.Close()
		attachment, err = h.images.Save(r.Context(), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Error("failed to store image",
				slog.String("filename", header.Filename),
				slog.String("error", err.Error()),
			)
			writeItemError(w, err)
			return
		}
	}

	h.create(w, r, in, attachment)
}

func (h *ItemHandler) create(w http.ResponseWriter, r *http.Request, in service.CreateItemInput, attachment string) {
	item, err := h.items.Create(r.Context(), in, attachment)
	if err != nil {
		// The image is left in place: another item may reference the same name.
		if attachment != "" {
			h.logger.Warn("item not created after storing its image",
				slog.String("image", attachment),
				slog.String("error", err.Error()),
			)
		}
		writeItemError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleGetByID returns one item.
//
// HTTP: GET /api/secondchance/items/{id}
func (h *ItemHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeItemError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleUpdate overwrites category, condition, age_days and description.
//
// HTTP: PUT /api/secondchance/items/{id}
// RESPONSE: {"upload":"success"}
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid item JSON", slog.String("error", err.Error()))
		writeItemError(w, invalidBody(err))
		return
	}

	in := service.UpdateItemInput{
		Category:    req.Category,
		Condition:   req.Condition,
		Description: req.Description,
	}
	if req.AgeDays.value != nil {
		in.AgeDays = *req.AgeDays.value
	}

	if _, err := h.items.Update(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		writeItemError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"upload": "success"})
}

// HandleDelete removes an item.
//
// HTTP: DELETE /api/secondchance/items/{id}
// RESPONSE: {"deleted":"deleted item successfully"}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeItemError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": "deleted item successfully"})
}

// HandleImage redirects to a short-lived link for an image kept in object
// storage. It is only routed when the image store is a storage.Locator.
//
// HTTP: GET /images/{name}
func (h *ItemHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	locator, ok := h.images.(storage.Locator)
	if !ok {
		http.NotFound(w, r)
		return
	}

	name := storage.SafeFilename(chi.URLParam(r, "name"))
	url, err := locator.URL(r.Context(), name, imageURLExpiry)
	if err != nil {
		h.logger.Error("failed to presign image URL",
			slog.String("image", name),
			slog.String("error", err.Error()),
		)
		writeItemError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// invalidBody reports a malformed JSON body. A field-level validation error
// raised while decoding (age_days) is passed through unchanged.
func invalidBody(err error) error {
	if errors.Is(err, apperror.ErrValidation) {
		return err
	}
	return apperror.ValidationFailed("", "Invalid request body")
}
