package handler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/server/middleware"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/store"
)

// maxUploadBytes bounds a single image upload.
const maxUploadBytes = 32 << 20

// ImageHandler manages image uploads, metadata, and deletion. Bytes live in
// the blob store; everything else lives in the metadata store. Responses
// carry a short-lived signed URL for the content endpoint instead of the
// blob path.
type ImageHandler struct {
	store   *store.Store
	blobs   *storage.BlobStore
	authSvc *service.AuthService
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(st *store.Store, blobs *storage.BlobStore, authSvc *service.AuthService) *ImageHandler {
	return &ImageHandler{store: st, blobs: blobs, authSvc: authSvc}
}

// Upload accepts a multipart form with a "file" part and optional "title",
// "description", and comma-separated "tags" fields. The uploader becomes the
// image's owner; user-role keys always upload as themselves.
// POST /teams/{teamID}/images
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	id := middleware.GetIdentity(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, "Only image uploads are accepted",
			map[string]interface{}{"detected_type": contentType})
		return
	}

	meta := &model.ImageMeta{}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
		meta.Format = format
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				meta.Tags = append(meta.Tags, tag)
			}
		}
	}

	ownerID := id.UserID
	if ownerID == "" {
		// Admin keys are not bound to a user; record the form's owner if any.
		ownerID = r.FormValue("user_id")
	}

	img := &model.Image{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		UserID:      ownerID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Size:        int64(len(data)),
		Metadata:    meta,
	}
	if img.Title == "" {
		img.Title = img.Filename
	}
	img.BlobPath = fmt.Sprintf("%s/%s_%s", teamID, img.ID, img.Filename)

	if _, err := h.blobs.Write(img.BlobPath, bytes.NewReader(data)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}
	if err := h.store.CreateImage(r.Context(), img); err != nil {
		_ = h.blobs.Delete(img.BlobPath)
		writeError(w, http.StatusInternalServerError, "Failed to store image metadata")
		return
	}

	h.attachURL(img)
	writeJSON(w, http.StatusCreated, img)
}

// List returns the team's image pool.
// GET /teams/{teamID}/images
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	images, err := h.store.ListImagesByTeam(r.Context(), chi.URLParam(r, "teamID"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}
	h.writeImageList(w, images, limit, offset)
}

// ListByUser returns one user's images.
// GET /teams/{teamID}/users/{userID}/images
func (h *ImageHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	images, err := h.store.ListImagesByUser(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}
	h.writeImageList(w, images, limit, offset)
}

// Get returns one image's metadata with a fresh signed URL.
// GET /teams/{teamID}/images/{imageID}
// GET /teams/{teamID}/users/{userID}/images/{imageID}
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	img, err := h.store.GetImage(r.Context(), chi.URLParam(r, "imageID"))
	if err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}
	h.attachURL(img)
	writeJSON(w, http.StatusOK, img)
}

// updateImageRequest is the payload for metadata updates. The bytes of an
// image are immutable; re-upload to change them.
type updateImageRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Update changes an image's title, description, or tags.
// PUT /teams/{teamID}/images/{imageID}
// PUT /teams/{teamID}/users/{userID}/images/{imageID}
func (h *ImageHandler) Update(w http.ResponseWriter, r *http.Request) {
	img, err := h.store.GetImage(r.Context(), chi.URLParam(r, "imageID"))
	if err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}

	var req updateImageRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title != "" {
		img.Title = req.Title
	}
	if req.Description != "" {
		img.Description = req.Description
	}
	if req.Tags != nil {
		if img.Metadata == nil {
			img.Metadata = &model.ImageMeta{}
		}
		img.Metadata.Tags = req.Tags
	}

	if err := h.store.UpdateImage(r.Context(), img); err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}
	h.attachURL(img)
	writeJSON(w, http.StatusOK, img)
}

// Delete removes an image's metadata and bytes.
// DELETE /teams/{teamID}/images/{imageID}
// DELETE /teams/{teamID}/users/{userID}/images/{imageID}
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	img, err := h.store.GetImage(r.Context(), chi.URLParam(r, "imageID"))
	if err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}
	if err := h.store.DeleteImage(r.Context(), img.ID); err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}
	_ = h.blobs.Delete(img.BlobPath)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImageHandler) writeImageList(w http.ResponseWriter, images []model.Image, limit, offset int) {
	for i := range images {
		h.attachURL(&images[i])
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: images,
		Meta:     &model.ResponseMeta{Count: len(images), Limit: limit, Offset: offset},
	})
}

// attachURL sets a short-lived signed download URL on the image. Signing is
// local and cheap; a failure just leaves the URL empty.
func (h *ImageHandler) attachURL(img *model.Image) {
	token, err := h.authSvc.SignContentToken(img.ID)
	if err != nil {
		return
	}
	img.URL = "/content/" + img.ID + "?token=" + token
}
