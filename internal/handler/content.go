package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/store"
)

// ContentHandler serves raw image bytes. The endpoint sits outside the
// authenticated route group: access is granted by a signed token minted for
// one image at read time, so a URL can be handed to a browser or CDN without
// the API key.
type ContentHandler struct {
	store   *store.Store
	blobs   *storage.BlobStore
	authSvc *service.AuthService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(st *store.Store, blobs *storage.BlobStore, authSvc *service.AuthService) *ContentHandler {
	return &ContentHandler{store: st, blobs: blobs, authSvc: authSvc}
}

// Serve streams an image's bytes if the token is valid for it.
// GET /content/{imageID}?token=...
func (h *ContentHandler) Serve(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")

	tokenImageID, err := h.authSvc.VerifyContentToken(r.URL.Query().Get("token"))
	if err != nil || tokenImageID != imageID {
		writeError(w, http.StatusUnauthorized, "Invalid or expired content token")
		return
	}

	img, err := h.store.GetImage(r.Context(), imageID)
	if err != nil {
		writeStoreError(w, err, "Image not found")
		return
	}

	blob, err := h.blobs.Open(img.BlobPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "Image content not found")
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+img.Filename+`"`)
	http.ServeContent(w, r, img.Filename, img.CreatedAt, blob)
}
