package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/store"
)

// APIKeyHandler manages api keys for a team and its users. The raw key
// material appears exactly once, in the create response; reads only ever
// expose the non-secret prefix.
type APIKeyHandler struct {
	store   *store.Store
	authSvc *service.AuthService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(st *store.Store, authSvc *service.AuthService) *APIKeyHandler {
	return &APIKeyHandler{store: st, authSvc: authSvc}
}

// createKeyRequest is the payload for minting a key.
type createKeyRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	UserID string `json:"user_id"`
}

// createKeyResponse returns the minted credential and the raw key. The raw
// key cannot be recovered later.
type createKeyResponse struct {
	Key    string            `json:"key"`
	APIKey *model.Credential `json:"api_key"`
}

// Create mints a new api key owned by the team in the path. Admin-role keys
// bind to the team; user-role keys additionally bind to an existing user of
// the team named by user_id.
// POST /teams/{teamID}/api-keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	role := model.Role(req.Role)
	switch role {
	case model.RoleAdmin, model.RoleUser:
	case model.RoleRoot:
		writeError(w, http.StatusBadRequest, "Root keys cannot be minted through the API")
		return
	default:
		writeError(w, http.StatusBadRequest, "Role must be admin or user")
		return
	}

	if _, err := h.store.GetTeam(r.Context(), teamID); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}

	userID := ""
	if role == model.RoleUser {
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required for user-role keys")
			return
		}
		user, err := h.store.GetUser(r.Context(), req.UserID)
		if err != nil {
			writeStoreError(w, err, "User not found")
			return
		}
		if user.TeamID != teamID {
			writeError(w, http.StatusBadRequest, "User belongs to another team")
			return
		}
		userID = user.ID
	}

	cred, rawKey, err := h.authSvc.MintCredential(r.Context(), req.Name, role, teamID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mint key")
		return
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{Key: rawKey, APIKey: cred})
}

// List returns the team's keys.
// GET /teams/{teamID}/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	creds, err := h.store.ListCredentialsByTeam(r.Context(), chi.URLParam(r, "teamID"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list api keys")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: creds,
		Meta:     &model.ResponseMeta{Count: len(creds), Limit: limit, Offset: offset},
	})
}

// ListByUser returns the keys owned by one user.
// GET /teams/{teamID}/users/{userID}/api-keys
func (h *APIKeyHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	creds, err := h.store.ListCredentialsByUser(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list api keys")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: creds,
		Meta:     &model.ResponseMeta{Count: len(creds), Limit: limit, Offset: offset},
	})
}

// Get returns one key's metadata.
// GET /teams/{teamID}/api-keys/{keyID}
// GET /teams/{teamID}/users/{userID}/api-keys/{keyID}
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	cred, err := h.store.GetCredential(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		writeStoreError(w, err, "API key not found")
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// renameKeyRequest is the payload for updating a key's label.
type renameKeyRequest struct {
	Name string `json:"name"`
}

// Update renames a key.
// PUT /teams/{teamID}/api-keys/{keyID}
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req renameKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	cred, err := h.store.GetCredential(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		writeStoreError(w, err, "API key not found")
		return
	}
	cred.Name = req.Name
	if err := h.store.RenameCredential(r.Context(), cred.ID, req.Name); err != nil {
		writeStoreError(w, err, "API key not found")
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// Delete revokes a key. Revocation is immediate and permanent; the key row
// stays behind for the audit trail.
// DELETE /teams/{teamID}/api-keys/{keyID}
// DELETE /teams/{teamID}/users/{userID}/api-keys/{keyID}
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RevokeCredential(r.Context(), chi.URLParam(r, "keyID")); err != nil {
		writeStoreError(w, err, "API key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
