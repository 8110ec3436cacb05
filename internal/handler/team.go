package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/store"
)

// TeamHandler manages the team resource: the root of the ownership
// hierarchy. Every user, api key, and image belongs to exactly one team.
type TeamHandler struct {
	store *store.Store
	blobs *storage.BlobStore
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(st *store.Store, blobs *storage.BlobStore) *TeamHandler {
	return &TeamHandler{store: st, blobs: blobs}
}

// teamRequest is the payload for team create and update.
type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create registers a new team.
// POST /teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	team := &model.Team{Name: req.Name, Description: req.Description}
	if err := h.store.CreateTeam(r.Context(), team); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// List returns all teams.
// GET /teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	teams, err := h.store.ListTeams(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teams")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: teams,
		Meta:     &model.ResponseMeta{Count: len(teams), Limit: limit, Offset: offset},
	})
}

// Get returns a single team by ID.
// GET /teams/{teamID}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Update changes a team's name or description.
// PUT /teams/{teamID}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}

	var req teamRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name != "" {
		team.Name = req.Name
	}
	if req.Description != "" {
		team.Description = req.Description
	}

	if err := h.store.UpdateTeam(r.Context(), team); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Delete removes a team along with its images' blobs. Teams with existing
// users must be emptied first.
// DELETE /teams/{teamID}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	count, err := h.store.CountUsersByTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check team members")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "Team still has users",
			map[string]interface{}{"user_count": count})
		return
	}

	blobPaths, err := h.store.DeleteImagesByTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete team images")
		return
	}
	for _, p := range blobPaths {
		_ = h.blobs.Delete(p)
	}

	if err := h.store.DeleteTeam(r.Context(), teamID); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
