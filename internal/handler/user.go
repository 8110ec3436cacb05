package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

// UserHandler manages users inside a team.
type UserHandler struct {
	store *store.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{store: st}
}

// userRequest is the payload for user create and update.
type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Create adds a user to the team in the path.
// POST /teams/{teamID}/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	var req userRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	// The team must exist before we hang a user off it.
	if _, err := h.store.GetTeam(r.Context(), teamID); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}

	user := &model.User{TeamID: teamID, Username: req.Username, Email: req.Email}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeStoreError(w, err, "Team not found")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// List returns the team's users.
// GET /teams/{teamID}/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.store.ListUsersByTeam(r.Context(), chi.URLParam(r, "teamID"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: users,
		Meta:     &model.ResponseMeta{Count: len(users), Limit: limit, Offset: offset},
	})
}

// Get returns a single user. The user must belong to the team in the path.
// GET /teams/{teamID}/users/{userID}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userInTeam(w, r)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update changes a user's username or email.
// PUT /teams/{teamID}/users/{userID}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := h.userInTeam(w, r)
	if err != nil {
		return
	}

	var req userRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		if !strings.Contains(req.Email, "@") {
			writeError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		user.Email = req.Email
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete removes a user from the team.
// DELETE /teams/{teamID}/users/{userID}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.userInTeam(w, r)
	if err != nil {
		return
	}
	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userInTeam loads the path's user and verifies it belongs to the path's
// team. On failure the response has already been written.
func (h *UserHandler) userInTeam(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeStoreError(w, err, "User not found")
		return nil, err
	}
	if user.TeamID != chi.URLParam(r, "teamID") {
		writeError(w, http.StatusNotFound, "User not found")
		return nil, store.ErrNotFound
	}
	return user, nil
}
