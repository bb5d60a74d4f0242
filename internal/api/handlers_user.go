package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleCreateUser handles POST /api/users - ensure a user record exists.
// Submitting the same address twice is a no-op and returns the existing
// record.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserAddress string `json:"userAddress"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.UserAddress == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "userAddress is required", nil)
		return
	}

	user, err := s.userService.CreateUser(r.Context(), req.UserAddress)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetUser handles GET /api/users/:address
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	user, err := s.userService.GetUser(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleGetUserTrees handles GET /api/users/:address/trees. An address with
// no user record yields an empty list.
func (s *Server) handleGetUserTrees(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	trees, err := s.treeService.GetUserTrees(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trees)
}
