package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/service"
)

// handlePlaceTree handles POST /api/trees - place a new tree. Payment is
// verified on the ledger before anything is written; a 402 response means
// the client should retry after paying.
func (s *Server) handlePlaceTree(w http.ResponseWriter, r *http.Request) {
	var input service.PlaceTreeInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	tree, err := s.placementService.PlaceTree(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tree)
}

// handleListTrees handles GET /api/trees - list all trees, optionally
// filtered by ?category=
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var err error
	var trees interface{}
	if category != "" {
		trees, err = s.treeService.ListByCategory(r.Context(), category)
	} else {
		trees, err = s.treeService.ListAll(r.Context())
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trees)
}

// handleGetTree handles GET /api/trees/:id
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	tree, err := s.treeService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tree)
}

// handleClickTree handles POST /api/trees/:id/click - bump the click counter
// and return the new count
func (s *Server) handleClickTree(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	viewer := r.URL.Query().Get("viewer")

	clicks, err := s.treeService.Click(r.Context(), id, viewer)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"clicks": clicks,
	})
}

// handleLeaderboard handles GET /api/leaderboard - top trees by clicks.
// ?limit= overrides the default length; ?window= (a duration such as 24h)
// switches to recent activity counted from the click event stream.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	var trees []*models.Tree
	var err error
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, parseErr := time.ParseDuration(raw)
		if parseErr != nil || window <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "window must be a positive duration", nil)
			return
		}
		trees, err = s.treeService.RecentLeaderboard(r.Context(), window, limit)
	} else {
		trees, err = s.treeService.Leaderboard(r.Context(), limit)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trees)
}
