package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quizmon/quizmon/internal/identity"
)

// EvolutionHandler handles evolution-family reads.
type EvolutionHandler struct {
	*Handler
}

// NewEvolutionHandler creates an evolution handler.
func NewEvolutionHandler(base *Handler) *EvolutionHandler {
	return &EvolutionHandler{Handler: base}
}

// RegisterRoutes registers evolution routes.
func (h *EvolutionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/creatures/{id}/evolution", h.EvolutionLine)
	r.Get("/api/me", h.Me)
}

type rootPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Sprite string `json:"sprite"`
	Owned  bool   `json:"owned"`
}

// EvolutionLine resolves the full evolution family for a creature.
func (h *EvolutionHandler) EvolutionLine(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized", "no identity")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid_creature_id", "creature id must be a positive integer")
		return
	}

	family, err := h.resolver.Family(r.Context(), userID, id)
	if err != nil {
		domainError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"root": rootPayload{
			ID:     family.Root.ID,
			Name:   family.Root.Name,
			Sprite: family.Root.Sprite,
			Owned:  family.Root.Owned,
		},
		"nodes": family.Nodes,
	})
}

// Me returns the current identity and collection size.
func (h *EvolutionHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized", "no identity")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized", "user not found")
		return
	}

	captures, err := h.repo.CountCaptures(r.Context(), userID)
	if err != nil {
		domainError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
		"captures": captures,
	})
}
