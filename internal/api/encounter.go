package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/encounter"
	"github.com/quizmon/quizmon/internal/identity"
)

// EncounterHandler handles encounter generation and answer submission.
type EncounterHandler struct {
	*Handler
}

// NewEncounterHandler creates an encounter handler.
func NewEncounterHandler(base *Handler) *EncounterHandler {
	return &EncounterHandler{Handler: base}
}

// RegisterRoutes registers encounter routes.
func (h *EncounterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/encounters", func(r chi.Router) {
		r.Post("/", h.Generate)
		r.Post("/evolve", h.GenerateEvolution)
		r.Post("/submit", h.Submit)
	})
}

type generateRequest struct {
	Seed string `json:"seed,omitempty"`
}

type evolveRequest struct {
	CreatureID int64  `json:"creatureId"`
	TargetID   int64  `json:"targetId"`
	Seed       string `json:"seed,omitempty"`
}

type submitRequest struct {
	EncounterID string          `json:"encounterId"`
	Answers     []domain.Answer `json:"answers"`
}

type creaturePayload struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Sprite        string   `json:"sprite"`
	IsRareVariant bool     `json:"isRareVariant"`
	Stage         int      `json:"stage,omitempty"`
	FlavorText    string   `json:"flavorText,omitempty"`
	Types         []string `json:"types"`
}

type encounterResponse struct {
	EncounterID       string                  `json:"encounterId"`
	Creature          creaturePayload         `json:"creature"`
	Questions         []domain.PublicQuestion `json:"questions"`
	AttemptsRemaining int                     `json:"attemptsRemaining"`
}

// Generate creates a wild encounter.
func (h *EncounterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized", "no identity")
		return
	}

	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	sess, creature, err := h.factory.NewWild(r.Context(), userID, req.Seed)
	if err != nil {
		domainError(w, err)
		return
	}

	JSON(w, http.StatusOK, buildEncounterResponse(sess, creature))
}

// GenerateEvolution creates an evolution-challenge encounter.
func (h *EncounterHandler) GenerateEvolution(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized", "no identity")
		return
	}

	var req evolveRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.CreatureID <= 0 || req.TargetID <= 0 {
		Error(w, http.StatusBadRequest, "invalid_body", "creatureId and targetId are required")
		return
	}

	sess, creature, err := h.factory.NewEvolutionChallenge(r.Context(), userID, req.CreatureID, req.TargetID, req.Seed)
	if err != nil {
		domainError(w, err)
		return
	}

	JSON(w, http.StatusOK, buildEncounterResponse(sess, creature))
}

// Submit grades an answer set against an encounter session.
func (h *EncounterHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized", "no identity")
		return
	}

	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.EncounterID == "" {
		Error(w, http.StatusBadRequest, "invalid_body", "encounterId is required")
		return
	}

	result, err := h.evaluator.Submit(r.Context(), userID, req.EncounterID, req.Answers)
	if err != nil {
		domainError(w, err)
		return
	}

	if result.Outcome == encounter.OutcomeFailed {
		JSON(w, http.StatusOK, map[string]interface{}{
			"success":           false,
			"result":            result.Outcome,
			"score":             result.Score,
			"attemptsRemaining": result.AttemptsRemaining,
			"canRetry":          result.CanRetry,
			"message":           result.Message,
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result.Outcome,
		"score":   result.Score,
		"creature": creaturePayload{
			ID:            result.Creature.ID,
			Name:          result.Creature.Name,
			Sprite:        result.Creature.Sprite,
			IsRareVariant: result.Variant == domain.VariantRare,
			FlavorText:    result.Creature.FlavorText,
			Types:         result.Creature.Types,
		},
		"newCapture": result.NewCapture,
	})
}

func buildEncounterResponse(sess *domain.EncounterSession, creature *domain.Creature) encounterResponse {
	questions := make([]domain.PublicQuestion, len(sess.Questions))
	for i, q := range sess.Questions {
		questions[i] = q.Public()
	}
	return encounterResponse{
		EncounterID: sess.ID,
		Creature: creaturePayload{
			ID:            creature.ID,
			Name:          creature.Name,
			Sprite:        creature.Sprite,
			IsRareVariant: sess.RareVariant,
			Stage:         sess.Stage,
			FlavorText:    creature.FlavorText,
			Types:         creature.Types,
		},
		Questions:         questions,
		AttemptsRemaining: sess.AttemptsRemaining,
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
