// Package api provides HTTP handlers for the Quizmon API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quizmon/quizmon/internal/encounter"
	"github.com/quizmon/quizmon/internal/evolution"
	"github.com/quizmon/quizmon/internal/store"
)

// Handler provides common handler utilities and dependencies.
type Handler struct {
	repo      store.Repository
	factory   *encounter.Factory
	evaluator *encounter.Evaluator
	resolver  *evolution.Resolver
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, factory *encounter.Factory, evaluator *encounter.Evaluator, resolver *evolution.Resolver) *Handler {
	return &Handler{
		repo:      repo,
		factory:   factory,
		evaluator: evaluator,
		resolver:  resolver,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode_failed"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response with a stable machine-readable code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]string{"error": code, "message": message})
}

// domainError maps engine errors onto HTTP responses. Validation failures
// and session expiry are distinct 4xx codes; everything else is a logged
// 500.
func domainError(w http.ResponseWriter, err error) {
	var reqErr *encounter.RequestError
	switch {
	case errors.As(err, &reqErr):
		Error(w, http.StatusBadRequest, reqErr.Code, reqErr.Message)
	case errors.Is(err, encounter.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session_not_found", "encounter not found or expired, start a new one")
	case errors.Is(err, encounter.ErrBaseNotOwned):
		Error(w, http.StatusForbidden, "base_not_owned", "capture the base creature first")
	case errors.Is(err, encounter.ErrNoEvolutionEdge):
		Error(w, http.StatusNotFound, "evolution_not_available", "no such evolution exists")
	case errors.Is(err, evolution.ErrCreatureNotFound):
		Error(w, http.StatusNotFound, "creature_not_found", "creature not found")
	default:
		slog.Error("Request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
