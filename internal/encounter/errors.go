// Package encounter implements the capture-challenge engine: encounter
// creation, the in-memory session store, and submission evaluation.
package encounter

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and evolution-challenge preconditions.
var (
	// ErrSessionNotFound means the encounter id is unknown or the session
	// has expired. The caller should start a new encounter.
	ErrSessionNotFound = errors.New("encounter session not found or expired")

	// ErrSessionMissing is returned by SessionStore.Update when no prior
	// entry exists, preventing silent creation through the mutation path.
	ErrSessionMissing = errors.New("no session exists for update")

	// ErrBaseNotOwned means the user requested an evolution challenge for
	// a base creature they have not captured.
	ErrBaseNotOwned = errors.New("base creature not owned")

	// ErrNoEvolutionEdge means no direct base→target evolution edge exists.
	ErrNoEvolutionEdge = errors.New("no such evolution")
)

// Stable machine-readable codes for client errors.
const (
	CodeInvalidSeed     = "invalid_seed"
	CodeEmptyAnswers    = "empty_answers"
	CodeTooManyAnswers  = "too_many_answers"
	CodeUnknownQuestion = "unknown_question"
	CodeOptionRange     = "option_out_of_range"
)

// RequestError is a client-caused validation failure carrying a stable
// machine-readable code. These map to 4xx responses and are never silently
// coerced.
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func requestErrorf(code, format string, args ...any) *RequestError {
	return &RequestError{Code: code, Message: fmt.Sprintf(format, args...)}
}
