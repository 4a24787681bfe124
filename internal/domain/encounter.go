package domain

import (
	"time"
)

// SessionAttempts is the attempt budget granted to every encounter.
const SessionAttempts = 3

// QuestionCount is the number of questions in every encounter.
const QuestionCount = 3

// QuestionRecord is the server-side copy of one generated question. The
// correct index never leaves the process; client payloads use PublicQuestion.
type QuestionRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Options      [4]int `json:"options"`
	CorrectIndex int    `json:"-"`
}

// PublicQuestion is the client-facing projection of a QuestionRecord.
type PublicQuestion struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Options [4]int `json:"options"`
}

// Public strips the correct answer index from the record.
func (q QuestionRecord) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
}

// EncounterSession is the authoritative record of one in-flight encounter.
// It is owned by the session store and mutated only by the submission
// evaluator. It is destroyed on capture, on exhaustion, or lazily on expiry.
type EncounterSession struct {
	ID                string
	UserID            string
	CreatureID        int64
	CreatureName      string
	Sprite            string
	RareVariant       bool
	Stage             int
	Questions         []QuestionRecord
	AttemptsRemaining int
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Variant returns the capture variant this session would award.
func (s *EncounterSession) Variant() Variant {
	if s.RareVariant {
		return VariantRare
	}
	return VariantBase
}

// Expired reports whether the session's TTL has elapsed at the given instant.
func (s *EncounterSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Score is the outcome of grading one submission. Total is always the
// session's question count, so a partial submission is scored, not rejected.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Answer is one submitted answer. SelectedOption is 1-based as on the wire.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}
