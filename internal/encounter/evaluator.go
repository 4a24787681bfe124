package encounter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/shared"
	"github.com/quizmon/quizmon/internal/store"
)

// CaptureThreshold is the minimum correct count that captures a creature.
const CaptureThreshold = 2

// MaxSubmittedAnswers bounds one submission.
const MaxSubmittedAnswers = 10

// Outcome tags the evaluation result.
type Outcome string

const (
	OutcomeCaptured        Outcome = "captured"
	OutcomeAlreadyCaptured Outcome = "already_captured"
	OutcomeFailed          Outcome = "failed"
)

// Result is the tagged outcome of one submission.
type Result struct {
	Outcome           Outcome
	Score             domain.Score
	Creature          *domain.Creature
	Variant           domain.Variant
	NewCapture        bool
	AttemptsRemaining int
	CanRetry          bool
	Message           string
}

// CaptureNotifier receives successful capture events. Implementations must
// not block.
type CaptureNotifier interface {
	NotifyCapture(userID string, creature *domain.Creature, variant domain.Variant, newCapture bool)
}

// Evaluator scores submissions against stored sessions and drives the
// capture/retry/exhaustion state machine.
type Evaluator struct {
	repo     store.Repository
	sessions *SessionStore
	notifier CaptureNotifier

	// submitLocks serializes concurrent submissions for one encounter id so
	// duplicate requests observe a consistent attempt count.
	submitLocks sync.Map
}

// NewEvaluator creates an evaluator. notifier may be nil.
func NewEvaluator(repo store.Repository, sessions *SessionStore, notifier CaptureNotifier) *Evaluator {
	return &Evaluator{repo: repo, sessions: sessions, notifier: notifier}
}

// Submit grades the answers against the stored session.
//
// Correct count ≥ CaptureThreshold captures the creature: a first-writer-wins
// ledger insert, session deletion, and a report of whether the capture was
// new. Otherwise one attempt is spent; with attempts left the session is
// updated in place keeping the original question set, else it is deleted and
// the encounter is exhausted.
func (e *Evaluator) Submit(ctx context.Context, userID, encounterID string, answers []domain.Answer) (*Result, error) {
	if len(answers) == 0 {
		return nil, requestErrorf(CodeEmptyAnswers, "at least one answer is required")
	}
	if len(answers) > MaxSubmittedAnswers {
		return nil, requestErrorf(CodeTooManyAnswers, "at most %d answers per submission", MaxSubmittedAnswers)
	}

	lock, _ := e.submitLocks.LoadOrStore(encounterID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer func() {
		mutex.Unlock()
		e.submitLocks.Delete(encounterID)
	}()

	sess, err := e.sessions.Get(encounterID)
	if err != nil {
		return nil, err
	}
	// A session belongs to the user who opened it; anyone else sees not-found.
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}

	score, err := scoreSubmission(sess, answers)
	if err != nil {
		return nil, err
	}

	if score.Correct >= CaptureThreshold {
		return e.capture(ctx, sess, score)
	}
	return e.fail(sess, score)
}

// scoreSubmission maps answers to questions by id. Unknown ids and
// out-of-range options are client errors; duplicate ids count only their
// first occurrence; the denominator is always the full question count.
func scoreSubmission(sess *domain.EncounterSession, answers []domain.Answer) (domain.Score, error) {
	byID := make(map[string]domain.QuestionRecord, len(sess.Questions))
	for _, q := range sess.Questions {
		byID[q.ID] = q
	}

	graded := make(map[string]bool, len(answers))
	correct := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return domain.Score{}, requestErrorf(CodeUnknownQuestion, "question %q is not part of this encounter", a.QuestionID)
		}
		if a.SelectedOption < 1 || a.SelectedOption > len(q.Options) {
			return domain.Score{}, requestErrorf(CodeOptionRange, "selectedOption must be between 1 and %d", len(q.Options))
		}
		if graded[a.QuestionID] {
			continue
		}
		graded[a.QuestionID] = true

		if a.SelectedOption-1 == q.CorrectIndex {
			correct++
		}
	}

	return domain.Score{Correct: correct, Total: len(sess.Questions)}, nil
}

func (e *Evaluator) capture(ctx context.Context, sess *domain.EncounterSession, score domain.Score) (*Result, error) {
	variant := sess.Variant()

	newCapture, err := e.recordCaptureWithRetry(ctx, sess.UserID, sess.CreatureID, variant)
	if err != nil {
		slog.Error("Capture ledger write failed",
			"error", err,
			"user_id", sess.UserID,
			"encounter_id", sess.ID,
			"creature_id", sess.CreatureID)
		return nil, fmt.Errorf("record capture: %w", err)
	}

	e.sessions.Delete(sess.ID)

	creature, err := e.repo.GetCreature(ctx, sess.CreatureID)
	if err != nil {
		slog.Error("Catalog read failed after capture",
			"error", err,
			"creature_id", sess.CreatureID)
		return nil, fmt.Errorf("load captured creature: %w", err)
	}
	if creature == nil {
		// The session was built from a catalog row, so this only happens if
		// the catalog shrank mid-flight. Fall back to session fields.
		creature = &domain.Creature{ID: sess.CreatureID, Name: sess.CreatureName, Sprite: sess.Sprite}
	}

	outcome := OutcomeCaptured
	if !newCapture {
		outcome = OutcomeAlreadyCaptured
	}

	slog.Info("Creature captured",
		"user_id", sess.UserID,
		"encounter_id", sess.ID,
		"creature_id", sess.CreatureID,
		"variant", variant,
		"new_capture", newCapture,
		"score", fmt.Sprintf("%d/%d", score.Correct, score.Total))

	if e.notifier != nil {
		e.notifier.NotifyCapture(sess.UserID, creature, variant, newCapture)
	}

	return &Result{
		Outcome:    outcome,
		Score:      score,
		Creature:   creature,
		Variant:    variant,
		NewCapture: newCapture,
	}, nil
}

func (e *Evaluator) fail(sess *domain.EncounterSession, score domain.Score) (*Result, error) {
	sess.AttemptsRemaining--

	if sess.AttemptsRemaining > 0 {
		// Retry keeps the original question set; only the attempt budget
		// changes.
		if err := e.sessions.Update(sess); err != nil {
			return nil, fmt.Errorf("update session after failed attempt: %w", err)
		}
		return &Result{
			Outcome:           OutcomeFailed,
			Score:             score,
			AttemptsRemaining: sess.AttemptsRemaining,
			CanRetry:          true,
			Message:           fmt.Sprintf("%s escaped! %d of %d correct, %d attempts left.", sess.CreatureName, score.Correct, score.Total, sess.AttemptsRemaining),
		}, nil
	}

	e.sessions.Delete(sess.ID)
	slog.Info("Encounter exhausted",
		"user_id", sess.UserID,
		"encounter_id", sess.ID,
		"creature_id", sess.CreatureID)

	return &Result{
		Outcome:           OutcomeFailed,
		Score:             score,
		AttemptsRemaining: 0,
		CanRetry:          false,
		Message:           fmt.Sprintf("%s fled for good. Start a new encounter!", sess.CreatureName),
	}, nil
}

// recordCaptureWithRetry retries the ledger insert on SQLite concurrency
// errors with exponential backoff. The unique ledger key makes the retry
// idempotent.
func (e *Evaluator) recordCaptureWithRetry(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error) {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		newCapture, err := e.repo.RecordCapture(ctx, userID, creatureID, variant)
		if err == nil {
			return newCapture, nil
		}
		lastErr = err

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Capture insert hit SQLITE_BUSY, retrying",
				"user_id", userID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return false, lastErr
}
