package encounter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/question"
	"github.com/quizmon/quizmon/internal/rng"
	"github.com/quizmon/quizmon/internal/store"
)

// seedPattern bounds client-supplied seeds. Anything else is rejected, never
// coerced.
var seedPattern = regexp.MustCompile(`^[A-Za-z0-9._:|-]{1,64}$`)

// Factory composes the random stream, question generator, variant resolver
// and catalog into complete encounters, and owns writing them to the
// session store.
type Factory struct {
	repo     store.Repository
	sessions *SessionStore
	history  *History
	ttl      time.Duration
}

// NewFactory creates an encounter factory. A zero ttl falls back to
// DefaultSessionTTL.
func NewFactory(repo store.Repository, sessions *SessionStore, history *History, ttl time.Duration) *Factory {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Factory{repo: repo, sessions: sessions, history: history, ttl: ttl}
}

// NewWild generates a wild encounter: a uniform pick from the unevolved
// base pool at difficulty stage 1. clientSeed may be empty, in which case a
// random one is drawn; either way the effective seed is "<userID>|<seed>" so
// replaying a seed is scoped to one user.
func (f *Factory) NewWild(ctx context.Context, userID, clientSeed string) (*domain.EncounterSession, *domain.Creature, error) {
	seed, err := f.effectiveSeed(userID, clientSeed)
	if err != nil {
		return nil, nil, err
	}

	pool, err := f.repo.ListBaseCreatures(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list base pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil, fmt.Errorf("creature catalog has no base pool")
	}

	stream := rng.NewStream(seed)
	creature := pool[stream.IntN(len(pool))]

	return f.build(ctx, userID, creature, stream, 1)
}

// NewEvolutionChallenge generates an encounter targeting a specific
// evolution. The caller must own the base creature and a direct base→target
// edge must exist. Stage is 2 when the base has no predecessor of its own,
// else 3.
func (f *Factory) NewEvolutionChallenge(ctx context.Context, userID string, baseID, targetID int64, clientSeed string) (*domain.EncounterSession, *domain.Creature, error) {
	seed, err := f.effectiveSeed(userID, clientSeed)
	if err != nil {
		return nil, nil, err
	}

	target, err := f.repo.GetCreature(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("load evolution target: %w", err)
	}
	if target == nil {
		return nil, nil, ErrNoEvolutionEdge
	}

	ownsBase, err := f.repo.HasCapture(ctx, userID, baseID, domain.VariantBase)
	if err != nil {
		return nil, nil, fmt.Errorf("check base ownership: %w", err)
	}
	if !ownsBase {
		return nil, nil, ErrBaseNotOwned
	}

	hasEdge, err := f.repo.HasEdge(ctx, baseID, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("check evolution edge: %w", err)
	}
	if !hasEdge {
		return nil, nil, ErrNoEvolutionEdge
	}

	grandparents, err := f.repo.Predecessors(ctx, baseID)
	if err != nil {
		return nil, nil, fmt.Errorf("check grandparents: %w", err)
	}
	stage := 2
	if len(grandparents) > 0 {
		stage = 3
	}

	stream := rng.NewStream(seed)
	return f.build(ctx, userID, target, stream, stage)
}

// build resolves the variant, generates questions, and writes the session.
func (f *Factory) build(ctx context.Context, userID string, creature *domain.Creature, stream *rng.Stream, stage int) (*domain.EncounterSession, *domain.Creature, error) {
	rare, err := ResolveVariant(ctx, f.repo, stream, userID, creature.ID)
	if err != nil {
		return nil, nil, err
	}

	questions := question.Generate(stream, stage)

	id, err := newEncounterID()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	sess := &domain.EncounterSession{
		ID:                id,
		UserID:            userID,
		CreatureID:        creature.ID,
		CreatureName:      creature.Name,
		Sprite:            creature.Sprite,
		RareVariant:       rare,
		Stage:             stage,
		Questions:         questions,
		AttemptsRemaining: domain.SessionAttempts,
		CreatedAt:         now,
		ExpiresAt:         now.Add(f.ttl),
	}

	f.sessions.Set(sess)
	f.sessions.PruneExpired()

	if f.history != nil {
		ids := make([]string, len(questions))
		for i, q := range questions {
			ids[i] = q.ID
		}
		f.history.Record(userID, ids...)
	}

	slog.Info("Encounter created",
		"encounter_id", id,
		"user_id", userID,
		"creature_id", creature.ID,
		"stage", stage,
		"rare", rare)

	return sess, creature, nil
}

func (f *Factory) effectiveSeed(userID, clientSeed string) (string, error) {
	if clientSeed == "" {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate encounter seed: %w", err)
		}
		clientSeed = hex.EncodeToString(buf)
	}
	if !seedPattern.MatchString(clientSeed) {
		return "", requestErrorf(CodeInvalidSeed, "seed must match %s", seedPattern.String())
	}
	return userID + "|" + clientSeed, nil
}

func newEncounterID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate encounter id: %w", err)
	}
	return "enc_" + hex.EncodeToString(buf), nil
}
