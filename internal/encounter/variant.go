package encounter

import (
	"context"
	"fmt"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/rng"
)

// RareChance is the probability of a rare-variant encounter.
const RareChance = 0.01

// OwnershipChecker is the slice of the capture ledger the variant resolver
// needs.
type OwnershipChecker interface {
	HasCapture(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error)
}

// ResolveVariant rolls the rare-variant chance for one encounter and gates
// it behind prior base-variant ownership.
//
// It consumes exactly one stream value regardless of the outcome, and the
// ownership read consumes none, so the rest of the encounter's random
// sequence is identical whatever the user's collection looks like.
func ResolveVariant(ctx context.Context, ledger OwnershipChecker, stream *rng.Stream, userID string, creatureID int64) (bool, error) {
	roll := stream.Next()
	if roll >= RareChance {
		return false, nil
	}

	// Tentatively rare. A rare variant is only ever produced for a user
	// who already holds the base variant of this exact creature.
	ownsBase, err := ledger.HasCapture(ctx, userID, creatureID, domain.VariantBase)
	if err != nil {
		return false, fmt.Errorf("check base ownership: %w", err)
	}
	return ownsBase, nil
}
