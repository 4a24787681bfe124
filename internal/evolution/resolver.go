// Package evolution reconstructs creature evolution families and computes
// ownership-gated unlock flags.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/store"
)

// ErrCreatureNotFound means the requested creature id is not in the catalog.
var ErrCreatureNotFound = errors.New("creature not found")

// defaultBatchSize bounds the fan-out of one edge query during expansion.
const defaultBatchSize = 25

// expansionGuard caps total edge merges so malformed cyclic edge data
// terminates instead of looping.
const expansionGuard = 4096

// Resolver resolves evolution families against the catalog, edge table and
// capture ledger. Resolution is a pure batched read path.
type Resolver struct {
	repo      store.Repository
	batchSize int
}

// NewResolver creates a resolver.
func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo, batchSize: defaultBatchSize}
}

// arenaNode is the mutable accumulator for one discovered creature during
// expansion.
type arenaNode struct {
	id    int64
	preds map[int64]bool
	stage int
}

// Family reconstructs the full evolution family containing creatureID and
// derives per-node flags for the user. The result is ordered by
// (stage ascending, id ascending). A creature with no evolution edges is
// its own single-node family.
func (r *Resolver) Family(ctx context.Context, userID string, creatureID int64) (*domain.EvolutionFamily, error) {
	current, err := r.repo.GetCreature(ctx, creatureID)
	if err != nil {
		return nil, fmt.Errorf("load creature: %w", err)
	}
	if current == nil {
		return nil, ErrCreatureNotFound
	}

	rootID, err := r.ascendToRoot(ctx, creatureID)
	if err != nil {
		return nil, err
	}

	arena, err := r.expand(ctx, rootID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(arena))
	for id := range arena {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	creatures, err := r.repo.GetCreatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load family catalog rows: %w", err)
	}
	owned, err := r.repo.OwnedBaseCreatures(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load family ownership: %w", err)
	}

	nodes := make([]domain.EvolutionNode, 0, len(arena))
	var root domain.EvolutionNode
	for _, id := range ids {
		creature, ok := creatures[id]
		if !ok {
			// Dangling edge reference: skip rather than fail the whole
			// resolution.
			slog.Warn("Evolution family references missing catalog row",
				"creature_id", id,
				"root_id", rootID)
			continue
		}

		node := buildNode(arena[id], creature, owned, creatureID)
		nodes = append(nodes, node)
		if id == rootID {
			root = node
		}
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Stage != nodes[j].Stage {
			return nodes[i].Stage < nodes[j].Stage
		}
		return nodes[i].ID < nodes[j].ID
	})

	return &domain.EvolutionFamily{Root: root, Nodes: nodes}, nil
}

// ascendToRoot walks lowest-predecessor edges upward until a node has none.
// The visited set tolerates malformed cyclic data.
func (r *Resolver) ascendToRoot(ctx context.Context, creatureID int64) (int64, error) {
	id := creatureID
	visited := map[int64]bool{id: true}
	for {
		preds, err := r.repo.Predecessors(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("ascend from %d: %w", id, err)
		}
		if len(preds) == 0 {
			return id, nil
		}
		next := preds[0] // ordered ascending by the store
		if visited[next] {
			slog.Warn("Evolution edge cycle detected while ascending",
				"creature_id", creatureID,
				"at", id,
				"next", next)
			return id, nil
		}
		visited[next] = true
		id = next
	}
}

// expand grows the node arena forward from the root via frontier/batch
// traversal. A child found from multiple parents accumulates the set of
// predecessor ids; its stage is 1 + the maximum predecessor stage seen so
// far and only ever increases as later predecessors merge in.
func (r *Resolver) expand(ctx context.Context, rootID int64) (map[int64]*arenaNode, error) {
	arena := map[int64]*arenaNode{
		rootID: {id: rootID, preds: map[int64]bool{}, stage: 1},
	}
	frontier := []int64{rootID}
	merges := 0

	for len(frontier) > 0 {
		batch := frontier
		if len(batch) > r.batchSize {
			batch = batch[:r.batchSize]
			frontier = frontier[r.batchSize:]
		} else {
			frontier = nil
		}

		edges, err := r.repo.SuccessorEdges(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("expand frontier: %w", err)
		}

		for _, edge := range edges {
			merges++
			if merges > expansionGuard {
				slog.Warn("Evolution expansion guard tripped, truncating family",
					"root_id", rootID,
					"nodes", len(arena))
				return arena, nil
			}

			parent := arena[edge.FromID]
			if parent == nil {
				continue
			}

			child, known := arena[edge.ToID]
			if !known {
				child = &arenaNode{id: edge.ToID, preds: map[int64]bool{}, stage: 0}
				arena[edge.ToID] = child
			}
			child.preds[edge.FromID] = true

			// Stage is monotonic: a re-merge through a deeper predecessor
			// raises it and re-queues the child so descendants see the new
			// depth; it never decreases.
			if stage := parent.stage + 1; stage > child.stage {
				child.stage = stage
				frontier = append(frontier, child.id)
			}
		}
	}

	return arena, nil
}

// buildNode derives the flags for one discovered creature.
func buildNode(n *arenaNode, creature *domain.Creature, owned map[int64]bool, currentID int64) domain.EvolutionNode {
	predIDs := make([]int64, 0, len(n.preds))
	for id := range n.preds {
		predIDs = append(predIDs, id)
	}
	sort.Slice(predIDs, func(i, j int) bool { return predIDs[i] < predIDs[j] })

	// canEvolve requires every direct predecessor, not just one path in.
	canEvolve := len(predIDs) > 0
	for _, id := range predIDs {
		if !owned[id] {
			canEvolve = false
			break
		}
	}

	var baseID int64
	if len(predIDs) > 0 {
		baseID = predIDs[0]
	}

	return domain.EvolutionNode{
		ID:             n.id,
		Name:           creature.Name,
		Sprite:         creature.Sprite,
		Types:          creature.Types,
		PredecessorIDs: predIDs,
		Stage:          n.stage,
		Owned:          owned[n.id],
		IsCurrent:      n.id == currentID,
		BaseID:         baseID,
		CanEvolve:      canEvolve,
	}
}
