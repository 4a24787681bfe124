package evolution

import (
	"context"
	"errors"
	"testing"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/store"
)

func chainRepo() *store.MemoryStore {
	repo := store.NewMemory()
	repo.AddCreature(domain.Creature{ID: 1, Name: "Sumblet", Sprite: "s1", Types: []string{"number"}})
	repo.AddCreature(domain.Creature{ID: 2, Name: "Addra", Sprite: "s2", Types: []string{"number"}})
	repo.AddCreature(domain.Creature{ID: 3, Name: "Totalisk", Sprite: "s3", Types: []string{"number"}})
	repo.AddEdge(1, 2)
	repo.AddEdge(2, 3)
	return repo
}

func branchRepo() *store.MemoryStore {
	repo := store.NewMemory()
	repo.AddCreature(domain.Creature{ID: 6, Name: "Nubbin", Sprite: "s6", Types: []string{"number"}})
	repo.AddCreature(domain.Creature{ID: 7, Name: "Duplex", Sprite: "s7", Types: []string{"number"}})
	repo.AddCreature(domain.Creature{ID: 8, Name: "Triplex", Sprite: "s8", Types: []string{"number"}})
	repo.AddEdge(6, 7)
	repo.AddEdge(6, 8)
	return repo
}

func nodeByID(t *testing.T, family *domain.EvolutionFamily, id int64) domain.EvolutionNode {
	t.Helper()
	for _, n := range family.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %d not in family", id)
	return domain.EvolutionNode{}
}

func TestFamilyChainFromAnyMember(t *testing.T) {
	repo := chainRepo()
	resolver := NewResolver(repo)
	ctx := context.Background()

	// Resolution from any family member yields the same family.
	for _, start := range []int64{1, 2, 3} {
		family, err := resolver.Family(ctx, "u1", start)
		if err != nil {
			t.Fatalf("Family(%d) error: %v", start, err)
		}
		if family.Root.ID != 1 {
			t.Errorf("start %d: expected root 1, got %d", start, family.Root.ID)
		}
		if len(family.Nodes) != 3 {
			t.Fatalf("start %d: expected 3 nodes, got %d", start, len(family.Nodes))
		}
		for i, wantID := range []int64{1, 2, 3} {
			node := family.Nodes[i]
			if node.ID != wantID {
				t.Errorf("start %d: node %d is %d, want %d", start, i, node.ID, wantID)
			}
			if node.Stage != i+1 {
				t.Errorf("node %d: expected stage %d, got %d", node.ID, i+1, node.Stage)
			}
			if node.IsCurrent != (node.ID == start) {
				t.Errorf("start %d: node %d isCurrent=%v", start, node.ID, node.IsCurrent)
			}
		}
	}
}

func TestFamilyOwnershipFlags(t *testing.T) {
	repo := chainRepo()
	resolver := NewResolver(repo)
	ctx := context.Background()

	if _, err := repo.RecordCapture(ctx, "u1", 1, domain.VariantBase); err != nil {
		t.Fatal(err)
	}

	family, err := resolver.Family(ctx, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}

	root := nodeByID(t, family, 1)
	if !root.Owned || root.CanEvolve {
		t.Errorf("Root: owned=%v canEvolve=%v, want owned and not canEvolve", root.Owned, root.CanEvolve)
	}
	middle := nodeByID(t, family, 2)
	if middle.Owned {
		t.Error("Node 2 should not be owned")
	}
	if !middle.CanEvolve {
		t.Error("Node 2 should be unlockable: its only predecessor is owned")
	}
	if middle.BaseID != 1 {
		t.Errorf("Node 2 baseId = %d, want 1", middle.BaseID)
	}
	top := nodeByID(t, family, 3)
	if top.CanEvolve {
		t.Error("Node 3 requires node 2, which is not owned")
	}
}

func TestFamilyBranchingSiblings(t *testing.T) {
	repo := branchRepo()
	resolver := NewResolver(repo)
	ctx := context.Background()

	// Owning only the shared predecessor unlocks both siblings.
	if _, err := repo.RecordCapture(ctx, "u1", 6, domain.VariantBase); err != nil {
		t.Fatal(err)
	}

	family, err := resolver.Family(ctx, "u1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(family.Nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(family.Nodes))
	}

	for _, id := range []int64{7, 8} {
		sibling := nodeByID(t, family, id)
		if sibling.BaseID != 6 {
			t.Errorf("Sibling %d baseId = %d, want 6", id, sibling.BaseID)
		}
		if !sibling.CanEvolve {
			t.Errorf("Sibling %d should be unlockable from the shared predecessor alone", id)
		}
		if sibling.Stage != 2 {
			t.Errorf("Sibling %d stage = %d, want 2", id, sibling.Stage)
		}
	}
}

func TestFamilyDiamondStagesMonotonic(t *testing.T) {
	// 10 → 11 → 13 and 10 → 12 → 13 → 14 with an extra long arm
	// 10 → 15 → 16 → 13: node 13's stage must settle at 1 + max(pred
	// stages) and its predecessor set must accumulate all parents.
	repo := store.NewMemory()
	for id := int64(10); id <= 16; id++ {
		repo.AddCreature(domain.Creature{ID: id, Name: "N", Sprite: "s", Types: []string{"t"}})
	}
	repo.AddEdge(10, 11)
	repo.AddEdge(10, 12)
	repo.AddEdge(11, 13)
	repo.AddEdge(12, 13)
	repo.AddEdge(13, 14)
	repo.AddEdge(10, 15)
	repo.AddEdge(15, 16)
	repo.AddEdge(16, 13)

	resolver := NewResolver(repo)
	family, err := resolver.Family(context.Background(), "u1", 10)
	if err != nil {
		t.Fatal(err)
	}

	merge := nodeByID(t, family, 13)
	// Longest path in: 10(1) → 15(2) → 16(3) → 13.
	if merge.Stage != 4 {
		t.Errorf("Merge node stage = %d, want 4", merge.Stage)
	}
	if len(merge.PredecessorIDs) != 3 {
		t.Errorf("Merge node predecessors = %v, want [11 12 16]", merge.PredecessorIDs)
	}
	if merge.BaseID != 11 {
		t.Errorf("Merge node baseId = %d, want lowest predecessor 11", merge.BaseID)
	}
	child := nodeByID(t, family, 14)
	if child.Stage != 5 {
		t.Errorf("Post-merge child stage = %d, want 5", child.Stage)
	}

	// Output order is (stage asc, id asc).
	for i := 1; i < len(family.Nodes); i++ {
		prev, cur := family.Nodes[i-1], family.Nodes[i]
		if prev.Stage > cur.Stage || (prev.Stage == cur.Stage && prev.ID >= cur.ID) {
			t.Errorf("Nodes out of order at %d: (%d,%d) before (%d,%d)", i, prev.Stage, prev.ID, cur.Stage, cur.ID)
		}
	}
}

func TestFamilyMergeRequiresAllPredecessors(t *testing.T) {
	repo := store.NewMemory()
	for id := int64(20); id <= 23; id++ {
		repo.AddCreature(domain.Creature{ID: id, Name: "N", Sprite: "s", Types: []string{"t"}})
	}
	repo.AddEdge(20, 21)
	repo.AddEdge(20, 22)
	repo.AddEdge(21, 23)
	repo.AddEdge(22, 23)

	resolver := NewResolver(repo)
	ctx := context.Background()

	if _, err := repo.RecordCapture(ctx, "u1", 21, domain.VariantBase); err != nil {
		t.Fatal(err)
	}
	family, err := resolver.Family(ctx, "u1", 23)
	if err != nil {
		t.Fatal(err)
	}
	if nodeByID(t, family, 23).CanEvolve {
		t.Error("canEvolve requires owning all predecessors, only one is owned")
	}

	if _, err := repo.RecordCapture(ctx, "u1", 22, domain.VariantBase); err != nil {
		t.Fatal(err)
	}
	family, err = resolver.Family(ctx, "u1", 23)
	if err != nil {
		t.Fatal(err)
	}
	if !nodeByID(t, family, 23).CanEvolve {
		t.Error("canEvolve should hold once every predecessor is owned")
	}
}

func TestFamilySingleNode(t *testing.T) {
	repo := store.NewMemory()
	repo.AddCreature(domain.Creature{ID: 9, Name: "Modulo", Sprite: "s9", Types: []string{"remainder"}})

	resolver := NewResolver(repo)
	family, err := resolver.Family(context.Background(), "u1", 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(family.Nodes) != 1 {
		t.Fatalf("Expected single-node family, got %d nodes", len(family.Nodes))
	}
	node := family.Nodes[0]
	if node.Stage != 1 || node.CanEvolve || !node.IsCurrent {
		t.Errorf("Single node: stage=%d canEvolve=%v isCurrent=%v", node.Stage, node.CanEvolve, node.IsCurrent)
	}
	if family.Root.ID != 9 {
		t.Errorf("Root = %d, want 9", family.Root.ID)
	}
}

func TestFamilyUnknownCreature(t *testing.T) {
	resolver := NewResolver(store.NewMemory())
	if _, err := resolver.Family(context.Background(), "u1", 404); !errors.Is(err, ErrCreatureNotFound) {
		t.Errorf("Expected ErrCreatureNotFound, got %v", err)
	}
}

func TestFamilySkipsDanglingCatalogReference(t *testing.T) {
	repo := chainRepo()
	repo.RemoveCreature(2)

	resolver := NewResolver(repo)
	family, err := resolver.Family(context.Background(), "u1", 1)
	if err != nil {
		t.Fatalf("Dangling reference must not fail resolution: %v", err)
	}
	for _, n := range family.Nodes {
		if n.ID == 2 {
			t.Error("Missing catalog row should be skipped, not emitted")
		}
	}
	// The rest of the family survives.
	if len(family.Nodes) != 2 {
		t.Errorf("Expected 2 surviving nodes, got %d", len(family.Nodes))
	}
}

func TestFamilyToleratesCycles(t *testing.T) {
	repo := store.NewMemory()
	repo.AddCreature(domain.Creature{ID: 30, Name: "A", Sprite: "s", Types: []string{"t"}})
	repo.AddCreature(domain.Creature{ID: 31, Name: "B", Sprite: "s", Types: []string{"t"}})
	repo.AddEdge(30, 31)
	repo.AddEdge(31, 30) // malformed

	resolver := NewResolver(repo)
	family, err := resolver.Family(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("Cyclic edge data must terminate, got error: %v", err)
	}
	if len(family.Nodes) == 0 {
		t.Error("Expected a non-empty family despite the cycle")
	}
}
