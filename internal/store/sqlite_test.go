package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedCatalogIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	first, err := s.ListBaseCreatures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 {
		t.Fatal("seed produced no base creatures")
	}

	// A second seed against a populated catalog is a no-op.
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	second, err := s.ListBaseCreatures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != len(first) {
		t.Errorf("base pool changed across reseed: %d -> %d", len(first), len(second))
	}
}

func TestBasePoolExcludesEvolvedForms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	bases, err := s.ListBaseCreatures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range bases {
		preds, err := s.Predecessors(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(preds) != 0 {
			t.Errorf("creature %d (%s) is in the base pool but has predecessors %v", c.ID, c.Name, preds)
		}
	}
}

func TestEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	// Sumblet(1) -> Addra(2) is part of the seeded catalog.
	ok, err := s.HasEdge(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected edge 1 -> 2")
	}
	ok, err = s.HasEdge(ctx, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unexpected reverse edge 2 -> 1")
	}

	preds, err := s.Predecessors(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 1 || preds[0] != 1 {
		t.Errorf("Predecessors(2) = %v, want [1]", preds)
	}

	edges, err := s.SuccessorEdges(ctx, []int64{6})
	if err != nil {
		t.Fatal(err)
	}
	// Nubbin(6) branches into Duplex(7) and Triplex(8).
	if len(edges) != 2 {
		t.Fatalf("SuccessorEdges(6) = %v, want 2 edges", edges)
	}
	for _, e := range edges {
		if e.FromID != 6 || (e.ToID != 7 && e.ToID != 8) {
			t.Errorf("unexpected edge %+v", e)
		}
	}
}

func TestGetCreatures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	byID, err := s.GetCreatures(ctx, []int64{1, 2, 999})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 2 {
		t.Fatalf("got %d creatures, want 2", len(byID))
	}
	if byID[1] == nil || byID[1].Name == "" || len(byID[1].Types) == 0 {
		t.Errorf("creature 1 incomplete: %+v", byID[1])
	}
	if _, ok := byID[999]; ok {
		t.Error("unknown id should be absent, not present as nil")
	}

	c, err := s.GetCreature(ctx, 999)
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("GetCreature(999) = %+v, want nil", c)
	}
}

func TestRecordCaptureFirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	inserted, err := s.RecordCapture(ctx, "anon_x", 1, domain.VariantBase)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("first capture should insert")
	}

	inserted, err = s.RecordCapture(ctx, "anon_x", 1, domain.VariantBase)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("duplicate capture should not insert")
	}

	// The rare variant is a separate ledger row.
	inserted, err = s.RecordCapture(ctx, "anon_x", 1, domain.VariantRare)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("rare variant of an owned base should insert")
	}

	has, err := s.HasCapture(ctx, "anon_x", 1, domain.VariantRare)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Error("HasCapture should see the rare row")
	}
	has, err = s.HasCapture(ctx, "anon_y", 1, domain.VariantBase)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("captures must not leak across users")
	}

	n, err := s.CountCaptures(ctx, "anon_x")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountCaptures = %d, want 2", n)
	}
}

func TestOwnedBaseCreatures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := s.RecordCapture(ctx, "anon_x", 1, domain.VariantBase); err != nil {
		t.Fatal(err)
	}
	// A rare-only capture does not count as base ownership.
	if _, err := s.RecordCapture(ctx, "anon_x", 4, domain.VariantRare); err != nil {
		t.Fatal(err)
	}

	owned, err := s.OwnedBaseCreatures(ctx, "anon_x", []int64{1, 4, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !owned[1] {
		t.Error("creature 1 should be owned")
	}
	if owned[4] {
		t.Error("rare-only capture must not grant base ownership")
	}
	if owned[6] {
		t.Error("creature 6 was never captured")
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	user := &domain.User{
		UserID:     "anon_abc",
		Username:   "trainer-abc",
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.UpsertUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUser(ctx, "anon_abc")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Username != "trainer-abc" {
		t.Fatalf("GetUser = %+v", got)
	}

	later := now.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "anon_abc", later); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetUser(ctx, "anon_abc")
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want %v", got.LastSeenAt, later)
	}

	missing, err := s.GetUser(ctx, "anon_missing")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("missing user = %+v, want nil", missing)
	}
}
