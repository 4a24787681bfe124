package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
)

// MemoryStore is an in-memory Repository for tests and ephemeral dev runs.
// It mirrors the SQLite semantics, including the first-writer-wins capture
// insert.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	creatures map[int64]domain.Creature
	edges     []domain.EvolutionEdge
	captures  map[string]map[domain.CaptureKey]time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		creatures: make(map[int64]domain.Creature),
		captures:  make(map[string]map[domain.CaptureKey]time.Time),
	}
}

// AddCreature inserts a catalog entry.
func (m *MemoryStore) AddCreature(c domain.Creature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creatures[c.ID] = c
}

// RemoveCreature deletes a catalog entry, leaving any edges dangling.
func (m *MemoryStore) RemoveCreature(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creatures, id)
}

// AddEdge inserts an evolution edge.
func (m *MemoryStore) AddEdge(fromID, toID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, domain.EvolutionEdge{FromID: fromID, ToID: toID})
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		copy := u
		return &copy, nil
	}
	return nil, nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = *user
	return nil
}

func (m *MemoryStore) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LastSeenAt = lastSeen
		u.UpdatedAt = time.Now()
		m.users[userID] = u
	}
	return nil
}

func (m *MemoryStore) GetCreature(_ context.Context, id int64) (*domain.Creature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.creatures[id]; ok {
		copy := c
		return &copy, nil
	}
	return nil, nil
}

func (m *MemoryStore) GetCreatures(_ context.Context, ids []int64) (map[int64]*domain.Creature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[int64]*domain.Creature, len(ids))
	for _, id := range ids {
		if c, ok := m.creatures[id]; ok {
			copy := c
			result[id] = &copy
		}
	}
	return result, nil
}

func (m *MemoryStore) ListBaseCreatures(_ context.Context) ([]*domain.Creature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evolved := make(map[int64]bool)
	for _, e := range m.edges {
		evolved[e.ToID] = true
	}

	ids := make([]int64, 0, len(m.creatures))
	for id := range m.creatures {
		if !evolved[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pool := make([]*domain.Creature, 0, len(ids))
	for _, id := range ids {
		c := m.creatures[id]
		pool = append(pool, &c)
	}
	return pool, nil
}

func (m *MemoryStore) Predecessors(_ context.Context, id int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var preds []int64
	for _, e := range m.edges {
		if e.ToID == id {
			preds = append(preds, e.FromID)
		}
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i] < preds[j] })
	return preds, nil
}

func (m *MemoryStore) SuccessorEdges(_ context.Context, fromIDs []int64) ([]domain.EvolutionEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[int64]bool, len(fromIDs))
	for _, id := range fromIDs {
		wanted[id] = true
	}

	var edges []domain.EvolutionEdge
	for _, e := range m.edges {
		if wanted[e.FromID] {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromID != edges[j].FromID {
			return edges[i].FromID < edges[j].FromID
		}
		return edges[i].ToID < edges[j].ToID
	})
	return edges, nil
}

func (m *MemoryStore) HasEdge(_ context.Context, fromID, toID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.FromID == fromID && e.ToID == toID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) RecordCapture(_ context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.captures[userID] == nil {
		m.captures[userID] = make(map[domain.CaptureKey]time.Time)
	}
	key := domain.CaptureKey{CreatureID: creatureID, Variant: variant}
	if _, exists := m.captures[userID][key]; exists {
		return false, nil
	}
	m.captures[userID][key] = time.Now()
	return true, nil
}

func (m *MemoryStore) HasCapture(_ context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.captures[userID][domain.CaptureKey{CreatureID: creatureID, Variant: variant}]
	return ok, nil
}

func (m *MemoryStore) OwnedBaseCreatures(_ context.Context, userID string, ids []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.captures[userID][domain.CaptureKey{CreatureID: id, Variant: domain.VariantBase}]; ok {
			owned[id] = true
		}
	}
	return owned, nil
}

func (m *MemoryStore) CountCaptures(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.captures[userID])), nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
