package encounter

import (
	"sync"
	"time"
)

// historyEntry records one question served to a user.
type historyEntry struct {
	questionID string
	seenAt     time.Time
}

// History is a process-wide cache of recently served question ids per user.
// It backs duplicate-awareness diagnostics and is pruned by the sweeper
// alongside the session store.
type History struct {
	mu      sync.RWMutex
	entries map[string][]historyEntry
	maxAge  time.Duration
}

// NewHistory creates a history cache whose entries expire after maxAge.
func NewHistory(maxAge time.Duration) *History {
	return &History{
		entries: make(map[string][]historyEntry),
		maxAge:  maxAge,
	}
}

// Record appends question ids for the user.
func (h *History) Record(userID string, questionIDs ...string) {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range questionIDs {
		h.entries[userID] = append(h.entries[userID], historyEntry{questionID: id, seenAt: now})
	}
}

// Recent returns the still-fresh question ids for the user, oldest first.
func (h *History) Recent(userID string) []string {
	cutoff := time.Now().Add(-h.maxAge)
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids []string
	for _, e := range h.entries[userID] {
		if e.seenAt.After(cutoff) {
			ids = append(ids, e.questionID)
		}
	}
	return ids
}

// Prune drops entries older than maxAge and empty users.
func (h *History) Prune() int {
	cutoff := time.Now().Add(-h.maxAge)
	h.mu.Lock()
	defer h.mu.Unlock()

	pruned := 0
	for userID, entries := range h.entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.seenAt.After(cutoff) {
				kept = append(kept, e)
			} else {
				pruned++
			}
		}
		if len(kept) == 0 {
			delete(h.entries, userID)
		} else {
			h.entries[userID] = kept
		}
	}
	return pruned
}
