package encounter

import (
	"errors"
	"testing"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
)

func testSession(id string, expiresAt time.Time) *domain.EncounterSession {
	return &domain.EncounterSession{
		ID:                id,
		UserID:            "u1",
		CreatureID:        1,
		AttemptsRemaining: domain.SessionAttempts,
		CreatedAt:         time.Now(),
		ExpiresAt:         expiresAt,
	}
}

func TestSessionStoreGetSet(t *testing.T) {
	s := NewSessionStore()
	sess := testSession("enc_1", time.Now().Add(time.Minute))
	s.Set(sess)

	got, err := s.Get("enc_1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != "enc_1" {
		t.Errorf("Expected session enc_1, got %s", got.ID)
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	s := NewSessionStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreGetExpiredDeletesLazily(t *testing.T) {
	s := NewSessionStore()
	s.Set(testSession("enc_old", time.Now().Add(-time.Second)))

	if _, err := s.Get("enc_old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound for expired session, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expired session should be deleted on read, store has %d entries", s.Len())
	}
}

func TestSessionStoreUpdateMissing(t *testing.T) {
	s := NewSessionStore()
	err := s.Update(testSession("enc_ghost", time.Now().Add(time.Minute)))
	if !errors.Is(err, ErrSessionMissing) {
		t.Errorf("Expected ErrSessionMissing, got %v", err)
	}
	// The failed update must not create an entry.
	if s.Len() != 0 {
		t.Errorf("Update on missing key created an entry")
	}
}

func TestSessionStoreUpdateExisting(t *testing.T) {
	s := NewSessionStore()
	sess := testSession("enc_2", time.Now().Add(time.Minute))
	s.Set(sess)

	sess.AttemptsRemaining = 2
	if err := s.Update(sess); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, err := s.Get("enc_2")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.AttemptsRemaining != 2 {
		t.Errorf("Expected 2 attempts remaining, got %d", got.AttemptsRemaining)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	s := NewSessionStore()
	s.Set(testSession("enc_3", time.Now().Add(time.Minute)))
	s.Delete("enc_3")
	if _, err := s.Get("enc_3"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	// Deleting again is a no-op.
	s.Delete("enc_3")
}

func TestSessionStorePruneExpired(t *testing.T) {
	s := NewSessionStore()
	s.Set(testSession("enc_live", time.Now().Add(time.Minute)))
	s.Set(testSession("enc_dead1", time.Now().Add(-time.Second)))
	s.Set(testSession("enc_dead2", time.Now().Add(-time.Minute)))

	if pruned := s.PruneExpired(); pruned != 2 {
		t.Errorf("Expected 2 pruned, got %d", pruned)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 remaining session, got %d", s.Len())
	}
	if _, err := s.Get("enc_live"); err != nil {
		t.Errorf("Live session should survive prune: %v", err)
	}
}

func TestHistoryRecordAndPrune(t *testing.T) {
	h := NewHistory(50 * time.Millisecond)
	h.Record("u1", "q_a", "q_b")
	h.Record("u2", "q_c")

	if got := h.Recent("u1"); len(got) != 2 {
		t.Fatalf("Expected 2 recent entries, got %v", got)
	}

	time.Sleep(60 * time.Millisecond)

	if got := h.Recent("u1"); len(got) != 0 {
		t.Errorf("Expected stale entries to be invisible, got %v", got)
	}
	if pruned := h.Prune(); pruned != 3 {
		t.Errorf("Expected 3 pruned entries, got %d", pruned)
	}
}
