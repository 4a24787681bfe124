package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	captureMu sync.Mutex // Serializes ledger writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS creatures (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		sprite TEXT NOT NULL,
		flavor_text TEXT NOT NULL DEFAULT '',
		types_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS evolution_edges (
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		PRIMARY KEY (from_id, to_id)
	);
	CREATE INDEX IF NOT EXISTS idx_evolution_edges_to ON evolution_edges(to_id);

	CREATE TABLE IF NOT EXISTS captures (
		user_id TEXT NOT NULL,
		creature_id INTEGER NOT NULL,
		variant TEXT NOT NULL,
		captured_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, creature_id, variant)
	);
	CREATE INDEX IF NOT EXISTS idx_captures_user ON captures(user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

func scanCreature(scan func(...any) error) (*domain.Creature, error) {
	var c domain.Creature
	var typesJSON string
	if err := scan(&c.ID, &c.Name, &c.Sprite, &c.FlavorText, &typesJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(typesJSON), &c.Types); err != nil {
		return nil, fmt.Errorf("decode types for creature %d: %w", c.ID, err)
	}
	return &c, nil
}

// GetCreature retrieves one catalog entry.
func (s *SQLiteStore) GetCreature(ctx context.Context, id int64) (*domain.Creature, error) {
	query := `SELECT id, name, sprite, flavor_text, types_json FROM creatures WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	creature, err := scanCreature(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan creature row: %w", err)
	}
	return creature, nil
}

// GetCreatures batch-fetches catalog entries keyed by id.
func (s *SQLiteStore) GetCreatures(ctx context.Context, ids []int64) (map[int64]*domain.Creature, error) {
	result := make(map[int64]*domain.Creature, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, name, sprite, flavor_text, types_json FROM creatures WHERE id IN (` +
		placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query creatures: %w", err)
	}
	defer closeRows(rows, "creatures")

	for rows.Next() {
		creature, err := scanCreature(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan creature row: %w", err)
		}
		result[creature.ID] = creature
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creatures: %w", err)
	}
	return result, nil
}

// ListBaseCreatures returns the wild-encounter pool: creatures that are not
// the successor of any evolution edge.
func (s *SQLiteStore) ListBaseCreatures(ctx context.Context) ([]*domain.Creature, error) {
	query := `
		SELECT id, name, sprite, flavor_text, types_json FROM creatures
		WHERE id NOT IN (SELECT to_id FROM evolution_edges)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query base creatures: %w", err)
	}
	defer closeRows(rows, "base creatures")

	var creatures []*domain.Creature
	for rows.Next() {
		creature, err := scanCreature(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan base creature row: %w", err)
		}
		creatures = append(creatures, creature)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate base creatures: %w", err)
	}
	return creatures, nil
}

// Predecessors returns the direct predecessor ids of a creature.
func (s *SQLiteStore) Predecessors(ctx context.Context, id int64) ([]int64, error) {
	query := `SELECT from_id FROM evolution_edges WHERE to_id = ? ORDER BY from_id`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query predecessors: %w", err)
	}
	defer closeRows(rows, "predecessors")

	var ids []int64
	for rows.Next() {
		var from int64
		if err := rows.Scan(&from); err != nil {
			return nil, fmt.Errorf("scan predecessor row: %w", err)
		}
		ids = append(ids, from)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predecessors: %w", err)
	}
	return ids, nil
}

// SuccessorEdges batch-fetches all edges leaving any of the given ids.
func (s *SQLiteStore) SuccessorEdges(ctx context.Context, fromIDs []int64) ([]domain.EvolutionEdge, error) {
	if len(fromIDs) == 0 {
		return nil, nil
	}

	query := `SELECT from_id, to_id FROM evolution_edges WHERE from_id IN (` +
		placeholders(len(fromIDs)) + `) ORDER BY from_id, to_id`

	rows, err := s.db.QueryContext(ctx, query, int64Args(fromIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query successor edges: %w", err)
	}
	defer closeRows(rows, "successor edges")

	var edges []domain.EvolutionEdge
	for rows.Next() {
		var e domain.EvolutionEdge
		if err := rows.Scan(&e.FromID, &e.ToID); err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate successor edges: %w", err)
	}
	return edges, nil
}

// HasEdge reports whether a direct from→to evolution edge exists.
func (s *SQLiteStore) HasEdge(ctx context.Context, fromID, toID int64) (bool, error) {
	query := `SELECT 1 FROM evolution_edges WHERE from_id = ? AND to_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, fromID, toID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query edge: %w", err)
	}
	return true, nil
}

// RecordCapture performs the first-writer-wins ledger insert. The unique
// (user, creature, variant) key makes concurrent duplicate successes safe:
// ON CONFLICT DO NOTHING plus RowsAffected discriminates a fresh capture
// from an already-owned one in a single atomic statement.
func (s *SQLiteStore) RecordCapture(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error) {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	query := `
		INSERT INTO captures (user_id, creature_id, variant, captured_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, creature_id, variant) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, userID, creatureID, string(variant), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("insert capture: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("capture rows affected: %w", err)
	}
	return rows > 0, nil
}

// HasCapture reports whether the user owns the given creature variant.
func (s *SQLiteStore) HasCapture(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error) {
	query := `SELECT 1 FROM captures WHERE user_id = ? AND creature_id = ? AND variant = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, userID, creatureID, string(variant)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query capture: %w", err)
	}
	return true, nil
}

// OwnedBaseCreatures returns which of the given ids the user owns in the
// base variant.
func (s *SQLiteStore) OwnedBaseCreatures(ctx context.Context, userID string, ids []int64) (map[int64]bool, error) {
	owned := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	query := `SELECT creature_id FROM captures WHERE user_id = ? AND variant = ? AND creature_id IN (` +
		placeholders(len(ids)) + `)`

	args := append([]any{userID, string(domain.VariantBase)}, int64Args(ids)...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query owned creatures: %w", err)
	}
	defer closeRows(rows, "owned creatures")

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owned creature row: %w", err)
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned creatures: %w", err)
	}
	return owned, nil
}

// CountCaptures returns the number of ledger rows for a user.
func (s *SQLiteStore) CountCaptures(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return count, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func closeRows(rows *sql.Rows, label string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", label, "error", err)
	}
}
