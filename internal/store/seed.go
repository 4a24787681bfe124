package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quizmon/quizmon/internal/domain"
)

// starterBestiary is loaded into an empty catalog at startup so a fresh
// deployment is playable immediately. IDs are stable; the evolution edge
// list includes one branching family (Nubbin) to exercise DAG resolution.
var starterBestiary = []domain.Creature{
	{ID: 1, Name: "Sumblet", Sprite: "sprites/sumblet.png", FlavorText: "Hoards loose digits and piles them into little sums.", Types: []string{"number"}},
	{ID: 2, Name: "Addra", Sprite: "sprites/addra.png", FlavorText: "Its coils grow one segment for every sum it completes.", Types: []string{"number", "serpent"}},
	{ID: 3, Name: "Totalisk", Sprite: "sprites/totalisk.png", FlavorText: "Legends say its final segment holds a running total of everything.", Types: []string{"number", "serpent"}},
	{ID: 4, Name: "Fracton", Sprite: "sprites/fracton.png", FlavorText: "Splits into halves when startled, then forgets which half it was.", Types: []string{"fraction"}},
	{ID: 5, Name: "Halverin", Sprite: "sprites/halverin.png", FlavorText: "Glides on wings of exactly equal area.", Types: []string{"fraction", "wind"}},
	{ID: 6, Name: "Nubbin", Sprite: "sprites/nubbin.png", FlavorText: "A small round creature that counts on fingers it does not have.", Types: []string{"number"}},
	{ID: 7, Name: "Duplex", Sprite: "sprites/duplex.png", FlavorText: "Everything about it comes in twos, including its opinion of you.", Types: []string{"number", "mirror"}},
	{ID: 8, Name: "Triplex", Sprite: "sprites/triplex.png", FlavorText: "Thinks in threes and is insufferable about it.", Types: []string{"number", "mirror"}},
	{ID: 9, Name: "Modulo", Sprite: "sprites/modulo.png", FlavorText: "Whatever you give it, it only keeps the remainder.", Types: []string{"remainder"}},
	{ID: 10, Name: "Primling", Sprite: "sprites/primling.png", FlavorText: "Refuses to be divided. Genuinely indivisible.", Types: []string{"prime"}},
	{ID: 11, Name: "Factoreon", Sprite: "sprites/factoreon.png", FlavorText: "Breaks problems apart to see what they are made of.", Types: []string{"prime", "claw"}},
	{ID: 12, Name: "Productor", Sprite: "sprites/productor.png", FlavorText: "Its roar multiplies off canyon walls.", Types: []string{"prime", "claw"}},
}

var starterEdges = []domain.EvolutionEdge{
	{FromID: 1, ToID: 2},
	{FromID: 2, ToID: 3},
	{FromID: 4, ToID: 5},
	{FromID: 6, ToID: 7},
	{FromID: 6, ToID: 8},
	{FromID: 10, ToID: 11},
	{FromID: 11, ToID: 12},
}

// SeedCatalog populates the creature catalog and evolution edges when the
// catalog is empty. An already-populated catalog is left untouched.
func (s *SQLiteStore) SeedCatalog(ctx context.Context) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM creatures`).Scan(&count); err != nil {
		return fmt.Errorf("count creatures: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range starterBestiary {
		typesJSON, err := json.Marshal(c.Types)
		if err != nil {
			return fmt.Errorf("encode types for %s: %w", c.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO creatures (id, name, sprite, flavor_text, types_json) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Sprite, c.FlavorText, string(typesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert creature %s: %w", c.Name, err)
		}
	}

	for _, e := range starterEdges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evolution_edges (from_id, to_id) VALUES (?, ?)`,
			e.FromID, e.ToID,
		)
		if err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", e.FromID, e.ToID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	slog.Info("Seeded creature catalog", "creatures", len(starterBestiary), "edges", len(starterEdges))
	return nil
}
