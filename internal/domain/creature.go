// Package domain contains core domain types for the Quizmon application.
package domain

// Variant distinguishes the base appearance of a creature from its rare one.
type Variant string

const (
	VariantBase Variant = "base"
	VariantRare Variant = "rare"
)

// Creature is a catalog entry. The catalog is read-only at runtime.
type Creature struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Sprite     string   `json:"sprite"`
	FlavorText string   `json:"flavor_text,omitempty"`
	Types      []string `json:"types"`
}
