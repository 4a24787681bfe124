package domain

// EvolutionNode is one creature in a resolved evolution family, annotated
// with ownership-derived capability flags.
type EvolutionNode struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Sprite         string   `json:"sprite"`
	Types          []string `json:"types"`
	PredecessorIDs []int64  `json:"-"`
	Stage          int      `json:"stage"`
	Owned          bool     `json:"owned"`
	IsCurrent      bool     `json:"isCurrent"`
	BaseID         int64    `json:"baseId,omitempty"`
	CanEvolve      bool     `json:"canEvolve"`
}

// EvolutionEdge is one "evolves into" relation from the edge table.
type EvolutionEdge struct {
	FromID int64
	ToID   int64
}

// EvolutionFamily is the full resolved family for one creature, ordered by
// (stage ascending, id ascending).
type EvolutionFamily struct {
	Root  EvolutionNode
	Nodes []EvolutionNode
}
