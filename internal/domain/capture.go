package domain

import (
	"time"
)

// CaptureRecord is one row of the capture ledger, unique per
// (user, creature, variant).
type CaptureRecord struct {
	UserID     string    `json:"user_id"`
	CreatureID int64     `json:"creature_id"`
	Variant    Variant   `json:"variant"`
	CapturedAt time.Time `json:"captured_at"`
}

// CaptureKey identifies one ledger row.
type CaptureKey struct {
	CreatureID int64
	Variant    Variant
}
