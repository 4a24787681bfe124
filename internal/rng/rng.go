// Package rng provides a deterministic hash-chain random stream.
//
// Every value is a pure function of (seed, counter): the same pair always
// yields the same float across processes and time, which makes encounter
// generation replayable without persisting generator state.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

// Value returns a float in [0,1) derived from SHA-256(seed ":" counter).
// The first 4 bytes of the digest are read as a big-endian uint32 and
// divided by 2^32.
func Value(seed string, counter uint64) float64 {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatUint(counter, 10)))
	sum := h.Sum(nil)
	return float64(binary.BigEndian.Uint32(sum[:4])) / (1 << 32)
}

// Stream yields successive Value calls with an incrementing counter.
// Streams are cheap to create and safe to discard; two streams with the
// same seed produce identical sequences.
type Stream struct {
	seed    string
	counter uint64
}

// NewStream creates a stream positioned at counter zero.
func NewStream(seed string) *Stream {
	return &Stream{seed: seed}
}

// Next returns the next float in [0,1) and advances the counter.
func (s *Stream) Next() float64 {
	v := Value(s.seed, s.counter)
	s.counter++
	return v
}

// IntN returns an integer in [0,n) consuming one value. n must be > 0.
func (s *Stream) IntN(n int) int {
	return int(s.Next() * float64(n))
}

// IntRange returns an integer in [lo,hi] inclusive, consuming one value.
func (s *Stream) IntRange(lo, hi int) int {
	return lo + s.IntN(hi-lo+1)
}

// Counter reports how many values have been consumed.
func (s *Stream) Counter() uint64 {
	return s.counter
}
