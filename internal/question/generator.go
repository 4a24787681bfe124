// Package question generates stage-scaled arithmetic questions from a
// deterministic random stream.
package question

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/quizmon/quizmon/internal/domain"
	"github.com/quizmon/quizmon/internal/rng"
)

// Operator is one of the supported arithmetic operators.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "×"
)

// operandRange is an inclusive operand interval.
type operandRange struct {
	lo, hi int
}

// Stage-specific operand tables. Multiplication stays in times-table
// territory; addition and subtraction widen with stage.
var (
	addSubRanges = map[int]operandRange{
		1: {5, 99},
		2: {10, 120},
		3: {25, 200},
	}
	multiplyRanges = map[int]operandRange{
		1: {2, 12},
		2: {3, 12},
		3: {7, 12},
	}
)

// maxOptionDelta bounds the distance of distractor options from the
// correct answer.
const maxOptionDelta = 12

// Generate produces the encounter's question set for the given stage,
// consuming values from the stream. Identical (stream seed, stage) inputs
// produce identical output.
func Generate(stream *rng.Stream, stage int) []domain.QuestionRecord {
	questions := make([]domain.QuestionRecord, 0, domain.QuestionCount)
	for i := 0; i < domain.QuestionCount; i++ {
		questions = append(questions, generateOne(stream, stage, i))
	}
	return questions
}

func generateOne(stream *rng.Stream, stage, index int) domain.QuestionRecord {
	op := pickOperator(stream, stage)

	r := addSubRanges[stage]
	if op == OpMultiply {
		r = multiplyRanges[stage]
	}

	a := stream.IntRange(r.lo, r.hi)
	b := stream.IntRange(r.lo, r.hi)

	// No negative results: subtraction keeps the larger operand on the left.
	if op == OpSubtract && b > a {
		a, b = b, a
	}

	var answer int
	switch op {
	case OpAdd:
		answer = a + b
	case OpSubtract:
		answer = a - b
	case OpMultiply:
		answer = a * b
	}

	options, correctIndex := buildOptions(stream, answer)

	return domain.QuestionRecord{
		ID:           questionID(stage, op, a, b, index),
		Text:         fmt.Sprintf("%d %s %d = ?", a, op, b),
		Options:      options,
		CorrectIndex: correctIndex,
	}
}

// pickOperator consumes exactly one stream value. Stages 1 and 2 choose
// uniformly; stage 3 is biased toward multiplication (50% ×, 25% +, 25% −).
func pickOperator(stream *rng.Stream, stage int) Operator {
	if stage < 3 {
		switch stream.IntN(3) {
		case 0:
			return OpAdd
		case 1:
			return OpSubtract
		default:
			return OpMultiply
		}
	}
	v := stream.Next()
	switch {
	case v < 0.5:
		return OpMultiply
	case v < 0.75:
		return OpAdd
	default:
		return OpSubtract
	}
}

// buildOptions returns 4 unique non-negative options containing the correct
// answer exactly once, shuffled, plus the correct answer's final position.
func buildOptions(stream *rng.Stream, answer int) ([4]int, int) {
	values := []int{answer}
	for len(values) < 4 {
		delta := stream.IntRange(-maxOptionDelta, maxOptionDelta)
		if delta == 0 {
			continue
		}
		candidate := answer + delta
		if candidate < 0 {
			candidate = 0
		}
		if containsInt(values, candidate) {
			continue
		}
		values = append(values, candidate)
	}

	// Fisher-Yates on the same stream so the shuffle is part of the
	// reproducible sequence.
	for i := len(values) - 1; i > 0; i-- {
		j := stream.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}

	var options [4]int
	correctIndex := 0
	for i, v := range values {
		options[i] = v
		if v == answer {
			correctIndex = i
		}
	}
	return options, correctIndex
}

func containsInt(values []int, v int) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

// questionID derives a stable content-addressed id. Random ids would break
// replayability of a stored encounter.
func questionID(stage int, op Operator, a, b, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d|%d|%d", stage, op, a, b, index)))
	return "q_" + hex.EncodeToString(sum[:6])
}
