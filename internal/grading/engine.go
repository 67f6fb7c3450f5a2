// Package grading scores a single question response. Each question type maps
// to a Strategy; the Grader routes by type.
package grading

import "context"

// Q is the minimal view of a question needed for scoring.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading one response.
type Result struct {
	Points    float64 // points awarded
	MaxPoints float64
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

// NewGrader returns the default grader covering the pool's question types:
// mcq_single, mcq_multi, true_false, short_word, numeric.
func NewGrader() Grader {
	return &defaultGrader{strategies: map[string]Strategy{
		"mcq_single": choiceStrategy{},
		"true_false": choiceStrategy{},
		"mcq_multi":  multiChoiceStrategy{},
		"short_word": textMatchStrategy{},
		"numeric":    numericStrategy{},
	}}
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		// Unknown types score zero rather than failing the whole attempt.
		return Result{MaxPoints: q.Points}, nil
	}
	return s.Grade(ctx, q, response)
}
