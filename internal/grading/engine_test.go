package grading

import (
	"context"
	"testing"
)

func grade(t *testing.T, q Q, response interface{}) Result {
	t.Helper()
	res, err := NewGrader().Grade(context.Background(), q, response)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	return res
}

func TestChoiceGrading(t *testing.T) {
	q := Q{Type: "mcq_single", Points: 2, AnswerKey: []string{"b"}}
	if got := grade(t, q, "b"); got.Points != 2 {
		t.Fatalf("correct choice scored %v, want 2", got.Points)
	}
	if got := grade(t, q, "a"); got.Points != 0 {
		t.Fatalf("wrong choice scored %v, want 0", got.Points)
	}
	// Non-string responses score zero, never error.
	if got := grade(t, q, 42); got.Points != 0 {
		t.Fatalf("malformed response scored %v", got.Points)
	}
}

func TestMultiChoiceNoPartialCredit(t *testing.T) {
	q := Q{Type: "mcq_multi", Points: 3, AnswerKey: []string{"a", "c"}}
	cases := []struct {
		response interface{}
		want     float64
	}{
		{[]string{"a", "c"}, 3},
		{[]string{"c", "a"}, 3}, // order-insensitive
		{[]interface{}{"a", "c"}, 3},
		{[]string{"a"}, 0},
		{[]string{"a", "b", "c"}, 0},
		{[]string{"a", "c", "c"}, 0},
	}
	for _, tc := range cases {
		if got := grade(t, q, tc.response); got.Points != tc.want {
			t.Fatalf("response %v scored %v, want %v", tc.response, got.Points, tc.want)
		}
	}
}

func TestTextMatchNormalization(t *testing.T) {
	q := Q{Type: "short_word", Points: 1, AnswerKey: []string{"Dijkstra"}}
	if got := grade(t, q, "  dijkstra. "); got.Points != 1 {
		t.Fatalf("normalized match failed")
	}
	// One typo is accepted for words of five or more runes.
	if got := grade(t, q, "dijkstr"); got.Points != 1 {
		t.Fatalf("edit distance 1 must pass")
	}
	if got := grade(t, q, "dikstr"); got.Points != 0 {
		t.Fatalf("edit distance 2 must fail")
	}
}

func TestTextMatchShortWordsExact(t *testing.T) {
	q := Q{Type: "short_word", Points: 1, AnswerKey: []string{"tcp"}}
	if got := grade(t, q, "TCP"); got.Points != 1 {
		t.Fatalf("case-insensitive match failed")
	}
	if got := grade(t, q, "tci"); got.Points != 0 {
		t.Fatalf("short answers get no fuzzy slack")
	}
}

func TestNumericTolerance(t *testing.T) {
	abs := Q{Type: "numeric", Points: 1, AnswerKey: []string{"3.14159", "tol=0.01"}}
	if got := grade(t, abs, "3.14"); got.Points != 1 {
		t.Fatalf("within absolute tolerance must pass")
	}
	if got := grade(t, abs, "3.2"); got.Points != 0 {
		t.Fatalf("outside absolute tolerance must fail")
	}

	rel := Q{Type: "numeric", Points: 1, AnswerKey: []string{"100", "reltol=0.05"}}
	if got := grade(t, rel, "104"); got.Points != 1 {
		t.Fatalf("within relative tolerance must pass")
	}
	if got := grade(t, rel, "106"); got.Points != 0 {
		t.Fatalf("outside relative tolerance must fail")
	}

	exact := Q{Type: "numeric", Points: 1, AnswerKey: []string{"42"}}
	if got := grade(t, exact, float64(42)); got.Points != 1 {
		t.Fatalf("JSON numbers arrive as float64 and must match")
	}
	if got := grade(t, exact, "42.0001"); got.Points != 0 {
		t.Fatalf("no tolerance configured, near-miss must fail")
	}
}

func TestNumericTrailingUnits(t *testing.T) {
	q := Q{Type: "numeric", Points: 1, AnswerKey: []string{"9.8", "tol=0.1"}}
	if got := grade(t, q, "9.81 m/s^2"); got.Points != 1 {
		t.Fatalf("trailing units must be tolerated")
	}
}

func TestUnknownTypeScoresZero(t *testing.T) {
	q := Q{Type: "essay", Points: 5, AnswerKey: []string{"anything"}}
	got := grade(t, q, "a long rambling answer")
	if got.Points != 0 {
		t.Fatalf("unknown type scored %v", got.Points)
	}
	if got.MaxPoints != 5 {
		t.Fatalf("max points must still count toward the denominator, got %v", got.MaxPoints)
	}
}
