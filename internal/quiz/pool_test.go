package quiz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edvance/edvance-lms/internal/lockout"
)

func makePool(n int) []Question {
	out := make([]Question, n)
	for i := range out {
		out[i] = Question{ID: fmt.Sprintf("q%02d", i), UnitID: "u1", Points: 1}
	}
	return out
}

func TestSelectQuestionsWithoutReplacement(t *testing.T) {
	pool := makePool(20)
	qs := SelectQuestions(pool, 8, AttemptSeed("s1", "u1", 0))
	if len(qs) != 8 {
		t.Fatalf("got %d questions, want 8", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSelectQuestionsDeterministic(t *testing.T) {
	pool := makePool(20)
	seed := AttemptSeed("s1", "u1", 2)
	a := SelectQuestions(pool, 8, seed)
	b := SelectQuestions(pool, 8, seed)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed must draw the same set, diverged at %d", i)
		}
	}
}

func TestSelectQuestionsVariesAcrossAttempts(t *testing.T) {
	pool := makePool(30)
	ids := func(qs []Question) string {
		s := ""
		for _, q := range qs {
			s += q.ID + ","
		}
		return s
	}
	a := ids(SelectQuestions(pool, 10, AttemptSeed("s1", "u1", 0)))
	b := ids(SelectQuestions(pool, 10, AttemptSeed("s1", "u1", 1)))
	c := ids(SelectQuestions(pool, 10, AttemptSeed("s2", "u1", 0)))
	if a == b {
		t.Fatalf("consecutive attempt indexes drew identical sets")
	}
	if a == c {
		t.Fatalf("different students drew identical sets")
	}
}

func TestSelectQuestionsSmallPool(t *testing.T) {
	pool := makePool(3)
	qs := SelectQuestions(pool, 10, 42)
	if len(qs) != 3 {
		t.Fatalf("ask for more than the pool holds: got %d, want all 3", len(qs))
	}
}

func TestStripAnswerKeysCopies(t *testing.T) {
	pool := []Question{{ID: "q1", AnswerKey: []string{"a"}}}
	stripped := StripAnswerKeys(pool)
	if stripped[0].AnswerKey != nil {
		t.Fatalf("key not stripped")
	}
	if pool[0].AnswerKey == nil {
		t.Fatalf("original slice must be untouched")
	}
}

func TestPoolAnalyticsExactCounts(t *testing.T) {
	locks := lockout.NewInMemoryStore()
	store := NewInMemoryStore(locks)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.PutQuestion(ctx, Question{ID: fmt.Sprintf("q%d", i), UnitID: "u1", Points: 1}); err != nil {
			t.Fatalf("PutQuestion: %v", err)
		}
	}
	attempts := []Attempt{
		{ID: "a1", StudentID: "s1", UnitID: "u1", Score: 4, MaxScore: 5, Passed: true},
		{ID: "a2", StudentID: "s2", UnitID: "u1", Score: 1, MaxScore: 5, Passed: false},
		{ID: "a3", StudentID: "s3", UnitID: "u1", Score: 5, MaxScore: 5, Passed: true},
	}
	for _, a := range attempts {
		a.CreatedAt = time.Now().UTC()
		if _, err := store.CreateAttempt(ctx, a, 10); err != nil {
			t.Fatalf("CreateAttempt: %v", err)
		}
	}

	l := &Ledger{store: store}
	got, err := l.PoolAnalytics(ctx, "u1")
	if err != nil {
		t.Fatalf("PoolAnalytics: %v", err)
	}
	if got.TotalAttempts != 3 {
		t.Fatalf("total %d, want 3", got.TotalAttempts)
	}
	if got.PassedAttempts != 2 {
		t.Fatalf("passed %d, want 2", got.PassedAttempts)
	}
	want := (4.0 + 1.0 + 5.0) / 3.0
	if got.AverageScore != want {
		t.Fatalf("average %v, want %v", got.AverageScore, want)
	}
	if got.QuestionCount != 5 {
		t.Fatalf("question count %d, want 5", got.QuestionCount)
	}
}

func TestPoolAnalyticsEmpty(t *testing.T) {
	store := NewInMemoryStore(lockout.NewInMemoryStore())
	l := &Ledger{store: store}
	got, err := l.PoolAnalytics(context.Background(), "u-empty")
	if err != nil {
		t.Fatalf("PoolAnalytics: %v", err)
	}
	if got.TotalAttempts != 0 || got.AverageScore != 0 {
		t.Fatalf("empty unit must report zeros: %+v", got)
	}
}
