package quiz

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// AttemptSeed derives a deterministic seed per (student, unit, attempt
// index). The same attempt always sees the same question set, while
// consecutive attempts see different ones.
func AttemptSeed(studentID, unitID string, attemptIndex int) int64 {
	h := fnv.New64a()
	h.Write([]byte(studentID))
	h.Write([]byte{0})
	h.Write([]byte(unitID))
	h.Write([]byte{0})
	h.Write([]byte{byte(attemptIndex), byte(attemptIndex >> 8)})
	return int64(h.Sum64())
}

// SelectQuestions draws n questions from the pool without replacement using
// the seed. The pool must already be in a stable order (stores list by id).
func SelectQuestions(pool []Question, n int, seed int64) []Question {
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(pool))
	out := make([]Question, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

// StripAnswerKeys hides answers from students; the ledger grades against the
// full pool copy.
func StripAnswerKeys(qs []Question) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	for i := range out {
		out[i].AnswerKey = nil
	}
	return out
}

// PoolAnalytics scans the unit's recorded attempts. Counts mirror the
// attempt set exactly: every submission counts once, pass or fail.
func (l *Ledger) PoolAnalytics(ctx context.Context, unitID string) (Analytics, error) {
	attempts, err := l.store.ListUnitAttempts(ctx, unitID)
	if err != nil {
		return Analytics{}, err
	}
	qs, err := l.store.ListQuestions(ctx, unitID)
	if err != nil {
		return Analytics{}, err
	}

	out := Analytics{UnitID: unitID, QuestionCount: len(qs)}
	sum := 0.0
	for _, a := range attempts {
		out.TotalAttempts++
		if a.Passed {
			out.PassedAttempts++
		}
		sum += a.Score
	}
	if out.TotalAttempts > 0 {
		out.AverageScore = sum / float64(out.TotalAttempts)
	}
	return out, nil
}
