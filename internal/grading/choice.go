package grading

import "context"

// choiceStrategy compares a single selected choice ID against the first
// answer key entry.
type choiceStrategy struct{}

func (choiceStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	s, ok := response.(string)
	if !ok || len(q.AnswerKey) == 0 {
		return res, nil
	}
	if s == q.AnswerKey[0] {
		res.Points = q.Points
	}
	return res, nil
}

// multiChoiceStrategy requires the selected set to equal the answer key,
// order-insensitive, no partial credit.
type multiChoiceStrategy struct{}

func (multiChoiceStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	sel, ok := toStringSlice(response)
	if !ok {
		return res, nil
	}
	if equalStringSets(sel, q.AnswerKey) {
		res.Points = q.Points
	}
	return res, nil
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}
