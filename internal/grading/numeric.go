package grading

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// numericStrategy supports exact match or numeric tolerance via AnswerKey.
// Examples:
//
//	AnswerKey: ["3.14159", "tol=0.01"]   // absolute tolerance
//	AnswerKey: ["100", "reltol=0.05"]    // 5% relative tolerance
type numericStrategy struct{}

func (numericStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	str, ok := asNumberString(response)
	if !ok || len(q.AnswerKey) == 0 {
		return res, nil
	}
	target := q.AnswerKey[0]

	if str == target {
		res.Points = q.Points
		return res, nil
	}

	rv, rOK := parseFloatLoose(str)
	tv, tOK := parseFloatLoose(target)
	if !rOK || !tOK {
		return res, nil
	}

	absTol, relTol := parseTolerances(q.AnswerKey[1:])
	diff := math.Abs(rv - tv)
	pass := absTol >= 0 && diff <= absTol
	if !pass && relTol >= 0 && diff <= relTol*math.Abs(tv) {
		pass = true
	}
	if !pass && absTol < 0 && relTol < 0 && diff == 0 {
		pass = true
	}
	if pass {
		res.Points = q.Points
	}
	return res, nil
}

func asNumberString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	}
	return "", false
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	// tolerate trailing units, e.g. "9.8 m/s^2"
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// parseTolerances returns (absTol, relTol); -1 means unset.
func parseTolerances(opts []string) (float64, float64) {
	absTol, relTol := -1.0, -1.0
	for _, o := range opts {
		o = strings.TrimSpace(o)
		if v, ok := strings.CutPrefix(o, "tol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				absTol = f
			}
		}
		if v, ok := strings.CutPrefix(o, "reltol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				relTol = f
			}
		}
	}
	return absTol, relTol
}
