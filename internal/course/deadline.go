package course

import (
	"math"
	"time"
)

// DeadlineStatus is the evaluated view of a unit's deadline at some instant.
type DeadlineStatus struct {
	HasDeadline     bool   `json:"has_deadline"`
	IsExpired       bool   `json:"is_expired"`
	DaysRemaining   int    `json:"days_remaining"`
	InWarningWindow bool   `json:"in_warning_window"`
	Description     string `json:"description,omitempty"`
	Strict          bool   `json:"strict"`
}

// EvaluateDeadline is pure: no clock reads, no side effects. A disabled or
// zero-valued deadline evaluates as "no deadline".
func EvaluateDeadline(cfg DeadlineConfig, now time.Time) DeadlineStatus {
	if !cfg.Enabled || cfg.At.IsZero() {
		return DeadlineStatus{}
	}
	days := int(math.Floor(cfg.At.Sub(now).Hours() / 24))
	st := DeadlineStatus{
		HasDeadline:   true,
		IsExpired:     now.After(cfg.At),
		DaysRemaining: days,
		Description:   cfg.Description,
		Strict:        cfg.Strict,
	}
	st.InWarningWindow = days >= 0 && days <= cfg.WarningDays
	return st
}
