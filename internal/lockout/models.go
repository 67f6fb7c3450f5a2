// Package lockout owns QuizLock and SecurityLock state. Lock booleans are
// flipped only through the managers and the unlock workflow; every flip
// appends to the audit trail.
package lockout

import (
	"time"

	"github.com/edvance/edvance-lms/internal/rbac"
)

// QuizLock is the attempt-limit lock for one (student, unit).
type QuizLock struct {
	StudentID string     `json:"student_id"`
	UnitID    string     `json:"unit_id"`
	Locked    bool       `json:"is_locked"`
	Reason    string     `json:"reason,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	Version   int64      `json:"-"`
}

// SecurityLock is the proctoring-violation lock for one (student, unit).
// Kept distinct from QuizLock: it is triggered by integrity violations, not
// attempt exhaustion, and higher-tier unlocks must clear both.
type SecurityLock struct {
	StudentID      string     `json:"student_id"`
	UnitID         string     `json:"unit_id"`
	Locked         bool       `json:"is_locked"`
	ViolationCount int        `json:"violation_count"`
	Reason         string     `json:"reason,omitempty"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	Version        int64      `json:"-"`
}

type LockType string

const (
	LockTypeQuiz     LockType = "quiz"
	LockTypeSecurity LockType = "security"
)

type AuditAction string

const (
	ActionLock   AuditAction = "lock"
	ActionUnlock AuditAction = "unlock"
)

// AuditEntry is one append-only line of lock history.
type AuditEntry struct {
	ID        string      `json:"id"`
	LockType  LockType    `json:"lock_type"`
	StudentID string      `json:"student_id"`
	UnitID    string      `json:"unit_id"`
	Actor     string      `json:"actor"`
	ActorRole rbac.Role   `json:"actor_role"`
	Action    AuditAction `json:"action"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// UnlockRequest is a teacher-initiated request for a higher-tier sign-off.
// It transitions to a terminal status exactly once.
type UnlockRequest struct {
	ID          string        `json:"id"`
	StudentID   string        `json:"student_id"`
	UnitID      string        `json:"unit_id"`
	RequestedBy string        `json:"requested_by"`
	Reason      string        `json:"reason,omitempty"`
	Status      RequestStatus `json:"status"`
	ReviewedBy  string        `json:"reviewed_by,omitempty"`
	ReviewNote  string        `json:"review_note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty"`
}

// LockStatus bundles both locks plus history for dashboard reads.
type LockStatus struct {
	Quiz     QuizLock     `json:"quiz"`
	Security SecurityLock `json:"security"`
	History  []AuditEntry `json:"history,omitempty"`
}
