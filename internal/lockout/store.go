package lockout

import "context"

// Store persists locks, audit history and unlock requests.
//
// Get* return a zero-valued record (not an error) when no row exists yet:
// locks are created lazily on first lock. Upsert* are version-guarded; a
// lost race surfaces as apperr.ConflictingUpdate. ClearBoth flips both lock
// booleans and appends both audit entries in a single atomic step.
type Store interface {
	GetQuizLock(ctx context.Context, studentID, unitID string) (QuizLock, error)
	UpsertQuizLock(ctx context.Context, l QuizLock, audit AuditEntry) error

	GetSecurityLock(ctx context.Context, studentID, unitID string) (SecurityLock, error)
	UpsertSecurityLock(ctx context.Context, l SecurityLock, audit AuditEntry) error

	// ClearBoth unlocks quiz and security locks together. The entries slice
	// carries one audit line per lock type; both land or neither does.
	ClearBoth(ctx context.Context, studentID, unitID string, entries []AuditEntry) error

	ListAudit(ctx context.Context, studentID, unitID string) ([]AuditEntry, error)

	CreateRequest(ctx context.Context, r UnlockRequest) error
	GetRequest(ctx context.Context, id string) (UnlockRequest, error)
	ListRequests(ctx context.Context, status RequestStatus) ([]UnlockRequest, error)
	// ResolveRequest moves a pending request to a terminal status. It fails
	// with apperr.InvalidTransition when the request is already terminal.
	ResolveRequest(ctx context.Context, id string, to RequestStatus, reviewedBy, note string) (UnlockRequest, error)
}
