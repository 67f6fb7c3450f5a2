package lockout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/rbac"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetQuizLock(ctx context.Context, studentID, unitID string) (QuizLock, error) {
	row := s.db.QueryRowContext(ctx, `SELECT is_locked,reason,locked_at,version
		FROM quiz_locks WHERE student_id=$1 AND unit_id=$2`, studentID, unitID)
	l := QuizLock{StudentID: studentID, UnitID: unitID}
	var locked int
	var lockedAt sql.NullInt64
	err := row.Scan(&locked, &l.Reason, &lockedAt, &l.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return l, nil // lazily created on first lock
	}
	if err != nil {
		return QuizLock{}, err
	}
	l.Locked = locked != 0
	if lockedAt.Valid {
		t := time.Unix(lockedAt.Int64, 0).UTC()
		l.LockedAt = &t
	}
	return l, nil
}

func (s *SQLStore) UpsertQuizLock(ctx context.Context, l QuizLock, audit AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertQuizLockTx(ctx, tx, l); err != nil {
		return err
	}
	if err := appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertQuizLockTx(ctx context.Context, tx *sql.Tx, l QuizLock) error {
	var lockedAt interface{}
	if l.LockedAt != nil {
		lockedAt = l.LockedAt.Unix()
	}
	if l.Version == 0 {
		res, err := tx.ExecContext(ctx, `INSERT INTO quiz_locks
			(student_id,unit_id,is_locked,reason,locked_at,version)
			VALUES ($1,$2,$3,$4,$5,1)
			ON CONFLICT (student_id, unit_id) DO NOTHING`,
			l.StudentID, l.UnitID, boolInt(l.Locked), l.Reason, lockedAt)
		if err != nil {
			return err
		}
		return requireRow(res, "quiz lock insert", l.StudentID, l.UnitID)
	}
	res, err := tx.ExecContext(ctx, `UPDATE quiz_locks
		SET is_locked=$1, reason=$2, locked_at=$3, version=version+1
		WHERE student_id=$4 AND unit_id=$5 AND version=$6`,
		boolInt(l.Locked), l.Reason, lockedAt, l.StudentID, l.UnitID, l.Version)
	if err != nil {
		return err
	}
	return requireRow(res, "quiz lock update", l.StudentID, l.UnitID)
}

func (s *SQLStore) GetSecurityLock(ctx context.Context, studentID, unitID string) (SecurityLock, error) {
	row := s.db.QueryRowContext(ctx, `SELECT is_locked,violation_count,reason,locked_at,version
		FROM security_locks WHERE student_id=$1 AND unit_id=$2`, studentID, unitID)
	l := SecurityLock{StudentID: studentID, UnitID: unitID}
	var locked int
	var lockedAt sql.NullInt64
	err := row.Scan(&locked, &l.ViolationCount, &l.Reason, &lockedAt, &l.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return l, nil
	}
	if err != nil {
		return SecurityLock{}, err
	}
	l.Locked = locked != 0
	if lockedAt.Valid {
		t := time.Unix(lockedAt.Int64, 0).UTC()
		l.LockedAt = &t
	}
	return l, nil
}

func (s *SQLStore) UpsertSecurityLock(ctx context.Context, l SecurityLock, audit AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertSecurityLockTx(ctx, tx, l); err != nil {
		return err
	}
	if err := appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertSecurityLockTx(ctx context.Context, tx *sql.Tx, l SecurityLock) error {
	var lockedAt interface{}
	if l.LockedAt != nil {
		lockedAt = l.LockedAt.Unix()
	}
	if l.Version == 0 {
		res, err := tx.ExecContext(ctx, `INSERT INTO security_locks
			(student_id,unit_id,is_locked,violation_count,reason,locked_at,version)
			VALUES ($1,$2,$3,$4,$5,$6,1)
			ON CONFLICT (student_id, unit_id) DO NOTHING`,
			l.StudentID, l.UnitID, boolInt(l.Locked), l.ViolationCount, l.Reason, lockedAt)
		if err != nil {
			return err
		}
		return requireRow(res, "security lock insert", l.StudentID, l.UnitID)
	}
	res, err := tx.ExecContext(ctx, `UPDATE security_locks
		SET is_locked=$1, violation_count=$2, reason=$3, locked_at=$4, version=version+1
		WHERE student_id=$5 AND unit_id=$6 AND version=$7`,
		boolInt(l.Locked), l.ViolationCount, l.Reason, lockedAt, l.StudentID, l.UnitID, l.Version)
	if err != nil {
		return err
	}
	return requireRow(res, "security lock update", l.StudentID, l.UnitID)
}

// ClearBoth clears quiz and security locks in one transaction. Rows that do
// not exist yet are left absent: an absent row already reads as unlocked.
func (s *SQLStore) ClearBoth(ctx context.Context, studentID, unitID string, entries []AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE quiz_locks
		SET is_locked=0, reason='', locked_at=NULL, version=version+1
		WHERE student_id=$1 AND unit_id=$2`, studentID, unitID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE security_locks
		SET is_locked=0, reason='', locked_at=NULL, version=version+1
		WHERE student_id=$1 AND unit_id=$2`, studentID, unitID); err != nil {
		return err
	}
	for _, e := range entries {
		if err := appendAuditTx(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func appendAuditTx(ctx context.Context, tx *sql.Tx, e AuditEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO lock_audit
		(id,lock_type,student_id,unit_id,actor,actor_role,action,note,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, string(e.LockType), e.StudentID, e.UnitID, e.Actor, string(e.ActorRole),
		string(e.Action), e.Note, e.CreatedAt.Unix())
	return err
}

func (s *SQLStore) ListAudit(ctx context.Context, studentID, unitID string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,lock_type,student_id,unit_id,actor,actor_role,action,note,created_at
		FROM lock_audit WHERE student_id=$1 AND unit_id=$2 ORDER BY seq`, studentID, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var lockType, role, action string
		var created int64
		if err := rows.Scan(&e.ID, &lockType, &e.StudentID, &e.UnitID, &e.Actor, &role, &action, &e.Note, &created); err != nil {
			return nil, err
		}
		e.LockType = LockType(lockType)
		e.ActorRole = rbac.Role(role)
		e.Action = AuditAction(action)
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateRequest(ctx context.Context, r UnlockRequest) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO unlock_requests
		(id,student_id,unit_id,requested_by,reason,status,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.StudentID, r.UnitID, r.RequestedBy, r.Reason, string(r.Status), r.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetRequest(ctx context.Context, id string) (UnlockRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,student_id,unit_id,requested_by,reason,status,reviewed_by,review_note,created_at,reviewed_at
		FROM unlock_requests WHERE id=$1`, id)
	return scanRequest(row)
}

func (s *SQLStore) ListRequests(ctx context.Context, status RequestStatus) ([]UnlockRequest, error) {
	q := `SELECT id,student_id,unit_id,requested_by,reason,status,reviewed_by,review_note,created_at,reviewed_at
		FROM unlock_requests`
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx, q+` WHERE status=$1 ORDER BY created_at`, string(status))
	} else {
		rows, err = s.db.QueryContext(ctx, q+` ORDER BY created_at`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnlockRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolveRequest flips pending to a terminal status with a conditional
// update; a request already resolved leaves zero rows affected.
func (s *SQLStore) ResolveRequest(ctx context.Context, id string, to RequestStatus, reviewedBy, note string) (UnlockRequest, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE unlock_requests
		SET status=$1, reviewed_by=$2, review_note=$3, reviewed_at=$4
		WHERE id=$5 AND status='pending'`,
		string(to), reviewedBy, note, time.Now().Unix(), id)
	if err != nil {
		return UnlockRequest{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return UnlockRequest{}, err
	}
	if n == 0 {
		cur, err := s.GetRequest(ctx, id)
		if err != nil {
			return UnlockRequest{}, err
		}
		return UnlockRequest{}, apperr.InvalidTransition("unlock request %s already %s", id, cur.Status)
	}
	return s.GetRequest(ctx, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (UnlockRequest, error) {
	var r UnlockRequest
	var status string
	var created int64
	var reviewed sql.NullInt64
	err := row.Scan(&r.ID, &r.StudentID, &r.UnitID, &r.RequestedBy, &r.Reason,
		&status, &r.ReviewedBy, &r.ReviewNote, &created, &reviewed)
	if errors.Is(err, sql.ErrNoRows) {
		return UnlockRequest{}, apperr.NotFound("unlock request not found")
	}
	if err != nil {
		return UnlockRequest{}, err
	}
	r.Status = RequestStatus(status)
	r.CreatedAt = time.Unix(created, 0).UTC()
	if reviewed.Valid {
		t := time.Unix(reviewed.Int64, 0).UTC()
		r.ReviewedAt = &t
	}
	return r, nil
}

func requireRow(res sql.Result, op, studentID, unitID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ConflictingUpdate("%s lost race for %s/%s", op, studentID, unitID)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
