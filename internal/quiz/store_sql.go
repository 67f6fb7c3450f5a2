package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/lockout"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	cj, err := json.Marshal(q.Choices)
	if err != nil {
		return err
	}
	kj, err := json.Marshal(q.AnswerKey)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO pool_questions
		(id,unit_id,author_id,qtype,prompt,choices_json,answer_key_json,points,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
		  qtype=EXCLUDED.qtype, prompt=EXCLUDED.prompt, choices_json=EXCLUDED.choices_json,
		  answer_key_json=EXCLUDED.answer_key_json, points=EXCLUDED.points`,
		q.ID, q.UnitID, q.AuthorID, q.Type, q.Prompt, string(cj), string(kj), q.Points, time.Now().Unix())
	return err
}

func (s *SQLStore) ListQuestions(ctx context.Context, unitID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,unit_id,author_id,qtype,prompt,choices_json,answer_key_json,points,created_at
		FROM pool_questions WHERE unit_id=$1 ORDER BY id`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		var cj, kj string
		if err := rows.Scan(&q.ID, &q.UnitID, &q.AuthorID, &q.Type, &q.Prompt, &cj, &kj, &q.Points, &q.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cj), &q.Choices); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(kj), &q.AnswerKey); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// CreateAttempt inserts the attempt and, on the boundary attempt without a
// pass, trips the quiz lock — all in one transaction. The count check and
// insert ride a row lock on quiz_locks so two concurrent boundary
// submissions serialize rather than both slipping under the limit.
func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt, limit int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Ensure a quiz_locks row exists to anchor the serialization point.
	if _, err := tx.ExecContext(ctx, `INSERT INTO quiz_locks (student_id,unit_id,is_locked,reason,version)
		VALUES ($1,$2,0,'',0) ON CONFLICT (student_id, unit_id) DO NOTHING`,
		a.StudentID, a.UnitID); err != nil {
		return false, err
	}
	lockRow := `SELECT version FROM quiz_locks WHERE student_id=$1 AND unit_id=$2`
	if s.driver == "postgres" {
		lockRow += ` FOR UPDATE` // sqlite serializes writers globally
	}
	var lockVersion int64
	if err := tx.QueryRowContext(ctx, lockRow, a.StudentID, a.UnitID).Scan(&lockVersion); err != nil {
		return false, err
	}

	var taken int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts
		WHERE student_id=$1 AND unit_id=$2`, a.StudentID, a.UnitID).Scan(&taken); err != nil {
		return false, err
	}
	if taken >= limit {
		return false, apperr.AttemptLimitReached("attempts taken %d of %d", taken, limit)
	}

	qj, err := json.Marshal(a.QuestionIDs)
	if err != nil {
		return false, err
	}
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id,student_id,unit_id,question_ids_json,answers_json,score,max_score,passed,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.StudentID, a.UnitID, string(qj), string(aj), a.Score, a.MaxScore,
		boolInt(a.Passed), a.CreatedAt.Unix()); err != nil {
		return false, err
	}

	locked := false
	if taken+1 == limit && !a.Passed {
		now := time.Now().Unix()
		if _, err := tx.ExecContext(ctx, `UPDATE quiz_locks
			SET is_locked=1, reason=$1, locked_at=$2, version=version+1
			WHERE student_id=$3 AND unit_id=$4`,
			lockout.ReasonAttemptLimit, now, a.StudentID, a.UnitID); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO lock_audit
			(id,lock_type,student_id,unit_id,actor,actor_role,action,note,created_at)
			VALUES ($1,$2,$3,$4,'system','','lock',$5,$6)`,
			uuid.NewString(), string(lockout.LockTypeQuiz), a.StudentID, a.UnitID,
			lockout.ReasonAttemptLimit, now); err != nil {
			return false, err
		}
		locked = true
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return locked, nil
}

func (s *SQLStore) CountAttempts(ctx context.Context, studentID, unitID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts
		WHERE student_id=$1 AND unit_id=$2`, studentID, unitID).Scan(&n)
	return n, err
}

func (s *SQLStore) ListStudentAttempts(ctx context.Context, studentID, unitID string) ([]Attempt, error) {
	return s.listAttempts(ctx, `SELECT id,student_id,unit_id,question_ids_json,answers_json,score,max_score,passed,created_at
		FROM quiz_attempts WHERE student_id=$1 AND unit_id=$2 ORDER BY created_at`, studentID, unitID)
}

func (s *SQLStore) ListUnitAttempts(ctx context.Context, unitID string) ([]Attempt, error) {
	return s.listAttempts(ctx, `SELECT id,student_id,unit_id,question_ids_json,answers_json,score,max_score,passed,created_at
		FROM quiz_attempts WHERE unit_id=$1 ORDER BY created_at`, unitID)
}

func (s *SQLStore) listAttempts(ctx context.Context, query string, args ...interface{}) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var qj, aj string
		var passed int
		var created int64
		if err := rows.Scan(&a.ID, &a.StudentID, &a.UnitID, &qj, &aj, &a.Score, &a.MaxScore, &passed, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(qj), &a.QuestionIDs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
			return nil, err
		}
		a.Passed = passed != 0
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
