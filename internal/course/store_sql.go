package course

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses
		(id,title,section_id,department_id,completion_rule,attempt_limit,pass_threshold,quiz_size,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
		  title=EXCLUDED.title, section_id=EXCLUDED.section_id,
		  department_id=EXCLUDED.department_id, completion_rule=EXCLUDED.completion_rule,
		  attempt_limit=EXCLUDED.attempt_limit, pass_threshold=EXCLUDED.pass_threshold,
		  quiz_size=EXCLUDED.quiz_size`,
		c.ID, c.Title, c.SectionID, c.DepartmentID, string(c.Rule),
		c.AttemptLimit, c.PassThreshold, c.QuizSize, time.Now().Unix())
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,section_id,department_id,
		completion_rule,attempt_limit,pass_threshold,quiz_size,created_at
		FROM courses WHERE id=$1`, id)
	var c Course
	var rule string
	err := row.Scan(&c.ID, &c.Title, &c.SectionID, &c.DepartmentID,
		&rule, &c.AttemptLimit, &c.PassThreshold, &c.QuizSize, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, apperr.NotFound("course %s", id)
	}
	if err != nil {
		return Course{}, err
	}
	c.Rule = CompletionRule(rule)
	return c, nil
}

func (s *SQLStore) PutUnit(ctx context.Context, u Unit) error {
	var deadline interface{}
	if u.Deadline.Enabled && !u.Deadline.At.IsZero() {
		deadline = u.Deadline.At.Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO units
		(id,course_id,unit_number,title,video_count,has_deadline,deadline,deadline_desc,strict_deadline,warning_days,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
		  course_id=EXCLUDED.course_id, unit_number=EXCLUDED.unit_number,
		  title=EXCLUDED.title, video_count=EXCLUDED.video_count,
		  has_deadline=EXCLUDED.has_deadline, deadline=EXCLUDED.deadline,
		  deadline_desc=EXCLUDED.deadline_desc, strict_deadline=EXCLUDED.strict_deadline,
		  warning_days=EXCLUDED.warning_days`,
		u.ID, u.CourseID, u.Number, u.Title, u.VideoCount,
		boolInt(u.Deadline.Enabled), deadline, u.Deadline.Description,
		boolInt(u.Deadline.Strict), u.Deadline.WarningDays, time.Now().Unix())
	return err
}

func (s *SQLStore) GetUnit(ctx context.Context, id string) (Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,course_id,unit_number,title,video_count,
		has_deadline,deadline,deadline_desc,strict_deadline,warning_days,created_at
		FROM units WHERE id=$1`, id)
	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Unit{}, apperr.NotFound("unit %s", id)
	}
	return u, err
}

func (s *SQLStore) ListUnits(ctx context.Context, courseID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,course_id,unit_number,title,video_count,
		has_deadline,deadline,deadline_desc,strict_deadline,warning_days,created_at
		FROM units WHERE course_id=$1 ORDER BY unit_number`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row rowScanner) (Unit, error) {
	var u Unit
	var hasDL, strict int
	var deadline sql.NullInt64
	err := row.Scan(&u.ID, &u.CourseID, &u.Number, &u.Title, &u.VideoCount,
		&hasDL, &deadline, &u.Deadline.Description, &strict, &u.Deadline.WarningDays, &u.CreatedAt)
	if err != nil {
		return Unit{}, err
	}
	u.Deadline.Enabled = hasDL != 0
	u.Deadline.Strict = strict != 0
	if deadline.Valid {
		u.Deadline.At = time.Unix(deadline.Int64, 0).UTC()
	}
	return u, nil
}

func (s *SQLStore) GetProgress(ctx context.Context, studentID, unitID string) (Progress, error) {
	row := s.db.QueryRowContext(ctx, `SELECT student_id,unit_id,course_id,videos_watched,quiz_passed,updated_at,version
		FROM student_progress WHERE student_id=$1 AND unit_id=$2`, studentID, unitID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, nil // absent record means zero progress
	}
	return p, err
}

func (s *SQLStore) ListProgress(ctx context.Context, studentID, courseID string) (map[string]Progress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT student_id,unit_id,course_id,videos_watched,quiz_passed,updated_at,version
		FROM student_progress WHERE student_id=$1 AND course_id=$2`, studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out[p.UnitID] = p
	}
	return out, rows.Err()
}

func scanProgress(row rowScanner) (Progress, error) {
	var p Progress
	var passed int
	var updated int64
	err := row.Scan(&p.StudentID, &p.UnitID, &p.CourseID, &p.VideosWatched, &passed, &updated, &p.Version)
	if err != nil {
		return Progress{}, err
	}
	p.QuizPassed = passed != 0
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}

// UpsertProgress is a version-guarded write: the UPDATE only lands when the
// stored version still matches the one the caller read.
func (s *SQLStore) UpsertProgress(ctx context.Context, p Progress) error {
	if p.Version == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO student_progress
			(student_id,unit_id,course_id,videos_watched,quiz_passed,updated_at,version)
			VALUES ($1,$2,$3,$4,$5,$6,1)
			ON CONFLICT (student_id, unit_id) DO NOTHING`,
			p.StudentID, p.UnitID, p.CourseID, p.VideosWatched, boolInt(p.QuizPassed), p.UpdatedAt.Unix())
		if err != nil {
			return err
		}
		// A concurrent insert leaves our row untouched; detect it.
		cur, err := s.GetProgress(ctx, p.StudentID, p.UnitID)
		if err != nil {
			return err
		}
		if cur.Version != 1 || cur.VideosWatched != p.VideosWatched || cur.QuizPassed != p.QuizPassed {
			return apperr.ConflictingUpdate("progress %s/%s insert raced", p.StudentID, p.UnitID)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `UPDATE student_progress
		SET videos_watched=$1, quiz_passed=$2, updated_at=$3, version=version+1
		WHERE student_id=$4 AND unit_id=$5 AND version=$6`,
		p.VideosWatched, boolInt(p.QuizPassed), p.UpdatedAt.Unix(), p.StudentID, p.UnitID, p.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ConflictingUpdate("progress %s/%s version %d", p.StudentID, p.UnitID, p.Version)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
