package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:edvance.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/edvance?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  section_id TEXT NOT NULL DEFAULT '',
  department_id TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  section_id TEXT NOT NULL DEFAULT '',
  department_id TEXT NOT NULL DEFAULT '',
  completion_rule TEXT NOT NULL DEFAULT 'both',
  attempt_limit INTEGER NOT NULL DEFAULT 3,
  pass_threshold REAL NOT NULL DEFAULT 0.5,
  quiz_size INTEGER NOT NULL DEFAULT 10,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  unit_number INTEGER NOT NULL,
  title TEXT NOT NULL,
  video_count INTEGER NOT NULL DEFAULT 0,
  has_deadline INTEGER NOT NULL DEFAULT 0,
  deadline INTEGER,
  deadline_desc TEXT NOT NULL DEFAULT '',
  strict_deadline INTEGER NOT NULL DEFAULT 0,
  warning_days INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  UNIQUE(course_id, unit_number)
);

CREATE TABLE IF NOT EXISTS student_progress (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL,
  videos_watched INTEGER NOT NULL DEFAULT 0,
  quiz_passed INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  version INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL REFERENCES units(id),
  question_ids_json TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  max_score REAL NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_student_unit ON quiz_attempts(student_id, unit_id);

CREATE TABLE IF NOT EXISTS quiz_locks (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  locked_at INTEGER,
  version INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS security_locks (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  violation_count INTEGER NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  locked_at INTEGER,
  version INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS lock_audit (
  seq INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  id TEXT NOT NULL,
  lock_type TEXT NOT NULL,               -- quiz|security
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  actor TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  action TEXT NOT NULL,                  -- lock|unlock
  note TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lock_audit_subject ON lock_audit(student_id, unit_id);

CREATE TABLE IF NOT EXISTS unlock_requests (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  requested_by TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT NOT NULL DEFAULT '',
  review_note TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  reviewed_at INTEGER
);

CREATE TABLE IF NOT EXISTS pool_questions (
  id TEXT PRIMARY KEY,
  unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL,
  qtype TEXT NOT NULL,
  prompt TEXT NOT NULL,
  choices_json TEXT NOT NULL DEFAULT '[]',
  answer_key_json TEXT NOT NULL DEFAULT '[]',
  points REAL NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pool_questions_unit ON pool_questions(unit_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  section_id TEXT NOT NULL DEFAULT '',
  department_id TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  section_id TEXT NOT NULL DEFAULT '',
  department_id TEXT NOT NULL DEFAULT '',
  completion_rule TEXT NOT NULL DEFAULT 'both',
  attempt_limit INTEGER NOT NULL DEFAULT 3,
  pass_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.5,
  quiz_size INTEGER NOT NULL DEFAULT 10,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  unit_number INTEGER NOT NULL,
  title TEXT NOT NULL,
  video_count INTEGER NOT NULL DEFAULT 0,
  has_deadline INTEGER NOT NULL DEFAULT 0,
  deadline BIGINT,
  deadline_desc TEXT NOT NULL DEFAULT '',
  strict_deadline INTEGER NOT NULL DEFAULT 0,
  warning_days INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL,
  UNIQUE(course_id, unit_number)
);

CREATE TABLE IF NOT EXISTS student_progress (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL,
  videos_watched INTEGER NOT NULL DEFAULT 0,
  quiz_passed INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  version BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL REFERENCES units(id),
  question_ids_json TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_student_unit ON quiz_attempts(student_id, unit_id);

CREATE TABLE IF NOT EXISTS quiz_locks (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  locked_at BIGINT,
  version BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS security_locks (
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  violation_count INTEGER NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  locked_at BIGINT,
  version BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, unit_id)
);

CREATE TABLE IF NOT EXISTS lock_audit (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL,
  lock_type TEXT NOT NULL,
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  actor TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  action TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lock_audit_subject ON lock_audit(student_id, unit_id);

CREATE TABLE IF NOT EXISTS unlock_requests (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  requested_by TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT NOT NULL DEFAULT '',
  review_note TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  reviewed_at BIGINT
);

CREATE TABLE IF NOT EXISTS pool_questions (
  id TEXT PRIMARY KEY,
  unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL,
  qtype TEXT NOT NULL,
  prompt TEXT NOT NULL,
  choices_json TEXT NOT NULL DEFAULT '[]',
  answer_key_json TEXT NOT NULL DEFAULT '[]',
  points DOUBLE PRECISION NOT NULL DEFAULT 1,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pool_questions_unit ON pool_questions(unit_id);
`
