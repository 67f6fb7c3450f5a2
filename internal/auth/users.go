package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/lockout"
	"github.com/edvance/edvance-lms/internal/rbac"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PassHash     string    `json:"-"`
	Role         rbac.Role `json:"role"`
	SectionID    string    `json:"section_id,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
}

// UserStore reads and writes the users table. It doubles as the workflow's
// directory: a student's section/department scope comes from here.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,username,pass_hash,role,section_id,department_id
		FROM users WHERE username=$1`, username)
	return scanUser(row)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,username,pass_hash,role,section_id,department_id
		FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PassHash, &role, &u.SectionID, &u.DepartmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, err
	}
	u.Role = rbac.Role(role)
	return u, nil
}

// Create hashes the password and inserts the user.
func (s *UserStore) Create(ctx context.Context, username, password string, role rbac.Role, sectionID, departmentID string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PassHash:     string(hash),
		Role:         role,
		SectionID:    sectionID,
		DepartmentID: departmentID,
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id,username,pass_hash,role,section_id,department_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Username, u.PassHash, string(u.Role), u.SectionID, u.DepartmentID, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) ChangePassword(ctx context.Context, userID, oldPass, newPass string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(oldPass)) != nil {
		return apperr.Forbidden("current password does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET pass_hash=$1 WHERE id=$2`, string(hash), userID)
	return err
}

// Authenticate verifies the password and returns the user.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(password)) != nil {
		return User{}, apperr.Forbidden("invalid credentials")
	}
	return u, nil
}

// StudentScope implements lockout.Directory.
func (s *UserStore) StudentScope(ctx context.Context, studentID string) (lockout.SubjectScope, error) {
	u, err := s.GetByID(ctx, studentID)
	if err != nil {
		return lockout.SubjectScope{}, err
	}
	return lockout.SubjectScope{SectionID: u.SectionID, DepartmentID: u.DepartmentID}, nil
}
