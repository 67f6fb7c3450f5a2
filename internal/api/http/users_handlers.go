package http

import (
	"encoding/json"
	"net/http"

	"github.com/edvance/edvance-lms/internal/auth"
	"github.com/edvance/edvance-lms/internal/rbac"
)

// POST /users  (admin) { "username", "password", "role", "section_id", "department_id" }
func CreateUserHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username     string `json:"username"`
			Password     string `json:"password"`
			Role         string `json:"role"`
			SectionID    string `json:"section_id"`
			DepartmentID string `json:"department_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, err := rbac.ParseRole(req.Role)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Password, role, req.SectionID, req.DepartmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// POST /users/change-password  { "old_password", "new_password" }
func ChangePasswordHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
			http.Error(w, "old_password and new_password required", http.StatusBadRequest)
			return
		}
		if err := users.ChangePassword(r.Context(), id.Subject, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
