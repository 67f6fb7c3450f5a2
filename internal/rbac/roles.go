package rbac

import "fmt"

// Role is the tagged variant used everywhere role checks happen. String
// comparison against request payloads is confined to ParseRole.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleHOD     Role = "hod"
	RoleDean    Role = "dean"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleHOD, RoleDean, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Scope is the reach of a role's unlock authority.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSection
	ScopeDepartment
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeSection:
		return "section"
	case ScopeDepartment:
		return "department"
	case ScopeGlobal:
		return "global"
	default:
		return "none"
	}
}

// UnlockScope maps each role to the widest population it may clear locks
// for. Checked once at the unlock workflow boundary, not per endpoint.
var UnlockScope = map[Role]Scope{
	RoleStudent: ScopeNone,
	RoleTeacher: ScopeSection,
	RoleHOD:     ScopeDepartment,
	RoleDean:    ScopeGlobal,
	RoleAdmin:   ScopeGlobal,
}

// RolePermissions is the default endpoint-level policy.
var RolePermissions = map[Role][]string{
	RoleStudent: {
		"units:view",
		"quiz:availability",
		"quiz:attempt",
		"progress:video",
	},
	RoleTeacher: {
		"units:view",
		"units:manage",
		"quiz:availability",
		"pool:contribute",
		"pool:analytics",
		"locks:view",
		"locks:unlock",
		"unlock-request:create",
		"violations:report",
	},
	RoleHOD: {
		"units:view",
		"quiz:availability",
		"pool:analytics",
		"locks:view",
		"locks:unlock",
		"unlock-request:review",
	},
	RoleDean: {
		"units:view",
		"quiz:availability",
		"pool:analytics",
		"locks:view",
		"locks:unlock",
		"unlock-request:review",
	},
	RoleAdmin: {
		"*", // everything
	},
}
