package domain

import "strings"

const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// Identity is the authenticated caller supplied by the user directory.
type Identity struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Site     string `json:"site"`
	Approved bool   `json:"approved"`
}

func (i Identity) IsAdmin() bool {
	r := strings.ToLower(i.Role)
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (i Identity) Authenticated() bool {
	return i.Email != ""
}
