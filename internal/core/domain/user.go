package domain

import "time"

const (
	RoleAdmin      = "ADMIN"
	RoleFarmer     = "FARMER"
	RoleTechnician = "TECHNICIAN"
	RoleViewer     = "VIEWER"
)

// ValidRole reports whether r is one of the platform roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleFarmer, RoleTechnician, RoleViewer:
		return true
	}
	return false
}

// Two-factor enrollment states. PENDING means a secret was generated but
// never confirmed with a valid code; only ACTIVE gates login.
const (
	TwoFactorDisabled = "DISABLED"
	TwoFactorPending  = "PENDING"
	TwoFactorActive   = "ACTIVE"
)

// User models a registered principal. Users are never hard-deleted;
// access is withdrawn by clearing Active.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone,omitempty"`
	Department   string `json:"department,omitempty"`
	Community    string `json:"community,omitempty"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`

	TwoFactorState  string `json:"two_factor_state"`
	TwoFactorSecret string `json:"-"`

	LastLoginAt time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TwoFactorEnabled reports whether login requires a second factor.
func (u *User) TwoFactorEnabled() bool {
	return u.TwoFactorState == TwoFactorActive
}
