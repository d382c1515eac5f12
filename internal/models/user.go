package models

import "time"

// UserRole is the portal role attached to every account.
type UserRole string

const (
	RoleStudent  UserRole = "Student"
	RoleLecturer UserRole = "Lecturer"
	RoleClassRep UserRole = "Class Rep"
	RoleAdmin    UserRole = "Admin"
)

// Roles lists every role in display order.
var Roles = []UserRole{RoleStudent, RoleLecturer, RoleClassRep, RoleAdmin}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanUpload reports whether the role may submit course materials.
func (r UserRole) CanUpload() bool {
	return r == RoleLecturer || r == RoleClassRep || r == RoleAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Department   string     `db:"department" json:"department"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination fills TotalPages as ceil(total/size).
func NewPagination(page, size, total int) *Pagination {
	p := &Pagination{Page: page, PageSize: size, TotalCount: total}
	if size > 0 {
		p.TotalPages = (total + size - 1) / size
	}
	return p
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   string
	Email    string
	FullName string
	Role     UserRole
}

// IsAdmin reports whether the actor moderates content.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
