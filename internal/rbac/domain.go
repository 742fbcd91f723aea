package rbac

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role represents a high-level permission grouping. Roles are flat; there is
// no inheritance between them.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedBy   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability. Module and action are display
// grouping tags only; uniqueness is on Name alone.
type Permission struct {
	ID          int64
	Name        string
	Description string
	Module      *string
	Action      *string
}

var labelCaser = cases.Title(language.English)

// ModuleLabel returns the display grouping module, defaulting to "General".
func (p Permission) ModuleLabel() string {
	if p.Module == nil || *p.Module == "" {
		return "General"
	}
	return labelCaser.String(*p.Module)
}

// ActionLabel returns the display grouping action, defaulting to "N/A".
func (p Permission) ActionLabel() string {
	if p.Action == nil || *p.Action == "" {
		return "N/A"
	}
	return labelCaser.String(*p.Action)
}

// UserRole links a user to a role.
type UserRole struct {
	UserID     int64
	RoleID     int64
	AssignedBy *int64
	CreatedAt  time.Time
}

// Member is the trimmed user view returned by assignment graph queries.
type Member struct {
	ID       int64
	Username string
	FullName *string
	IsAdmin  bool
}

// Principal describes the authenticated actor as stored, re-derived on every
// authorization decision rather than trusted from a session claim.
type Principal struct {
	ID      int64
	IsAdmin bool
}
