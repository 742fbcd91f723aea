package identity

import "time"

// User represents a dashboard account. The password hash stays inside the
// repository layer and is never carried on this struct.
type User struct {
	ID          int64
	Username    string
	Email       *string
	FullName    *string
	PhoneNumber *string
	IsAdmin     bool
	IsActive    bool
	LastLogin   *time.Time
	CreatedBy   *int64
	Extra       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUser carries the fields accepted when registering an account.
type NewUser struct {
	Username    string
	Password    string
	Email       *string
	FullName    *string
	PhoneNumber *string
	IsAdmin     bool
	CreatedBy   *int64
	Extra       *string
}

// UserPatch describes a partial update. Nil fields are left unchanged.
type UserPatch struct {
	Username    *string
	Email       *string
	FullName    *string
	PhoneNumber *string
	IsAdmin     *bool
	IsActive    *bool
}
