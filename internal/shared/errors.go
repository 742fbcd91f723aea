package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a required field was empty or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity indicates a username, role name, or permission name is already taken.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrStorageUnavailable indicates the backing store was unreachable at operation start.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrQueryFailed indicates the backing store failed mid unit of work.
	ErrQueryFailed = errors.New("query failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
