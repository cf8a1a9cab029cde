package domain

import "errors"

// Validation errors
var (
	ErrTenantRequired     = errors.New("tenant id is required")
	ErrIDRequired         = errors.New("id is required")
	ErrNameRequired       = errors.New("name is required")
	ErrContentRequired    = errors.New("content is required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidLicenseType = errors.New("invalid license type")
	ErrInvalidLimit       = errors.New("usage limits must not be negative")
	ErrInvalidMemoryType  = errors.New("invalid memory type")
	ErrInvalidRole        = errors.New("invalid message role")
	ErrInvalidStatus      = errors.New("invalid session status")
)

// Isolation errors
var (
	ErrTenantMismatch = errors.New("entity belongs to another tenant")
	ErrSessionClosed  = errors.New("session is closed")
)

// Lookup errors, used by repositories when a row is missing.
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrLicenseNotFound = errors.New("license not found")
	ErrMemoryNotFound  = errors.New("memory not found")
	ErrSkillNotFound   = errors.New("skill not found")
	ErrSessionNotFound = errors.New("session not found")
)
