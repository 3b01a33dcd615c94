// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTenantNotFound indicates no tenant matched the inbound request.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDecryptFailed indicates ciphertext authentication failed (tamper or wrong key).
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrElicitationTerminal indicates a completion attempt on an already-terminal elicitation.
	ErrElicitationTerminal = errors.New("elicitation already terminal")

	// ErrElicitationExpired indicates a completion attempt past the elicitation deadline.
	ErrElicitationExpired = errors.New("elicitation expired")

	// ErrRateLimited indicates the tenant's request budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
)
