package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates a missing or unverifiable bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
