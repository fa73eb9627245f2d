package service

import "errors"

var (
	// ErrMissingCredential means no credential value was supplied at all.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidCredential is returned uniformly whether a secret is
	// unknown, revoked, or expired. Callers must not be able to tell
	// those cases apart from the response; internal logs may.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrInsufficientPermission means the principal authenticated but does
	// not hold a required scope.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrValidation means a request carried malformed field values.
	ErrValidation = errors.New("validation failed")
)
