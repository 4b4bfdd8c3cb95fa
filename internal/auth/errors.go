package auth

import "errors"

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when an Issuer is built without a signing secret.
	ErrEmptySecret = errors.New("empty signing secret")
)
