package service

import "errors"

var (
	// ErrUnauthorized covers missing, invalid or expired tokens, unknown
	// users and wrong credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation marks a malformed request. It is wrapped with detail.
	ErrValidation = errors.New("invalid request")
)
