package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken indicates another user already registered the email.
	ErrEmailTaken = errors.New("user email already registered")

	// ErrAlreadyExists indicates a user already exists with the provided ID or token.
	ErrAlreadyExists = errors.New("user already exists")
)
