package triprepo

import "errors"

var (
	ErrNotFound      = errors.New("trip not found")
	ErrAlreadyExists = errors.New("trip already exists")

	// ErrShareCodeTaken indicates the share code is already used by another trip.
	ErrShareCodeTaken = errors.New("share code already taken")

	// ErrAlreadyMember indicates the user already holds a membership in the trip.
	ErrAlreadyMember = errors.New("user is already a member of the trip")

	// ErrMembershipNotFound indicates the membership row does not exist.
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrOwnershipChanged indicates a concurrent change invalidated an ownership transfer.
	ErrOwnershipChanged = errors.New("trip ownership changed concurrently")
)
