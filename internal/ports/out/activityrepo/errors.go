package activityrepo

import "errors"

var (
	// ErrCityNotFound indicates the referenced city does not exist.
	ErrCityNotFound = errors.New("city not found")

	// ErrNotFound indicates the requested activity does not exist.
	ErrNotFound = errors.New("activity not found")
)
