package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for user, trip, city and activity names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims and lowercases an email address. Email uniqueness is case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeShareCode trims and uppercases a join code taken from a URL.
func NormalizeShareCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
