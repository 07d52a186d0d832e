package domain

import "time"

// User is a lightweight token-based account.
type User struct {
	ID    UserID
	Name  string
	Email string
	// Token is the long-lived opaque credential carried in the auth cookie.
	Token     string
	CreatedAt time.Time
}

// UserSummary is the public projection of a user shown to other trip members.
type UserSummary struct {
	ID   UserID
	Name string
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}
