package domain

// UserID is an internal identifier for a user account.
type UserID string

// TripID is an internal identifier for a trip record.
type TripID string

// MembershipID identifies a single (trip, user) membership row.
type MembershipID string

// CityID is an internal identifier for a city stop within a trip.
type CityID string

// ActivityID is an internal identifier for an activity planned in a city.
type ActivityID string

// TripLogID identifies a trip log entry.
type TripLogID string
