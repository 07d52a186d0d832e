package domain

import (
	"sort"
	"time"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleMember  Role = "member"
)

// TripColors is the palette a new trip's display color is drawn from.
var TripColors = []string{
	"#3B82F6",
	"#10B981",
	"#F59E0B",
	"#EF4444",
	"#8B5CF6",
	"#EC4899",
	"#06B6D4",
	"#F97316",
}

// Membership grants a user access to a trip.
type Membership struct {
	ID       MembershipID
	TripID   TripID
	UserID   UserID
	Role     Role
	JoinedAt time.Time
}

type City struct {
	ID         CityID
	TripID     TripID
	Name       string
	Country    string
	Lat        float64
	Lng        float64
	ArriveDate time.Time  // date-only semantics at the edges
	DepartDate *time.Time // date-only semantics at the edges
	Order      int
	Notes      *string

	Activities []Activity
}

type Activity struct {
	ID          ActivityID
	CityID      CityID
	Name        string
	Date        *time.Time // date-only semantics at the edges
	Description *string
	Order       int
	CreatedAt   time.Time
}

// Trip is the aggregate root: a trip together with its ordered cities and its memberships.
//
// CreatorID always names the user holding the single RoleCreator membership.
type Trip struct {
	ID              TripID
	Name            string
	ShareCode       string
	ShareCodeActive bool
	Color           string
	CreatorID       UserID
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Cities  []City
	Members []Membership
}

// MembershipOf returns the caller's membership in the trip, if any.
func (t Trip) MembershipOf(user UserID) (Membership, bool) {
	for _, m := range t.Members {
		if m.UserID == user {
			return m, true
		}
	}
	return Membership{}, false
}

func (t Trip) IsOwner(user UserID) bool {
	return user != "" && t.CreatorID == user
}

// Successor picks who inherits ownership when departing leaves: the remaining member
// with the earliest JoinedAt, ties broken by membership ID. ok is false when nobody remains.
func (t Trip) Successor(departing UserID) (Membership, bool) {
	var (
		best  Membership
		found bool
	)
	for _, m := range t.Members {
		if m.UserID == departing {
			continue
		}
		if !found || joinedBefore(m, best) {
			best = m
			found = true
		}
	}
	return best, found
}

func joinedBefore(a, b Membership) bool {
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return a.ID < b.ID
}

// SortMembers orders memberships by join time, then membership ID.
func SortMembers(ms []Membership) {
	sort.SliceStable(ms, func(i, j int) bool { return joinedBefore(ms[i], ms[j]) })
}

// SortCities orders cities by their position in the itinerary.
func SortCities(cs []City) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Order != cs[j].Order {
			return cs[i].Order < cs[j].Order
		}
		return cs[i].ID < cs[j].ID
	})
}

// SortActivities orders activities by date (undated last), then by position.
func SortActivities(as []Activity) {
	sort.SliceStable(as, func(i, j int) bool {
		di, dj := as[i].Date, as[j].Date
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		if as[i].Order != as[j].Order {
			return as[i].Order < as[j].Order
		}
		return as[i].ID < as[j].ID
	})
}

type LogAction string

const (
	LogActionCreated         LogAction = "created"
	LogActionUpdated         LogAction = "updated"
	LogActionJoined          LogAction = "joined"
	LogActionLeft            LogAction = "left"
	LogActionLinkRevoked     LogAction = "link_revoked"
	LogActionLinkToggled     LogAction = "link_toggled"
	LogActionActivityAdded   LogAction = "activity_added"
	LogActionActivityRemoved LogAction = "activity_removed"
)

// TripLog is an append-only audit entry shown in a trip's activity feed.
type TripLog struct {
	ID        TripLogID
	TripID    TripID
	UserID    UserID
	Action    LogAction
	Details   map[string]any
	CreatedAt time.Time
}
