package triprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

var (
	_ triprepo.Repository     = (*Repo)(nil)
	_ activityrepo.Repository = (*Repo)(nil)
	_ triplogrepo.Repository  = (*Repo)(nil)
)

// Repo is an in-memory store for the whole trip aggregate: trips, memberships, cities,
// activities and trip logs. Keeping them behind one mutex gives trip deletion its cascade
// and ownership transfer its atomicity.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID         map[domain.TripID]domain.Trip
	idByCode     map[string]domain.TripID
	cityTrip     map[domain.CityID]domain.TripID
	activityCity map[domain.ActivityID]domain.CityID
	logs         map[domain.TripID][]domain.TripLog
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.TripID]domain.Trip),
		idByCode:     make(map[string]domain.TripID),
		cityTrip:     make(map[domain.CityID]domain.TripID),
		activityCity: make(map[domain.ActivityID]domain.CityID),
		logs:         make(map[domain.TripID][]domain.TripLog),
	}
}

func (r *Repo) Create(ctx context.Context, t domain.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := r.idByCode[t.ShareCode]; ok {
		return triprepo.ErrShareCodeTaken
	}
	seen := make(map[domain.UserID]struct{}, len(t.Members))
	for _, m := range t.Members {
		if _, dup := seen[m.UserID]; dup {
			return triprepo.ErrAlreadyMember
		}
		seen[m.UserID] = struct{}{}
	}

	cp := cloneTrip(t)
	for i := range cp.Cities {
		cp.Cities[i].TripID = cp.ID
	}
	for i := range cp.Members {
		cp.Members[i].TripID = cp.ID
	}
	domain.SortCities(cp.Cities)
	domain.SortMembers(cp.Members)

	r.byID[cp.ID] = cp
	r.idByCode[cp.ShareCode] = cp.ID
	r.indexCitiesLocked(cp)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return cloneTripSorted(t), nil
}

func (r *Repo) GetByShareCode(ctx context.Context, code string) (domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByCode[code]
	if !ok || code == "" {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	t, ok := r.byID[id]
	if !ok {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return cloneTripSorted(t), nil
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID) ([]domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Trip, 0)
	for _, t := range r.byID {
		if _, ok := t.MembershipOf(user); ok {
			out = append(out, cloneTripSorted(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Repo) Update(ctx context.Context, u triprepo.Update) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[u.ID]
	if !ok {
		return triprepo.ErrNotFound
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Cities != nil {
		r.unindexCitiesLocked(t)
		t.Cities = cloneCities(*u.Cities)
		for i := range t.Cities {
			t.Cities[i].TripID = t.ID
		}
		domain.SortCities(t.Cities)
		r.indexCitiesLocked(t)
	}
	t.UpdatedAt = u.UpdatedAt
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.ErrNotFound
	}
	r.deleteLocked(t)
	return nil
}

func (r *Repo) Dissolve(ctx context.Context, id domain.TripID, last domain.MembershipID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.ErrNotFound
	}
	if len(t.Members) != 1 || t.Members[0].ID != last {
		return triprepo.ErrOwnershipChanged
	}
	r.deleteLocked(t)
	return nil
}

func (r *Repo) deleteLocked(t domain.Trip) {
	r.unindexCitiesLocked(t)
	delete(r.idByCode, t.ShareCode)
	delete(r.logs, t.ID)
	delete(r.byID, t.ID)
}

func (r *Repo) SetShareCode(ctx context.Context, id domain.TripID, code string, updatedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.ErrNotFound
	}
	if owner, taken := r.idByCode[code]; taken && owner != id {
		return triprepo.ErrShareCodeTaken
	}
	delete(r.idByCode, t.ShareCode)
	t.ShareCode = code
	t.ShareCodeActive = true
	t.UpdatedAt = updatedAt
	r.idByCode[code] = id
	r.byID[id] = t
	return nil
}

func (r *Repo) SetShareCodeActive(ctx context.Context, id domain.TripID, active bool, updatedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.ErrNotFound
	}
	t.ShareCodeActive = active
	t.UpdatedAt = updatedAt
	r.byID[id] = t
	return nil
}

func (r *Repo) AddMember(ctx context.Context, m domain.Membership) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[m.TripID]
	if !ok {
		return triprepo.ErrNotFound
	}
	if _, exists := t.MembershipOf(m.UserID); exists {
		return triprepo.ErrAlreadyMember
	}
	t.Members = append(cloneMembers(t.Members), m)
	domain.SortMembers(t.Members)
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) RemoveMember(ctx context.Context, tripID domain.TripID, id domain.MembershipID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[tripID]
	if !ok {
		return triprepo.ErrNotFound
	}
	idx := indexOfMembership(t.Members, id)
	if idx < 0 {
		return triprepo.ErrMembershipNotFound
	}
	if t.Members[idx].Role != domain.RoleMember {
		return triprepo.ErrOwnershipChanged
	}
	members := cloneMembers(t.Members)
	t.Members = append(members[:idx], members[idx+1:]...)
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) TransferOwnership(ctx context.Context, tr triprepo.OwnershipTransfer) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[tr.TripID]
	if !ok {
		return triprepo.ErrNotFound
	}

	// Validate everything before touching state so a failure leaves the trip as it was.
	fromIdx := indexOfMembership(t.Members, tr.From.ID)
	toIdx := indexOfMembership(t.Members, tr.To.ID)
	if fromIdx < 0 || toIdx < 0 || fromIdx == toIdx {
		return triprepo.ErrOwnershipChanged
	}
	if t.CreatorID != tr.From.UserID || t.Members[fromIdx].Role != domain.RoleCreator {
		return triprepo.ErrOwnershipChanged
	}

	members := cloneMembers(t.Members)
	members[toIdx].Role = domain.RoleCreator
	members = append(members[:fromIdx], members[fromIdx+1:]...)

	t.Members = members
	t.CreatorID = tr.To.UserID
	t.UpdatedAt = tr.UpdatedAt
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) indexCitiesLocked(t domain.Trip) {
	for _, c := range t.Cities {
		r.cityTrip[c.ID] = t.ID
		for _, a := range c.Activities {
			r.activityCity[a.ID] = c.ID
		}
	}
}

func (r *Repo) unindexCitiesLocked(t domain.Trip) {
	for _, c := range t.Cities {
		delete(r.cityTrip, c.ID)
		for _, a := range c.Activities {
			delete(r.activityCity, a.ID)
		}
	}
}

func indexOfMembership(ms []domain.Membership, id domain.MembershipID) int {
	for i, m := range ms {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func cloneTrip(t domain.Trip) domain.Trip {
	cp := t
	cp.Cities = cloneCities(t.Cities)
	cp.Members = cloneMembers(t.Members)
	return cp
}

func cloneTripSorted(t domain.Trip) domain.Trip {
	cp := cloneTrip(t)
	for i := range cp.Cities {
		domain.SortActivities(cp.Cities[i].Activities)
	}
	return cp
}

func cloneMembers(ms []domain.Membership) []domain.Membership {
	if ms == nil {
		return nil
	}
	return append([]domain.Membership(nil), ms...)
}

func cloneCities(cs []domain.City) []domain.City {
	if cs == nil {
		return nil
	}
	out := make([]domain.City, len(cs))
	for i, c := range cs {
		out[i] = cloneCity(c)
	}
	return out
}

func cloneCity(c domain.City) domain.City {
	cp := c
	cp.DepartDate = cloneTimePtr(c.DepartDate)
	cp.Notes = cloneStringPtr(c.Notes)
	if c.Activities != nil {
		cp.Activities = make([]domain.Activity, len(c.Activities))
		for i, a := range c.Activities {
			cp.Activities[i] = cloneActivity(a)
		}
	}
	return cp
}

func cloneActivity(a domain.Activity) domain.Activity {
	cp := a
	cp.Date = cloneTimePtr(a.Date)
	cp.Description = cloneStringPtr(a.Description)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
