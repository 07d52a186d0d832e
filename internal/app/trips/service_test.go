package trips

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	memclock "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/clock"
	memtriprepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/sharecode"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/suggester"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

type fixture struct {
	svc   *Service
	trips *memtriprepo.Repo
	users *memuserrepo.Repo
	clk   *memclock.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	trips := memtriprepo.NewRepo()
	users := memuserrepo.NewRepo()
	clk := memclock.NewManualClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(trips, trips, trips, users, clk, nil)

	var n atomic.Int64
	svc.SetNewIDForTest(func() string { return fmt.Sprintf("id-%04d", n.Add(1)) })
	return &fixture{svc: svc, trips: trips, users: users, clk: clk}
}

func (f *fixture) user(t *testing.T, name string) domain.UserID {
	t.Helper()
	id := domain.UserID("user-" + strings.ToLower(name))
	err := f.users.Create(context.Background(), domain.User{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Token:     "tok-" + strings.ToLower(name),
		CreatedAt: f.clk.Now(),
	})
	if err != nil {
		t.Fatalf("create user err=%v", err)
	}
	return id
}

func (f *fixture) trip(t *testing.T, owner domain.UserID) TripView {
	t.Helper()
	v, err := f.svc.CreateTrip(context.Background(), owner, CreateTripInput{Cities: []CityInput{
		{Name: "Paris", Country: "France", Lat: 48.8566, Lng: 2.3522, ArriveDate: day(2025, 6, 1)},
		{Name: "London", Country: "United Kingdom", Lat: 51.5074, Lng: -0.1278, ArriveDate: day(2025, 6, 4), DepartDate: ptr(day(2025, 6, 7))},
	}})
	if err != nil {
		t.Fatalf("CreateTrip err=%v", err)
	}
	return v
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func requireAppError(t *testing.T, err error, status int, code string) *Error {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != status || ae.Code != code {
		t.Fatalf("err=%v (type=%T), want %s %d", err, err, code, status)
	}
	return ae
}

func memberIDs(v TripView) []domain.UserID {
	out := make([]domain.UserID, 0, len(v.Members))
	for _, m := range v.Members {
		out = append(out, m.User.ID)
	}
	return out
}

func TestService_CreateTrip_Defaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")

	v := f.trip(t, alice)
	if v.Trip.Name != "Trip to Paris" {
		t.Fatalf("name=%q", v.Trip.Name)
	}
	if !slices.Contains(domain.TripColors, v.Trip.Color) {
		t.Fatalf("color=%q not in palette", v.Trip.Color)
	}
	if !sharecode.WellFormed(v.Trip.ShareCode) || !v.Trip.ShareCodeActive {
		t.Fatalf("share code=%q active=%v", v.Trip.ShareCode, v.Trip.ShareCodeActive)
	}
	if v.Trip.CreatorID != alice || len(v.Members) != 1 || v.Members[0].Role != domain.RoleCreator {
		t.Fatalf("unexpected members: %+v", v.Members)
	}
	if v.Members[0].User.Name != "Alice" {
		t.Fatalf("member profile=%+v", v.Members[0].User)
	}
	if v.TotalDistanceKm < 330 || v.TotalDistanceKm > 350 {
		t.Fatalf("totalDistanceKm=%d", v.TotalDistanceKm)
	}
}

func TestService_CreateTrip_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")

	_, err := f.svc.CreateTrip(context.Background(), "", CreateTripInput{})
	requireAppError(t, err, 401, "UNAUTHENTICATED")

	_, err = f.svc.CreateTrip(context.Background(), alice, CreateTripInput{Name: "Empty"})
	ae := requireAppError(t, err, 400, "VALIDATION_ERROR")
	if ae.Message != "At least one city is required" {
		t.Fatalf("message=%q", ae.Message)
	}

	_, err = f.svc.CreateTrip(context.Background(), alice, CreateTripInput{Cities: []CityInput{
		{Name: "Rome", ArriveDate: day(2025, 6, 5), DepartDate: ptr(day(2025, 6, 1))},
	}})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

func TestService_CreateTrip_RetriesShareCodeCollisions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	first := f.trip(t, alice)

	codes := []string{first.Trip.ShareCode, first.Trip.ShareCode, "FRESH234"}
	var i int
	f.svc.SetShareCodeGeneratorForTest(func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	})

	v := f.trip(t, alice)
	if v.Trip.ShareCode != "FRESH234" || i != 3 {
		t.Fatalf("code=%q attempts=%d", v.Trip.ShareCode, i)
	}
}

func TestService_CreateTrip_GivesUpAfterRepeatedCollisions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	first := f.trip(t, alice)

	var attempts int
	f.svc.SetShareCodeGeneratorForTest(func() (string, error) {
		attempts++
		return first.Trip.ShareCode, nil
	})

	_, err := f.svc.CreateTrip(context.Background(), alice, CreateTripInput{Cities: []CityInput{
		{Name: "Rome", ArriveDate: day(2025, 6, 5)},
	}})
	requireAppError(t, err, 500, "INTERNAL")
	if attempts != maxShareCodeAttempts {
		t.Fatalf("attempts=%d", attempts)
	}
}

func TestService_Guards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()

	_, err := f.svc.GetTrip(ctx, "", v.Trip.ID)
	requireAppError(t, err, 401, "UNAUTHENTICATED")

	_, err = f.svc.GetTrip(ctx, bob, "missing")
	requireAppError(t, err, 404, "NOT_FOUND")

	_, err = f.svc.GetTrip(ctx, bob, v.Trip.ID)
	ae := requireAppError(t, err, 403, "FORBIDDEN")
	if ae.Message != "Access denied" {
		t.Fatalf("message=%q", ae.Message)
	}

	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}
	if _, err := f.svc.GetTrip(ctx, bob, v.Trip.ID); err != nil {
		t.Fatalf("GetTrip as member err=%v", err)
	}

	_, err = f.svc.UpdateTrip(ctx, bob, v.Trip.ID, UpdateTripInput{Name: ptr("Mine now")})
	ae = requireAppError(t, err, 403, "FORBIDDEN")
	if ae.Message != "Only the creator can edit this trip" {
		t.Fatalf("message=%q", ae.Message)
	}
	err = f.svc.DeleteTrip(ctx, bob, v.Trip.ID)
	requireAppError(t, err, 403, "FORBIDDEN")
	_, err = f.svc.SetLinkActive(ctx, bob, v.Trip.ID, false)
	requireAppError(t, err, 403, "FORBIDDEN")
}

func TestService_UpdateTrip_ReplacesCities(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	v := f.trip(t, alice)
	ctx := context.Background()

	f.clk.Advance(time.Hour)
	cities := []CityInput{{Name: "Berlin", Country: "Germany", Lat: 52.52, Lng: 13.405, ArriveDate: day(2025, 7, 1)}}
	got, err := f.svc.UpdateTrip(ctx, alice, v.Trip.ID, UpdateTripInput{Name: ptr("  Summer  "), Cities: &cities})
	if err != nil {
		t.Fatalf("UpdateTrip err=%v", err)
	}
	if got.Trip.Name != "Summer" || len(got.Trip.Cities) != 1 || got.Trip.Cities[0].Name != "Berlin" {
		t.Fatalf("unexpected trip: %+v", got.Trip)
	}
	if got.TotalDistanceKm != 0 {
		t.Fatalf("totalDistanceKm=%d", got.TotalDistanceKm)
	}
	if !got.Trip.UpdatedAt.Equal(f.clk.Now()) {
		t.Fatalf("updatedAt=%v", got.Trip.UpdatedAt)
	}

	_, err = f.svc.UpdateTrip(ctx, alice, v.Trip.ID, UpdateTripInput{Name: ptr("   ")})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

func TestService_PreviewByCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	v := f.trip(t, alice)
	ctx := context.Background()

	got, err := f.svc.PreviewByCode(ctx, strings.ToLower(v.Trip.ShareCode))
	if err != nil {
		t.Fatalf("PreviewByCode err=%v", err)
	}
	if got.Trip.ID != v.Trip.ID || len(got.Trip.Cities) != 2 || got.Members[0].User.Name != "Alice" {
		t.Fatalf("unexpected preview: %+v", got)
	}

	_, err = f.svc.PreviewByCode(ctx, "NOPE2345")
	ae := requireAppError(t, err, 404, "NOT_FOUND")
	if ae.Message != "Trip not found or link has been revoked" {
		t.Fatalf("message=%q", ae.Message)
	}

	if _, err := f.svc.SetLinkActive(ctx, alice, v.Trip.ID, false); err != nil {
		t.Fatalf("SetLinkActive err=%v", err)
	}
	_, err = f.svc.PreviewByCode(ctx, v.Trip.ShareCode)
	requireAppError(t, err, 404, "NOT_FOUND")

	bob := f.user(t, "Bob")
	_, err = f.svc.Join(ctx, bob, v.Trip.ShareCode)
	requireAppError(t, err, 404, "NOT_FOUND")

	link, err := f.svc.SetLinkActive(ctx, alice, v.Trip.ID, true)
	if err != nil || link.Code != v.Trip.ShareCode || !link.Active {
		t.Fatalf("SetLinkActive link=%+v err=%v", link, err)
	}
	if _, err := f.svc.PreviewByCode(ctx, v.Trip.ShareCode); err != nil {
		t.Fatalf("PreviewByCode after reactivation err=%v", err)
	}
}

// countingCodeLookups records which codes reach the store.
type countingCodeLookups struct {
	*memtriprepo.Repo
	looked []string
}

func (r *countingCodeLookups) GetByShareCode(ctx context.Context, code string) (domain.Trip, error) {
	r.looked = append(r.looked, code)
	return r.Repo.GetByShareCode(ctx, code)
}

func TestService_MalformedCodesSkipTheStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()

	repo := &countingCodeLookups{Repo: f.trips}
	svc := NewService(repo, f.trips, f.trips, f.users, f.clk, nil)
	for _, code := range []string{"", "SHORT", "ABCD0123", "ABCD-EFG", "ÄBCDEFGH"} {
		_, err := svc.PreviewByCode(ctx, code)
		requireAppError(t, err, 404, "NOT_FOUND")
		_, err = svc.Join(ctx, bob, code)
		requireAppError(t, err, 404, "NOT_FOUND")
	}
	if len(repo.looked) != 0 {
		t.Fatalf("store lookups for malformed codes: %q", repo.looked)
	}

	if _, err := svc.PreviewByCode(ctx, " "+strings.ToLower(v.Trip.ShareCode)+" "); err != nil {
		t.Fatalf("PreviewByCode err=%v", err)
	}
	if !slices.Equal(repo.looked, []string{v.Trip.ShareCode}) {
		t.Fatalf("lookups=%q", repo.looked)
	}
}

func TestService_Join_IsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, "", v.Trip.ShareCode)
	requireAppError(t, err, 401, "UNAUTHENTICATED")

	first, err := f.svc.Join(ctx, bob, v.Trip.ShareCode)
	if err != nil {
		t.Fatalf("Join err=%v", err)
	}
	f.clk.Advance(time.Minute)
	second, err := f.svc.Join(ctx, bob, v.Trip.ShareCode)
	if err != nil {
		t.Fatalf("second Join err=%v", err)
	}
	if len(second.Members) != 2 || !slices.Equal(memberIDs(first), memberIDs(second)) {
		t.Fatalf("members first=%v second=%v", memberIDs(first), memberIDs(second))
	}
	if !second.Members[1].JoinedAt.Equal(first.Members[1].JoinedAt) {
		t.Fatalf("joinedAt changed on repeat join")
	}

	// The owner joining their own trip is a no-op as well.
	self, err := f.svc.Join(ctx, alice, v.Trip.ShareCode)
	if err != nil || len(self.Members) != 2 {
		t.Fatalf("owner Join members=%d err=%v", len(self.Members), err)
	}
}

// racingTrips simulates a concurrent join by the same user winning the insert.
type racingTrips struct {
	*memtriprepo.Repo
}

func (r racingTrips) AddMember(ctx context.Context, m domain.Membership) error {
	if err := r.Repo.AddMember(ctx, m); err != nil {
		return err
	}
	return r.Repo.AddMember(ctx, m)
}

func TestService_Join_UniqueViolationMeansAlreadyMember(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)

	svc := NewService(racingTrips{f.trips}, f.trips, f.trips, f.users, f.clk, nil)
	got, err := svc.Join(context.Background(), bob, v.Trip.ShareCode)
	if err != nil {
		t.Fatalf("Join err=%v", err)
	}
	if !slices.Contains(memberIDs(got), bob) || len(got.Members) != 2 {
		t.Fatalf("members=%v", memberIDs(got))
	}
}

func TestService_Leave_NonOwnerRemovesMembership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	v := f.trip(t, alice)
	ctx := context.Background()

	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}
	if err := f.svc.Leave(ctx, bob, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}
	got, err := f.svc.GetTrip(ctx, alice, v.Trip.ID)
	if err != nil {
		t.Fatalf("GetTrip err=%v", err)
	}
	if got.Trip.CreatorID != alice || !slices.Equal(memberIDs(got), []domain.UserID{alice}) {
		t.Fatalf("creator=%s members=%v", got.Trip.CreatorID, memberIDs(got))
	}

	err = f.svc.Leave(ctx, carol, v.Trip.ID)
	ae := requireAppError(t, err, 400, "INVALID_STATE")
	if ae.Message != "You are not a member of this trip" {
		t.Fatalf("message=%q", ae.Message)
	}
	requireAppError(t, f.svc.Leave(ctx, "", v.Trip.ID), 401, "UNAUTHENTICATED")
	requireAppError(t, f.svc.Leave(ctx, carol, "missing"), 404, "NOT_FOUND")
}

func TestService_Leave_OwnerTransfersToEarliestMember(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	v := f.trip(t, alice)
	ctx := context.Background()

	f.clk.Advance(time.Minute)
	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join bob err=%v", err)
	}
	f.clk.Advance(time.Minute)
	if _, err := f.svc.Join(ctx, carol, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join carol err=%v", err)
	}

	if err := f.svc.Leave(ctx, alice, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}

	got, err := f.svc.GetTrip(ctx, bob, v.Trip.ID)
	if err != nil {
		t.Fatalf("GetTrip err=%v", err)
	}
	if got.Trip.CreatorID != bob {
		t.Fatalf("creator=%s, want bob", got.Trip.CreatorID)
	}
	creators := 0
	for _, m := range got.Members {
		if m.UserID == alice {
			t.Fatalf("departing owner still a member")
		}
		if m.Role == domain.RoleCreator {
			creators++
			if m.UserID != bob {
				t.Fatalf("creator membership held by %s", m.UserID)
			}
		}
	}
	if creators != 1 {
		t.Fatalf("creators=%d", creators)
	}

	_, err = f.svc.GetTrip(ctx, alice, v.Trip.ID)
	requireAppError(t, err, 403, "FORBIDDEN")

	logs, err := f.svc.ListLogs(ctx, bob, v.Trip.ID)
	if err != nil {
		t.Fatalf("ListLogs err=%v", err)
	}
	if logs[0].Action != domain.LogActionLeft || logs[0].Details["transferredTo"] != string(bob) || logs[0].User.Name != "Alice" {
		t.Fatalf("latest log=%+v", logs[0])
	}
}

func TestService_Leave_TieBreaksByMembershipID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	ctx := context.Background()

	// Carol joins first but receives the larger membership ID.
	ids := []string{"trip", "city", "m-owner", "log-1", "m-zzz", "log-2", "m-aaa", "log-3"}
	var i int
	f.svc.SetNewIDForTest(func() string {
		id := ids[i]
		i++
		return id
	})
	v, err := f.svc.CreateTrip(ctx, alice, CreateTripInput{Cities: []CityInput{{Name: "Oslo", ArriveDate: day(2025, 8, 1)}}})
	if err != nil {
		t.Fatalf("CreateTrip err=%v", err)
	}
	if _, err := f.svc.Join(ctx, carol, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join carol err=%v", err)
	}
	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join bob err=%v", err)
	}

	f.svc.SetNewIDForTest(func() string { return "log-tail" })
	if err := f.svc.Leave(ctx, alice, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}
	got, err := f.trips.GetByID(ctx, v.Trip.ID)
	if err != nil {
		t.Fatalf("GetByID err=%v", err)
	}
	if got.CreatorID != bob {
		t.Fatalf("creator=%s, want bob (membership m-aaa)", got.CreatorID)
	}
}

func TestService_Leave_LastMemberDeletesTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	v := f.trip(t, alice)
	ctx := context.Background()

	cityID := v.Trip.Cities[0].ID
	if _, err := f.svc.AddActivity(ctx, alice, cityID, CreateActivityInput{Name: "Louvre"}); err != nil {
		t.Fatalf("AddActivity err=%v", err)
	}
	if err := f.svc.Leave(ctx, alice, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}

	if _, err := f.trips.GetByID(ctx, v.Trip.ID); !errors.Is(err, triprepo.ErrNotFound) {
		t.Fatalf("GetByID err=%v, want ErrNotFound", err)
	}
	_, err := f.svc.ListActivities(ctx, alice, cityID)
	requireAppError(t, err, 404, "NOT_FOUND")
	_, err = f.svc.PreviewByCode(ctx, v.Trip.ShareCode)
	requireAppError(t, err, 404, "NOT_FOUND")
	mine, err := f.svc.ListMyTrips(ctx, alice)
	if err != nil || len(mine) != 0 {
		t.Fatalf("ListMyTrips len=%d err=%v", len(mine), err)
	}
}

// failingTransfer makes the ownership transfer fail as a whole.
type failingTransfer struct {
	*memtriprepo.Repo
}

func (failingTransfer) TransferOwnership(context.Context, triprepo.OwnershipTransfer) error {
	return errors.New("connection reset")
}

func TestService_Leave_TransferFailureIsInternal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()
	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}

	svc := NewService(failingTransfer{f.trips}, f.trips, f.trips, f.users, f.clk, nil)
	requireAppError(t, svc.Leave(ctx, alice, v.Trip.ID), 500, "INTERNAL")

	got, err := f.trips.GetByID(ctx, v.Trip.ID)
	if err != nil || got.CreatorID != alice || len(got.Members) != 2 {
		t.Fatalf("trip changed after failed transfer: %+v err=%v", got, err)
	}
}

// racingRepo runs a competing operation right before the next RemoveMember or Dissolve
// reaches the store, so the service acts on a load that is already stale.
type racingRepo struct {
	*memtriprepo.Repo
	beforeRemove   func()
	beforeDissolve func()
	alwaysChanged  bool
}

func (r *racingRepo) RemoveMember(ctx context.Context, tripID domain.TripID, id domain.MembershipID) error {
	if r.alwaysChanged {
		return triprepo.ErrOwnershipChanged
	}
	if hook := r.beforeRemove; hook != nil {
		r.beforeRemove = nil
		hook()
	}
	return r.Repo.RemoveMember(ctx, tripID, id)
}

func (r *racingRepo) Dissolve(ctx context.Context, id domain.TripID, last domain.MembershipID) error {
	if hook := r.beforeDissolve; hook != nil {
		r.beforeDissolve = nil
		hook()
	}
	return r.Repo.Dissolve(ctx, id, last)
}

func TestService_Leave_MemberPromotedMidLeaveDissolvesTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()
	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}

	racing := &racingRepo{Repo: f.trips}
	racing.beforeRemove = func() {
		if err := f.svc.Leave(ctx, alice, v.Trip.ID); err != nil {
			t.Errorf("owner Leave err=%v", err)
		}
	}
	svc := NewService(racing, f.trips, f.trips, f.users, f.clk, nil)

	// Bob was promoted before his delete landed, so he is now the last member.
	if err := svc.Leave(ctx, bob, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}
	if got, err := f.trips.GetByID(ctx, v.Trip.ID); !errors.Is(err, triprepo.ErrNotFound) {
		t.Fatalf("trip survived with creator=%s members=%d err=%v", got.CreatorID, len(got.Members), err)
	}
}

func TestService_Leave_JoinDuringDissolveTransfersInstead(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	carol := f.user(t, "Carol")
	v := f.trip(t, alice)
	ctx := context.Background()

	racing := &racingRepo{Repo: f.trips}
	racing.beforeDissolve = func() {
		if _, err := f.svc.Join(ctx, carol, v.Trip.ShareCode); err != nil {
			t.Errorf("Join err=%v", err)
		}
	}
	svc := NewService(racing, f.trips, f.trips, f.users, f.clk, nil)

	if err := svc.Leave(ctx, alice, v.Trip.ID); err != nil {
		t.Fatalf("Leave err=%v", err)
	}
	got, err := f.trips.GetByID(ctx, v.Trip.ID)
	if err != nil {
		t.Fatalf("GetByID err=%v", err)
	}
	requireSoleMember(t, got, carol)
}

func TestService_Leave_GivesUpWhenMembershipKeepsChanging(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()
	if _, err := f.svc.Join(ctx, bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}

	svc := NewService(&racingRepo{Repo: f.trips, alwaysChanged: true}, f.trips, f.trips, f.users, f.clk, nil)
	ae := requireAppError(t, svc.Leave(ctx, bob, v.Trip.ID), 500, "INTERNAL")
	if ae.Message != "Failed to leave trip" {
		t.Fatalf("message=%q", ae.Message)
	}
	got, err := f.trips.GetByID(ctx, v.Trip.ID)
	if err != nil || len(got.Members) != 2 {
		t.Fatalf("trip changed after refused leave: %+v err=%v", got, err)
	}
}

func requireSoleMember(t *testing.T, trip domain.Trip, want domain.UserID) {
	t.Helper()
	if trip.CreatorID != want || len(trip.Members) != 1 || trip.Members[0].UserID != want || trip.Members[0].Role != domain.RoleCreator {
		t.Fatalf("creator=%s members=%+v, want %s as sole creator", trip.CreatorID, trip.Members, want)
	}
}

func TestService_RevokeLink(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	v := f.trip(t, alice)
	ctx := context.Background()
	old := v.Trip.ShareCode

	if _, err := f.svc.Join(ctx, bob, old); err != nil {
		t.Fatalf("Join err=%v", err)
	}
	_, err := f.svc.RevokeLink(ctx, bob, v.Trip.ID)
	ae := requireAppError(t, err, 403, "FORBIDDEN")
	if ae.Message != "Only the creator can revoke the link" {
		t.Fatalf("message=%q", ae.Message)
	}
	if got, _ := f.trips.GetByID(ctx, v.Trip.ID); got.ShareCode != old {
		t.Fatalf("code changed by non-owner")
	}

	link, err := f.svc.RevokeLink(ctx, alice, v.Trip.ID)
	if err != nil {
		t.Fatalf("RevokeLink err=%v", err)
	}
	if link.Code == old || !link.Active || !sharecode.WellFormed(link.Code) {
		t.Fatalf("link=%+v old=%s", link, old)
	}

	_, err = f.svc.PreviewByCode(ctx, old)
	requireAppError(t, err, 404, "NOT_FOUND")
	_, err = f.svc.Join(ctx, carol, old)
	requireAppError(t, err, 404, "NOT_FOUND")

	got, err := f.svc.Join(ctx, carol, link.Code)
	if err != nil || len(got.Members) != 3 {
		t.Fatalf("Join with new code members=%d err=%v", len(got.Members), err)
	}
}

func TestService_Activities(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	v := f.trip(t, alice)
	ctx := context.Background()
	cityID := v.Trip.Cities[0].ID

	_, err := f.svc.AddActivity(ctx, alice, cityID, CreateActivityInput{Name: "  "})
	ae := requireAppError(t, err, 400, "VALIDATION_ERROR")
	if ae.Message != "Activity name is required" {
		t.Fatalf("message=%q", ae.Message)
	}
	_, err = f.svc.AddActivity(ctx, bob, cityID, CreateActivityInput{Name: "Sneak in"})
	requireAppError(t, err, 403, "FORBIDDEN")
	_, err = f.svc.AddActivity(ctx, alice, "missing", CreateActivityInput{Name: "x"})
	requireAppError(t, err, 404, "NOT_FOUND")

	first, err := f.svc.AddActivity(ctx, alice, cityID, CreateActivityInput{Name: "Louvre", Description: ptr("Art")})
	if err != nil {
		t.Fatalf("AddActivity err=%v", err)
	}
	second, err := f.svc.AddActivity(ctx, alice, cityID, CreateActivityInput{Name: "Eiffel Tower", Date: ptr(day(2025, 6, 2))})
	if err != nil {
		t.Fatalf("AddActivity err=%v", err)
	}
	if first.Order != 0 || second.Order != 1 {
		t.Fatalf("orders=%d,%d", first.Order, second.Order)
	}

	list, err := f.svc.ListActivities(ctx, alice, cityID)
	if err != nil {
		t.Fatalf("ListActivities err=%v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("dated activity should sort first: %+v", list)
	}

	updated, err := f.svc.UpdateActivity(ctx, alice, first.ID, UpdateActivityInput{
		Description: Null[string](),
		Date:        Some(day(2025, 6, 1)),
	})
	if err != nil {
		t.Fatalf("UpdateActivity err=%v", err)
	}
	if updated.Description != nil || updated.Date == nil || updated.Name != "Louvre" {
		t.Fatalf("updated=%+v", updated)
	}
	_, err = f.svc.UpdateActivity(ctx, alice, first.ID, UpdateActivityInput{Name: Null[string]()})
	requireAppError(t, err, 400, "VALIDATION_ERROR")

	if err := f.svc.DeleteActivity(ctx, alice, second.ID); err != nil {
		t.Fatalf("DeleteActivity err=%v", err)
	}
	requireAppError(t, f.svc.DeleteActivity(ctx, alice, second.ID), 404, "NOT_FOUND")

	logs, err := f.svc.ListLogs(ctx, alice, v.Trip.ID)
	if err != nil {
		t.Fatalf("ListLogs err=%v", err)
	}
	if logs[0].Action != domain.LogActionActivityRemoved || logs[0].Details["city"] != "Paris" {
		t.Fatalf("latest log=%+v", logs[0])
	}
}

// brokenLogs fails every append.
type brokenLogs struct {
	*memtriprepo.Repo
}

func (brokenLogs) AppendLog(context.Context, domain.TripLog) error { return errors.New("disk full") }

func TestService_LogFailuresAreSwallowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	svc := NewService(f.trips, f.trips, brokenLogs{f.trips}, f.users, f.clk, nil)
	v, err := svc.CreateTrip(context.Background(), alice, CreateTripInput{Cities: []CityInput{{Name: "Lisbon", ArriveDate: day(2025, 9, 1)}}})
	if err != nil {
		t.Fatalf("CreateTrip err=%v", err)
	}
	if _, err := svc.Join(context.Background(), bob, v.Trip.ShareCode); err != nil {
		t.Fatalf("Join err=%v", err)
	}
}

func TestService_SuggestActivities(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	v := f.trip(t, alice)
	ctx := context.Background()
	cityID := v.Trip.Cities[0].ID

	got, err := f.svc.SuggestActivities(ctx, alice, cityID)
	if err != nil {
		t.Fatalf("SuggestActivities err=%v", err)
	}
	if len(got) != 5 || got[0].Name != "Explore Paris Old Town" || !strings.Contains(got[2].Description, "France") {
		t.Fatalf("fallback=%+v", got)
	}

	if _, err := f.svc.AddActivity(ctx, alice, cityID, CreateActivityInput{Name: "Louvre"}); err != nil {
		t.Fatalf("AddActivity err=%v", err)
	}

	ctrl := gomock.NewController(t)
	sg := suggester.NewMockSuggester(ctrl)
	sg.EXPECT().
		SuggestActivities(gomock.Any(), suggester.Request{City: "Paris", Country: "France", Existing: []string{"Louvre"}}).
		Return([]suggester.Suggestion{{Name: "Seine cruise", Description: "Boat"}}, nil)
	sg.EXPECT().
		SuggestActivities(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("rate limited"))
	f.svc.SetSuggester(sg)

	got, err = f.svc.SuggestActivities(ctx, alice, cityID)
	if err != nil || len(got) != 1 || got[0].Name != "Seine cruise" {
		t.Fatalf("suggestions=%+v err=%v", got, err)
	}
	got, err = f.svc.SuggestActivities(ctx, alice, cityID)
	if err != nil || len(got) != 5 {
		t.Fatalf("fallback after error=%+v err=%v", got, err)
	}
}

func TestService_ExportCalendar(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	ctx := context.Background()

	v, err := f.svc.CreateTrip(ctx, alice, CreateTripInput{Name: "Euro, Trip", Cities: []CityInput{
		{Name: "Paris", Country: "France", ArriveDate: day(2025, 6, 1)},
		{Name: "Rome", Country: "Italy", ArriveDate: day(2025, 6, 3), DepartDate: ptr(day(2025, 6, 6))},
	}})
	if err != nil {
		t.Fatalf("CreateTrip err=%v", err)
	}

	_, err = f.svc.ExportCalendar(ctx, bob, v.Trip.ID)
	requireAppError(t, err, 403, "FORBIDDEN")

	cal, err := f.svc.ExportCalendar(ctx, alice, v.Trip.ID)
	if err != nil {
		t.Fatalf("ExportCalendar err=%v", err)
	}
	if cal.Filename != "euro--trip.ics" {
		t.Fatalf("filename=%q", cal.Filename)
	}
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"PRODID:-//TripLink//Trip Export//EN\r\n",
		fmt.Sprintf("UID:%s-%s@triplink\r\n", v.Trip.ID, v.Trip.Cities[0].ID),
		"DTSTART;VALUE=DATE:20250601\r\nDTEND;VALUE=DATE:20250602\r\n",
		"DTSTART;VALUE=DATE:20250603\r\nDTEND;VALUE=DATE:20250606\r\n",
		"SUMMARY:Euro\\, Trip: Rome\r\n",
		"LOCATION:Rome\\, Italy\r\n",
	} {
		if !strings.Contains(cal.Body, want) {
			t.Fatalf("calendar missing %q:\n%s", want, cal.Body)
		}
	}
	if !strings.HasSuffix(cal.Body, "END:VCALENDAR") {
		t.Fatalf("calendar does not end with END:VCALENDAR")
	}
}
