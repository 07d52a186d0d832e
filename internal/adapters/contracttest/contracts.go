package contracttest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	activityrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	idempotencyport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
	triplogrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	triprepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// TripRepos bundles the ports backed by the trip aggregate store. Users is needed to
// seed the principals that memberships and logs reference.
type TripRepos struct {
	Users      userrepoport.Repository
	Trips      triprepoport.Repository
	Activities activityrepoport.Repository
	Logs       triplogrepoport.Repository
	Cleanup    CleanupFunc
}

type TripReposFactory func(t *testing.T) TripRepos

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	req := idempotencyport.Request{
		Key:    idempotencyport.Key("k-" + uuid.NewString()),
		User:   domain.UserID(uuid.NewString()),
		Method: "POST",
		Route:  "/trips",
	}
	at := time.Unix(123, 0).UTC()

	e, claimed, err := store.Reserve(ctx, req, "hash-a", at)
	if err != nil || !claimed {
		t.Fatalf("first Reserve: claimed=%v err=%v", claimed, err)
	}
	if e.BodyHash != "hash-a" || e.Response != nil {
		t.Fatalf("first Reserve entry=%+v", e)
	}

	// A second reservation sees the in-flight entry, whatever its hash.
	e, claimed, err = store.Reserve(ctx, req, "hash-b", at.Add(time.Second))
	if err != nil || claimed {
		t.Fatalf("second Reserve: claimed=%v err=%v", claimed, err)
	}
	if e.BodyHash != "hash-a" || e.Response != nil || !e.CreatedAt.Equal(at) {
		t.Fatalf("second Reserve entry=%+v", e)
	}

	if err := store.Complete(ctx, req, idempotencyport.Response{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"a"}`),
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	e, claimed, err = store.Reserve(ctx, req, "hash-a", at)
	if err != nil || claimed || e.Response == nil {
		t.Fatalf("Reserve after Complete: claimed=%v err=%v entry=%+v", claimed, err, e)
	}
	if e.Response.StatusCode != 201 || e.Response.ContentType != "application/json" || string(e.Response.Body) != `{"id":"a"}` {
		t.Fatalf("stored response=%+v", e.Response)
	}

	// Completed entries survive Release.
	if err := store.Release(ctx, req); err != nil {
		t.Fatalf("Release completed: %v", err)
	}
	if _, claimed, _ := store.Reserve(ctx, req, "hash-a", at); claimed {
		t.Fatalf("completed entry was released")
	}

	// Keys are scoped per user; a released pending entry frees the key.
	other := req
	other.User = domain.UserID(uuid.NewString())
	if _, claimed, err := store.Reserve(ctx, other, "hash-c", at); err != nil || !claimed {
		t.Fatalf("Reserve other user: claimed=%v err=%v", claimed, err)
	}
	if err := store.Release(ctx, other); err != nil {
		t.Fatalf("Release pending: %v", err)
	}
	if _, claimed, err := store.Reserve(ctx, other, "hash-d", at); err != nil || !claimed {
		t.Fatalf("Reserve after Release: claimed=%v err=%v", claimed, err)
	}

	missing := req
	missing.Key = idempotencyport.Key("missing-" + uuid.NewString())
	if err := store.Complete(ctx, missing, idempotencyport.Response{StatusCode: 201}); !errors.Is(err, idempotencyport.ErrNotReserved) {
		t.Fatalf("Complete unreserved err=%v, want ErrNotReserved", err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	alice := newUser("Alice", now)
	if err := repo.Create(ctx, alice); err != nil {
		t.Fatalf("Create alice: %v", err)
	}

	got, err := repo.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Alice" || got.Email != alice.Email || got.Token != alice.Token || !got.CreatedAt.Equal(now) {
		t.Fatalf("GetByID=%+v want %+v", got, alice)
	}
	if got, err := repo.GetByEmail(ctx, alice.Email); err != nil || got.ID != alice.ID {
		t.Fatalf("GetByEmail=%+v err=%v", got, err)
	}
	if got, err := repo.GetByToken(ctx, alice.Token); err != nil || got.ID != alice.ID {
		t.Fatalf("GetByToken=%+v err=%v", got, err)
	}

	// Email uniqueness.
	dup := newUser("Alice Again", now)
	dup.Email = alice.Email
	if err := repo.Create(ctx, dup); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("duplicate email err=%v want ErrEmailTaken", err)
	}

	// Lookups of unknown keys.
	if _, err := repo.GetByToken(ctx, "no-such-token"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByToken unknown err=%v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByEmail unknown err=%v", err)
	}
	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown err=%v", err)
	}

	bob := newUser("Bob", now)
	if err := repo.Create(ctx, bob); err != nil {
		t.Fatalf("Create bob: %v", err)
	}
	us, err := repo.ListByIDs(ctx, []domain.UserID{alice.ID, bob.ID, domain.UserID(uuid.NewString())})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(us) != 2 {
		t.Fatalf("ListByIDs len=%d want 2", len(us))
	}
}

// RunTripRepos exercises the trip aggregate: creation, membership changes, ownership
// transfer, share codes, activities, logs and cascading deletion.
func RunTripRepos(t *testing.T, newRepos TripReposFactory) {
	t.Helper()
	ctx := context.Background()

	repos := newRepos(t)
	if repos.Cleanup != nil {
		t.Cleanup(repos.Cleanup)
	}
	users, trips, activities, logs := repos.Users, repos.Trips, repos.Activities, repos.Logs

	now := time.Unix(2000, 0).UTC()
	alice, bob, carol := newUser("Alice", now), newUser("Bob", now), newUser("Carol", now)
	for _, u := range []domain.User{alice, bob, carol} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.Name, err)
		}
	}

	arrive := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	depart := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	notes := "bring an umbrella"
	tripID := domain.TripID(uuid.NewString())
	lisbon := domain.City{ID: domain.CityID(uuid.NewString()), Name: "Lisbon", Country: "Portugal", Lat: 38.72, Lng: -9.14, ArriveDate: arrive, DepartDate: &depart, Order: 0, Notes: &notes}
	porto := domain.City{ID: domain.CityID(uuid.NewString()), Name: "Porto", Country: "Portugal", Lat: 41.15, Lng: -8.61, ArriveDate: depart, Order: 1}
	code := uniqueCode()
	creatorMembership := domain.Membership{ID: domain.MembershipID(uuid.NewString()), TripID: tripID, UserID: alice.ID, Role: domain.RoleCreator, JoinedAt: now}
	trip := domain.Trip{
		ID:              tripID,
		Name:            "Portugal",
		ShareCode:       code,
		ShareCodeActive: true,
		Color:           "#3B82F6",
		CreatorID:       alice.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		// Deliberately out of order: reads must sort by Order.
		Cities:  []domain.City{porto, lisbon},
		Members: []domain.Membership{creatorMembership},
	}
	if err := trips.Create(ctx, trip); err != nil {
		t.Fatalf("Create trip: %v", err)
	}

	got, err := trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Portugal" || got.ShareCode != code || !got.ShareCodeActive || got.CreatorID != alice.ID {
		t.Fatalf("GetByID=%+v", got)
	}
	if len(got.Cities) != 2 || got.Cities[0].ID != lisbon.ID || got.Cities[1].ID != porto.ID {
		t.Fatalf("cities=%+v", got.Cities)
	}
	if got.Cities[0].DepartDate == nil || !got.Cities[0].DepartDate.Equal(depart) || got.Cities[0].Notes == nil || *got.Cities[0].Notes != notes {
		t.Fatalf("city optional fields not round-tripped: %+v", got.Cities[0])
	}
	if !got.Cities[1].ArriveDate.Equal(depart) || got.Cities[1].DepartDate != nil {
		t.Fatalf("porto dates=%v/%v", got.Cities[1].ArriveDate, got.Cities[1].DepartDate)
	}
	requireSoleCreator(t, got, alice.ID)

	if byCode, err := trips.GetByShareCode(ctx, code); err != nil || byCode.ID != tripID {
		t.Fatalf("GetByShareCode=%v err=%v", byCode.ID, err)
	}

	// Share codes are unique across trips.
	clash := trip
	clash.ID = domain.TripID(uuid.NewString())
	clash.Cities = nil
	clash.Members = []domain.Membership{{ID: domain.MembershipID(uuid.NewString()), TripID: clash.ID, UserID: bob.ID, Role: domain.RoleCreator, JoinedAt: now}}
	clash.CreatorID = bob.ID
	if err := trips.Create(ctx, clash); !errors.Is(err, triprepoport.ErrShareCodeTaken) {
		t.Fatalf("Create with taken code err=%v want ErrShareCodeTaken", err)
	}

	// Membership uniqueness on (trip, user).
	bobJoined := now.Add(time.Hour)
	bobMembership := domain.Membership{ID: domain.MembershipID(uuid.NewString()), TripID: tripID, UserID: bob.ID, Role: domain.RoleMember, JoinedAt: bobJoined}
	if err := trips.AddMember(ctx, bobMembership); err != nil {
		t.Fatalf("AddMember bob: %v", err)
	}
	again := bobMembership
	again.ID = domain.MembershipID(uuid.NewString())
	if err := trips.AddMember(ctx, again); !errors.Is(err, triprepoport.ErrAlreadyMember) {
		t.Fatalf("AddMember twice err=%v want ErrAlreadyMember", err)
	}
	carolMembership := domain.Membership{ID: domain.MembershipID(uuid.NewString()), TripID: tripID, UserID: carol.ID, Role: domain.RoleMember, JoinedAt: bobJoined.Add(time.Hour)}
	if err := trips.AddMember(ctx, carolMembership); err != nil {
		t.Fatalf("AddMember carol: %v", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	if len(got.Members) != 3 || got.Members[0].UserID != alice.ID || got.Members[1].UserID != bob.ID || got.Members[2].UserID != carol.ID {
		t.Fatalf("members not ordered by joinedAt: %+v", got.Members)
	}

	mine, err := trips.ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != tripID {
		t.Fatalf("ListForUser(bob)=%v", mine)
	}

	// Activities get increasing order within their city.
	city, err := activities.GetCity(ctx, lisbon.ID)
	if err != nil {
		t.Fatalf("GetCity: %v", err)
	}
	if city.TripID != tripID || city.Name != "Lisbon" {
		t.Fatalf("GetCity=%+v", city)
	}
	a1, err := activities.CreateActivity(ctx, domain.Activity{ID: domain.ActivityID(uuid.NewString()), CityID: lisbon.ID, Name: "Tram 28", CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateActivity 1: %v", err)
	}
	a2, err := activities.CreateActivity(ctx, domain.Activity{ID: domain.ActivityID(uuid.NewString()), CityID: lisbon.ID, Name: "Belem", Date: &arrive, CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateActivity 2: %v", err)
	}
	if a1.Order != 0 || a2.Order != 1 {
		t.Fatalf("orders=%d,%d want 0,1", a1.Order, a2.Order)
	}
	if _, err := activities.CreateActivity(ctx, domain.Activity{ID: domain.ActivityID(uuid.NewString()), CityID: domain.CityID(uuid.NewString()), Name: "x", CreatedAt: now}); !errors.Is(err, activityrepoport.ErrCityNotFound) {
		t.Fatalf("CreateActivity unknown city err=%v", err)
	}
	list, err := activities.ListActivities(ctx, lisbon.ID)
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	if len(list) != 2 || list[0].ID != a2.ID || list[1].ID != a1.ID {
		t.Fatalf("ListActivities order=%+v (dated first)", list)
	}
	desc := "pastries"
	a1.Description = &desc
	a1.Name = "Tram 28 ride"
	if err := activities.UpdateActivity(ctx, a1); err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}
	if ga, err := activities.GetActivity(ctx, a1.ID); err != nil || ga.Name != "Tram 28 ride" || ga.Description == nil || *ga.Description != desc || ga.CityID != lisbon.ID {
		t.Fatalf("GetActivity=%+v err=%v", ga, err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	if len(got.Cities[0].Activities) != 2 {
		t.Fatalf("trip read missing activities: %+v", got.Cities[0])
	}
	if err := activities.DeleteActivity(ctx, a2.ID); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}
	if _, err := activities.GetActivity(ctx, a2.ID); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("GetActivity deleted err=%v", err)
	}

	// Logs: newest first, limited.
	for i, action := range []domain.LogAction{domain.LogActionCreated, domain.LogActionJoined} {
		if err := logs.AppendLog(ctx, domain.TripLog{
			ID:        domain.TripLogID(uuid.NewString()),
			TripID:    tripID,
			UserID:    alice.ID,
			Action:    action,
			Details:   map[string]any{"n": float64(i)},
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("AppendLog %s: %v", action, err)
		}
	}
	ls, err := logs.ListLogs(ctx, tripID, 1)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(ls) != 1 || ls[0].Action != domain.LogActionJoined || ls[0].Details["n"] != float64(1) {
		t.Fatalf("ListLogs=%+v", ls)
	}

	// Rotating the code retires the old string.
	newCode := uniqueCode()
	if err := trips.SetShareCodeActive(ctx, tripID, false, now); err != nil {
		t.Fatalf("SetShareCodeActive: %v", err)
	}
	if got, _ := trips.GetByID(ctx, tripID); got.ShareCodeActive {
		t.Fatalf("expected inactive share code")
	}
	if err := trips.SetShareCode(ctx, tripID, newCode, now); err != nil {
		t.Fatalf("SetShareCode: %v", err)
	}
	if _, err := trips.GetByShareCode(ctx, code); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("old code err=%v want ErrNotFound", err)
	}
	if got, err := trips.GetByShareCode(ctx, newCode); err != nil || got.ID != tripID || !got.ShareCodeActive {
		t.Fatalf("new code trip=%+v err=%v", got, err)
	}

	// Ownership transfer is all-or-nothing.
	if err := trips.TransferOwnership(ctx, triprepoport.OwnershipTransfer{TripID: tripID, From: creatorMembership, To: bobMembership, UpdatedAt: now}); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	requireSoleCreator(t, got, bob.ID)
	if _, still := got.MembershipOf(alice.ID); still {
		t.Fatalf("departing owner membership still present: %+v", got.Members)
	}
	// Replaying the stale transfer must fail without side effects.
	if err := trips.TransferOwnership(ctx, triprepoport.OwnershipTransfer{TripID: tripID, From: creatorMembership, To: carolMembership, UpdatedAt: now}); !errors.Is(err, triprepoport.ErrOwnershipChanged) {
		t.Fatalf("stale TransferOwnership err=%v want ErrOwnershipChanged", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	requireSoleCreator(t, got, bob.ID)
	if len(got.Members) != 2 {
		t.Fatalf("members after failed transfer=%+v", got.Members)
	}

	// A transfer that fails after its first writes rolls all of them back.
	bobCreator, _ := got.MembershipOf(bob.ID)
	vanished := domain.Membership{ID: domain.MembershipID(uuid.NewString()), TripID: tripID, UserID: carol.ID, Role: domain.RoleMember, JoinedAt: now}
	if err := trips.TransferOwnership(ctx, triprepoport.OwnershipTransfer{TripID: tripID, From: bobCreator, To: vanished, UpdatedAt: now.Add(time.Minute)}); !errors.Is(err, triprepoport.ErrOwnershipChanged) {
		t.Fatalf("TransferOwnership to missing membership err=%v want ErrOwnershipChanged", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	requireSoleCreator(t, got, bob.ID)
	if len(got.Members) != 2 || !got.UpdatedAt.Equal(now) {
		t.Fatalf("trip after rolled back transfer=%+v", got)
	}

	// The creator membership only leaves through a transfer or dissolve.
	if err := trips.RemoveMember(ctx, tripID, bobCreator.ID); !errors.Is(err, triprepoport.ErrOwnershipChanged) {
		t.Fatalf("RemoveMember creator err=%v want ErrOwnershipChanged", err)
	}
	if err := trips.Dissolve(ctx, tripID, bobCreator.ID); !errors.Is(err, triprepoport.ErrOwnershipChanged) {
		t.Fatalf("Dissolve with other members err=%v want ErrOwnershipChanged", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	requireSoleCreator(t, got, bob.ID)
	if len(got.Members) != 2 {
		t.Fatalf("members after refused removals=%+v", got.Members)
	}

	if err := trips.RemoveMember(ctx, tripID, domain.MembershipID(uuid.NewString())); !errors.Is(err, triprepoport.ErrMembershipNotFound) {
		t.Fatalf("RemoveMember unknown err=%v", err)
	}
	if err := trips.RemoveMember(ctx, tripID, carolMembership.ID); err != nil {
		t.Fatalf("RemoveMember carol: %v", err)
	}
	if err := trips.Dissolve(ctx, tripID, carolMembership.ID); !errors.Is(err, triprepoport.ErrOwnershipChanged) {
		t.Fatalf("Dissolve by departed membership err=%v want ErrOwnershipChanged", err)
	}

	// Replacing cities drops the old ones along with their activities.
	name := "Portugal & Spain"
	seville := domain.City{ID: domain.CityID(uuid.NewString()), Name: "Seville", Country: "Spain", Lat: 37.39, Lng: -5.98, ArriveDate: depart, Order: 0}
	cities := []domain.City{seville}
	if err := trips.Update(ctx, triprepoport.Update{ID: tripID, Name: &name, Cities: &cities, UpdatedAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = trips.GetByID(ctx, tripID)
	if got.Name != name || len(got.Cities) != 1 || got.Cities[0].ID != seville.ID || !got.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("after Update=%+v", got)
	}
	if _, err := activities.GetCity(ctx, lisbon.ID); !errors.Is(err, activityrepoport.ErrCityNotFound) {
		t.Fatalf("old city err=%v", err)
	}
	if _, err := activities.GetActivity(ctx, a1.ID); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("old activity err=%v", err)
	}

	// Deleting the trip cascades.
	if err := trips.Delete(ctx, tripID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := trips.GetByID(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete err=%v", err)
	}
	if _, err := activities.GetCity(ctx, seville.ID); !errors.Is(err, activityrepoport.ErrCityNotFound) {
		t.Fatalf("city after delete err=%v", err)
	}
	if ls, err := logs.ListLogs(ctx, tripID, 50); err != nil || len(ls) != 0 {
		t.Fatalf("logs after delete=%v err=%v", ls, err)
	}
	if mine, _ := trips.ListForUser(ctx, bob.ID); len(mine) != 0 {
		t.Fatalf("ListForUser after delete=%v", mine)
	}
	if err := trips.Delete(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v", err)
	}
}

func requireSoleCreator(t *testing.T, trip domain.Trip, want domain.UserID) {
	t.Helper()
	if trip.CreatorID != want {
		t.Fatalf("creatorId=%s want %s", trip.CreatorID, want)
	}
	creators := 0
	for _, m := range trip.Members {
		if m.Role == domain.RoleCreator {
			creators++
			if m.UserID != want {
				t.Fatalf("creator membership user=%s want %s", m.UserID, want)
			}
		}
	}
	if creators != 1 {
		t.Fatalf("creator memberships=%d want 1 (%+v)", creators, trip.Members)
	}
}

func newUser(name string, now time.Time) domain.User {
	id := uuid.NewString()
	return domain.User{
		ID:        domain.UserID(id),
		Name:      name,
		Email:     strings.ToLower(name) + "-" + id + "@example.com",
		Token:     "tok-" + uuid.NewString(),
		CreatedAt: now,
	}
}

// uniqueCode derives a share code from a fresh UUID so runs against a shared database never collide.
func uniqueCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}
