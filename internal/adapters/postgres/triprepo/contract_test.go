package triprepo

import (
	"testing"

	"github.com/Overland-East-Bay/triplink-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/userrepo"
)

func TestContract_PostgresTripAggregateRepos(t *testing.T) {
	db := testutil.OpenMigratedDB(t)
	t.Cleanup(db.Close)

	contracttest.RunTripRepos(t, func(t *testing.T) contracttest.TripRepos {
		t.Helper()
		repo := NewRepo(db)
		return contracttest.TripRepos{
			Users:      userrepo.NewRepo(db),
			Trips:      repo,
			Activities: repo,
			Logs:       repo,
		}
	})
}
