package userrepo

import (
	"testing"

	"github.com/Overland-East-Bay/triplink-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/testutil"
	userrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

func TestContract_PostgresUserRepo(t *testing.T) {
	db := testutil.OpenMigratedDB(t)
	t.Cleanup(db.Close)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(db), nil
	})
}
