//go:build integration

package sqlstore_test

import (
	"testing"

	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/platform/sqlstore"
	"github.com/phrazzld/shelf-api/internal/testdb"
)

func TestStore_PostgresContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) *sqlstore.Store {
		return sqlstore.NewStore(testdb.OpenPostgres(t), sqlstore.DialectPostgres, logger.Discard())
	})
}
