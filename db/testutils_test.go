package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDB    *sqlx.DB
	getDBOnce sync.Once
)

// getTestDB opens (once per test binary run) the connection the
// POSTGRES_URL environment variable points at and applies the schema.
// Tests that need it call startPostgresContainer first and set that env
// var from its connection string.
func getTestDB(t *testing.T) *sqlx.DB {
	getDBOnce.Do(func() {
		var err error
		testDB, err = sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		require.NoError(t, err)
		t.Cleanup(func() { testDB.Close() })

		require.NoError(t, InitializeDatabaseSchema(testDB))
	})
	return testDB
}

func startPostgresContainer(t *testing.T) string {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase("db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	require.NoError(t, err)
	return connStr
}
