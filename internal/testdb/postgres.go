// Package testdb runs integration tests against a real PostgreSQL started
// with testcontainers and migrated with the production migrations.
package testdb

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

// AllTables lists every application table in truncation order.
var AllTables = []string{
	"sessions",
	"uploaded_files",
	"survey_responses",
	"survey_assignments",
	"surveys",
	"class_enrollments",
	"classes",
	"student_profiles",
	"users",
}

var (
	sharedContainer *PostgresContainer
	sharedOnce      sync.Once
	sharedErr       error
)

// PostgresContainer wraps the postgres testcontainer
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres creates a single migrated PostgreSQL container shared
// by every test in the package. Tests using it cannot run in parallel.
//
// Usage:
//
//	func TestClassHandler(t *testing.T) {
//	    pg := testdb.SetupSharedPostgres(t)
//	    defer pg.Cleanup(t)
//
//	    t.Run("Create", func(t *testing.T) {
//	        testdb.CleanupTables(t, pg.DB)
//	        // ... test
//	    })
//	}
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() {
		sharedContainer, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr)

	return sharedContainer
}

func start(ctx context.Context) (*PostgresContainer, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(connStr); err != nil {
		return nil, err
	}

	bunDB, err := db.NewWithDSN(ctx, connStr)
	if err != nil {
		return nil, err
	}

	return &PostgresContainer{
		Container: pgContainer,
		DB:        bunDB,
		DSN:       connStr,
	}, nil
}

func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if pc.DB != nil {
		pc.DB.Close()
	}

	if pc.Container != nil {
		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// CleanupTables truncates the given tables, or every application table when none are named.
func CleanupTables(t *testing.T, db *bun.DB, tables ...string) {
	t.Helper()

	if len(tables) == 0 {
		tables = AllTables
	}

	_, err := db.ExecContext(context.Background(), "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err, "failed to truncate tables: %v", tables)
}
