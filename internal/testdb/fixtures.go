package testdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the plaintext password of every user created by InsertUser.
const DefaultPassword = "password123"

// InsertUser stores a user directly and returns its id.
func InsertUser(t *testing.T, db *bun.DB, firstName, lastName, email, role string) int64 {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	require.NoError(t, err)

	var id int64
	err = db.QueryRowContext(context.Background(),
		`INSERT INTO users (first_name, last_name, email, password_hash, role, email_verified)
		 VALUES (?, ?, ?, ?, ?, TRUE) RETURNING id`,
		firstName, lastName, email, string(hash), role,
	).Scan(&id)
	require.NoError(t, err)

	return id
}

// Exec runs a raw statement for test setup.
func Exec(t *testing.T, db *bun.DB, query string, args ...interface{}) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

// Count returns the result of a SELECT COUNT(*) style query.
func Count(t *testing.T, db *bun.DB, query string, args ...interface{}) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
