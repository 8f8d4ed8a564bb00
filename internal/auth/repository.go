package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/db"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"

	"github.com/uptrace/bun"
)

var errUserNotFound = errors.New("user not found")

// Repository is the users table gateway.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateName(ctx context.Context, id int64, firstName, lastName string) (*User, error)
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

// Create inserts user and fills in its generated columns. A duplicate
// email is reported as ErrEmailExists.
func (r *repository) Create(ctx context.Context, user *User) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(user).
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "users", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *repository) getBy(ctx context.Context, column string, value interface{}) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewSelect().
		Model(user).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *repository) UpdateName(ctx context.Context, id int64, firstName, lastName string) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewUpdate().
		Model(user).
		Set("first_name = ?", firstName).
		Set("last_name = ?", lastName).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *repository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("reset_token = ?", token).
		Set("reset_token_expires = ?", expiresAt).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken replaces the password of the user holding an unexpired
// token and clears the token in the same statement. It reports false when
// no user holds the token.
func (r *repository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (bool, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_token = NULL").
		Set("reset_token_expires = NULL").
		Where("reset_token = ?", token).
		Where("reset_token_expires > NOW()").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}
	return n > 0, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
