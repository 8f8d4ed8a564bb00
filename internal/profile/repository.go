package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"

	"github.com/uptrace/bun"
)

var errNotFound = errors.New("profile not found")

type Repository interface {
	Get(ctx context.Context, userID int64) (*View, error)
	List(ctx context.Context) ([]View, error)
	Upsert(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, userID int64) (bool, error)
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

func (r *repository) selectViews() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*Profile)(nil)).
		ColumnExpr("sp.*").
		ColumnExpr("u.first_name, u.last_name, u.email, u.role").
		Join("JOIN users AS u ON u.id = sp.user_id")
}

func (r *repository) Get(ctx context.Context, userID int64) (*View, error) {
	start := time.Now()
	view := new(View)
	err := r.selectViews().
		Where("sp.user_id = ?", userID).
		Scan(ctx, view)
	r.metrics.Database.RecordQuery(ctx, "select", "student_profiles", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return view, nil
}

func (r *repository) List(ctx context.Context) ([]View, error) {
	start := time.Now()
	views := make([]View, 0)
	err := r.selectViews().
		OrderExpr("u.last_name, u.first_name").
		Scan(ctx, &views)
	r.metrics.Database.RecordQuery(ctx, "select", "student_profiles", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return views, nil
}

// Upsert writes p in one statement keyed by user_id.
func (r *repository) Upsert(ctx context.Context, p *Profile) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (user_id) DO UPDATE").
		Set("goals = EXCLUDED.goals").
		Set("interests = EXCLUDED.interests").
		Set("skills = EXCLUDED.skills").
		Set("bio = EXCLUDED.bio").
		Set("academic_level = EXCLUDED.academic_level").
		Set("student_number = COALESCE(EXCLUDED.student_number, sp.student_number)").
		Set("year_level = COALESCE(EXCLUDED.year_level, sp.year_level)").
		Set("major = COALESCE(EXCLUDED.major, sp.major)").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "upsert", "student_profiles", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID int64) (bool, error) {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Profile)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "student_profiles", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	return n > 0, nil
}
