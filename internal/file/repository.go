package file

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

var (
	errNotFound  = errors.New("file not found")
	errDuplicate = errors.New("duplicate file")
)

// anyOwner disables the owner restriction of Get and Delete.
const anyOwner int64 = 0

type Repository interface {
	Create(ctx context.Context, f *File) error
	HashExists(ctx context.Context, userID int64, hash string) (bool, error)
	List(ctx context.Context, userID int64) ([]Info, error)
	Get(ctx context.Context, id, ownerID int64) (*File, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
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

func (r *repository) Create(ctx context.Context, f *File) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(f).
		Returning("id, upload_date").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "uploaded_files", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return errDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *repository) HashExists(ctx context.Context, userID int64, hash string) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*File)(nil)).
		Where("user_id = ?", userID).
		Where("file_hash = ?", hash).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "uploaded_files", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to check file hash: %w", err)
	}
	return exists, nil
}

func (r *repository) List(ctx context.Context, userID int64) ([]Info, error) {
	start := time.Now()
	infos := make([]Info, 0)
	err := r.db.NewSelect().
		Model((*File)(nil)).
		Column("id", "file_name", "file_type", "file_size", "is_primary").
		ColumnExpr("uf.original_name AS original_filename").
		ColumnExpr("uf.upload_date AS uploaded_at").
		Where("uf.user_id = ?", userID).
		OrderExpr("uf.upload_date DESC, uf.id DESC").
		Scan(ctx, &infos)
	r.metrics.Database.RecordQuery(ctx, "select", "uploaded_files", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return infos, nil
}

func (r *repository) Get(ctx context.Context, id, ownerID int64) (*File, error) {
	start := time.Now()
	f := new(File)
	q := r.db.NewSelect().
		Model(f).
		Where("uf.id = ?", id)
	if ownerID != anyOwner {
		q = q.Where("uf.user_id = ?", ownerID)
	}
	err := q.Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "uploaded_files", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

func (r *repository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	start := time.Now()
	q := r.db.NewDelete().
		Model((*File)(nil)).
		Where("id = ?", id)
	if ownerID != anyOwner {
		q = q.Where("user_id = ?", ownerID)
	}
	res, err := q.Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "uploaded_files", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return n > 0, nil
}
