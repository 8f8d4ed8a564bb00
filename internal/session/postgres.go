package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"

	"github.com/uptrace/bun"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	Data      []byte    `bun:"data,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type postgresBackend struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

// NewPostgresBackend stores sessions in the sessions table.
func NewPostgresBackend(db *bun.DB, m *metrics.Metrics) Backend {
	return &postgresBackend{
		db:      db,
		metrics: m,
	}
}

func (b *postgresBackend) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	row := new(sessionRow)
	err := b.db.NewSelect().
		Model(row).
		Column("data").
		Where("id = ?", id).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	b.metrics.Database.RecordQuery(ctx, "select", "sessions", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return row.Data, nil
}

func (b *postgresBackend) Set(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	start := time.Now()
	row := &sessionRow{
		ID:        id,
		Data:      data,
		ExpiresAt: expiresAt,
	}

	_, err := b.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)

	b.metrics.Database.RecordQuery(ctx, "upsert", "sessions", time.Since(start), err)

	return err
}

func (b *postgresBackend) Destroy(ctx context.Context, id string) error {
	start := time.Now()
	_, err := b.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	b.metrics.Database.RecordQuery(ctx, "delete", "sessions", time.Since(start), err)

	return err
}

func (b *postgresBackend) DeleteExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	result, err := b.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)

	b.metrics.Database.RecordQuery(ctx, "delete", "sessions", time.Since(start), err)

	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
