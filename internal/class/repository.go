package class

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/db"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"

	"github.com/uptrace/bun"
)

var (
	errNotFound        = errors.New("class not found")
	errAlreadyEnrolled = errors.New("already enrolled")
)

// listShape is the role-specific part of the class listing query.
// Placeholders in join and where bind the caller id.
type listShape struct {
	join    string
	where   string
	columns []string
}

var listShapes = map[auth.Role]listShape{
	auth.RoleStudent: {
		join:    "JOIN class_enrollments AS me ON me.class_id = c.id AND me.student_id = ?",
		columns: []string{"me.enrolled_at"},
	},
	auth.RoleTeacher: {
		where: "c.teacher_id = ?",
	},
	auth.RoleAdmin: {},
}

func (s listShape) apply(q *bun.SelectQuery, callerID int64) *bun.SelectQuery {
	if s.join != "" {
		q = q.Join(s.join, callerID)
	}
	for _, col := range s.columns {
		q = q.ColumnExpr(col)
	}
	if s.where != "" {
		q = q.Where(s.where, callerID)
	}
	return q
}

type Repository interface {
	List(ctx context.Context, shape listShape, callerID int64) ([]Summary, error)
	Create(ctx context.Context, c *Class) error
	Get(ctx context.Context, id int64) (*Class, error)
	GetSummary(ctx context.Context, id int64) (*Summary, error)
	Roster(ctx context.Context, classID int64) ([]RosterEntry, error)
	IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error)
	StudentExists(ctx context.Context, userID int64) (bool, error)
	Enroll(ctx context.Context, classID, studentID int64) error
	Unenroll(ctx context.Context, classID, studentID int64) (bool, error)
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

func (r *repository) selectSummaries() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*Class)(nil)).
		ColumnExpr("c.*").
		ColumnExpr("CONCAT(u.first_name, ' ', u.last_name) AS teacher_name").
		ColumnExpr("(SELECT COUNT(*) FROM class_enrollments AS e WHERE e.class_id = c.id) AS student_count").
		Join("JOIN users AS u ON u.id = c.teacher_id")
}

func (r *repository) List(ctx context.Context, shape listShape, callerID int64) ([]Summary, error) {
	start := time.Now()
	summaries := make([]Summary, 0)
	err := shape.apply(r.selectSummaries(), callerID).
		OrderExpr("c.name").
		Scan(ctx, &summaries)
	r.metrics.Database.RecordQuery(ctx, "select", "classes", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return summaries, nil
}

func (r *repository) Create(ctx context.Context, c *Class) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(c).
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "classes", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to insert class: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Class, error) {
	start := time.Now()
	c := new(Class)
	err := r.db.NewSelect().
		Model(c).
		Where("c.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "classes", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return c, nil
}

func (r *repository) GetSummary(ctx context.Context, id int64) (*Summary, error) {
	start := time.Now()
	summary := new(Summary)
	err := r.selectSummaries().
		Where("c.id = ?", id).
		Scan(ctx, summary)
	r.metrics.Database.RecordQuery(ctx, "select", "classes", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return summary, nil
}

func (r *repository) Roster(ctx context.Context, classID int64) ([]RosterEntry, error) {
	start := time.Now()
	roster := make([]RosterEntry, 0)
	err := r.db.NewSelect().
		Model((*Enrollment)(nil)).
		ColumnExpr("u.id, u.first_name, u.last_name, u.email, ce.enrolled_at").
		ColumnExpr("sp.student_number AS student_id, sp.year_level, sp.major").
		Join("JOIN users AS u ON u.id = ce.student_id").
		Join("LEFT JOIN student_profiles AS sp ON sp.user_id = u.id").
		Where("ce.class_id = ?", classID).
		OrderExpr("u.last_name, u.first_name").
		Scan(ctx, &roster)
	r.metrics.Database.RecordQuery(ctx, "select", "class_enrollments", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	return roster, nil
}

func (r *repository) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*Enrollment)(nil)).
		Where("class_id = ?", classID).
		Where("student_id = ?", studentID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "class_enrollments", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

func (r *repository) StudentExists(ctx context.Context, userID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Table("users").
		Where("id = ?", userID).
		Where("role = ?", auth.RoleStudent).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to look up student: %w", err)
	}
	return exists, nil
}

func (r *repository) Enroll(ctx context.Context, classID, studentID int64) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&Enrollment{ClassID: classID, StudentID: studentID}).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "class_enrollments", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return errAlreadyEnrolled
	}
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	return nil
}

func (r *repository) Unenroll(ctx context.Context, classID, studentID int64) (bool, error) {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Enrollment)(nil)).
		Where("class_id = ?", classID).
		Where("student_id = ?", studentID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "class_enrollments", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to remove student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove student: %w", err)
	}
	return n > 0, nil
}
