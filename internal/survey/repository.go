package survey

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
	errNotFound        = errors.New("survey not found")
	errAlreadyAssigned = errors.New("already assigned")
)

// assignedToStudent holds when a survey reaches the student through any
// class they are enrolled in. EXISTS keeps one row per survey.
const assignedToStudent = `EXISTS (
	SELECT 1 FROM survey_assignments AS a
	JOIN class_enrollments AS ce ON ce.class_id = a.class_id
	WHERE a.survey_id = s.id AND ce.student_id = ?)`

// listShape is the role-specific part of the survey listing. The where
// placeholder binds the caller id.
type listShape struct {
	where        string
	ownResponses bool
}

var listShapes = map[auth.Role]listShape{
	auth.RoleStudent: {where: assignedToStudent, ownResponses: true},
	auth.RoleTeacher: {where: "s.teacher_id = ?"},
	auth.RoleAdmin:   {},
}

func (s listShape) apply(q *bun.SelectQuery, callerID int64) *bun.SelectQuery {
	if s.where != "" {
		q = q.Where(s.where, callerID)
	}
	return q
}

func (f Filter) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.Active != nil {
		q = q.Where("s.active = ?", *f.Active)
	}
	if f.Template != nil {
		q = q.Where("s.is_template = ?", *f.Template)
	}
	return q
}

type Repository interface {
	List(ctx context.Context, shape listShape, callerID int64, filter Filter) ([]Summary, error)
	Create(ctx context.Context, s *Survey) error
	Get(ctx context.Context, id int64) (*Survey, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	Update(ctx context.Context, s *Survey) error
	Delete(ctx context.Context, id int64) error
	ClassExists(ctx context.Context, classID int64) (bool, error)
	IsAssigned(ctx context.Context, surveyID, classID int64) (bool, error)
	Assign(ctx context.Context, surveyID, classID int64) error
	StudentHasAccess(ctx context.Context, surveyID, studentID int64) (bool, error)
	GetResponse(ctx context.Context, surveyID, studentID int64) (*Response, error)
	ResponsesByStudent(ctx context.Context, studentID int64, surveyIDs []int64) ([]Response, error)
	UpsertResponse(ctx context.Context, r *Response) error
	ListResponses(ctx context.Context, surveyID int64) ([]ResponseView, error)
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
		Model((*Survey)(nil)).
		ColumnExpr("s.*").
		ColumnExpr("CONCAT(u.first_name, ' ', u.last_name) AS teacher_name").
		ColumnExpr("(SELECT COUNT(DISTINCT a.class_id) FROM survey_assignments AS a WHERE a.survey_id = s.id) AS assigned_classes").
		ColumnExpr("(SELECT COUNT(DISTINCT r.student_id) FROM survey_responses AS r WHERE r.survey_id = s.id) AS total_responses").
		ColumnExpr("(SELECT COUNT(DISTINCT r.student_id) FROM survey_responses AS r WHERE r.survey_id = s.id AND r.is_complete) AS completed_responses").
		Join("JOIN users AS u ON u.id = s.teacher_id")
}

func (r *repository) List(ctx context.Context, shape listShape, callerID int64, filter Filter) ([]Summary, error) {
	start := time.Now()
	summaries := make([]Summary, 0)
	q := shape.apply(r.selectSummaries(), callerID)
	err := filter.apply(q).
		OrderExpr("s.created_at DESC, s.id DESC").
		Scan(ctx, &summaries)
	r.metrics.Database.RecordQuery(ctx, "select", "surveys", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return summaries, nil
}

func (r *repository) Create(ctx context.Context, s *Survey) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(s).
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "surveys", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to insert survey: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Survey, error) {
	start := time.Now()
	s := new(Survey)
	err := r.db.NewSelect().
		Model(s).
		Where("s.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "surveys", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return s, nil
}

func (r *repository) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	start := time.Now()
	detail := new(Detail)
	err := r.db.NewSelect().
		Model((*Survey)(nil)).
		ColumnExpr("s.*").
		ColumnExpr("CONCAT(u.first_name, ' ', u.last_name) AS teacher_name").
		ColumnExpr("u.email AS teacher_email").
		Join("JOIN users AS u ON u.id = s.teacher_id").
		Where("s.id = ?", id).
		Scan(ctx, detail)
	r.metrics.Database.RecordQuery(ctx, "select", "surveys", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return detail, nil
}

// Update writes every mutable column of s.
func (r *repository) Update(ctx context.Context, s *Survey) error {
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model(s).
		Column("title", "description", "survey_data", "template_name",
			"is_template", "open_date", "close_date", "active", "updated_at").
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "surveys", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to update survey: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*Survey)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "surveys", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	return nil
}

func (r *repository) ClassExists(ctx context.Context, classID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Table("classes").
		Where("id = ?", classID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "classes", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to look up class: %w", err)
	}
	return exists, nil
}

func (r *repository) IsAssigned(ctx context.Context, surveyID, classID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*Assignment)(nil)).
		Where("survey_id = ?", surveyID).
		Where("class_id = ?", classID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "survey_assignments", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

func (r *repository) Assign(ctx context.Context, surveyID, classID int64) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&Assignment{SurveyID: surveyID, ClassID: classID}).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "survey_assignments", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return errAlreadyAssigned
	}
	if err != nil {
		return fmt.Errorf("failed to assign survey: %w", err)
	}
	return nil
}

func (r *repository) StudentHasAccess(ctx context.Context, surveyID, studentID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*Assignment)(nil)).
		Join("JOIN class_enrollments AS ce ON ce.class_id = sa.class_id").
		Where("sa.survey_id = ?", surveyID).
		Where("ce.student_id = ?", studentID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "survey_assignments", time.Since(start), err)

	if err != nil {
		return false, fmt.Errorf("failed to check survey access: %w", err)
	}
	return exists, nil
}

// GetResponse returns the student's response, or nil if there is none.
func (r *repository) GetResponse(ctx context.Context, surveyID, studentID int64) (*Response, error) {
	start := time.Now()
	resp := new(Response)
	err := r.db.NewSelect().
		Model(resp).
		Where("sr.survey_id = ?", surveyID).
		Where("sr.student_id = ?", studentID).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "survey_responses", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return resp, nil
}

func (r *repository) ResponsesByStudent(ctx context.Context, studentID int64, surveyIDs []int64) ([]Response, error) {
	responses := make([]Response, 0)
	if len(surveyIDs) == 0 {
		return responses, nil
	}

	start := time.Now()
	err := r.db.NewSelect().
		Model(&responses).
		Where("sr.student_id = ?", studentID).
		Where("sr.survey_id IN (?)", bun.In(surveyIDs)).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "survey_responses", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}
	return responses, nil
}

// UpsertResponse stores the one response per (survey, student). The client
// address and agent of the first submission are kept.
func (r *repository) UpsertResponse(ctx context.Context, resp *Response) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(resp).
		On("CONFLICT (survey_id, student_id) DO UPDATE").
		Set("response_data = EXCLUDED.response_data").
		Set("is_complete = EXCLUDED.is_complete").
		Set("completed_at = EXCLUDED.completed_at").
		Set("updated_at = CURRENT_TIMESTAMP").
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "upsert", "survey_responses", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

func (r *repository) ListResponses(ctx context.Context, surveyID int64) ([]ResponseView, error) {
	start := time.Now()
	views := make([]ResponseView, 0)
	err := r.db.NewSelect().
		Model((*Response)(nil)).
		ColumnExpr("sr.*").
		ColumnExpr("CONCAT(u.first_name, ' ', u.last_name) AS student_name").
		ColumnExpr("u.email AS student_email").
		ColumnExpr("sp.student_number").
		Join("JOIN users AS u ON u.id = sr.student_id").
		Join("LEFT JOIN student_profiles AS sp ON sp.user_id = u.id").
		Where("sr.survey_id = ?", surveyID).
		OrderExpr("sr.started_at DESC, sr.id DESC").
		Scan(ctx, &views)
	r.metrics.Database.RecordQuery(ctx, "select", "survey_responses", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return views, nil
}
