package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database *DatabaseMetrics
	Notify   *NotifyMetrics
	Health   *HealthMetrics

	usersRegistered    metric.Int64Counter
	logins             metric.Int64Counter
	passwordResets     metric.Int64Counter
	classesCreated     metric.Int64Counter
	enrollments        metric.Int64Counter
	surveysCreated     metric.Int64Counter
	surveyResponses    metric.Int64Counter
	filesUploaded      metric.Int64Counter
	fileUploadsDeduped metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.Database, err = NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.Notify, err = NewNotifyMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.Health, err = NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.usersRegistered, err = meter.Int64Counter(
		"student_profile.users.registered",
		metric.WithDescription("Total number of users registered"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, err
	}

	m.logins, err = meter.Int64Counter(
		"student_profile.auth.logins",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.passwordResets, err = meter.Int64Counter(
		"student_profile.auth.password_resets_requested",
		metric.WithDescription("Password reset tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	m.classesCreated, err = meter.Int64Counter(
		"student_profile.classes.created",
		metric.WithDescription("Total number of classes created"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	m.enrollments, err = meter.Int64Counter(
		"student_profile.classes.enrollments",
		metric.WithDescription("Total number of students enrolled into classes"),
		metric.WithUnit("{enrollment}"),
	)
	if err != nil {
		return nil, err
	}

	m.surveysCreated, err = meter.Int64Counter(
		"student_profile.surveys.created",
		metric.WithDescription("Total number of surveys created"),
		metric.WithUnit("{survey}"),
	)
	if err != nil {
		return nil, err
	}

	m.surveyResponses, err = meter.Int64Counter(
		"student_profile.surveys.responses_saved",
		metric.WithDescription("Survey responses saved by completion state"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	m.filesUploaded, err = meter.Int64Counter(
		"student_profile.files.uploaded",
		metric.WithDescription("Total number of files uploaded"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	m.fileUploadsDeduped, err = meter.Int64Counter(
		"student_profile.files.duplicates_rejected",
		metric.WithDescription("Uploads rejected because the user already stored the same content"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordUserRegistered(ctx context.Context, role string) {
	if m != nil && m.usersRegistered != nil {
		m.usersRegistered.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	}
}

func (m *Metrics) RecordLogin(ctx context.Context, success bool) {
	if m != nil && m.logins != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

func (m *Metrics) RecordPasswordResetRequested(ctx context.Context) {
	if m != nil && m.passwordResets != nil {
		m.passwordResets.Add(ctx, 1)
	}
}

func (m *Metrics) RecordClassCreated(ctx context.Context) {
	if m != nil && m.classesCreated != nil {
		m.classesCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordEnrollment(ctx context.Context) {
	if m != nil && m.enrollments != nil {
		m.enrollments.Add(ctx, 1)
	}
}

func (m *Metrics) RecordSurveyCreated(ctx context.Context) {
	if m != nil && m.surveysCreated != nil {
		m.surveysCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordSurveyResponse(ctx context.Context, complete bool) {
	if m != nil && m.surveyResponses != nil {
		m.surveyResponses.Add(ctx, 1, metric.WithAttributes(attribute.Bool("complete", complete)))
	}
}

func (m *Metrics) RecordFileUploaded(ctx context.Context, mimeType string) {
	if m != nil && m.filesUploaded != nil {
		m.filesUploaded.Add(ctx, 1, metric.WithAttributes(attribute.String("mime_type", mimeType)))
	}
}

func (m *Metrics) RecordDuplicateUpload(ctx context.Context) {
	if m != nil && m.fileUploadsDeduped != nil {
		m.fileUploadsDeduped.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
