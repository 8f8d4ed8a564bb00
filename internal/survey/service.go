package survey

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
)

var (
	ErrNotFound          = apperr.NotFound("Survey not found")
	ErrCreateForbidden   = apperr.Permission("Only teachers and admins can create surveys")
	ErrCreateInvalid     = apperr.Validation("Title and survey data are required")
	ErrNoAccess          = apperr.Permission("You do not have access to this survey")
	ErrNotOwner          = apperr.Permission("You can only access your own surveys")
	ErrUpdateForbidden   = apperr.Permission("Only teachers and admins can update surveys")
	ErrUpdateNotOwner    = apperr.Permission("You can only update your own surveys")
	ErrDeleteForbidden   = apperr.Permission("Only teachers and admins can delete surveys")
	ErrDeleteNotOwner    = apperr.Permission("You can only delete your own surveys")
	ErrAssignForbidden   = apperr.Permission("Only teachers and admins can assign surveys")
	ErrClassRequired     = apperr.Validation("Class ID is required")
	ErrAssignNotOwner    = apperr.Permission("You can only assign your own surveys")
	ErrClassNotFound     = apperr.NotFound("Class not found")
	ErrAlreadyAssigned   = apperr.Conflict("Survey is already assigned to this class")
	ErrStudentsOnly      = apperr.Permission("Only students can submit survey responses")
	ErrResponseRequired  = apperr.Validation("Response data is required")
	ErrResponsesStaff    = apperr.Permission("Only teachers and admins can view responses")
	ErrResponsesNotOwner = apperr.Permission("You can only view responses for your own surveys")
	ErrUnknownRole       = apperr.Permission("Insufficient permissions")
)

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
	}
}

// Create stores a new active survey owned by caller.
func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateRequest) (*Survey, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrCreateForbidden
	}
	if strings.TrimSpace(req.Title) == "" || isBlankJSON(req.SurveyData) {
		return nil, ErrCreateInvalid
	}

	survey := &Survey{
		Title:        req.Title,
		Description:  req.Description,
		TeacherID:    caller.ID,
		SurveyData:   req.SurveyData,
		TemplateName: req.TemplateName,
		IsTemplate:   req.IsTemplate,
		OpenDate:     req.OpenDate.TimePtr(),
		CloseDate:    req.CloseDate.TimePtr(),
		Active:       true,
	}
	if err := s.repo.Create(ctx, survey); err != nil {
		return nil, err
	}
	s.metrics.RecordSurveyCreated(ctx)
	return survey, nil
}

// List returns the surveys visible to caller, newest first. Student rows
// carry the caller's own response.
func (s *Service) List(ctx context.Context, caller auth.Identity, filter Filter) ([]Summary, error) {
	shape, ok := listShapes[caller.Role]
	if !ok {
		return nil, ErrUnknownRole
	}

	summaries, err := s.repo.List(ctx, shape, caller.ID, filter)
	if err != nil {
		return nil, err
	}
	if !shape.ownResponses || len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]int64, len(summaries))
	for i := range summaries {
		ids[i] = summaries[i].ID
	}
	responses, err := s.repo.ResponsesByStudent(ctx, caller.ID, ids)
	if err != nil {
		return nil, err
	}

	bySurvey := make(map[int64]*Response, len(responses))
	for i := range responses {
		bySurvey[responses[i].SurveyID] = &responses[i]
	}
	for i := range summaries {
		summaries[i].UserResponse = bySurvey[summaries[i].ID]
	}
	return summaries, nil
}

// Get returns one survey. A student must reach it through an enrolled class
// and gets their own response attached; a teacher must own it.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if errors.Is(err, errNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case auth.RoleStudent:
		ok, err := s.repo.StudentHasAccess(ctx, id, caller.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoAccess
		}
		detail.UserResponse, err = s.repo.GetResponse(ctx, id, caller.ID)
		if err != nil {
			return nil, err
		}
	case auth.RoleTeacher:
		if detail.TeacherID != caller.ID {
			return nil, ErrNotOwner
		}
	}
	return detail, nil
}

// Update applies a partial update. Keys absent from the request keep their
// stored values.
func (s *Service) Update(ctx context.Context, caller auth.Identity, id int64, req UpdateRequest) error {
	if !caller.Role.IsStaff() {
		return ErrUpdateForbidden
	}
	survey, err := s.owned(ctx, caller, id, ErrUpdateNotOwner)
	if err != nil {
		return err
	}

	if req.Title != "" {
		survey.Title = req.Title
	}
	if !isBlankJSON(req.SurveyData) {
		survey.SurveyData = req.SurveyData
	}
	survey.Description = req.Description.Or(survey.Description)
	survey.TemplateName = req.TemplateName.Or(survey.TemplateName)
	survey.IsTemplate = req.IsTemplate.OrIfNotNull(survey.IsTemplate)
	survey.Active = req.Active.OrIfNotNull(survey.Active)
	if req.OpenDate.Set {
		survey.OpenDate = req.OpenDate.Value.TimePtr()
	}
	if req.CloseDate.Set {
		survey.CloseDate = req.CloseDate.Value.TimePtr()
	}
	survey.UpdatedAt = time.Now()

	return s.repo.Update(ctx, survey)
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if !caller.Role.IsStaff() {
		return ErrDeleteForbidden
	}
	if _, err := s.owned(ctx, caller, id, ErrDeleteNotOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Assign makes a survey visible to the students of a class.
func (s *Service) Assign(ctx context.Context, caller auth.Identity, id int64, req AssignRequest) error {
	if !caller.Role.IsStaff() {
		return ErrAssignForbidden
	}
	if req.ClassID <= 0 {
		return ErrClassRequired
	}
	if _, err := s.owned(ctx, caller, id, ErrAssignNotOwner); err != nil {
		return err
	}

	exists, err := s.repo.ClassExists(ctx, req.ClassID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrClassNotFound
	}

	assigned, err := s.repo.IsAssigned(ctx, id, req.ClassID)
	if err != nil {
		return err
	}
	if assigned {
		return ErrAlreadyAssigned
	}

	err = s.repo.Assign(ctx, id, req.ClassID)
	if errors.Is(err, errAlreadyAssigned) {
		return ErrAlreadyAssigned
	}
	return err
}

// Respond records the caller's answers. Later submissions overwrite the
// stored response. Open and close dates are not checked.
func (s *Service) Respond(ctx context.Context, caller auth.Identity, id int64, req RespondRequest, client Client) (*Response, error) {
	if caller.Role != auth.RoleStudent {
		return nil, ErrStudentsOnly
	}
	if isBlankJSON(req.ResponseData) {
		return nil, ErrResponseRequired
	}

	ok, err := s.repo.StudentHasAccess(ctx, id, caller.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAccess
	}

	resp := &Response{
		SurveyID:     id,
		StudentID:    caller.ID,
		ResponseData: req.ResponseData,
		IsComplete:   req.IsComplete,
		IPAddress:    blankToNil(client.IPAddress),
		UserAgent:    blankToNil(client.UserAgent),
	}
	if req.IsComplete {
		now := time.Now()
		resp.CompletedAt = &now
	}

	if err := s.repo.UpsertResponse(ctx, resp); err != nil {
		return nil, err
	}
	s.metrics.RecordSurveyResponse(ctx, req.IsComplete)
	return resp, nil
}

func (s *Service) ListResponses(ctx context.Context, caller auth.Identity, id int64) ([]ResponseView, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrResponsesStaff
	}
	if _, err := s.owned(ctx, caller, id, ErrResponsesNotOwner); err != nil {
		return nil, err
	}
	return s.repo.ListResponses(ctx, id)
}

// owned loads a survey and checks that a teacher caller owns it. Admins
// pass unconditionally.
func (s *Service) owned(ctx context.Context, caller auth.Identity, id int64, notOwner error) (*Survey, error) {
	survey, err := s.repo.Get(ctx, id)
	if errors.Is(err, errNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if caller.Role == auth.RoleTeacher && survey.TeacherID != caller.ID {
		return nil, notOwner
	}
	return survey, nil
}

func blankToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
