package class

import (
	"context"
	"errors"
	"strings"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
)

var (
	ErrNotFound           = apperr.NotFound("Class not found")
	ErrCreateForbidden    = apperr.Permission("Only teachers and admins can create classes")
	ErrNotEnrolled        = apperr.Permission("You are not enrolled in this class")
	ErrNotOwner           = apperr.Permission("You can only access your own classes")
	ErrEnrollForbidden    = apperr.Permission("Only teachers and admins can enroll students")
	ErrEnrollNotOwner     = apperr.Permission("You can only enroll students in your own classes")
	ErrStudentNotFound    = apperr.NotFound("Student not found")
	ErrAlreadyEnrolled    = apperr.Conflict("Student is already enrolled in this class")
	ErrRemoveForbidden    = apperr.Permission("Only teachers and admins can remove students")
	ErrRemoveNotOwner     = apperr.Permission("You can only remove students from your own classes")
	ErrEnrollmentNotFound = apperr.NotFound("Student not found in this class")
	ErrUnknownRole        = apperr.Permission("Insufficient permissions")
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

// List returns the classes visible to caller, ordered by name.
func (s *Service) List(ctx context.Context, caller auth.Identity) ([]Summary, error) {
	shape, ok := listShapes[caller.Role]
	if !ok {
		return nil, ErrUnknownRole
	}
	return s.repo.List(ctx, shape, caller.ID)
}

// Create stores a class taught by caller.
func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateRequest) (*Class, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrCreateForbidden
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("Class name is required")
	}

	c := &Class{
		Name:        req.Name,
		Description: blankToNil(req.Description),
		Section:     blankToNil(req.Section),
		Semester:    blankToNil(req.Semester),
		Year:        req.Year,
		TeacherID:   caller.ID,
	}
	if c.Year != nil && *c.Year == 0 {
		c.Year = nil
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.RecordClassCreated(ctx)
	return c, nil
}

// Get returns a class with its roster. Students must be enrolled and
// teachers must own the class.
func (s *Service) Get(ctx context.Context, caller auth.Identity, classID int64) (*Detail, error) {
	summary, err := s.repo.GetSummary(ctx, classID)
	if errors.Is(err, errNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case auth.RoleStudent:
		enrolled, err := s.repo.IsEnrolled(ctx, classID, caller.ID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	case auth.RoleTeacher:
		if summary.TeacherID != caller.ID {
			return nil, ErrNotOwner
		}
	}

	roster, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}
	summary.StudentCount = len(roster)

	return &Detail{Summary: *summary, Students: roster}, nil
}

func (s *Service) Enroll(ctx context.Context, caller auth.Identity, classID, studentID int64) error {
	if !caller.Role.IsStaff() {
		return ErrEnrollForbidden
	}
	if studentID <= 0 {
		return apperr.Validation("Student ID is required")
	}
	if err := s.checkOwnership(ctx, caller, classID, ErrEnrollNotOwner); err != nil {
		return err
	}

	isStudent, err := s.repo.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !isStudent {
		return ErrStudentNotFound
	}

	enrolled, err := s.repo.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	err = s.repo.Enroll(ctx, classID, studentID)
	if errors.Is(err, errAlreadyEnrolled) {
		return ErrAlreadyEnrolled
	}
	if err != nil {
		return err
	}
	s.metrics.RecordEnrollment(ctx)
	return nil
}

func (s *Service) RemoveStudent(ctx context.Context, caller auth.Identity, classID, studentID int64) error {
	if !caller.Role.IsStaff() {
		return ErrRemoveForbidden
	}
	if err := s.checkOwnership(ctx, caller, classID, ErrRemoveNotOwner); err != nil {
		return err
	}

	removed, err := s.repo.Unenroll(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrEnrollmentNotFound
	}
	return nil
}

// checkOwnership loads the class and rejects teachers who do not teach it.
// Admins manage every class.
func (s *Service) checkOwnership(ctx context.Context, caller auth.Identity, classID int64, denied error) error {
	c, err := s.repo.Get(ctx, classID)
	if errors.Is(err, errNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if caller.Role == auth.RoleTeacher && c.TeacherID != caller.ID {
		return denied
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
