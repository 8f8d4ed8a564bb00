package profile

import (
	"context"
	"errors"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/auth"
)

var (
	ErrAccessDenied = apperr.Permission("Access denied")
	ErrNotFound     = apperr.NotFound("Profile not found")
	ErrStudentsOnly = apperr.Permission("Only students can create profiles")
	ErrStaffOnly    = apperr.Permission("Insufficient permissions")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the profile of userID. Students may only read their own.
func (s *Service) Get(ctx context.Context, caller auth.Identity, userID int64) (*View, error) {
	if caller.ID != userID && !caller.Role.IsStaff() {
		return nil, ErrAccessDenied
	}

	view, err := s.repo.Get(ctx, userID)
	if errors.Is(err, errNotFound) {
		return nil, ErrNotFound
	}
	return view, err
}

// Save creates or replaces the caller's own profile.
func (s *Service) Save(ctx context.Context, caller auth.Identity, req SaveRequest) (*View, error) {
	if caller.Role != auth.RoleStudent {
		return nil, ErrStudentsOnly
	}

	p := &Profile{
		UserID:        caller.ID,
		Goals:         req.Goals,
		Interests:     req.Interests,
		Skills:        req.Skills,
		Bio:           req.Bio,
		AcademicLevel: req.AcademicLevel,
		StudentNumber: req.StudentNumber,
		YearLevel:     req.YearLevel,
		Major:         req.Major,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, caller.ID)
}

func (s *Service) List(ctx context.Context, caller auth.Identity) ([]View, error) {
	if !caller.Role.IsStaff() {
		return nil, ErrStaffOnly
	}
	return s.repo.List(ctx)
}

// Delete removes the profile of userID. Only the owner or an admin may.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, userID int64) error {
	if caller.ID != userID && caller.Role != auth.RoleAdmin {
		return ErrAccessDenied
	}

	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
