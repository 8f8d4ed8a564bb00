package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"

	"github.com/jinzhu/copier"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

var (
	ErrEmailExists        = apperr.Conflict("User with this email already exists")
	ErrInvalidCredentials = apperr.Auth("Invalid email or password")
	ErrInvalidResetToken  = apperr.Auth("Invalid or expired reset token")
	ErrIncorrectPassword  = apperr.Validation("Current password is incorrect")
	ErrUserNotFound       = apperr.NotFound("User not found")
)

// dummyHash stands in for the stored hash when a login email is unknown.
var dummyHash = sync.OnceValues(func() ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte("no account has this password"), bcrypt.DefaultCost)
})

type Service struct {
	repo     Repository
	notifier notify.Notifier
	resetURL string
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	compare  func(hash, password []byte) error
}

func NewService(repo Repository, notifier notify.Notifier, resetURL string, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		resetURL: resetURL,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

// Register creates an account. Self-registered emails count as verified.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PasswordHash:  string(hash),
		Role:          req.Role,
		EmailVerified: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.RecordUserRegistered(ctx, string(user.Role))
	return user, nil
}

// Login verifies credentials. Unknown email and wrong password fail
// identically and both pay for one bcrypt comparison.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, errUserNotFound) {
		hash, herr := dummyHash()
		if herr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", herr)
		}
		_ = s.compare(hash, []byte(req.Password))
		s.metrics.RecordLogin(ctx, false)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLogin(ctx, false)
		return nil, ErrInvalidCredentials
	}

	s.metrics.RecordLogin(ctx, true)
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*User, error) {
	user, err := s.repo.UpdateName(ctx, userID, req.FirstName, req.LastName)
	if errors.Is(err, errUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// RequestPasswordReset issues a one hour token to the user owning email and
// hands it to the notifier. Unknown emails are silently ignored so callers
// cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, errUserNotFound) {
		s.logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(resetTokenTTL)

	if err := s.repo.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}
	s.metrics.RecordPasswordResetRequested(ctx)

	reset := notify.PasswordReset{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Token:     token,
		ResetLink: notify.ResetLink(s.resetURL, token),
		ExpiresAt: expiresAt,
	}
	if err := s.notifier.NotifyPasswordReset(ctx, reset); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver password reset",
			"user_id", user.ID,
			"error", err,
		)
	}
	return nil
}

// ResetPassword redeems a reset token. Tokens are single use.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ok, err := s.repo.ConsumeResetToken(ctx, req.Token, string(hash))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, errUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// NewIdentity snapshots the session-visible attributes of user.
func NewIdentity(user *User) (Identity, error) {
	var id Identity
	if err := copier.Copy(&id, user); err != nil {
		return Identity{}, fmt.Errorf("failed to build identity: %w", err)
	}
	return id, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
