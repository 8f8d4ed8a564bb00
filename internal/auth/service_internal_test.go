package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// emailRepo knows a single user; every other method is unused here.
type emailRepo struct {
	Repository
	user *User
}

func (r emailRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if r.user != nil && r.user.Email == email {
		return r.user, nil
	}
	return nil, errUserNotFound
}

func TestLogin_ComparesHashForUnknownEmail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stored, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := emailRepo{user: &User{ID: 1, Email: "jane@example.com", PasswordHash: string(stored)}}

	svc := NewService(repo, notify.NewLogNotifier(logger), "", metrics.NewMock(), logger)
	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	dummy, err := dummyHash()
	require.NoError(t, err)
	cost, err := bcrypt.Cost(dummy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	tests := []struct {
		name     string
		email    string
		password string
		hash     []byte
	}{
		{"unknown email", "ghost@example.com", "password123", dummy},
		{"wrong password", "jane@example.com", "wrong-password", stored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compared = nil

			user, err := svc.Login(context.Background(), LoginRequest{Email: tt.email, Password: tt.password})
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			require.Len(t, compared, 1)
			assert.Equal(t, tt.hash, compared[0])
		})
	}
}
