package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"
	"github.com/sahajkedia/student-profile-challenge/internal/session"
	"github.com/sahajkedia/student-profile-challenge/internal/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu     sync.Mutex
	resets []notify.PasswordReset
}

func (n *captureNotifier) NotifyPasswordReset(_ context.Context, reset notify.PasswordReset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, reset)
	return nil
}

func (n *captureNotifier) Close() error { return nil }

func (n *captureNotifier) take() []notify.PasswordReset {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.resets
	n.resets = nil
	return out
}

// gateNotifier holds each delivery until release is closed.
type gateNotifier struct {
	delivered chan notify.PasswordReset
	release   chan struct{}
}

func (n *gateNotifier) NotifyPasswordReset(_ context.Context, reset notify.PasswordReset) error {
	n.delivered <- reset
	<-n.release
	return nil
}

func (n *gateNotifier) Close() error { return nil }

// client replays the cookies the server hands out, like a browser would.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, router http.Handler) *client {
	return &client{t: t, router: router, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, payload interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(c.t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuthHandler_Shared(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	logger := discardLogger()
	mockMetrics := metrics.NewMock()
	notifier := &captureNotifier{}

	store := session.NewStore(session.NewPostgresBackend(pg.DB, mockMetrics), logger, sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
	}, []byte("0123456789abcdef0123456789abcdef"))
	sess := auth.NewSessions(store, testCookieName)

	repo := auth.NewRepository(pg.DB, mockMetrics)
	service := auth.NewService(repo, notifier, "http://localhost:3001/reset-password", mockMetrics, logger)
	handler := auth.NewHandler(service, sess, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(auth.LoadSession(sess, logger))
		handler.RegisterRoutes(r)
	})

	reset := func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, "users", "sessions")
		notifier.take()
	}

	t.Run("Register_Success", func(t *testing.T) {
		reset(t)
		c := newClient(t, router)

		w := c.do(http.MethodPost, "/api/auth/register", map[string]string{
			"first_name": "John",
			"last_name":  "Doe",
			"email":      "john.doe@example.com",
			"password":   "password123",
			"role":       "student",
		})

		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, "User registered successfully", body["message"])
		user := body["user"].(map[string]interface{})
		assert.Equal(t, "john.doe@example.com", user["email"])
		assert.Equal(t, "student", user["role"])
		assert.Equal(t, true, user["email_verified"])
		assert.NotContains(t, w.Body.String(), "password")

		require.Contains(t, c.cookies, testCookieName)

		w = c.do(http.MethodGet, "/api/auth/me", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body = decode(t, w)
		assert.Equal(t, true, body["authenticated"])
		assert.Equal(t, "John", body["user"].(map[string]interface{})["first_name"])
	})

	t.Run("Register_DuplicateEmail", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Existing", "User", "duplicate@example.com", "teacher")

		w := newClient(t, router).do(http.MethodPost, "/api/auth/register", map[string]string{
			"first_name": "New",
			"last_name":  "User",
			"email":      "duplicate@example.com",
			"password":   "password456",
			"role":       "student",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"User with this email already exists"}`, w.Body.String())
		assert.Equal(t, 1, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM users"))
		assert.Equal(t, "Existing", firstNameOf(t, pg, "duplicate@example.com"))
	})

	t.Run("Register_ValidationErrors", func(t *testing.T) {
		reset(t)

		tests := []struct {
			name    string
			payload map[string]string
			message string
		}{
			{
				name:    "missing fields",
				payload: map[string]string{"email": "a@example.com", "password": "secret"},
				message: "All fields are required",
			},
			{
				name: "invalid role",
				payload: map[string]string{
					"first_name": "A", "last_name": "B", "email": "a@example.com",
					"password": "secret", "role": "janitor",
				},
				message: "Invalid role specified",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := newClient(t, router).do(http.MethodPost, "/api/auth/register", tt.payload)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, tt.message, decode(t, w)["message"])
			})
		}
		assert.Equal(t, 0, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM users"))
	})

	t.Run("Register_Email_Only_Needs_Presence", func(t *testing.T) {
		reset(t)

		w := newClient(t, router).do(http.MethodPost, "/api/auth/register", map[string]string{
			"first_name": "J", "last_name": "Doe", "email": "jdoe",
			"password": "password123", "role": "student",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, 1, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM users WHERE email = 'jdoe'"))
	})

	t.Run("Login_Success", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "teacher")
		c := newClient(t, router)

		w := c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "jane@example.com",
			"password": testdb.DefaultPassword,
		})

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Login successful", body["message"])
		assert.Equal(t, "teacher", body["user"].(map[string]interface{})["role"])
		assert.Equal(t, 1, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM sessions"))

		w = c.do(http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Login_FailuresAreIndistinguishable", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")

		unknown := newClient(t, router).do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "nobody@example.com", "password": testdb.DefaultPassword,
		})
		wrong := newClient(t, router).do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": "wrong-password",
		})

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, unknown.Code, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
		assert.JSONEq(t, `{"message":"Invalid email or password"}`, wrong.Body.String())
	})

	t.Run("Login_MissingFields", func(t *testing.T) {
		w := newClient(t, router).do(http.MethodPost, "/api/auth/login", map[string]string{"email": "x@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Email and password are required"}`, w.Body.String())
	})

	t.Run("Me_Anonymous", func(t *testing.T) {
		w := newClient(t, router).do(http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"authenticated":false,"message":"Not authenticated"}`, w.Body.String())
	})

	t.Run("Logout", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")
		c := newClient(t, router)
		c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": testdb.DefaultPassword,
		})
		stale := *c.cookies[testCookieName]

		w := c.do(http.MethodPost, "/api/auth/logout", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Logout successful"}`, w.Body.String())
		assert.Equal(t, 0, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM sessions"))

		// replaying the old cookie is anonymous
		c.cookies[testCookieName] = &stale
		w = c.do(http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		// logging out twice is fine
		w = newClient(t, router).do(http.MethodPost, "/api/auth/logout", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdateProfile_RefreshesSession", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")
		c := newClient(t, router)
		c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": testdb.DefaultPassword,
		})

		w := c.do(http.MethodPut, "/api/auth/profile", map[string]string{
			"first_name": "Janet", "last_name": "Smythe",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Profile updated successfully", decode(t, w)["message"])

		w = c.do(http.MethodGet, "/api/auth/me", nil)
		user := decode(t, w)["user"].(map[string]interface{})
		assert.Equal(t, "Janet", user["first_name"])
		assert.Equal(t, "Smythe", user["last_name"])
		assert.Equal(t, "Janet", firstNameOf(t, pg, "jane@example.com"))
	})

	t.Run("UpdateProfile_Anonymous", func(t *testing.T) {
		w := newClient(t, router).do(http.MethodPut, "/api/auth/profile", map[string]string{
			"first_name": "X", "last_name": "Y",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ForgotPassword_UnknownEmail", func(t *testing.T) {
		reset(t)

		w := newClient(t, router).do(http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": "ghost@example.com",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"If the email exists, a reset link has been sent"}`, w.Body.String())
		assert.Empty(t, notifier.take())
	})

	t.Run("ForgotPassword_Does_Not_Wait_For_Delivery", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")

		gate := &gateNotifier{
			delivered: make(chan notify.PasswordReset, 1),
			release:   make(chan struct{}),
		}
		defer close(gate.release)

		slowService := auth.NewService(repo, notify.Async(gate, time.Minute, logger), "http://localhost:3001/reset-password", mockMetrics, logger)
		slowRouter := chi.NewRouter()
		slowRouter.Route("/api", func(r chi.Router) {
			r.Use(auth.LoadSession(sess, logger))
			auth.NewHandler(slowService, sess, logger).RegisterRoutes(r)
		})

		done := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
				bytes.NewBufferString(`{"email":"jane@example.com"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			slowRouter.ServeHTTP(w, req)
			done <- w
		}()

		select {
		case w := <-done:
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"message":"If the email exists, a reset link has been sent"}`, w.Body.String())
		case <-time.After(5 * time.Second):
			t.Fatal("forgot-password waited for the notifier")
		}

		select {
		case sent := <-gate.delivered:
			assert.Equal(t, "jane@example.com", sent.Email)
		case <-time.After(5 * time.Second):
			t.Fatal("reset was never handed to the notifier")
		}
	})

	t.Run("ResetPassword_Flow", func(t *testing.T) {
		reset(t)
		userID := testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")
		c := newClient(t, router)

		w := c.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "jane@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"If the email exists, a reset link has been sent"}`, w.Body.String())

		sent := notifier.take()
		require.Len(t, sent, 1)
		token := sent[0].Token
		assert.Len(t, token, 64)
		assert.Equal(t, userID, sent[0].UserID)
		assert.Equal(t, "http://localhost:3001/reset-password?token="+token, sent[0].ResetLink)
		assert.NotContains(t, w.Body.String(), token)

		w = c.do(http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token": token, "newPassword": "brand-new-pass",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Password reset successful"}`, w.Body.String())

		// single use
		w = c.do(http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token": token, "newPassword": "another-pass",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Invalid or expired reset token"}`, w.Body.String())

		w = c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": "brand-new-pass",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ResetPassword_ExpiredToken", func(t *testing.T) {
		reset(t)
		userID := testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "student")
		testdb.Exec(t, pg.DB,
			"UPDATE users SET reset_token = ?, reset_token_expires = NOW() - INTERVAL '1 minute' WHERE id = ?",
			"expired-token", userID)

		w := newClient(t, router).do(http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token": "expired-token", "newPassword": "brand-new-pass",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Invalid or expired reset token"}`, w.Body.String())
	})

	t.Run("ResetPassword_Validation", func(t *testing.T) {
		c := newClient(t, router)

		w := c.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "abc"})
		assert.Equal(t, "Token and new password are required", decode(t, w)["message"])

		w = c.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "abc", "newPassword": "123"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Password must be at least 6 characters long", decode(t, w)["message"])
	})

	t.Run("ChangePassword", func(t *testing.T) {
		reset(t)
		testdb.InsertUser(t, pg.DB, "Jane", "Smith", "jane@example.com", "teacher")
		c := newClient(t, router)
		c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": testdb.DefaultPassword,
		})

		w := c.do(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "not-it", "newPassword": "changed-pass",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Current password is incorrect"}`, w.Body.String())

		w = c.do(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": testdb.DefaultPassword, "newPassword": "123",
		})
		assert.Equal(t, "New password must be at least 6 characters long", decode(t, w)["message"])

		w = c.do(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": testdb.DefaultPassword, "newPassword": "changed-pass",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Password changed successfully"}`, w.Body.String())

		w = newClient(t, router).do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "jane@example.com", "password": "changed-pass",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ChangePassword_Anonymous", func(t *testing.T) {
		w := newClient(t, router).do(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "a", "newPassword": "bbbbbb",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"authenticated":false,"message":"Authentication required"}`, w.Body.String())
	})
}

func firstNameOf(t *testing.T, pg *testdb.PostgresContainer, email string) string {
	t.Helper()

	var name string
	err := pg.DB.QueryRowContext(context.Background(), "SELECT first_name FROM users WHERE email = ?", email).Scan(&name)
	require.NoError(t, err)
	return name
}
