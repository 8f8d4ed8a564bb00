package profile_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/profile"
	"github.com/sahajkedia/student-profile-challenge/internal/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, router http.Handler, caller *auth.Identity, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *caller))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProfileHandler_Shared(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := profile.NewService(profile.NewRepository(pg.DB, metrics.NewMock()))
	router := chi.NewRouter()
	profile.NewHandler(service, logger).RegisterRoutes(router)

	type fixture struct {
		student, other, teacher, admin auth.Identity
	}
	setup := func(t *testing.T) fixture {
		testdb.CleanupTables(t, pg.DB)
		return fixture{
			student: auth.Identity{ID: testdb.InsertUser(t, pg.DB, "Sam", "Student", "sam@example.com", "student"), Role: auth.RoleStudent},
			other:   auth.Identity{ID: testdb.InsertUser(t, pg.DB, "Olive", "Other", "olive@example.com", "student"), Role: auth.RoleStudent},
			teacher: auth.Identity{ID: testdb.InsertUser(t, pg.DB, "Tess", "Teacher", "tess@example.com", "teacher"), Role: auth.RoleTeacher},
			admin:   auth.Identity{ID: testdb.InsertUser(t, pg.DB, "Adam", "Admin", "adam@example.com", "admin"), Role: auth.RoleAdmin},
		}
	}

	t.Run("Save_CreatesThenUpdates", func(t *testing.T) {
		f := setup(t)

		w := request(t, router, &f.student, http.MethodPost, "/profiles", map[string]string{
			"goals":          "graduate",
			"bio":            "hello",
			"academic_level": "undergraduate",
			"major":          "Physics",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Message string       `json:"message"`
			Profile profile.View `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Profile saved successfully", resp.Message)
		assert.Equal(t, f.student.ID, resp.Profile.UserID)
		assert.Equal(t, "graduate", *resp.Profile.Goals)
		assert.Equal(t, "sam@example.com", resp.Profile.Email)
		assert.Equal(t, "student", resp.Profile.Role)

		w = request(t, router, &f.student, http.MethodPost, "/profiles", map[string]string{
			"goals": "publish a paper",
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "publish a paper", *resp.Profile.Goals)
		assert.Nil(t, resp.Profile.Bio)
		require.NotNil(t, resp.Profile.Major)
		assert.Equal(t, "Physics", *resp.Profile.Major)

		assert.Equal(t, 1, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM student_profiles WHERE user_id = ?", f.student.ID))
	})

	t.Run("Save_NonStudentForbidden", func(t *testing.T) {
		f := setup(t)

		w := request(t, router, &f.teacher, http.MethodPost, "/profiles", map[string]string{"goals": "x"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"message":"Only students can create profiles"}`, w.Body.String())
		assert.Equal(t, 0, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM student_profiles"))
	})

	t.Run("Get_AccessRules", func(t *testing.T) {
		f := setup(t)
		request(t, router, &f.student, http.MethodPost, "/profiles", map[string]string{"goals": "g"})

		path := "/profiles/" + strconv.FormatInt(f.student.ID, 10)
		assert.Equal(t, http.StatusOK, request(t, router, &f.student, http.MethodGet, path, nil).Code)
		assert.Equal(t, http.StatusOK, request(t, router, &f.teacher, http.MethodGet, path, nil).Code)
		assert.Equal(t, http.StatusOK, request(t, router, &f.admin, http.MethodGet, path, nil).Code)

		w := request(t, router, &f.other, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"message":"Access denied"}`, w.Body.String())

		w = request(t, router, &f.other, http.MethodGet, "/profiles/"+strconv.FormatInt(f.other.ID, 10), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"Profile not found"}`, w.Body.String())

		w = request(t, router, nil, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = request(t, router, &f.teacher, http.MethodGet, "/profiles/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("List_StaffOnlyOrdered", func(t *testing.T) {
		f := setup(t)
		request(t, router, &f.student, http.MethodPost, "/profiles", map[string]string{"goals": "a"})
		request(t, router, &f.other, http.MethodPost, "/profiles", map[string]string{"goals": "b"})

		w := request(t, router, &f.student, http.MethodGet, "/profiles", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"message":"Insufficient permissions"}`, w.Body.String())

		w = request(t, router, &f.teacher, http.MethodGet, "/profiles", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var views []profile.View
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "Other", views[0].LastName)
		assert.Equal(t, "Student", views[1].LastName)
	})

	t.Run("Delete_OwnerOrAdmin", func(t *testing.T) {
		f := setup(t)
		request(t, router, &f.student, http.MethodPost, "/profiles", map[string]string{"goals": "a"})
		request(t, router, &f.other, http.MethodPost, "/profiles", map[string]string{"goals": "b"})

		w := request(t, router, &f.teacher, http.MethodDelete, "/profiles/"+strconv.FormatInt(f.student.ID, 10), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = request(t, router, &f.student, http.MethodDelete, "/profiles/"+strconv.FormatInt(f.student.ID, 10), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Profile deleted successfully"}`, w.Body.String())

		w = request(t, router, &f.student, http.MethodDelete, "/profiles/"+strconv.FormatInt(f.student.ID, 10), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = request(t, router, &f.admin, http.MethodDelete, "/profiles/"+strconv.FormatInt(f.other.ID, 10), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM student_profiles"))
	})
}
