package survey

import (
	"database/sql"
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func TestListShapes(t *testing.T) {
	sqldb := sql.OpenDB(pgdriver.NewConnector())
	bdb := bun.NewDB(sqldb, pgdialect.New())
	defer bdb.Close()

	repo := &repository{db: bdb}
	render := func(role auth.Role, filter Filter) string {
		shape, ok := listShapes[role]
		require.True(t, ok, "no shape for %s", role)
		return filter.apply(shape.apply(repo.selectSummaries(), 7)).String()
	}

	t.Run("student", func(t *testing.T) {
		q := render(auth.RoleStudent, Filter{})
		assert.Contains(t, q, "ce.student_id = 7")
		assert.Contains(t, q, "EXISTS")
		assert.NotContains(t, q, "s.teacher_id = 7")
		assert.True(t, listShapes[auth.RoleStudent].ownResponses)
	})

	t.Run("teacher", func(t *testing.T) {
		q := render(auth.RoleTeacher, Filter{})
		assert.Contains(t, q, "s.teacher_id = 7")
		assert.NotContains(t, q, "ce.student_id")
		assert.False(t, listShapes[auth.RoleTeacher].ownResponses)
	})

	t.Run("admin", func(t *testing.T) {
		q := render(auth.RoleAdmin, Filter{})
		assert.NotContains(t, q, "= 7")
		assert.False(t, listShapes[auth.RoleAdmin].ownResponses)
	})

	t.Run("filters", func(t *testing.T) {
		yes, no := true, false
		q := render(auth.RoleAdmin, Filter{Active: &yes, Template: &no})
		assert.Contains(t, q, "s.active = TRUE")
		assert.Contains(t, q, "s.is_template = FALSE")

		q = render(auth.RoleAdmin, Filter{})
		assert.NotContains(t, q, "s.active =")
		assert.NotContains(t, q, "s.is_template =")
	})

	for _, role := range []auth.Role{auth.RoleStudent, auth.RoleTeacher, auth.RoleAdmin} {
		q := render(role, Filter{})
		assert.Contains(t, q, "AS teacher_name", role)
		assert.Contains(t, q, "AS assigned_classes", role)
		assert.Contains(t, q, "AS total_responses", role)
		assert.Contains(t, q, "AS completed_responses", role)
	}

	_, ok := listShapes[auth.Role("janitor")]
	assert.False(t, ok)
}
