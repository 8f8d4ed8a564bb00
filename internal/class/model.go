package class

import (
	"time"

	"github.com/uptrace/bun"
)

type Class struct {
	bun.BaseModel `bun:"table:classes,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description *string   `bun:"description" json:"description"`
	Section     *string   `bun:"section" json:"section"`
	Semester    *string   `bun:"semester" json:"semester"`
	Year        *int      `bun:"year" json:"year"`
	TeacherID   int64     `bun:"teacher_id,notnull" json:"teacher_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Enrollment struct {
	bun.BaseModel `bun:"table:class_enrollments,alias:ce"`

	ClassID    int64     `bun:"class_id,pk"`
	StudentID  int64     `bun:"student_id,pk"`
	EnrolledAt time.Time `bun:"enrolled_at,nullzero,notnull,default:current_timestamp"`
}

// Summary is a class as listed, with its teacher and head count.
// EnrolledAt is only set in a student's own listing.
type Summary struct {
	Class

	TeacherName  string     `bun:"teacher_name" json:"teacher_name"`
	StudentCount int        `bun:"student_count" json:"student_count"`
	EnrolledAt   *time.Time `bun:"enrolled_at" json:"enrolled_at,omitempty"`
}

// RosterEntry is one enrolled student. StudentID is the school-issued
// number from the student's profile, not the user id.
type RosterEntry struct {
	ID         int64     `bun:"id" json:"id"`
	FirstName  string    `bun:"first_name" json:"first_name"`
	LastName   string    `bun:"last_name" json:"last_name"`
	Email      string    `bun:"email" json:"email"`
	EnrolledAt time.Time `bun:"enrolled_at" json:"enrolled_at"`
	StudentID  *string   `bun:"student_id" json:"student_id"`
	YearLevel  *string   `bun:"year_level" json:"year_level"`
	Major      *string   `bun:"major" json:"major"`
}

type Detail struct {
	Summary

	Students []RosterEntry `json:"students"`
}

type CreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Section     *string `json:"section"`
	Semester    *string `json:"semester"`
	Year        *int    `json:"year"`
}

type EnrollRequest struct {
	StudentID int64 `json:"student_id"`
}
