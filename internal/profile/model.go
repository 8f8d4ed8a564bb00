package profile

import (
	"time"

	"github.com/uptrace/bun"
)

// Profile is a row of student_profiles.
type Profile struct {
	bun.BaseModel `bun:"table:student_profiles,alias:sp"`

	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        int64     `bun:"user_id,notnull,unique"`
	Goals         *string   `bun:"goals"`
	Interests     *string   `bun:"interests"`
	Skills        *string   `bun:"skills"`
	Bio           *string   `bun:"bio"`
	AcademicLevel *string   `bun:"academic_level"`
	StudentNumber *string   `bun:"student_number"`
	YearLevel     *string   `bun:"year_level"`
	Major         *string   `bun:"major"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// View is a profile joined with its owner.
type View struct {
	ID            int64     `bun:"id" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Goals         *string   `bun:"goals" json:"goals"`
	Interests     *string   `bun:"interests" json:"interests"`
	Skills        *string   `bun:"skills" json:"skills"`
	Bio           *string   `bun:"bio" json:"bio"`
	AcademicLevel *string   `bun:"academic_level" json:"academic_level"`
	StudentNumber *string   `bun:"student_number" json:"student_number"`
	YearLevel     *string   `bun:"year_level" json:"year_level"`
	Major         *string   `bun:"major" json:"major"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
	FirstName     string    `bun:"first_name" json:"first_name"`
	LastName      string    `bun:"last_name" json:"last_name"`
	Email         string    `bun:"email" json:"email"`
	Role          string    `bun:"role" json:"role"`
}

// SaveRequest replaces the narrative fields of the caller's profile.
// Roster fields left out keep their stored values.
type SaveRequest struct {
	Goals         *string `json:"goals"`
	Interests     *string `json:"interests"`
	Skills        *string `json:"skills"`
	Bio           *string `json:"bio"`
	AcademicLevel *string `json:"academic_level"`
	StudentNumber *string `json:"student_number"`
	YearLevel     *string `json:"year_level"`
	Major         *string `json:"major"`
}
