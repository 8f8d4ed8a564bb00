package survey

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Survey is a row of surveys. SurveyData is the question document authored
// by the frontend; it is stored and returned verbatim.
type Survey struct {
	bun.BaseModel `bun:"table:surveys,alias:s"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	Title        string          `bun:"title,notnull" json:"title"`
	Description  *string         `bun:"description" json:"description"`
	TeacherID    int64           `bun:"teacher_id,notnull" json:"teacher_id"`
	SurveyData   json.RawMessage `bun:"survey_data,type:jsonb,notnull" json:"survey_data"`
	TemplateName *string         `bun:"template_name" json:"template_name"`
	IsTemplate   bool            `bun:"is_template,notnull" json:"is_template"`
	OpenDate     *time.Time      `bun:"open_date" json:"open_date"`
	CloseDate    *time.Time      `bun:"close_date" json:"close_date"`
	Active       bool            `bun:"active,notnull" json:"active"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Assignment struct {
	bun.BaseModel `bun:"table:survey_assignments,alias:sa"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	SurveyID   int64     `bun:"survey_id,notnull" json:"survey_id"`
	ClassID    int64     `bun:"class_id,notnull" json:"class_id"`
	AssignedAt time.Time `bun:"assigned_at,nullzero,notnull,default:current_timestamp" json:"assigned_at"`
}

// Response is one student's answers to a survey. There is at most one per
// (survey, student); CompletedAt is set only while IsComplete.
type Response struct {
	bun.BaseModel `bun:"table:survey_responses,alias:sr"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	SurveyID     int64           `bun:"survey_id,notnull" json:"survey_id"`
	StudentID    int64           `bun:"student_id,notnull" json:"student_id"`
	ResponseData json.RawMessage `bun:"response_data,type:jsonb,notnull" json:"response_data"`
	IsComplete   bool            `bun:"is_complete,notnull" json:"is_complete"`
	StartedAt    time.Time       `bun:"started_at,nullzero,notnull,default:current_timestamp" json:"started_at"`
	CompletedAt  *time.Time      `bun:"completed_at" json:"completed_at"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	IPAddress    *string         `bun:"ip_address" json:"ip_address"`
	UserAgent    *string         `bun:"user_agent" json:"user_agent"`
}

// Summary is a survey as listed. UserResponse is only filled in for students.
type Summary struct {
	Survey

	TeacherName        string    `bun:"teacher_name" json:"teacher_name"`
	AssignedClasses    int       `bun:"assigned_classes" json:"assigned_classes"`
	TotalResponses     int       `bun:"total_responses" json:"total_responses"`
	CompletedResponses int       `bun:"completed_responses" json:"completed_responses"`
	UserResponse       *Response `bun:"-" json:"user_response"`
}

type Detail struct {
	Survey

	TeacherName  string    `bun:"teacher_name" json:"teacher_name"`
	TeacherEmail string    `bun:"teacher_email" json:"teacher_email"`
	UserResponse *Response `bun:"-" json:"user_response"`
}

type ResponseView struct {
	Response

	StudentName   string  `bun:"student_name" json:"student_name"`
	StudentEmail  string  `bun:"student_email" json:"student_email"`
	StudentNumber *string `bun:"student_number" json:"student_number"`
}

// Filter narrows a survey listing. Nil fields do not filter.
type Filter struct {
	Active   *bool
	Template *bool
}

type CreateRequest struct {
	Title        string          `json:"title"`
	Description  *string         `json:"description"`
	SurveyData   json.RawMessage `json:"survey_data"`
	TemplateName *string         `json:"template_name"`
	IsTemplate   bool            `json:"is_template"`
	OpenDate     *Timestamp      `json:"open_date"`
	CloseDate    *Timestamp      `json:"close_date"`
}

// UpdateRequest is a partial update: absent keys keep their stored values.
type UpdateRequest struct {
	Title        string               `json:"title"`
	Description  Optional[*string]    `json:"description"`
	SurveyData   json.RawMessage      `json:"survey_data"`
	TemplateName Optional[*string]    `json:"template_name"`
	IsTemplate   Optional[bool]       `json:"is_template"`
	OpenDate     Optional[*Timestamp] `json:"open_date"`
	CloseDate    Optional[*Timestamp] `json:"close_date"`
	Active       Optional[bool]       `json:"active"`
}

type AssignRequest struct {
	ClassID int64 `json:"class_id"`
}

type RespondRequest struct {
	ResponseData json.RawMessage `json:"response_data"`
	IsComplete   bool            `json:"is_complete"`
}

// Client identifies where a response was submitted from.
type Client struct {
	IPAddress string
	UserAgent string
}
