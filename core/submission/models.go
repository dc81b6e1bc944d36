package submission

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Submission types
const (
	TypeOnTime = "on-time"
	TypeLate   = "late"
)

type (
	// Submission is one graded quiz attempt. Rows are immutable once written.
	Submission struct {
		ID             string    `json:"id"`
		StudentID      string    `json:"student_id"`
		CourseID       string    `json:"course_id"`
		QuizID         string    `json:"quiz_id"`
		Answers        []int     `json:"answers"`
		Score          int       `json:"score"`
		TotalQuestions int       `json:"total_questions"`
		Percentage     float64   `json:"percentage"`
		SubmittedAt    time.Time `json:"submitted_at"` // UTC
		Type           string    `json:"type"`
	}

	// ViewRecord marks a lesson as viewed by a student. Write-once;
	// its ID is studentID_lessonID.
	ViewRecord struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		ClassID   string    `json:"class_id"`
		CourseID  string    `json:"course_id"`
		LessonID  string    `json:"lesson_id"`
		ViewedAt  time.Time `json:"viewed_at"` // UTC
	}
)

// NewSubmission contains information needed to submit a quiz attempt.
// Answers holds the picked option index per question; IsLate is the caller's
// own window assessment and is recorded as-is.
type NewSubmission struct {
	CourseID string `json:"course_id" validate:"required"`
	QuizID   string `json:"quiz_id" validate:"required"`
	Answers  []int  `json:"answers"`
	IsLate   bool   `json:"is_late"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

// NewViewRecord contains information needed to mark a lesson as viewed.
type NewViewRecord struct {
	ClassID  string `json:"class_id" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
	LessonID string `json:"lesson_id" validate:"required"`
}

func (nv *NewViewRecord) Validate(validate *validator.Validate) error {
	return validate.Struct(nv)
}

type QueryFilter struct {
	StudentID  string   `query:"-"`
	StudentIDs []string `query:"-"`
	CourseID   string   `query:"course_id"`
	QuizID     string   `query:"quiz_id"`
	QuizIDs    []string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.StudentIDs == nil && qf.CourseID == "" &&
		qf.QuizID == "" && qf.QuizIDs == nil
}

type ViewFilter struct {
	StudentID string
	ClassID   string
	LessonIDs []string
}
