package report

import (
	"time"

	"github.com/trezcool/darasa/core/user"
)

// Grouping modes for the XLSX export.
const (
	GroupByLastName = "lastName"
	GroupByGender   = "gender"
)

// Feed item kinds & statuses.
const (
	KindLesson = "lesson"
	KindQuiz   = "quiz"

	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusOverdue   = "overdue"
)

type (
	// QuizColumn is one column of the report matrix: a granted quiz with its
	// position in the course tree.
	QuizColumn struct {
		CourseID      string `json:"course_id"`
		CourseTitle   string `json:"course_title"`
		UnitID        string `json:"unit_id"`
		LessonID      string `json:"lesson_id"`
		LessonTitle   string `json:"lesson_title"`
		QuizID        string `json:"quiz_id"`
		QuizTitle     string `json:"quiz_title"`
		QuestionCount int    `json:"question_count"`
	}

	// Cell holds a student's scores for one quiz. FirstAttemptScore comes
	// from the earliest submission, HighestScore from the best one.
	Cell struct {
		FirstAttemptScore int `json:"first_attempt_score"`
		HighestScore      int `json:"highest_score"`
	}

	// Report is the per-class score matrix. Matrix maps
	// studentID -> quizID -> Cell; students without submissions for a quiz
	// have no entry.
	Report struct {
		ClassID  string                     `json:"class_id"`
		Students []user.User                `json:"students"`
		Quizzes  []QuizColumn               `json:"quizzes"`
		Matrix   map[string]map[string]Cell `json:"matrix"`
	}
)

type (
	// FeedItem is one lesson or quiz shared with the student through an
	// AccessGrant, classified against the grant's window.
	FeedItem struct {
		ClassID        string    `json:"class_id"`
		ClassName      string    `json:"class_name"`
		CourseID       string    `json:"course_id"`
		CourseTitle    string    `json:"course_title"`
		UnitID         string    `json:"unit_id"`
		LessonID       string    `json:"lesson_id"`
		LessonTitle    string    `json:"lesson_title"`
		QuizID         string    `json:"quiz_id,omitempty"`
		QuizTitle      string    `json:"quiz_title,omitempty"`
		Kind           string    `json:"kind"`
		AvailableFrom  time.Time `json:"available_from"`
		AvailableUntil time.Time `json:"available_until"`
		Status         string    `json:"status"`
	}

	// Feed is the student's work, bucketed by status.
	Feed struct {
		Active    []FeedItem `json:"active"`
		Completed []FeedItem `json:"completed"`
		Overdue   []FeedItem `json:"overdue"`
	}
)
