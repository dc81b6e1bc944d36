package submission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/course"
)

// MaxAttempts caps how many times a student may submit one quiz.
const MaxAttempts = 3

var (
	// errors
	ErrNotFound    = errors.New("submission not found")
	ErrMaxAttempts = errors.New("you have already reached the maximum of 3 attempts for this quiz")
)

type (
	Repository interface {
		// CreateSubmission inserts the attempt iff the student still has fewer
		// than maxAttempts prior submissions for the quiz. The check and the
		// insert are atomic; a concurrent attempt past the cap fails with
		// ErrMaxAttempts.
		CreateSubmission(ctx context.Context, sub Submission, maxAttempts int) (Submission, error)
		CountSubmissions(ctx context.Context, studentID, quizID string) (int, error)
		FilterSubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
		// CreateViewRecord inserts the record if absent and returns the stored
		// row either way; an existing record is never updated.
		CreateViewRecord(ctx context.Context, rec ViewRecord) (ViewRecord, error)
		FilterViewRecords(ctx context.Context, filter ViewFilter) ([]ViewRecord, error)
	}

	// CourseGetter resolves the course tree the quiz is graded against.
	CourseGetter interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo    Repository
		courses CourseGetter
	}
)

func NewService(repo Repository, courses CourseGetter) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
	}
}

// Submit grades and records a quiz attempt. Preconditions run in order and
// the first failure wins: attempt cap, then quiz resolution. Scoring counts
// one point per answer index matching the question's correct option; the
// percentage is taken over the quiz's current question count, so attempts
// across quiz edits remain comparable only by percentage.
func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error) {
	count, err := svc.repo.CountSubmissions(ctx, studentID, ns.QuizID)
	if err != nil {
		return Submission{}, err
	}
	if count >= MaxAttempts {
		return Submission{}, ErrMaxAttempts
	}

	crs, err := svc.courses.GetCourseByID(ctx, ns.CourseID)
	if err != nil {
		return Submission{}, err
	}
	quiz, ok := crs.FindQuiz(ns.QuizID)
	if !ok {
		return Submission{}, course.ErrQuizNotFound
	}

	score := 0
	for i, question := range quiz.Questions {
		if i < len(ns.Answers) && ns.Answers[i] == question.CorrectOption {
			score++
		}
	}
	total := len(quiz.Questions)
	var percentage float64
	if total > 0 {
		percentage = float64(score) / float64(total) * 100
	}
	subType := TypeOnTime
	if ns.IsLate {
		subType = TypeLate
	}

	answers := ns.Answers
	if answers == nil {
		answers = []int{}
	}
	sub := Submission{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		CourseID:       ns.CourseID,
		QuizID:         ns.QuizID,
		Answers:        answers,
		Score:          score,
		TotalQuestions: total,
		Percentage:     percentage,
		SubmittedAt:    time.Now().UTC(),
		Type:           subType,
	}
	// the repository re-checks the cap atomically at insert time
	return svc.repo.CreateSubmission(ctx, sub, MaxAttempts)
}

// RecordLessonView marks the lesson as viewed; repeat views are no-ops.
func (svc *Service) RecordLessonView(ctx context.Context, studentID string, nv NewViewRecord) (ViewRecord, error) {
	rec := ViewRecord{
		ID:        studentID + "_" + nv.LessonID,
		StudentID: studentID,
		ClassID:   nv.ClassID,
		CourseID:  nv.CourseID,
		LessonID:  nv.LessonID,
		ViewedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateViewRecord(ctx, rec)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Submission, error) {
	return svc.repo.FilterSubmissions(ctx, *filter)
}

func (svc *Service) CountAttempts(ctx context.Context, studentID, quizID string) (int, error) {
	return svc.repo.CountSubmissions(ctx, studentID, quizID)
}

func (svc *Service) QueryViews(ctx context.Context, filter ViewFilter) ([]ViewRecord, error) {
	return svc.repo.FilterViewRecords(ctx, filter)
}
