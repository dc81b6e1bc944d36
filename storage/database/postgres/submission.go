package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/submission"
)

type dbSubmission struct {
	ID             string        `db:"id"`
	StudentID      string        `db:"student_id"`
	CourseID       string        `db:"course_id"`
	QuizID         string        `db:"quiz_id"`
	Answers        pq.Int64Array `db:"answers"`
	Score          int           `db:"score"`
	TotalQuestions int           `db:"total_questions"`
	Percentage     float64       `db:"percentage"`
	SubmittedAt    time.Time     `db:"submitted_at"`
	Type           string        `db:"type"`
}

func (ds dbSubmission) unbox() submission.Submission {
	answers := make([]int, 0, len(ds.Answers))
	for _, a := range ds.Answers {
		answers = append(answers, int(a))
	}
	return submission.Submission{
		ID:             ds.ID,
		StudentID:      ds.StudentID,
		CourseID:       ds.CourseID,
		QuizID:         ds.QuizID,
		Answers:        answers,
		Score:          ds.Score,
		TotalQuestions: ds.TotalQuestions,
		Percentage:     ds.Percentage,
		SubmittedAt:    ds.SubmittedAt,
		Type:           ds.Type,
	}
}

type dbViewRecord struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	ClassID   string    `db:"class_id"`
	CourseID  string    `db:"course_id"`
	LessonID  string    `db:"lesson_id"`
	ViewedAt  time.Time `db:"viewed_at"`
}

func (dv dbViewRecord) unbox() submission.ViewRecord {
	return submission.ViewRecord(dv)
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

// CreateSubmission serializes concurrent attempts on the same (student, quiz)
// pair with a transaction-scoped advisory lock, so the attempt cap holds even
// when submissions race.
func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, maxAttempts int) (submission.Submission, error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sub.StudentID+":"+sub.QuizID); err != nil {
		return submission.Submission{}, errors.Wrap(err, "acquiring submission lock")
	}

	var count int
	err = tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM submission WHERE student_id = $1 AND quiz_id = $2`, sub.StudentID, sub.QuizID)
	if err != nil {
		return submission.Submission{}, err
	}
	if count >= maxAttempts {
		return submission.Submission{}, submission.ErrMaxAttempts
	}

	answers := make(pq.Int64Array, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		answers = append(answers, int64(a))
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO submission (id, student_id, course_id, quiz_id, answers, score, total_questions, percentage, submitted_at, type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID, sub.StudentID, sub.CourseID, sub.QuizID, answers,
		sub.Score, sub.TotalQuestions, sub.Percentage, sub.SubmittedAt, sub.Type,
	)
	if err != nil {
		return submission.Submission{}, err
	}
	if err = tx.Commit(); err != nil {
		return submission.Submission{}, errors.Wrap(err, "committing transaction")
	}
	return sub, nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, studentID, quizID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM submission WHERE student_id = $1 AND quiz_id = $2`, studentID, quizID)
	return count, err
}

func (repo *submissionRepository) FilterSubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	add := func(clause string, val interface{}) {
		args = append(args, val)
		where = append(where, strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1))
	}

	if filter.StudentID != "" {
		add("student_id = ?", filter.StudentID)
	}
	if filter.StudentIDs != nil {
		add("student_id = ANY(?)", pq.Array(filter.StudentIDs))
	}
	if filter.CourseID != "" {
		add("course_id = ?", filter.CourseID)
	}
	if filter.QuizID != "" {
		add("quiz_id = ?", filter.QuizID)
	}
	if filter.QuizIDs != nil {
		add("quiz_id = ANY(?)", pq.Array(filter.QuizIDs))
	}

	q := `SELECT * FROM submission`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY submitted_at ASC"

	var dss []dbSubmission
	if err := repo.db.SelectContext(ctx, &dss, q, args...); err != nil {
		return nil, err
	}
	subs := make([]submission.Submission, 0, len(dss))
	for _, ds := range dss {
		subs = append(subs, ds.unbox())
	}
	return subs, nil
}

func (repo *submissionRepository) CreateViewRecord(ctx context.Context, rec submission.ViewRecord) (submission.ViewRecord, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO view_record (id, student_id, class_id, course_id, lesson_id, viewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.StudentID, rec.ClassID, rec.CourseID, rec.LessonID, rec.ViewedAt,
	)
	if err != nil {
		return submission.ViewRecord{}, err
	}
	var dv dbViewRecord
	if err = repo.db.GetContext(ctx, &dv, `SELECT * FROM view_record WHERE id = $1`, rec.ID); err != nil {
		return submission.ViewRecord{}, err
	}
	return dv.unbox(), nil
}

func (repo *submissionRepository) FilterViewRecords(ctx context.Context, filter submission.ViewFilter) ([]submission.ViewRecord, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	add := func(clause string, val interface{}) {
		args = append(args, val)
		where = append(where, strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1))
	}

	if filter.StudentID != "" {
		add("student_id = ?", filter.StudentID)
	}
	if filter.ClassID != "" {
		add("class_id = ?", filter.ClassID)
	}
	if filter.LessonIDs != nil {
		add("lesson_id = ANY(?)", pq.Array(filter.LessonIDs))
	}

	q := `SELECT * FROM view_record`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY viewed_at ASC"

	var dvs []dbViewRecord
	if err := repo.db.SelectContext(ctx, &dvs, q, args...); err != nil {
		return nil, err
	}
	recs := make([]submission.ViewRecord, 0, len(dvs))
	for _, dv := range dvs {
		recs = append(recs, dv.unbox())
	}
	return recs, nil
}
