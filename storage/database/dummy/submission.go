package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db.submission}
}

func (repo *submissionRepository) querySubs() []submission.Submission {
	subs := make([]submission.Submission, 0, len(repo.db.subs))
	for _, sub := range repo.db.subs {
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs
}

func (repo *submissionRepository) countLocked(studentID, quizID string) int {
	count := 0
	for _, sub := range repo.db.subs {
		if sub.StudentID == studentID && sub.QuizID == quizID {
			count++
		}
	}
	return count
}

// CreateSubmission holds the table lock across the count and the insert, so
// the attempt cap holds even when submissions race.
func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, maxAttempts int) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.countLocked(sub.StudentID, sub.QuizID) >= maxAttempts {
		return submission.Submission{}, submission.ErrMaxAttempts
	}
	repo.db.subs[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, studentID, quizID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.countLocked(studentID, quizID), nil
}

func (repo *submissionRepository) FilterSubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	studentIDs := make(map[string]struct{}, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		studentIDs[id] = struct{}{}
	}
	quizIDs := make(map[string]struct{}, len(filter.QuizIDs))
	for _, id := range filter.QuizIDs {
		quizIDs[id] = struct{}{}
	}

	var subs []submission.Submission
	for _, sub := range repo.querySubs() {
		if filter.StudentID != "" && sub.StudentID != filter.StudentID {
			continue
		}
		if filter.StudentIDs != nil {
			if _, ok := studentIDs[sub.StudentID]; !ok {
				continue
			}
		}
		if filter.CourseID != "" && sub.CourseID != filter.CourseID {
			continue
		}
		if filter.QuizID != "" && sub.QuizID != filter.QuizID {
			continue
		}
		if filter.QuizIDs != nil {
			if _, ok := quizIDs[sub.QuizID]; !ok {
				continue
			}
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo *submissionRepository) CreateViewRecord(ctx context.Context, rec submission.ViewRecord) (submission.ViewRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// write-once: the first record for a lesson sticks
	if stored, ok := repo.db.views[rec.ID]; ok {
		return *stored, nil
	}
	repo.db.views[rec.ID] = &rec
	return rec, nil
}

func (repo *submissionRepository) FilterViewRecords(ctx context.Context, filter submission.ViewFilter) ([]submission.ViewRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessonIDs := make(map[string]struct{}, len(filter.LessonIDs))
	for _, id := range filter.LessonIDs {
		lessonIDs[id] = struct{}{}
	}

	recs := make([]submission.ViewRecord, 0, len(repo.db.views))
	for _, rec := range repo.db.views {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && rec.ClassID != filter.ClassID {
			continue
		}
		if filter.LessonIDs != nil {
			if _, ok := lessonIDs[rec.LessonID]; !ok {
				continue
			}
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ViewedAt.Before(recs[j].ViewedAt) })
	return recs, nil
}
