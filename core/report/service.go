package report

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

// studentChunkSize bounds per-query ID lists when resolving class members.
const studentChunkSize = 30

type (
	UserGetter interface {
		GetManyByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	ClassGetter interface {
		GetByID(ctx context.Context, id string) (class.Class, error)
		Query(ctx context.Context, filter *class.QueryFilter) ([]class.Class, error)
	}

	CourseGetter interface {
		GetManyByID(ctx context.Context, ids []string) ([]course.Course, error)
	}

	SubmissionReader interface {
		Query(ctx context.Context, filter *submission.QueryFilter) ([]submission.Submission, error)
		QueryViews(ctx context.Context, filter submission.ViewFilter) ([]submission.ViewRecord, error)
	}

	Service struct {
		users       UserGetter
		classes     ClassGetter
		courses     CourseGetter
		submissions SubmissionReader
	}
)

func NewService(users UserGetter, classes ClassGetter, courses CourseGetter, submissions SubmissionReader) *Service {
	return &Service{
		users:       users,
		classes:     classes,
		courses:     courses,
		submissions: submissions,
	}
}

// BuildReport assembles the class score matrix. It is a pure read-and-join:
// two runs over the same data produce identical output (students sorted by
// last/first name, quiz columns in course-tree order).
func (svc *Service) BuildReport(ctx context.Context, classID string) (Report, error) {
	cls, err := svc.classes.GetByID(ctx, classID)
	if err != nil {
		return Report{}, err
	}

	students, err := svc.fetchStudents(ctx, cls.Students)
	if err != nil {
		return Report{}, err
	}

	courses, err := svc.fetchGrantedCourses(ctx, cls.AccessGrants)
	if err != nil {
		return Report{}, err
	}
	quizzes := grantedQuizColumns(cls.AccessGrants, courses)

	rpt := Report{
		ClassID:  cls.ID,
		Students: students,
		Quizzes:  quizzes,
		Matrix:   map[string]map[string]Cell{},
	}
	if len(students) == 0 || len(quizzes) == 0 {
		return rpt, nil
	}

	quizIDs := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		quizIDs = append(quizIDs, q.QuizID)
	}
	subs, err := svc.submissions.Query(ctx, &submission.QueryFilter{StudentIDs: cls.Students, QuizIDs: quizIDs})
	if err != nil {
		return Report{}, err
	}

	// earliest submission fills FirstAttemptScore, best one HighestScore
	first := map[string]map[string]submission.Submission{}
	for _, sub := range subs {
		row, ok := rpt.Matrix[sub.StudentID]
		if !ok {
			row = map[string]Cell{}
			rpt.Matrix[sub.StudentID] = row
			first[sub.StudentID] = map[string]submission.Submission{}
		}
		cell, seen := row[sub.QuizID]
		if !seen {
			row[sub.QuizID] = Cell{FirstAttemptScore: sub.Score, HighestScore: sub.Score}
			first[sub.StudentID][sub.QuizID] = sub
			continue
		}
		if sub.SubmittedAt.Before(first[sub.StudentID][sub.QuizID].SubmittedAt) {
			cell.FirstAttemptScore = sub.Score
			first[sub.StudentID][sub.QuizID] = sub
		}
		if sub.Score > cell.HighestScore {
			cell.HighestScore = sub.Score
		}
		row[sub.QuizID] = cell
	}
	return rpt, nil
}

// fetchStudents resolves member profiles in id-chunks of at most
// studentChunkSize, issued concurrently and merged order-independently.
func (svc *Service) fetchStudents(ctx context.Context, ids []string) ([]user.User, error) {
	var (
		mu       sync.Mutex
		students []user.User
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, chunk := range core.ChunkStrings(ids, studentChunkSize) {
		chunk := chunk
		g.Go(func() error {
			users, err := svc.users.GetManyByID(ctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			students = append(students, users...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortStudents(students)
	return students, nil
}

func sortStudents(students []user.User) {
	sort.Slice(students, func(i, j int) bool {
		li, lj := strings.ToLower(students[i].LastName), strings.ToLower(students[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(students[i].FirstName) < strings.ToLower(students[j].FirstName)
	})
}

// fetchGrantedCourses loads every course referenced by an AccessGrant,
// keyed by ID. Dangling references resolve to nothing and are skipped.
func (svc *Service) fetchGrantedCourses(ctx context.Context, grants class.AccessGrants) (map[string]course.Course, error) {
	ids := make([]string, 0, len(grants))
	for courseID := range grants {
		ids = append(ids, courseID)
	}
	sort.Strings(ids)

	courses, err := svc.courses.GetManyByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]course.Course, len(courses))
	for _, crs := range courses {
		byID[crs.ID] = crs
	}
	return byID, nil
}

// grantedQuizColumns flattens every quiz of every grant-referenced course in
// course-tree order. Membership of the course is enough; a quiz need not
// appear in any grant's snapshot to get a column.
func grantedQuizColumns(grants class.AccessGrants, courses map[string]course.Course) []QuizColumn {
	courseIDs := make([]string, 0, len(grants))
	for courseID := range grants {
		courseIDs = append(courseIDs, courseID)
	}
	sort.Strings(courseIDs)

	var columns []QuizColumn
	for _, courseID := range courseIDs {
		crs, ok := courses[courseID]
		if !ok {
			continue
		}
		for _, unit := range crs.Units {
			for _, lesson := range unit.Lessons {
				for _, quiz := range lesson.Quizzes {
					columns = append(columns, QuizColumn{
						CourseID:      crs.ID,
						CourseTitle:   crs.Title,
						UnitID:        unit.ID,
						LessonID:      lesson.ID,
						LessonTitle:   lesson.Title,
						QuizID:        quiz.ID,
						QuizTitle:     quiz.Title,
						QuestionCount: len(quiz.Questions),
					})
				}
			}
		}
	}
	return columns
}

// StudentFeed derives the student's work list at `now`: every lesson and quiz
// shared with them through an AccessGrant, classified per item. Grants whose
// course, unit or lesson no longer exists in the current course snapshot are
// skipped.
func (svc *Service) StudentFeed(ctx context.Context, studentID string, now time.Time) (Feed, error) {
	classes, err := svc.classes.Query(ctx, &class.QueryFilter{StudentID: studentID})
	if err != nil {
		return Feed{}, err
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })

	courseIDSet := map[string]bool{}
	for _, cls := range classes {
		for courseID := range cls.AccessGrants {
			courseIDSet[courseID] = true
		}
	}
	courseIDs := make([]string, 0, len(courseIDSet))
	for courseID := range courseIDSet {
		courseIDs = append(courseIDs, courseID)
	}
	sort.Strings(courseIDs)
	courses, err := svc.courses.GetManyByID(ctx, courseIDs)
	if err != nil {
		return Feed{}, err
	}
	coursesByID := make(map[string]course.Course, len(courses))
	for _, crs := range courses {
		coursesByID[crs.ID] = crs
	}

	views, err := svc.submissions.QueryViews(ctx, submission.ViewFilter{StudentID: studentID})
	if err != nil {
		return Feed{}, err
	}
	viewed := make(map[string]bool, len(views))
	for _, rec := range views {
		viewed[rec.LessonID] = true
	}

	subs, err := svc.submissions.Query(ctx, &submission.QueryFilter{StudentID: studentID})
	if err != nil {
		return Feed{}, err
	}
	attempts := map[string]int{}
	for _, sub := range subs {
		attempts[sub.QuizID]++
	}

	feed := Feed{
		Active:    []FeedItem{},
		Completed: []FeedItem{},
		Overdue:   []FeedItem{},
	}
	for _, cls := range classes {
		for _, courseID := range courseIDs {
			units, ok := cls.AccessGrants[courseID]
			if !ok {
				continue
			}
			crs, ok := coursesByID[courseID]
			if !ok {
				continue
			}
			// walk the course tree so granted lessons come out in tree order
			for _, unit := range crs.Units {
				lessons, ok := units[unit.ID]
				if !ok {
					continue
				}
				for _, lesson := range unit.Lessons {
					grant, ok := lessons[lesson.ID]
					if !ok {
						continue
					}
					item := FeedItem{
						ClassID:        cls.ID,
						ClassName:      cls.Name,
						CourseID:       crs.ID,
						CourseTitle:    crs.Title,
						UnitID:         unit.ID,
						LessonID:       lesson.ID,
						LessonTitle:    lesson.Title,
						AvailableFrom:  grant.AvailableFrom,
						AvailableUntil: grant.AvailableUntil,
					}

					if grant.SharePages {
						li := item
						li.Kind = KindLesson
						li.Status = classify(grant, now, viewed[lesson.ID])
						feed.add(li)
					}
					for _, quizID := range grant.QuizIDs {
						quiz, ok := findQuiz(lesson, quizID)
						if !ok {
							continue
						}
						qi := item
						qi.Kind = KindQuiz
						qi.QuizID = quiz.ID
						qi.QuizTitle = quiz.Title
						qi.Status = classify(grant, now, attempts[quiz.ID] >= submission.MaxAttempts)
						feed.add(qi)
					}
				}
			}
		}
	}
	return feed, nil
}

func (f *Feed) add(item FeedItem) {
	switch item.Status {
	case StatusCompleted:
		f.Completed = append(f.Completed, item)
	case StatusOverdue:
		f.Overdue = append(f.Overdue, item)
	default:
		f.Active = append(f.Active, item)
	}
}

// classify buckets one feed item: done wins, then an expired window, then
// everything else counts as active.
func classify(grant class.AccessGrant, now time.Time, done bool) string {
	switch {
	case done:
		return StatusCompleted
	case grant.OverdueAt(now):
		return StatusOverdue
	default:
		return StatusActive
	}
}

func findQuiz(lesson course.Lesson, quizID string) (course.Quiz, bool) {
	for _, quiz := range lesson.Quizzes {
		if quiz.ID == quizID {
			return quiz, true
		}
	}
	return course.Quiz{}, false
}
