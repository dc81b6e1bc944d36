package report_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]user.User
	callSizes []int
}

func (f *fakeUsers) GetManyByID(ctx context.Context, ids []string) ([]user.User, error) {
	f.mu.Lock()
	f.callSizes = append(f.callSizes, len(ids))
	f.mu.Unlock()

	var found []user.User
	for _, id := range ids {
		if usr, ok := f.users[id]; ok {
			found = append(found, usr)
		}
	}
	return found, nil
}

type fakeClasses struct{ classes []class.Class }

func (f *fakeClasses) GetByID(ctx context.Context, id string) (class.Class, error) {
	for _, cls := range f.classes {
		if cls.ID == id {
			return cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (f *fakeClasses) Query(ctx context.Context, filter *class.QueryFilter) ([]class.Class, error) {
	var found []class.Class
	for _, cls := range f.classes {
		if filter.StudentID != "" && !cls.HasStudent(filter.StudentID) {
			continue
		}
		found = append(found, cls)
	}
	return found, nil
}

type fakeCourses struct{ courses map[string]course.Course }

func (f *fakeCourses) GetManyByID(ctx context.Context, ids []string) ([]course.Course, error) {
	var found []course.Course
	for _, id := range ids {
		if crs, ok := f.courses[id]; ok {
			found = append(found, crs)
		}
	}
	return found, nil
}

type fakeSubmissions struct {
	subs  []submission.Submission
	views []submission.ViewRecord
}

func (f *fakeSubmissions) Query(ctx context.Context, filter *submission.QueryFilter) ([]submission.Submission, error) {
	studentIDs := make(map[string]bool, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		studentIDs[id] = true
	}
	quizIDs := make(map[string]bool, len(filter.QuizIDs))
	for _, id := range filter.QuizIDs {
		quizIDs[id] = true
	}

	var found []submission.Submission
	for _, sub := range f.subs {
		if filter.StudentID != "" && sub.StudentID != filter.StudentID {
			continue
		}
		if filter.StudentIDs != nil && !studentIDs[sub.StudentID] {
			continue
		}
		if filter.QuizIDs != nil && !quizIDs[sub.QuizID] {
			continue
		}
		found = append(found, sub)
	}
	return found, nil
}

func (f *fakeSubmissions) QueryViews(ctx context.Context, filter submission.ViewFilter) ([]submission.ViewRecord, error) {
	var found []submission.ViewRecord
	for _, rec := range f.views {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		found = append(found, rec)
	}
	return found, nil
}

func twoLessonCourse() course.Course {
	return course.Course{
		ID:    "crs",
		Title: "Chemistry",
		Units: []course.Unit{
			{ID: "unit_1", Title: "Matter", Lessons: []course.Lesson{
				{ID: "lesson_1", Title: "Atoms", Quizzes: []course.Quiz{
					{ID: "quiz_1", Title: "Atoms Quiz", Questions: make([]course.Question, 2)},
				}},
				{ID: "lesson_2", Title: "Molecules", Quizzes: []course.Quiz{
					{ID: "quiz_2", Title: "Molecules Quiz", Questions: make([]course.Question, 3)},
				}},
			}},
		},
	}
}

func sub(studentID, quizID string, score int, submittedAt time.Time) submission.Submission {
	return submission.Submission{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		CourseID:    "crs",
		QuizID:      quizID,
		Score:       score,
		SubmittedAt: submittedAt,
		Type:        submission.TypeOnTime,
	}
}

func TestService_BuildReport(t *testing.T) {
	now := time.Now().UTC()
	grants := make(class.AccessGrants)
	// only lesson_1's quiz is granted; quiz_2 rides in on course membership
	grants.Set("crs", "unit_1", "lesson_1", class.AccessGrant{QuizIDs: []string{"quiz_1"}, AvailableFrom: now, AvailableUntil: now.Add(time.Hour)})

	users := &fakeUsers{users: map[string]user.User{
		"alice": {ID: "alice", FirstName: "Alice", LastName: "Baker"},
		"bob":   {ID: "bob", FirstName: "Bob", LastName: "Adams"},
	}}
	classes := &fakeClasses{classes: []class.Class{
		{ID: "cls", Name: "Grade 7A", Students: []string{"alice", "bob"}, AccessGrants: grants},
	}}
	courses := &fakeCourses{courses: map[string]course.Course{"crs": twoLessonCourse()}}
	subs := &fakeSubmissions{subs: []submission.Submission{
		sub("alice", "quiz_1", 1, now),
		sub("alice", "quiz_1", 2, now.Add(time.Minute)),
		sub("bob", "quiz_2", 3, now),
		sub("bob", "quiz_2", 1, now.Add(time.Minute)),
	}}

	svc := report.NewService(users, classes, courses, subs)
	rpt, err := svc.BuildReport(context.Background(), "cls")
	if err != nil {
		t.Fatalf("BuildReport() failed: %v", err)
	}

	if len(rpt.Students) != 2 || rpt.Students[0].ID != "bob" || rpt.Students[1].ID != "alice" {
		t.Errorf("BuildReport() students not sorted by last name: %v", rpt.Students)
	}

	// every quiz of the referenced course gets a column, in tree order,
	// whether or not any grant snapshot names it
	if len(rpt.Quizzes) != 2 || rpt.Quizzes[0].QuizID != "quiz_1" || rpt.Quizzes[1].QuizID != "quiz_2" {
		t.Fatalf("BuildReport() quizzes = %v", rpt.Quizzes)
	}
	if rpt.Quizzes[1].QuestionCount != 3 || rpt.Quizzes[1].LessonTitle != "Molecules" {
		t.Errorf("BuildReport() column = %+v", rpt.Quizzes[1])
	}

	alice := rpt.Matrix["alice"]["quiz_1"]
	if alice.FirstAttemptScore != 1 || alice.HighestScore != 2 {
		t.Errorf("BuildReport() alice cell = %+v; want first 1, highest 2", alice)
	}
	bob := rpt.Matrix["bob"]["quiz_2"]
	if bob.FirstAttemptScore != 3 || bob.HighestScore != 3 {
		t.Errorf("BuildReport() bob cell = %+v; want first 3, highest 3", bob)
	}
	if _, ok := rpt.Matrix["alice"]["quiz_2"]; ok {
		t.Error("BuildReport() minted a cell for a quiz alice never attempted")
	}
}

func TestService_BuildReport_emptyClass(t *testing.T) {
	users := &fakeUsers{users: map[string]user.User{}}
	classes := &fakeClasses{classes: []class.Class{{ID: "cls", AccessGrants: make(class.AccessGrants)}}}
	svc := report.NewService(users, classes, &fakeCourses{}, &fakeSubmissions{})

	rpt, err := svc.BuildReport(context.Background(), "cls")
	if err != nil {
		t.Fatalf("BuildReport() failed: %v", err)
	}
	if len(rpt.Students) != 0 || len(rpt.Quizzes) != 0 || len(rpt.Matrix) != 0 {
		t.Errorf("BuildReport() = %+v; want empty report", rpt)
	}
}

func TestService_BuildReport_chunksStudentLookups(t *testing.T) {
	users := &fakeUsers{users: map[string]user.User{}}
	var ids []string
	for i := 0; i < 65; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		users.users[id] = user.User{ID: id, LastName: id}
	}
	classes := &fakeClasses{classes: []class.Class{
		{ID: "cls", Students: ids, AccessGrants: make(class.AccessGrants)},
	}}

	svc := report.NewService(users, classes, &fakeCourses{}, &fakeSubmissions{})
	rpt, err := svc.BuildReport(context.Background(), "cls")
	if err != nil {
		t.Fatalf("BuildReport() failed: %v", err)
	}

	if len(rpt.Students) != 65 {
		t.Errorf("BuildReport() resolved %d students; want 65", len(rpt.Students))
	}
	if len(users.callSizes) != 3 {
		t.Fatalf("BuildReport() issued %d lookups; want 3", len(users.callSizes))
	}
	for _, size := range users.callSizes {
		if size > 30 {
			t.Errorf("BuildReport() lookup of %d ids; want at most 30", size)
		}
	}
}

func TestService_StudentFeed(t *testing.T) {
	now := time.Now().UTC()
	grants := make(class.AccessGrants)
	// open window; the lesson has been viewed but the quiz has attempts left
	grants.Set("crs", "unit_1", "lesson_1", class.AccessGrant{
		SharePages: true, QuizIDs: []string{"quiz_1"},
		AvailableFrom: now.Add(-time.Hour), AvailableUntil: now.Add(24 * time.Hour),
	})
	// closed window
	grants.Set("crs", "unit_1", "lesson_2", class.AccessGrant{
		SharePages: true, QuizIDs: []string{"quiz_2"},
		AvailableFrom: now.Add(-48 * time.Hour), AvailableUntil: now.Add(-time.Hour),
	})
	// grant pointing at a course that no longer exists
	grants.Set("gone", "unit_1", "lesson_1", class.AccessGrant{
		SharePages: true, AvailableFrom: now, AvailableUntil: now.Add(time.Hour),
	})

	classes := &fakeClasses{classes: []class.Class{
		{ID: "cls", Name: "Grade 7A", Students: []string{"hero"}, AccessGrants: grants},
	}}
	courses := &fakeCourses{courses: map[string]course.Course{"crs": twoLessonCourse()}}
	subs := &fakeSubmissions{
		subs:  []submission.Submission{sub("hero", "quiz_1", 1, now)},
		views: []submission.ViewRecord{{ID: "hero_lesson_1", StudentID: "hero", LessonID: "lesson_1", ViewedAt: now}},
	}

	svc := report.NewService(&fakeUsers{}, classes, courses, subs)
	feed, err := svc.StudentFeed(context.Background(), "hero", now)
	if err != nil {
		t.Fatalf("StudentFeed() failed: %v", err)
	}

	if len(feed.Active) != 1 || feed.Active[0].Kind != report.KindQuiz || feed.Active[0].QuizID != "quiz_1" {
		t.Errorf("StudentFeed() active = %+v; want quiz_1 only", feed.Active)
	}
	if len(feed.Completed) != 1 || feed.Completed[0].Kind != report.KindLesson || feed.Completed[0].LessonID != "lesson_1" {
		t.Errorf("StudentFeed() completed = %+v; want lesson_1 only", feed.Completed)
	}
	if len(feed.Overdue) != 2 {
		t.Fatalf("StudentFeed() overdue = %+v; want lesson_2 and quiz_2", feed.Overdue)
	}
	if feed.Overdue[0].LessonID != "lesson_2" || feed.Overdue[1].QuizID != "quiz_2" {
		t.Errorf("StudentFeed() overdue = %+v", feed.Overdue)
	}
}

func TestService_StudentFeed_exhaustedQuizCompletes(t *testing.T) {
	now := time.Now().UTC()
	grants := make(class.AccessGrants)
	grants.Set("crs", "unit_1", "lesson_1", class.AccessGrant{
		QuizIDs:       []string{"quiz_1"},
		AvailableFrom: now.Add(-time.Hour), AvailableUntil: now.Add(24 * time.Hour),
	})

	var attempts []submission.Submission
	for i := 0; i < submission.MaxAttempts; i++ {
		attempts = append(attempts, sub("hero", "quiz_1", i, now))
	}

	classes := &fakeClasses{classes: []class.Class{
		{ID: "cls", Students: []string{"hero"}, AccessGrants: grants},
	}}
	courses := &fakeCourses{courses: map[string]course.Course{"crs": twoLessonCourse()}}
	svc := report.NewService(&fakeUsers{}, classes, courses, &fakeSubmissions{subs: attempts})

	feed, err := svc.StudentFeed(context.Background(), "hero", now)
	if err != nil {
		t.Fatalf("StudentFeed() failed: %v", err)
	}
	// SharePages off: no lesson item, just the spent quiz
	if len(feed.Active) != 0 || len(feed.Overdue) != 0 {
		t.Errorf("StudentFeed() = %+v; want everything completed", feed)
	}
	if len(feed.Completed) != 1 || feed.Completed[0].QuizID != "quiz_1" {
		t.Errorf("StudentFeed() completed = %+v; want quiz_1 only", feed.Completed)
	}
}
