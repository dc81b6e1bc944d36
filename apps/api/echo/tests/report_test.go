package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func reportCourse(t *testing.T, teacherID string) course.Course {
	return testutil.CreateCourse(t, crsRepo, "Chemistry", teacherID, []course.Unit{
		{ID: "unit_1", Title: "Matter", Lessons: []course.Lesson{
			{ID: "lesson_1", Title: "Atoms", Quizzes: []course.Quiz{
				{ID: "quiz_1", Title: "Atoms Quiz", Questions: []course.Question{
					{Text: "q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
					{Text: "q2", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
				}},
			}},
			{ID: "lesson_2", Title: "Molecules", Quizzes: []course.Quiz{
				{ID: "quiz_2", Title: "Molecules Quiz", Questions: []course.Question{
					{Text: "q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: 2},
				}},
			}},
		}},
	})
}

func grantLessons(t *testing.T, clsID, token string, crs course.Course, from, until time.Time, lessonIDs ...string) {
	selection := make(map[string]class.GrantSelection, len(lessonIDs))
	for _, id := range lessonIDs {
		selection[id] = class.GrantSelection{UnitID: "unit_1"}
	}
	body := marchallObj(t, class.GrantAccess{
		CourseID:       crs.ID,
		Selection:      selection,
		SharePages:     true,
		AvailableFrom:  from,
		AvailableUntil: until,
	})
	req, rec := newAuthRequest(http.MethodPost, "/api/classes/"+clsID+"/access-grants", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("grantLessons() failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
}

func Test_reportApi_retrieve(t *testing.T) {
	db.Reset()

	// Adams sorts before Baker
	bob := testutil.CreateUser(t, usrRepo, "Bob", "Adams", "bob01", "bob@test.cd", "", []string{user.RoleStudent}, true)
	alice := testutil.CreateUser(t, usrRepo, "Alice", "Baker", "alice1", "alice@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "Paluku", "rival1", "rival@test.cd", "", []string{user.RoleTeacher}, true)

	token := getToken(t, teacher)
	crs := reportCourse(t, teacher.ID)
	cls := testutil.CreateClass(t, clsRepo, "Grade 7A", "AAA111", teacher.ID, alice.ID, bob.ID)
	path := "/api/classes/" + cls.ID + "/report"

	now := time.Now().UTC()
	grantLessons(t, cls.ID, token, crs, now, now.Add(48*time.Hour), "lesson_1")

	// alice improves on a retake, bob regresses
	testutil.CreateSubmission(t, subRepo, alice.ID, crs.ID, "quiz_1", []int{0, 0}, 1, 2)
	testutil.CreateSubmission(t, subRepo, alice.ID, crs.ID, "quiz_1", []int{0, 1}, 2, 2)
	testutil.CreateSubmission(t, subRepo, bob.ID, crs.ID, "quiz_1", []int{0, 1}, 2, 2)
	testutil.CreateSubmission(t, subRepo, bob.ID, crs.ID, "quiz_1", []int{3, 3}, 0, 2)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getToken(t, alice),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "owner only", token: getToken(t, rival),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = path

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("matrix", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var rpt report.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &rpt); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}

		if rpt.ClassID != cls.ID {
			t.Errorf("failed! class_id = %s; want %s", rpt.ClassID, cls.ID)
		}
		if len(rpt.Students) != 2 || rpt.Students[0].ID != bob.ID || rpt.Students[1].ID != alice.ID {
			t.Errorf("failed! students not sorted by last name: %v", rpt.Students)
		}
		// ungranted quiz_2 still gets a column; its course is referenced
		if len(rpt.Quizzes) != 2 || rpt.Quizzes[0].QuizID != "quiz_1" || rpt.Quizzes[1].QuizID != "quiz_2" {
			t.Fatalf("failed! quizzes = %v; want quiz_1 and quiz_2", rpt.Quizzes)
		}
		col := rpt.Quizzes[0]
		if col.LessonID != "lesson_1" || col.QuestionCount != 2 {
			t.Errorf("failed! column = %+v", col)
		}

		aliceCell := rpt.Matrix[alice.ID]["quiz_1"]
		if aliceCell.FirstAttemptScore != 1 || aliceCell.HighestScore != 2 {
			t.Errorf("failed! alice cell = %+v; want first 1, highest 2", aliceCell)
		}
		bobCell := rpt.Matrix[bob.ID]["quiz_1"]
		if bobCell.FirstAttemptScore != 2 || bobCell.HighestScore != 2 {
			t.Errorf("failed! bob cell = %+v; want first 2, highest 2", bobCell)
		}
	})
}

func Test_reportApi_export(t *testing.T) {
	db.Reset()

	student := testutil.CreateUser(t, usrRepo, "Hero", "Mumbere", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	token := getToken(t, teacher)
	crs := reportCourse(t, teacher.ID)
	cls := testutil.CreateClass(t, clsRepo, "Grade 7A", "AAA111", teacher.ID, student.ID)
	path := "/api/classes/" + cls.ID + "/report/export"

	now := time.Now().UTC()
	grantLessons(t, cls.ID, token, crs, now, now.Add(48*time.Hour), "lesson_1")
	testutil.CreateSubmission(t, subRepo, student.ID, crs.ID, "quiz_1", []int{0, 1}, 2, 2)

	t.Run("invalid group_by", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?group_by=lol", token)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid group_by"})}
		checkCodeAndData(t, tt, rec)
	})

	for _, groupBy := range []string{"", report.GroupByLastName, report.GroupByGender} {
		t.Run("exported group_by="+groupBy, func(t *testing.T) {
			p := path
			if groupBy != "" {
				p += "?group_by=" + groupBy
			}
			req, rec := newAuthRequest(http.MethodGet, p, token)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
				t.Errorf("failed! content type = %s", ct)
			}
			cd := rec.Header().Get(echo.HeaderContentDisposition)
			if !strings.Contains(cd, "report-"+cls.ID) || !strings.HasSuffix(cd, `.xlsx"`) {
				t.Errorf("failed! content disposition = %s", cd)
			}
			if rec.Body.Len() == 0 {
				t.Error("failed! empty body")
			}
		})
	}
}

func Test_reportApi_feed(t *testing.T) {
	db.Reset()

	student := testutil.CreateUser(t, usrRepo, "Hero", "Mumbere", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)
	crs := reportCourse(t, teacher.ID)
	cls := testutil.CreateClass(t, clsRepo, "Grade 7A", "AAA111", teacher.ID, student.ID)

	now := time.Now().UTC()
	grantLessons(t, cls.ID, teacherToken, crs, now.Add(-time.Hour), now.Add(24*time.Hour), "lesson_1")
	grantLessons(t, cls.ID, teacherToken, crs, now.Add(-48*time.Hour), now.Add(-time.Hour), "lesson_2")

	// lesson_1 viewed; quiz_1 attempted once, below the cap
	body := marchallObj(t, submission.NewViewRecord{ClassID: cls.ID, CourseID: crs.ID, LessonID: "lesson_1"})
	req, rec := newAuthRequest(http.MethodPost, "/api/view-records", studentToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("recording view failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	testutil.CreateSubmission(t, subRepo, student.ID, crs.ID, "quiz_1", []int{0, 0}, 1, 2)

	t.Run("Student required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/feed", teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("classified", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/feed", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var feed report.Feed
		if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}

		// quiz_1 is still open with attempts left
		if len(feed.Active) != 1 || feed.Active[0].Kind != report.KindQuiz || feed.Active[0].QuizID != "quiz_1" {
			t.Errorf("failed! active = %+v; want quiz_1 only", feed.Active)
		}
		// lesson_1 has been viewed
		if len(feed.Completed) != 1 || feed.Completed[0].Kind != report.KindLesson || feed.Completed[0].LessonID != "lesson_1" {
			t.Errorf("failed! completed = %+v; want lesson_1 only", feed.Completed)
		}
		// lesson_2's window has passed, dragging its quiz along
		if len(feed.Overdue) != 2 {
			t.Fatalf("failed! overdue = %+v; want lesson_2 and quiz_2", feed.Overdue)
		}
		if feed.Overdue[0].Kind != report.KindLesson || feed.Overdue[0].LessonID != "lesson_2" {
			t.Errorf("failed! overdue[0] = %+v; want lesson_2", feed.Overdue[0])
		}
		if feed.Overdue[1].Kind != report.KindQuiz || feed.Overdue[1].QuizID != "quiz_2" {
			t.Errorf("failed! overdue[1] = %+v; want quiz_2", feed.Overdue[1])
		}
		for _, item := range feed.Overdue {
			if item.ClassID != cls.ID || item.CourseID != crs.ID {
				t.Errorf("failed! item = %+v; want class %s course %s", item, cls.ID, crs.ID)
			}
		}
	})
}
