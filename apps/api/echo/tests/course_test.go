package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_courseApi_queryCategories(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get categories", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallObj(t, course.Categories)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/courses/categories"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_createAndQuery(t *testing.T) {
	db.Reset()

	student := testutil.CreateUser(t, usrRepo, "Hero", "Mumbere", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "Paluku", "rival1", "rival@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "Kasereka", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	teacherToken := getToken(t, teacher)

	crs := testutil.CreateCourse(t, crsRepo, "Biology", teacher.ID, nil)
	rivalCrs := testutil.CreateCourse(t, crsRepo, "Chemistry", rival.ID, nil)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/api/courses",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Teacher required", method: http.MethodPost, path: "/api/courses", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", method: http.MethodPost, path: "/api/courses", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "invalid category", method: http.MethodPost, path: "/api/courses", token: teacherToken,
			body:     marchallObj(t, course.NewCourse{Title: "Physics", Category: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"category": "invalid category"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/api/courses", token: teacherToken,
			body:     marchallObj(t, course.NewCourse{Title: "Physics", Category: "School-based Subjects"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "teacher sees own courses only", method: http.MethodGet, path: "/api/courses", token: getToken(t, rival),
			wantCode: http.StatusOK, wantData: marchallList(t, rivalCrs),
		},
		{
			name: "student sees no courses", method: http.MethodGet, path: "/api/courses", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/api/courses/" + crs.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, crs),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/api/courses/lol", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.TeacherID != teacher.ID {
					t.Errorf("failed! teacher_id = %s; want %s", respData.TeacherID, teacher.ID)
				}
				if respData.Version != 1 {
					t.Errorf("failed! version = %d; want 1", respData.Version)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// admin sees all
	tt := httpTest{name: "admin sees all", wantCode: http.StatusOK}
	t.Run(tt.name, func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/courses", getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != tt.wantCode {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
		}
		var respData []course.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Errorf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 3 {
			t.Errorf("failed! len = %d; want 3", len(respData))
		}
	})
}

// Test_courseApi_contentTree drives the whole unit -> lesson -> quiz lifecycle
// through the API, as the owning teacher.
func Test_courseApi_contentTree(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "Paluku", "rival1", "rival@test.cd", "", []string{user.RoleTeacher}, true)
	token := getToken(t, teacher)

	crs := testutil.CreateCourse(t, crsRepo, "Biology", teacher.ID, nil)
	base := "/api/courses/" + crs.ID

	do := func(t *testing.T, method, path, token string, body []byte, wantCode int) course.Course {
		req, rec := newAuthRequest(method, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("%s %s failed! code = %v; wantCode %v; body %s", method, path, rec.Code, wantCode, rec.Body.String())
		}
		var respData course.Course
		if wantCode < http.StatusBadRequest {
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
		}
		return respData
	}

	// non-owner writes are hidden
	req, rec := newAuthRequest(http.MethodPut, base, getToken(t, rival), marchallObj(t, course.UpdateCourse{Title: "Stolen"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	crs = do(t, http.MethodPut, base, token, marchallObj(t, course.UpdateCourse{Title: "Advanced Biology"}), http.StatusOK)
	if crs.Title != "Advanced Biology" {
		t.Errorf("failed! title = %s; want Advanced Biology", crs.Title)
	}
	if crs.Version != 2 {
		t.Errorf("failed! version = %d; want 2", crs.Version)
	}

	crs = do(t, http.MethodPost, base+"/units", token, marchallObj(t, course.NewUnit{Title: "Cells"}), http.StatusCreated)
	if len(crs.Units) != 1 {
		t.Fatalf("failed! len(units) = %d; want 1", len(crs.Units))
	}
	unit := crs.Units[0]

	crs = do(t, http.MethodPut, base+"/units/"+unit.ID, token, marchallObj(t, course.UpdateUnit{Title: "Cell Biology"}), http.StatusOK)
	if crs.Units[0].Title != "Cell Biology" {
		t.Errorf("failed! unit title = %s; want Cell Biology", crs.Units[0].Title)
	}

	lessonBody := marchallObj(t, course.NewLesson{Title: "Mitosis", Pages: []course.Page{{Title: "Intro", Content: "cells divide"}}})
	crs = do(t, http.MethodPost, base+"/units/"+unit.ID+"/lessons", token, lessonBody, http.StatusCreated)
	if len(crs.Units[0].Lessons) != 1 {
		t.Fatalf("failed! len(lessons) = %d; want 1", len(crs.Units[0].Lessons))
	}
	lesson := crs.Units[0].Lessons[0]
	if len(lesson.Pages) != 1 || lesson.Pages[0].ID == "" {
		t.Errorf("failed! pages not minted: %+v", lesson.Pages)
	}

	quizBody := marchallObj(t, course.NewQuiz{
		Title: "Mitosis Quiz",
		Questions: []course.Question{
			{Text: "How many phases?", Options: []string{"2", "3", "4", "5"}, CorrectOption: 2},
		},
	})
	crs = do(t, http.MethodPost, base+"/units/"+unit.ID+"/lessons/"+lesson.ID+"/quizzes", token, quizBody, http.StatusCreated)
	if len(crs.Units[0].Lessons[0].Quizzes) != 1 {
		t.Fatalf("failed! len(quizzes) = %d; want 1", len(crs.Units[0].Lessons[0].Quizzes))
	}
	quiz := crs.Units[0].Lessons[0].Quizzes[0]

	// incomplete quiz question
	req, rec = newAuthRequest(
		http.MethodPost, base+"/units/"+unit.ID+"/lessons/"+lesson.ID+"/quizzes", token,
		marchallObj(t, course.NewQuiz{Title: "Bad Quiz", Questions: []course.Question{{Text: "?", Options: []string{"a"}}}}),
	)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// unknown tree nodes
	req, rec = newAuthRequest(http.MethodPost, base+"/units/lol/lessons", token, marchallObj(t, course.NewLesson{Title: "Ghost"}))
	app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "unit not found"})}
	checkCodeAndData(t, tt, rec)

	crs = do(t, http.MethodDelete, base+"/units/"+unit.ID+"/lessons/"+lesson.ID+"/quizzes/"+quiz.ID, token, nil, http.StatusOK)
	if len(crs.Units[0].Lessons[0].Quizzes) != 0 {
		t.Errorf("failed! quiz not deleted")
	}
	crs = do(t, http.MethodDelete, base+"/units/"+unit.ID+"/lessons/"+lesson.ID, token, nil, http.StatusOK)
	if len(crs.Units[0].Lessons) != 0 {
		t.Errorf("failed! lesson not deleted")
	}
	crs = do(t, http.MethodDelete, base+"/units/"+unit.ID, token, nil, http.StatusOK)
	if len(crs.Units) != 0 {
		t.Errorf("failed! unit not deleted")
	}

	req, rec = newAuthRequest(http.MethodDelete, base, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
	}
}

func Test_courseApi_uploadStudyGuide(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "Kavira", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	token := getToken(t, teacher)

	crs := testutil.CreateCourse(t, crsRepo, "Biology", teacher.ID, []course.Unit{
		{ID: "unit_1", Title: "Cells", Lessons: []course.Lesson{{ID: "lesson_1", Title: "Mitosis"}}},
	})
	path := "/api/courses/" + crs.ID + "/units/unit_1/lessons/lesson_1/study-guide"

	upload := func(t *testing.T, fieldName string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile(fieldName, "guide.pdf")
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = fw.Write([]byte("%PDF-1.4 lol")); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
		w.Close()

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec
	}

	t.Run("file required", func(t *testing.T) {
		rec := upload(t, "lol")
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"file": "a file is required"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("uploaded", func(t *testing.T) {
		rec := upload(t, "file")
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var respData course.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		url := respData.Units[0].Lessons[0].StudyGuideURL
		wantSuffix := "study-guides/" + crs.ID + "/lesson_1.pdf"
		if !strings.HasSuffix(url, wantSuffix) {
			t.Errorf("failed! study_guide_url = %s; want suffix %s", url, wantSuffix)
		}
	})
}
