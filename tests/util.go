package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, lastName, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		LastName:  lastName,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, teacherID string,
	units []course.Unit,
) course.Course {
	tstamp := time.Now().UTC()
	if units == nil {
		units = []course.Unit{}
	}
	crs := course.Course{
		ID:        uuid.NewString(),
		Title:     title,
		TeacherID: teacherID,
		Units:     units,
		Version:   1,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func CreateClass(
	t *testing.T,
	repo class.Repository,
	name, code, teacherID string,
	students ...string,
) class.Class {
	tstamp := time.Now().UTC()
	if students == nil {
		students = []string{}
	}
	cls := class.Class{
		ID:           uuid.NewString(),
		Name:         name,
		TeacherID:    teacherID,
		Code:         code,
		Students:     students,
		AccessGrants: make(class.AccessGrants),
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	studentID, courseID, quizID string,
	answers []int,
	score, total int,
) submission.Submission {
	sub := submission.Submission{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		CourseID:       courseID,
		QuizID:         quizID,
		Answers:        answers,
		Score:          score,
		TotalQuestions: total,
		SubmittedAt:    time.Now().UTC(),
		Type:           submission.TypeOnTime,
	}
	if total > 0 {
		sub.Percentage = float64(score) / float64(total) * 100
	}
	sub, err := repo.CreateSubmission(context.Background(), sub, submission.MaxAttempts)
	if err != nil {
		t.Fatalf("createSubmission() failed: %v", err)
	}
	return sub
}
