// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		class      *classTable
		submission *submissionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	classTable struct {
		sync.RWMutex
		table map[string]*class.Class
	}

	submissionTable struct {
		sync.RWMutex
		subs  map[string]*submission.Submission
		views map[string]*submission.ViewRecord
	}
)

// Reset drops all rows; for tests.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.class.Lock()
	db.class.table = make(map[string]*class.Class)
	db.class.Unlock()

	db.submission.Lock()
	db.submission.subs = make(map[string]*submission.Submission)
	db.submission.views = make(map[string]*submission.ViewRecord)
	db.submission.Unlock()
}

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		course: &courseTable{table: make(map[string]*course.Course)},
		class:  &classTable{table: make(map[string]*class.Class)},
		submission: &submissionTable{
			subs:  make(map[string]*submission.Submission),
			views: make(map[string]*submission.ViewRecord),
		},
	}
	return db, nil
}
