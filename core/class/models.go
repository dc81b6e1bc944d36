package class

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type (
	// AccessGrant shares one lesson with a class for a bounded window.
	// QuizIDs is a snapshot of the lesson's quizzes taken at grant time;
	// quizzes added to the lesson later are not included.
	AccessGrant struct {
		SharePages     bool      `json:"share_pages"`
		QuizIDs        []string  `json:"quiz_ids"`
		AvailableFrom  time.Time `json:"available_from"`  // UTC
		AvailableUntil time.Time `json:"available_until"` // UTC
	}

	// AccessGrants maps courseID -> unitID -> lessonID -> AccessGrant.
	AccessGrants map[string]map[string]map[string]AccessGrant

	Class struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		TeacherID    string       `json:"teacher_id"`
		Code         string       `json:"code"`
		GradeLevel   string       `json:"grade_level"`
		Students     []string     `json:"students"`
		AccessGrants AccessGrants `json:"access_grants"`
		CreatedAt    time.Time    `json:"created_at"` // UTC
		UpdatedAt    time.Time    `json:"updated_at"` // UTC
	}
)

// ActiveAt reports whether the grant's window contains `now` (inclusive bounds).
func (g AccessGrant) ActiveAt(now time.Time) bool {
	return !now.Before(g.AvailableFrom) && !now.After(g.AvailableUntil)
}

// OverdueAt reports whether the grant's window has passed. A grant is never
// both active and overdue.
func (g AccessGrant) OverdueAt(now time.Time) bool {
	return now.After(g.AvailableUntil)
}

// Set writes the grant for (courseID, unitID, lessonID), fully replacing any
// prior grant for that lesson.
func (ag AccessGrants) Set(courseID, unitID, lessonID string, grant AccessGrant) {
	units, ok := ag[courseID]
	if !ok {
		units = make(map[string]map[string]AccessGrant)
		ag[courseID] = units
	}
	lessons, ok := units[unitID]
	if !ok {
		lessons = make(map[string]AccessGrant)
		units[unitID] = lessons
	}
	lessons[lessonID] = grant
}

func (ag AccessGrants) Clone() AccessGrants {
	clone := make(AccessGrants, len(ag))
	for courseID, units := range ag {
		cu := make(map[string]map[string]AccessGrant, len(units))
		for unitID, lessons := range units {
			cl := make(map[string]AccessGrant, len(lessons))
			for lessonID, grant := range lessons {
				grant.QuizIDs = append([]string(nil), grant.QuizIDs...)
				cl[lessonID] = grant
			}
			cu[unitID] = cl
		}
		clone[courseID] = cu
	}
	return clone
}

func (c *Class) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// Clone deep-copies the class so callers can mutate it freely.
func (c Class) Clone() Class {
	clone := c
	if c.Students != nil {
		clone.Students = make([]string, len(c.Students))
		copy(clone.Students, c.Students)
	}
	clone.AccessGrants = c.AccessGrants.Clone()
	return clone
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.GradeLevel = core.CleanString(nc.GradeLevel)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name       string `json:"name"`
	GradeLevel string `json:"grade_level"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.GradeLevel = core.CleanString(uc.GradeLevel)
	return validate.Struct(uc)
}

type JoinClass struct {
	Code string `json:"code" validate:"required,len=6"`
}

func (jc *JoinClass) Validate(validate *validator.Validate) error {
	jc.Code = strings.ToUpper(core.CleanString(jc.Code))
	return validate.Struct(jc)
}

// GrantSelection names the unit a selected lesson belongs to.
type GrantSelection struct {
	UnitID string `json:"unit_id" validate:"required"`
}

// GrantAccess shares the selected lessons of a course with a class.
// Selection maps lessonID -> GrantSelection.
type GrantAccess struct {
	CourseID       string                    `json:"course_id" validate:"required"`
	Selection      map[string]GrantSelection `json:"selection" validate:"required,min=1,dive"`
	SharePages     bool                      `json:"share_pages"`
	AvailableFrom  time.Time                 `json:"available_from" validate:"required"`
	AvailableUntil time.Time                 `json:"available_until" validate:"required,gtefield=AvailableFrom"`
}

func (ga *GrantAccess) Validate(validate *validator.Validate) error {
	return validate.Struct(ga)
}

type QueryFilter struct {
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.StudentID == ""
}
