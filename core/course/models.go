package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

// Categories are the fixed course categories, sorted.
var Categories = []string{
	"Applied Subjects (SHS) Learner's Content",
	"Applied Subjects (SHS) Teacher's Content",
	"Junior High School (Learner's Content)",
	"Junior High School (MATATAG) Learner's Content",
	"Junior High School (MATATAG) Teacher's Content",
	"Junior High School (Teacher's Content)",
	"School-based Subjects",
	"Senior High School (Learner's Content)",
	"Senior High School (Teacher's Content)",
	"Specialized Subjects (HUMSS)",
	"Specialized Subjects (STEM)",
}

type (
	Question struct {
		Text          string   `json:"text" validate:"required"`
		Options       []string `json:"options" validate:"len=4,dive,required"`
		CorrectOption int      `json:"correct_option" validate:"min=0,max=3"`
		Explanation   string   `json:"explanation"`
	}

	Quiz struct {
		ID        string     `json:"id"`
		Title     string     `json:"title"`
		Questions []Question `json:"questions"`
	}

	Page struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	Lesson struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		StudyGuideURL string `json:"study_guide_url"`
		Pages         []Page `json:"pages"`
		Quizzes       []Quiz `json:"quizzes"`
	}

	Unit struct {
		ID      string   `json:"id"`
		Title   string   `json:"title"`
		Lessons []Lesson `json:"lessons"`
	}

	// Course is a whole content aggregate; nested edits go through a
	// read-modify-write of the full document with a Version check.
	Course struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Category  string    `json:"category"`
		TeacherID string    `json:"teacher_id"`
		Units     []Unit    `json:"units"`
		Version   int       `json:"version"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}
)

// newNodeID mints an ID for a nested content node, unique within the course.
func newNodeID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func (c *Course) FindUnit(unitID string) (*Unit, bool) {
	for i := range c.Units {
		if c.Units[i].ID == unitID {
			return &c.Units[i], true
		}
	}
	return nil, false
}

func (c *Course) FindLesson(unitID, lessonID string) (*Lesson, bool) {
	unit, ok := c.FindUnit(unitID)
	if !ok {
		return nil, false
	}
	for i := range unit.Lessons {
		if unit.Lessons[i].ID == lessonID {
			return &unit.Lessons[i], true
		}
	}
	return nil, false
}

func (c *Course) FindQuizIn(unitID, lessonID, quizID string) (*Quiz, bool) {
	lesson, ok := c.FindLesson(unitID, lessonID)
	if !ok {
		return nil, false
	}
	for i := range lesson.Quizzes {
		if lesson.Quizzes[i].ID == quizID {
			return &lesson.Quizzes[i], true
		}
	}
	return nil, false
}

// FindQuiz scans the whole unit -> lesson -> quiz tree for quizID.
func (c *Course) FindQuiz(quizID string) (Quiz, bool) {
	for ui := range c.Units {
		for li := range c.Units[ui].Lessons {
			for qi := range c.Units[ui].Lessons[li].Quizzes {
				if quiz := c.Units[ui].Lessons[li].Quizzes[qi]; quiz.ID == quizID {
					return quiz, true
				}
			}
		}
	}
	return Quiz{}, false
}

// LessonQuizIDs returns the IDs of the lesson's quizzes, in tree order.
func (c *Course) LessonQuizIDs(unitID, lessonID string) ([]string, bool) {
	lesson, ok := c.FindLesson(unitID, lessonID)
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(lesson.Quizzes))
	for _, quiz := range lesson.Quizzes {
		ids = append(ids, quiz.ID)
	}
	return ids, true
}

// Clone deep-copies the aggregate so callers can mutate it freely.
func (c Course) Clone() Course {
	clone := c
	clone.Units = make([]Unit, len(c.Units))
	for ui, unit := range c.Units {
		cu := unit
		cu.Lessons = make([]Lesson, len(unit.Lessons))
		for li, lesson := range unit.Lessons {
			cl := lesson
			if lesson.Pages != nil {
				cl.Pages = make([]Page, len(lesson.Pages))
				copy(cl.Pages, lesson.Pages)
			}
			cl.Quizzes = make([]Quiz, len(lesson.Quizzes))
			for qi, quiz := range lesson.Quizzes {
				cq := quiz
				cq.Questions = make([]Question, len(quiz.Questions))
				for qsi, question := range quiz.Questions {
					cqs := question
					cqs.Options = append([]string(nil), question.Options...)
					cq.Questions[qsi] = cqs
				}
				cl.Quizzes[qi] = cq
			}
			cu.Lessons[li] = cl
		}
		clone.Units[ui] = cu
	}
	return clone
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"omitempty,category"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title    string `json:"title"`
	Category string `json:"category" validate:"omitempty,category"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	return validate.Struct(uc)
}

type NewUnit struct {
	Title string `json:"title" validate:"required"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	return validate.Struct(nu)
}

type UpdateUnit struct {
	Title string `json:"title" validate:"required"`
}

func (uu *UpdateUnit) Validate(validate *validator.Validate) error {
	uu.Title = core.CleanString(uu.Title)
	return validate.Struct(uu)
}

type NewLesson struct {
	Title string `json:"title" validate:"required"`
	Pages []Page `json:"pages"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

// UpdateLesson replaces the lesson's title and pages; quizzes and the study
// guide are managed through their own operations.
type UpdateLesson struct {
	Title string `json:"title" validate:"required"`
	Pages []Page `json:"pages"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	return validate.Struct(ul)
}

type NewQuiz struct {
	Title     string     `json:"title" validate:"required"`
	Questions []Question `json:"questions" validate:"dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	return validate.Struct(nq)
}

type UpdateQuiz struct {
	Title     string     `json:"title" validate:"required"`
	Questions []Question `json:"questions" validate:"dive"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	uq.Title = core.CleanString(uq.Title)
	return validate.Struct(uq)
}

type QueryFilter struct {
	TeacherID string   `query:"teacher_id"`
	IDs       []string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.IDs == nil
}
