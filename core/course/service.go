package course

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrUnitNotFound   = errors.New("unit not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrConflict       = errors.New("course was modified concurrently")
)

// Topic is the live-subscription topic carrying a course's full snapshots.
func Topic(courseID string) string {
	return "courses/" + courseID
}

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		FilterCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		// UpdateCourse persists the whole aggregate iff the stored Version still
		// matches crs.Version; a stale snapshot fails with ErrConflict.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		streamer core.Streamer
	}
)

func NewService(repo Repository, streamer core.Streamer) *Service {
	return &Service{
		repo:     repo,
		streamer: streamer,
	}
}

func (svc *Service) Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		ID:        uuid.NewString(),
		Title:     nc.Title,
		Category:  nc.Category,
		TeacherID: teacherID,
		Units:     []Unit{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.streamer.Publish(Topic(crs.ID), crs)
	return crs, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// GetCourseByID satisfies the CourseGetter interfaces in the class and
// submission packages.
func (svc *Service) GetCourseByID(ctx context.Context, id string) (Course, error) {
	return svc.GetByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Course, error) {
	return svc.repo.FilterCourses(ctx, *filter)
}

// GetManyByID fetches the courses with the given IDs; missing IDs are skipped.
func (svc *Service) GetManyByID(ctx context.Context, ids []string) ([]Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.FilterCourses(ctx, QueryFilter{IDs: ids})
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

// mutate runs a read-modify-write cycle on the aggregate and publishes the
// resulting snapshot. A concurrent writer in between fails the write with
// ErrConflict; the caller decides whether to retry.
func (svc *Service) mutate(ctx context.Context, courseID string, fn func(*Course) error) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if err = fn(&crs); err != nil {
		return Course{}, err
	}
	crs.UpdatedAt = time.Now().UTC()

	crs, err = svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.streamer.Publish(Topic(crs.ID), crs)
	return crs, nil
}

func (svc *Service) Update(ctx context.Context, courseID string, uc UpdateCourse) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		if uc.Title != "" {
			crs.Title = uc.Title
		}
		if uc.Category != "" {
			crs.Category = uc.Category
		}
		return nil
	})
}

func (svc *Service) AddUnit(ctx context.Context, courseID string, nu NewUnit) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		crs.Units = append(crs.Units, Unit{
			ID:      newNodeID("unit"),
			Title:   nu.Title,
			Lessons: []Lesson{},
		})
		return nil
	})
}

func (svc *Service) UpdateUnit(ctx context.Context, courseID, unitID string, uu UpdateUnit) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		unit, ok := crs.FindUnit(unitID)
		if !ok {
			return ErrUnitNotFound
		}
		unit.Title = uu.Title
		return nil
	})
}

func (svc *Service) DeleteUnit(ctx context.Context, courseID, unitID string) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		for i := range crs.Units {
			if crs.Units[i].ID == unitID {
				crs.Units = append(crs.Units[:i], crs.Units[i+1:]...)
				return nil
			}
		}
		return ErrUnitNotFound
	})
}

func (svc *Service) AddLesson(ctx context.Context, courseID, unitID string, nl NewLesson) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		unit, ok := crs.FindUnit(unitID)
		if !ok {
			return ErrUnitNotFound
		}
		pages := nl.Pages
		for i := range pages {
			if pages[i].ID == "" {
				pages[i].ID = newNodeID("page")
			}
		}
		if pages == nil {
			pages = []Page{}
		}
		unit.Lessons = append(unit.Lessons, Lesson{
			ID:      newNodeID("lesson"),
			Title:   nl.Title,
			Pages:   pages,
			Quizzes: []Quiz{},
		})
		return nil
	})
}

func (svc *Service) UpdateLesson(ctx context.Context, courseID, unitID, lessonID string, ul UpdateLesson) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		lesson, ok := crs.FindLesson(unitID, lessonID)
		if !ok {
			return ErrLessonNotFound
		}
		pages := ul.Pages
		for i := range pages {
			if pages[i].ID == "" {
				pages[i].ID = newNodeID("page")
			}
		}
		lesson.Title = ul.Title
		lesson.Pages = pages
		return nil
	})
}

func (svc *Service) DeleteLesson(ctx context.Context, courseID, unitID, lessonID string) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		unit, ok := crs.FindUnit(unitID)
		if !ok {
			return ErrUnitNotFound
		}
		for i := range unit.Lessons {
			if unit.Lessons[i].ID == lessonID {
				unit.Lessons = append(unit.Lessons[:i], unit.Lessons[i+1:]...)
				return nil
			}
		}
		return ErrLessonNotFound
	})
}

// SetStudyGuide points the lesson at an uploaded study guide.
func (svc *Service) SetStudyGuide(ctx context.Context, courseID, unitID, lessonID, url string) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		lesson, ok := crs.FindLesson(unitID, lessonID)
		if !ok {
			return ErrLessonNotFound
		}
		lesson.StudyGuideURL = url
		return nil
	})
}

func (svc *Service) AddQuiz(ctx context.Context, courseID, unitID, lessonID string, nq NewQuiz) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		lesson, ok := crs.FindLesson(unitID, lessonID)
		if !ok {
			return ErrLessonNotFound
		}
		questions := nq.Questions
		if questions == nil {
			questions = []Question{}
		}
		lesson.Quizzes = append(lesson.Quizzes, Quiz{
			ID:        newNodeID("quiz"),
			Title:     nq.Title,
			Questions: questions,
		})
		return nil
	})
}

func (svc *Service) UpdateQuiz(ctx context.Context, courseID, unitID, lessonID, quizID string, uq UpdateQuiz) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		quiz, ok := crs.FindQuizIn(unitID, lessonID, quizID)
		if !ok {
			return ErrQuizNotFound
		}
		quiz.Title = uq.Title
		quiz.Questions = uq.Questions
		return nil
	})
}

func (svc *Service) DeleteQuiz(ctx context.Context, courseID, unitID, lessonID, quizID string) (Course, error) {
	return svc.mutate(ctx, courseID, func(crs *Course) error {
		lesson, ok := crs.FindLesson(unitID, lessonID)
		if !ok {
			return ErrLessonNotFound
		}
		for i := range lesson.Quizzes {
			if lesson.Quizzes[i].ID == quizID {
				lesson.Quizzes = append(lesson.Quizzes[:i], lesson.Quizzes[i+1:]...)
				return nil
			}
		}
		return ErrQuizNotFound
	})
}
