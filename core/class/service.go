package class

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrNotFound     = errors.New("class not found")
	ErrCodeNotFound = errors.New("no class found for this code")
)

// Topic is the live-subscription topic carrying a class's full snapshots.
func Topic(classID string) string {
	return "classes/" + classID
}

const codeLen = 6

var codeAlphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// newClassCode mints a 6-char join code. Codes are human-typable and
// unique-enough; global uniqueness is not guaranteed.
func newClassCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		GetClassByCode(ctx context.Context, code string) (Class, error)
		FilterClasses(ctx context.Context, filter QueryFilter) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) error
	}

	// CourseGetter resolves the course tree needed when granting access.
	CourseGetter interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo     Repository
		courses  CourseGetter
		streamer core.Streamer
	}
)

func NewService(repo Repository, courses CourseGetter, streamer core.Streamer) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		streamer: streamer,
	}
}

func (svc *Service) Create(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	code, err := newClassCode()
	if err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	cls := Class{
		ID:           uuid.NewString(),
		Name:         nc.Name,
		TeacherID:    teacherID,
		Code:         code,
		GradeLevel:   nc.GradeLevel,
		Students:     []string{},
		AccessGrants: AccessGrants{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	cls, err = svc.repo.CreateClass(ctx, cls)
	if err != nil {
		return Class{}, err
	}
	svc.streamer.Publish(Topic(cls.ID), cls)
	return cls, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Class, error) {
	return svc.repo.FilterClasses(ctx, *filter)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteClassesByID(ctx, ids...)
}

func (svc *Service) mutate(ctx context.Context, classID string, fn func(*Class) error) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	if err = fn(&cls); err != nil {
		return Class{}, err
	}
	cls.UpdatedAt = time.Now().UTC()

	cls, err = svc.repo.UpdateClass(ctx, cls)
	if err != nil {
		return Class{}, err
	}
	svc.streamer.Publish(Topic(cls.ID), cls)
	return cls, nil
}

func (svc *Service) Update(ctx context.Context, classID string, uc UpdateClass) (Class, error) {
	return svc.mutate(ctx, classID, func(cls *Class) error {
		if uc.Name != "" {
			cls.Name = uc.Name
		}
		if uc.GradeLevel != "" {
			cls.GradeLevel = uc.GradeLevel
		}
		return nil
	})
}

// Join adds the student to the class matching `code`. Joining a class the
// student is already in is a no-op.
func (svc *Service) Join(ctx context.Context, code, studentID string) (Class, error) {
	cls, err := svc.repo.GetClassByCode(ctx, code)
	if err != nil {
		if err == ErrNotFound {
			return Class{}, ErrCodeNotFound
		}
		return Class{}, err
	}
	if cls.HasStudent(studentID) {
		return cls, nil
	}
	return svc.mutate(ctx, cls.ID, func(cls *Class) error {
		if !cls.HasStudent(studentID) {
			cls.Students = append(cls.Students, studentID)
		}
		return nil
	})
}

func (svc *Service) RemoveStudent(ctx context.Context, classID, studentID string) (Class, error) {
	return svc.mutate(ctx, classID, func(cls *Class) error {
		for i, id := range cls.Students {
			if id == studentID {
				cls.Students = append(cls.Students[:i], cls.Students[i+1:]...)
				break
			}
		}
		return nil
	})
}

// GrantAccess writes one AccessGrant per selected lesson, snapshotting each
// lesson's quiz IDs from the course tree at grant time.
func (svc *Service) GrantAccess(ctx context.Context, classID string, ga GrantAccess) (Class, error) {
	crs, err := svc.courses.GetCourseByID(ctx, ga.CourseID)
	if err != nil {
		return Class{}, err
	}

	grants := make(map[string]AccessGrant, len(ga.Selection)) // lessonID -> grant
	units := make(map[string]string, len(ga.Selection))       // lessonID -> unitID
	for lessonID, sel := range ga.Selection {
		quizIDs, ok := crs.LessonQuizIDs(sel.UnitID, lessonID)
		if !ok {
			return Class{}, course.ErrLessonNotFound
		}
		grants[lessonID] = AccessGrant{
			SharePages:     ga.SharePages,
			QuizIDs:        quizIDs,
			AvailableFrom:  ga.AvailableFrom.UTC(),
			AvailableUntil: ga.AvailableUntil.UTC(),
		}
		units[lessonID] = sel.UnitID
	}

	return svc.mutate(ctx, classID, func(cls *Class) error {
		if cls.AccessGrants == nil {
			cls.AccessGrants = AccessGrants{}
		}
		for lessonID, grant := range grants {
			cls.AccessGrants.Set(crs.ID, units[lessonID], lessonID, grant)
		}
		return nil
	})
}
