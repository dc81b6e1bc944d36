package pgrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type dbCourse struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Category  string    `db:"category"`
	TeacherID string    `db:"teacher_id"`
	Units     []byte    `db:"units"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (dc dbCourse) unbox() (course.Course, error) {
	crs := course.Course{
		ID:        dc.ID,
		Title:     dc.Title,
		Category:  dc.Category,
		TeacherID: dc.TeacherID,
		Version:   dc.Version,
		CreatedAt: dc.CreatedAt,
		UpdatedAt: dc.UpdatedAt,
	}
	if err := json.Unmarshal(dc.Units, &crs.Units); err != nil {
		return course.Course{}, errors.Wrap(err, "unmarshalling course units")
	}
	return crs, nil
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	units, err := json.Marshal(crs.Units)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "marshalling course units")
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO course (id, title, category, teacher_id, units, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.Title, crs.Category, crs.TeacherID, units, crs.Version, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var dc dbCourse
	if err := repo.db.GetContext(ctx, &dc, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound)
	}
	return dc.unbox()
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, "teacher_id = $1")
	}
	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		if len(where) > 0 {
			where = append(where, "id = ANY($2)")
		} else {
			where = append(where, "id = ANY($1)")
		}
	}

	q := `SELECT * FROM course`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at ASC"

	var dcs []dbCourse
	if err := repo.db.SelectContext(ctx, &dcs, q, args...); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(dcs))
	for _, dc := range dcs {
		crs, err := dc.unbox()
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	units, err := json.Marshal(crs.Units)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "marshalling course units")
	}

	// conditional write: only the version we read may be replaced
	res, err := repo.db.ExecContext(ctx,
		`UPDATE course SET title = $1, category = $2, units = $3, version = version + 1, updated_at = $4
		 WHERE id = $5 AND version = $6`,
		crs.Title, crs.Category, units, crs.UpdatedAt, crs.ID, crs.Version,
	)
	if err != nil {
		return course.Course{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return course.Course{}, err
	}
	if n == 0 {
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM course WHERE id = $1)`, crs.ID); err != nil {
			return course.Course{}, err
		}
		if exists {
			return course.Course{}, course.ErrConflict
		}
		return course.Course{}, course.ErrNotFound
	}
	crs.Version++
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
