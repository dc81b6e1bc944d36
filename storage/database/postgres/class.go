package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/class"
)

type dbClass struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	TeacherID    string         `db:"teacher_id"`
	Code         string         `db:"code"`
	GradeLevel   string         `db:"grade_level"`
	Students     pq.StringArray `db:"students"`
	AccessGrants []byte         `db:"access_grants"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (dc dbClass) unbox() (class.Class, error) {
	cls := class.Class{
		ID:         dc.ID,
		Name:       dc.Name,
		TeacherID:  dc.TeacherID,
		Code:       dc.Code,
		GradeLevel: dc.GradeLevel,
		Students:   dc.Students,
		CreatedAt:  dc.CreatedAt,
		UpdatedAt:  dc.UpdatedAt,
	}
	if err := json.Unmarshal(dc.AccessGrants, &cls.AccessGrants); err != nil {
		return class.Class{}, errors.Wrap(err, "unmarshalling access grants")
	}
	return cls, nil
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	grants, err := json.Marshal(cls.AccessGrants)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "marshalling access grants")
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO class (id, name, teacher_id, code, grade_level, students, access_grants, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cls.ID, cls.Name, cls.TeacherID, cls.Code, cls.GradeLevel, pq.Array(cls.Students), grants, cls.CreatedAt, cls.UpdatedAt,
	)
	if err != nil {
		return class.Class{}, err
	}
	return cls, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	var dc dbClass
	if err := repo.db.GetContext(ctx, &dc, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound)
	}
	return dc.unbox()
}

func (repo *classRepository) GetClassByCode(ctx context.Context, code string) (class.Class, error) {
	var dc dbClass
	q := `SELECT * FROM class WHERE code = $1 ORDER BY created_at ASC LIMIT 1`
	if err := repo.db.GetContext(ctx, &dc, q, code); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound)
	}
	return dc.unbox()
}

func (repo *classRepository) FilterClasses(ctx context.Context, filter class.QueryFilter) ([]class.Class, error) {
	q := `SELECT * FROM class`
	args := make([]interface{}, 0, 1)
	switch {
	case filter.TeacherID != "":
		q += " WHERE teacher_id = $1"
		args = append(args, filter.TeacherID)
	case filter.StudentID != "":
		q += " WHERE $1 = ANY(students)"
		args = append(args, filter.StudentID)
	}
	q += " ORDER BY created_at ASC"

	var dcs []dbClass
	if err := repo.db.SelectContext(ctx, &dcs, q, args...); err != nil {
		return nil, err
	}
	classes := make([]class.Class, 0, len(dcs))
	for _, dc := range dcs {
		cls, err := dc.unbox()
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	grants, err := json.Marshal(cls.AccessGrants)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "marshalling access grants")
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE class SET name = $1, grade_level = $2, students = $3, access_grants = $4, updated_at = $5
		 WHERE id = $6`,
		cls.Name, cls.GradeLevel, pq.Array(cls.Students), grants, cls.UpdatedAt, cls.ID,
	)
	if err != nil {
		return class.Class{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return class.Class{}, err
	} else if n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
