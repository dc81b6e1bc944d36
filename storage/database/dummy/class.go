package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) query() []class.Class {
	classes := make([]class.Class, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		classes = append(classes, cls.Clone())
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.Before(classes[j].CreatedAt) })
	return classes
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := cls.Clone()
	repo.db.table[cls.ID] = &stored
	return cls, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return cls.Clone(), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassByCode(ctx context.Context, code string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// oldest class wins on a code collision
	for _, cls := range repo.query() {
		if cls.Code == code {
			return cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) FilterClasses(ctx context.Context, filter class.QueryFilter) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := repo.query()

	if filter.TeacherID != "" {
		var filtered []class.Class
		for _, cls := range classes {
			if cls.TeacherID == filter.TeacherID {
				filtered = append(filtered, cls)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.StudentID != "" {
		var filtered []class.Class
		for _, cls := range classes {
			if cls.HasStudent(filter.StudentID) {
				filtered = append(filtered, cls)
			}
		}
		classes = filtered
	}

	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	stored := cls.Clone()
	repo.db.table[cls.ID] = &stored
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
