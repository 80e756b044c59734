package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/eteeap/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) nameTaken(name, excludedID string) bool {
	for _, c := range repo.db.table {
		if strings.EqualFold(c.Name, name) && c.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.nameTaken(c.Name, "") {
		return course.Course{}, course.ErrNameExists
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByName(_ context.Context, name string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if strings.EqualFold(c.Name, name) {
			return *c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.table {
		if filter.Match(*c) {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	if repo.nameTaken(c.Name, c.ID) {
		return course.Course{}, course.ErrNameExists
	}
	repo.db.table[c.ID] = &c

	// students show the course name
	for _, s := range repo.db.students {
		if s.CourseID == c.ID {
			s.CourseName = c.Name
		}
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.students {
		if s.CourseID == id {
			return course.ErrCourseInUse
		}
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *courseRepository) CreateStudent(_ context.Context, s course.Student) (course.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.CourseID]; !ok {
		return course.Student{}, course.ErrNotFound
	}
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) GetStudentByID(_ context.Context, id string) (course.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return course.Student{}, course.ErrStudentNotFound
}

func (repo *courseRepository) QueryStudents(_ context.Context, filter course.StudentFilter) ([]course.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]course.Student, 0)
	for _, s := range repo.db.students {
		if filter.Match(*s) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *courseRepository) UpdateStudent(_ context.Context, s course.Student) (course.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[s.ID]; !ok {
		return course.Student{}, course.ErrStudentNotFound
	}
	if _, ok := repo.db.table[s.CourseID]; !ok {
		return course.Student{}, course.ErrNotFound
	}
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.students, id)
	return nil
}
