package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/course"
)

type courseRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Duration    int       `db:"duration"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Duration:    c.Duration,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Duration:    r.Duration,
		Status:      course.Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type studentRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	CourseID       string    `db:"course_id"`
	CourseName     string    `db:"course_name"`
	EnrollmentDate time.Time `db:"enrollment_date"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func newStudentRow(s course.Student) studentRow {
	return studentRow{
		ID:             s.ID,
		Name:           s.Name,
		CourseID:       s.CourseID,
		CourseName:     s.CourseName,
		EnrollmentDate: s.EnrollmentDate.UTC(),
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() course.Student {
	return course.Student{
		ID:             r.ID,
		Name:           r.Name,
		CourseID:       r.CourseID,
		CourseName:     r.CourseName,
		EnrollmentDate: r.EnrollmentDate.UTC(),
		Status:         course.StudentStatus(r.Status),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const (
	courseColumns = "id, name, description, duration, status, created_at, updated_at"
	studentSelect = "SELECT s.id, s.name, s.course_id, c.name AS course_name, s.enrollment_date, s.status, " +
		"s.created_at, s.updated_at FROM students s JOIN courses c ON c.id = s.course_id"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := "INSERT INTO courses (" + courseColumns + ") VALUES (:id, :name, :description, :duration, :status, :created_at, :updated_at)"
	if _, err := sqlxNamedExec(ctx, repo.exec, q, newCourseRow(c)); err != nil {
		if pqCode(err) == uniqueViolation {
			return course.Course{}, course.ErrNameExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) getBy(ctx context.Context, where string, arg interface{}) (course.Course, error) {
	var row courseRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses WHERE "+where, arg); err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *courseRepository) GetCourseByName(ctx context.Context, name string) (course.Course, error) {
	return repo.getBy(ctx, "lower(name) = lower($1)", name)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, qf course.QueryFilter) ([]course.Course, error) {
	var f filter
	if qf.Search != "" {
		pattern := likePattern(qf.Search)
		f.add("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if qf.Status != "" {
		f.add("status = ?", string(qf.Status))
	}

	rows := make([]courseRow, 0)
	q := repo.exec.Rebind("SELECT " + courseColumns + " FROM courses" + f.String() + " ORDER BY name")
	if err := repo.exec.SelectContext(ctx, &rows, q, f.args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := "UPDATE courses SET name = :name, description = :description, duration = :duration, status = :status, " +
		"updated_at = :updated_at WHERE id = :id"
	res, err := sqlxNamedExec(ctx, repo.exec, q, newCourseRow(c))
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return course.Course{}, course.ErrNameExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.exec.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id); err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.ErrCourseInUse
		}
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo *courseRepository) CreateStudent(ctx context.Context, s course.Student) (course.Student, error) {
	q := "INSERT INTO students (id, name, course_id, enrollment_date, status, created_at, updated_at) " +
		"VALUES (:id, :name, :course_id, :enrollment_date, :status, :created_at, :updated_at)"
	if _, err := sqlxNamedExec(ctx, repo.exec, q, newStudentRow(s)); err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.Student{}, course.ErrNotFound
		}
		return course.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *courseRepository) GetStudentByID(ctx context.Context, id string) (course.Student, error) {
	var row studentRow
	if err := repo.exec.GetContext(ctx, &row, studentSelect+" WHERE s.id = $1", id); err != nil {
		if isNoRows(err) {
			return course.Student{}, course.ErrStudentNotFound
		}
		return course.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.student(), nil
}

func (repo *courseRepository) QueryStudents(ctx context.Context, sf course.StudentFilter) ([]course.Student, error) {
	var f filter
	if sf.Search != "" {
		pattern := likePattern(sf.Search)
		f.add("(s.name ILIKE ? OR c.name ILIKE ?)", pattern, pattern)
	}
	if sf.CourseID != "" {
		f.add("s.course_id::text = ?", sf.CourseID)
	}
	if sf.Status != "" {
		f.add("s.status = ?", string(sf.Status))
	}

	rows := make([]studentRow, 0)
	q := repo.exec.Rebind(studentSelect + f.String() + " ORDER BY s.name")
	if err := repo.exec.SelectContext(ctx, &rows, q, f.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]course.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *courseRepository) UpdateStudent(ctx context.Context, s course.Student) (course.Student, error) {
	q := "UPDATE students SET name = :name, course_id = :course_id, enrollment_date = :enrollment_date, " +
		"status = :status, updated_at = :updated_at WHERE id = :id"
	res, err := sqlxNamedExec(ctx, repo.exec, q, newStudentRow(s))
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.Student{}, course.ErrNotFound
		}
		return course.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Student{}, course.ErrStudentNotFound
	}
	return s, nil
}

func (repo *courseRepository) DeleteStudent(ctx context.Context, id string) error {
	_, err := repo.exec.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	return errors.Wrap(err, "deleting student")
}
