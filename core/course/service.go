package course

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course")
	ErrStudentNotFound = core.NewNotFoundError("student")
	ErrNameExists      = errors.New("a course with this name already exists")
	ErrCourseInUse     = core.NewStateError("course still has enrolled students")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// GetCourseByName matches name case-insensitively.
		GetCourseByName(ctx context.Context, name string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// DeleteCourse returns ErrCourseInUse while students reference the course.
		DeleteCourse(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkNameUniqueness(ctx context.Context, name string, excludedID string) error {
	c, err := svc.repo.GetCourseByName(ctx, name)
	switch {
	case errors.Cause(err) == ErrNotFound:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking course name uniqueness")
	case c.ID == excludedID:
		return nil
	}
	return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkNameUniqueness(ctx, nc.Name, ""); err != nil {
		return Course{}, err
	}
	now := core.Now()
	return svc.repo.CreateCourse(ctx, Course{
		ID:          core.NewID(),
		Name:        nc.Name,
		Description: nc.Description,
		Duration:    nc.Duration,
		Status:      nc.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	if !core.IsValidID(id) {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.GetByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Name != "" && !strings.EqualFold(uc.Name, c.Name) {
		if err = svc.checkNameUniqueness(ctx, uc.Name, c.ID); err != nil {
			return Course{}, err
		}
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Duration != 0 {
		c.Duration = uc.Duration
	}
	if uc.Status != "" {
		c.Status = uc.Status
	}
	c.UpdatedAt = core.Now()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// ImportCourses creates courses from spreadsheet rows. The first row is a header naming the columns;
// name and duration are required, description and status are optional.
// Courses whose name already exists are skipped, invalid rows are reported without stopping the import.
func (svc *Service) ImportCourses(ctx context.Context, rows [][]string) (ImportReport, error) {
	report := ImportReport{Created: []Course{}, Skipped: []string{}, Errors: []RowError{}}
	if len(rows) == 0 {
		return report, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the sheet is empty"})
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[core.CleanString(h, true /* lower */)] = i
	}
	for _, required := range []string{"name", "duration"} {
		if _, ok := cols[required]; !ok {
			return report, core.NewValidationError(nil, core.FieldError{
				Field: "file",
				Error: fmt.Sprintf("the header row has no %q column", required),
			})
		}
	}
	cell := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return core.CleanString(row[i])
	}

	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}

		nc, err := parseCourseRow(cell(row, "name"), cell(row, "description"), cell(row, "duration"), cell(row, "status"))
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: rowNum, Error: err.Error()})
			continue
		}

		key := strings.ToLower(nc.Name)
		if seen[key] {
			report.Skipped = append(report.Skipped, nc.Name)
			continue
		}
		seen[key] = true

		if _, err = svc.repo.GetCourseByName(ctx, nc.Name); err == nil {
			report.Skipped = append(report.Skipped, nc.Name)
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return report, errors.Wrapf(err, "row %d", rowNum)
		}

		c, err := svc.Create(ctx, nc)
		if err != nil {
			return report, errors.Wrapf(err, "row %d", rowNum)
		}
		report.Created = append(report.Created, c)
	}
	return report, nil
}

func parseCourseRow(name, description, duration, status string) (NewCourse, error) {
	nc := NewCourse{Name: name, Description: description, Status: Status(status)}
	nc.Clean()
	if nc.Name == "" {
		return nc, errors.New("name is required")
	}

	// spreadsheets may store whole numbers as floats
	d, err := strconv.ParseFloat(duration, 64)
	if err != nil || d != float64(int(d)) || d < 1 || d > 120 {
		return nc, errors.Errorf("invalid duration %q: expected a number of months between 1 and 120", duration)
	}
	nc.Duration = int(d)

	if nc.Status != StatusActive && nc.Status != StatusInactive {
		return nc, errors.Errorf("invalid status %q: expected active or inactive", status)
	}
	return nc, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	c, err := svc.studentCourse(ctx, ns.CourseID)
	if err != nil {
		return Student{}, err
	}
	enrolled, err := parseDate(ns.EnrollmentDate)
	if err != nil {
		return Student{}, err
	}
	now := core.Now()
	return svc.repo.CreateStudent(ctx, Student{
		ID:             core.NewID(),
		Name:           ns.Name,
		CourseID:       c.ID,
		CourseName:     c.Name,
		EnrollmentDate: enrolled,
		Status:         ns.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	if !core.IsValidID(id) {
		return Student{}, ErrStudentNotFound
	}
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.CourseID != "" && us.CourseID != s.CourseID {
		c, err := svc.studentCourse(ctx, us.CourseID)
		if err != nil {
			return Student{}, err
		}
		s.CourseID = c.ID
		s.CourseName = c.Name
	}
	if us.EnrollmentDate != "" {
		if s.EnrollmentDate, err = parseDate(us.EnrollmentDate); err != nil {
			return Student{}, err
		}
	}
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Status != "" {
		s.Status = us.Status
	}
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	if _, err := svc.GetStudent(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, id)
}

// studentCourse finds the course a student enrolls in, reporting an unknown course as a field error.
func (svc *Service) studentCourse(ctx context.Context, courseID string) (Course, error) {
	c, err := svc.GetByID(ctx, courseID)
	if errors.Cause(err) == ErrNotFound {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: "unknown course"})
	}
	return c, err
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: "enrollment_date", Error: "expected a YYYY-MM-DD date"})
	}
	return t.UTC(), nil
}
