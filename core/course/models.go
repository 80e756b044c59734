package course

import (
	"time"

	"github.com/trezcool/eteeap/core"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentInactive  StudentStatus = "inactive"
	StudentGraduated StudentStatus = "graduated"
)

type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"` // months
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewCourse struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Duration    int    `json:"duration" validate:"required,min=1,max=120"`
	Status      Status `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (nc *NewCourse) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Status = Status(core.CleanString(string(nc.Status), true /* lower */))
	if nc.Status == "" {
		nc.Status = StatusActive
	}
}

type UpdateCourse struct {
	Name        string  `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Duration    int     `json:"duration" validate:"omitempty,min=1,max=120"`
	Status      Status  `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (uc *UpdateCourse) Clean() {
	uc.Name = core.CleanString(uc.Name)
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	uc.Status = Status(core.CleanString(string(uc.Status), true /* lower */))
}

type QueryFilter struct {
	Search string `query:"search"`
	Status Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}

func (qf *QueryFilter) Match(c Course) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, c.Name, c.Description) {
		return false
	}
	return qf.Status == "" || c.Status == qf.Status
}

type Student struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	CourseID       string        `json:"course_id"`
	CourseName     string        `json:"course_name"`
	EnrollmentDate time.Time     `json:"enrollment_date"` // UTC
	Status         StudentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"` // UTC
	UpdatedAt      time.Time     `json:"updated_at"` // UTC
}

type NewStudent struct {
	Name           string        `json:"name" validate:"required"`
	CourseID       string        `json:"course_id" validate:"required"`
	EnrollmentDate string        `json:"enrollment_date" validate:"required,datetime=2006-01-02"`
	Status         StudentStatus `json:"status" validate:"omitempty,oneof=active inactive graduated"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.EnrollmentDate = core.CleanString(ns.EnrollmentDate)
	ns.Status = StudentStatus(core.CleanString(string(ns.Status), true /* lower */))
	if ns.Status == "" {
		ns.Status = StudentActive
	}
}

type UpdateStudent struct {
	Name           string        `json:"name"`
	CourseID       string        `json:"course_id"`
	EnrollmentDate string        `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	Status         StudentStatus `json:"status" validate:"omitempty,oneof=active inactive graduated"`
}

func (us *UpdateStudent) Clean() {
	us.Name = core.CleanString(us.Name)
	us.CourseID = core.CleanString(us.CourseID)
	us.EnrollmentDate = core.CleanString(us.EnrollmentDate)
	us.Status = StudentStatus(core.CleanString(string(us.Status), true /* lower */))
}

type StudentFilter struct {
	Search   string        `query:"search"`
	CourseID string        `query:"course"`
	Status   StudentStatus `query:"status"`
}

func (sf *StudentFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
	sf.CourseID = core.CleanString(sf.CourseID)
	sf.Status = StudentStatus(core.CleanString(string(sf.Status), true /* lower */))
}

func (sf *StudentFilter) Match(s Student) bool {
	if sf.Search != "" && !core.ContainsFold(sf.Search, s.Name, s.CourseName) {
		return false
	}
	if sf.CourseID != "" && s.CourseID != sf.CourseID {
		return false
	}
	return sf.Status == "" || s.Status == sf.Status
}

// RowError reports why a spreadsheet row was not imported. Row is 1-based, the header being row 1.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportReport struct {
	Created []Course   `json:"created"`
	Skipped []string   `json:"skipped"` // names of existing courses
	Errors  []RowError `json:"errors"`
}
