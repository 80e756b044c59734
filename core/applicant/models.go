package applicant

import (
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
)

type PersonalInfo struct {
	Firstname   string `json:"firstname" validate:"required"`
	Middlename  string `json:"middlename"`
	Lastname    string `json:"lastname" validate:"required"`
	Suffix      string `json:"suffix"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	Age         int    `json:"age" validate:"omitempty,min=18,max=100"`
	Occupation  string `json:"occupation"`
	Nationality string `json:"nationality"`
	CivilStatus string `json:"civilstatus" validate:"omitempty,oneof=single married widowed separated divorced"`
	BirthDate   string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Birthplace  string `json:"birthplace"`

	MobileNumber    string `json:"mobile_number" validate:"required,min=7,max=20"`
	TelephoneNumber string `json:"telephone_number" validate:"omitempty,min=7,max=20"`
	EmailAddress    string `json:"email_address" validate:"omitempty,email"`

	Country  string `json:"country"`
	Province string `json:"province"`
	City     string `json:"city"`
	Street   string `json:"street"`
	ZipCode  string `json:"zip_code" validate:"omitempty,numeric"`

	FirstPriorityCourse  string `json:"first_priority_course" validate:"required"`
	SecondPriorityCourse string `json:"second_priority_course"`
	ThirdPriorityCourse  string `json:"third_priority_course"`
}

func (pi *PersonalInfo) Clean() {
	for _, s := range []*string{
		&pi.Firstname, &pi.Middlename, &pi.Lastname, &pi.Suffix, &pi.Occupation, &pi.Nationality,
		&pi.BirthDate, &pi.Birthplace, &pi.MobileNumber, &pi.TelephoneNumber, &pi.Country, &pi.Province,
		&pi.City, &pi.Street, &pi.ZipCode, &pi.FirstPriorityCourse, &pi.SecondPriorityCourse, &pi.ThirdPriorityCourse,
	} {
		*s = core.CleanString(*s)
	}
	pi.Gender = core.CleanString(pi.Gender, true /* lower */)
	pi.CivilStatus = core.CleanString(pi.CivilStatus, true /* lower */)
	pi.EmailAddress = core.CleanString(pi.EmailAddress, true /* lower */)
}

func (pi *PersonalInfo) Validate(validate *validator.Validate) error {
	pi.Clean()
	return validate.Struct(pi)
}

// FullName joins the set name parts, e.g. "Juan Santos Dela Cruz Jr.".
func (pi PersonalInfo) FullName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{pi.Firstname, pi.Middlename, pi.Lastname, pi.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type Applicant struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Email           string       `json:"email"`
	PersonalInfo    PersonalInfo `json:"personal_info"`
	Status          Status       `json:"status"`
	AssessorID      string       `json:"assessor_id,omitempty"`
	AssignedAt      *time.Time   `json:"assigned_at,omitempty"` // UTC
	RejectionReason string       `json:"rejection_reason,omitempty"`
	Documents       []Document   `json:"documents,omitempty"`
	CreatedAt       time.Time    `json:"created_at"` // UTC
	UpdatedAt       time.Time    `json:"updated_at"` // UTC
}

// Name returns the applicant's full name, or their email while personal info is not filled yet.
func (a Applicant) Name() string {
	if name := a.PersonalInfo.FullName(); name != "" {
		return name
	}
	return a.Email
}

func (a Applicant) HasAssessor() bool {
	return a.AssessorID != ""
}

type Document struct {
	ID          string        `json:"id"`
	ApplicantID string        `json:"applicant_id"`
	Filename    string        `json:"filename"`
	Label       DocumentLabel `json:"label"`
	ContentType string        `json:"content_type"`
	Size        int64         `json:"size"`
	StorageKey  string        `json:"-"`
	UploadedAt  time.Time     `json:"uploaded_at"` // UTC
}

// Upload is a document submitted by an applicant, before it is stored.
type Upload struct {
	Filename    string
	Label       DocumentLabel // initial-submission when empty
	ContentType string
	Size        int64
	Content     io.Reader
}

// DocumentsForm holds the form fields sent along with uploaded documents.
type DocumentsForm struct {
	Label DocumentLabel `form:"label" json:"label" validate:"omitempty,documentlabel"`
}

// NewApplicant contains information needed to register a new Applicant.
type NewApplicant struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search         string    `query:"search"`
	Status         Status    `query:"status"`
	AssessorID     string    `query:"assessor"`
	AssignedBefore time.Time `query:"assigned_before"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = Status(core.CleanString(string(qf.Status)))
	qf.AssessorID = core.CleanString(qf.AssessorID)
}

// Match reports whether a satisfies every set field of the filter.
// Search does a case-insensitive match on the applicant's names, emails, status or course priorities.
func (qf *QueryFilter) Match(a Applicant) bool {
	pi := a.PersonalInfo
	if qf.Search != "" && !core.ContainsFold(
		qf.Search,
		pi.FullName(), a.Email, pi.EmailAddress, string(a.Status),
		pi.FirstPriorityCourse, pi.SecondPriorityCourse, pi.ThirdPriorityCourse,
	) {
		return false
	}
	if qf.Status != "" && a.Status != qf.Status {
		return false
	}
	if qf.AssessorID != "" && a.AssessorID != qf.AssessorID {
		return false
	}
	if !qf.AssignedBefore.IsZero() && (a.AssignedAt == nil || !a.AssignedAt.Before(qf.AssignedBefore)) {
		return false
	}
	return true
}

// Stats are the counters shown on the admin dashboard.
type Stats struct {
	TotalApplicants int `json:"total_applicants"`
	NewApplicants   int `json:"new_applicants"`
	WithoutAssessor int `json:"without_assessor"`
	UnderAssessment int `json:"under_assessment"`
	Evaluated       int `json:"evaluated"`
	Rejected        int `json:"rejected"`
}

type Step struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

type Progress struct {
	Status          Status `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	Steps           []Step `json:"steps"`
}

// StatusChange is an admin's explicit status change. Reason is kept when rejecting.
type StatusChange struct {
	Status Status `json:"status" validate:"required,applicantstatus"`
	Reason string `json:"reason"`
}

type Rejection struct {
	Reason string `json:"reason" validate:"required"`
}

type Assignment struct {
	AssessorID string `json:"assessor_id" validate:"required"`
}
