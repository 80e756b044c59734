package assessor

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
)

type (
	Expertise string
	Type      string
)

const (
	ExpertiseInformationTechnology  Expertise = "information_technology"
	ExpertiseBusinessAdministration Expertise = "business_administration"
	ExpertiseEducation              Expertise = "education"
	ExpertiseEngineering            Expertise = "engineering"
	ExpertiseHospitalityManagement  Expertise = "hospitality_management"
	ExpertiseCriminology            Expertise = "criminology"
	ExpertisePsychology             Expertise = "psychology"
	ExpertiseAccountancy            Expertise = "accountancy"

	TypeInternal Type = "internal"
	TypeExternal Type = "external"
)

var (
	Expertises = []Expertise{
		ExpertiseInformationTechnology,
		ExpertiseBusinessAdministration,
		ExpertiseEducation,
		ExpertiseEngineering,
		ExpertiseHospitalityManagement,
		ExpertiseCriminology,
		ExpertisePsychology,
		ExpertiseAccountancy,
	}
	Types = []Type{TypeInternal, TypeExternal}
)

func (e Expertise) IsValid() bool {
	for _, exp := range Expertises {
		if e == exp {
			return true
		}
	}
	return false
}

// Label returns the display form of the expertise, e.g. "Information Technology".
func (e Expertise) Label() string {
	words := strings.Split(string(e), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (t Type) IsValid() bool {
	return t == TypeInternal || t == TypeExternal
}

type Assessor struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Expertise          Expertise `json:"expertise"`
	AssessorType       Type      `json:"assessor_type"`
	IsApproved         bool      `json:"is_approved"`
	AssignedApplicants int       `json:"assigned_applicants"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

// NewAssessor contains information needed to register a new Assessor.
type NewAssessor struct {
	FullName        string    `json:"full_name" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
	Expertise       Expertise `json:"expertise" validate:"required,expertise"`
	AssessorType    Type      `json:"assessor_type" validate:"required,assessortype"`
}

func (na *NewAssessor) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	na.FullName = core.CleanString(na.FullName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Expertise = Expertise(core.CleanString(string(na.Expertise), true /* lower */))
	na.AssessorType = Type(core.CleanString(string(na.AssessorType), true /* lower */))

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.usrSvc.CheckUniqueness(ctx, na.Email)
}

// UpdateAssessor defines what information may be provided to modify an existing Assessor.
// Empty fields are left unchanged.
type UpdateAssessor struct {
	FullName     string    `json:"full_name"`
	Expertise    Expertise `json:"expertise" validate:"omitempty,expertise"`
	AssessorType Type      `json:"assessor_type" validate:"omitempty,assessortype"`
	IsApproved   *bool     `json:"is_approved"`
}

func (ua *UpdateAssessor) Validate(validate *validator.Validate) error {
	ua.FullName = core.CleanString(ua.FullName)
	ua.Expertise = Expertise(core.CleanString(string(ua.Expertise), true /* lower */))
	ua.AssessorType = Type(core.CleanString(string(ua.AssessorType), true /* lower */))
	return validate.Struct(ua)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Expertise  string `query:"expertise"`
	IsApproved *bool  `query:"is_approved"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Expertise = core.CleanString(qf.Expertise, true /* lower */)
}

// Match reports whether asr satisfies every set field of the filter.
func (qf *QueryFilter) Match(asr Assessor) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, asr.FullName, asr.Email, string(asr.Expertise), asr.Expertise.Label()) {
		return false
	}
	if qf.Expertise != "" && string(asr.Expertise) != qf.Expertise {
		return false
	}
	if qf.IsApproved != nil && asr.IsApproved != *qf.IsApproved {
		return false
	}
	return true
}
