package assessor

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/user"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("assessor")
	ErrNotApproved = core.NewForbiddenError("assessor account is pending approval")
	ErrHasWork     = core.NewStateError("assessor still has applicants under assessment")
)

type (
	Repository interface {
		CreateAssessor(ctx context.Context, asr Assessor) (Assessor, error)
		GetAssessorByID(ctx context.Context, id string) (Assessor, error)
		GetAssessorByUserID(ctx context.Context, userID string) (Assessor, error)
		QueryAssessors(ctx context.Context, filter QueryFilter) ([]Assessor, error)
		UpdateAssessor(ctx context.Context, asr Assessor) (Assessor, error)
		DeleteAssessor(ctx context.Context, id string) error
	}

	// WorkloadCounter counts the applicants currently under assessment by an assessor.
	WorkloadCounter interface {
		CountUnderAssessment(ctx context.Context, assessorID string) (int, error)
	}

	Service struct {
		repo     Repository
		usrSvc   *user.Service
		workload WorkloadCounter
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, usrSvc *user.Service, workload WorkloadCounter, mailSvc core.EmailService) *Service {
	return &Service{
		repo:     repo,
		usrSvc:   usrSvc,
		workload: workload,
		mailSvc:  mailSvc,
	}
}

// Register creates the assessor's account and profile. The assessor cannot log in until approved.
func (svc *Service) Register(ctx context.Context, na NewAssessor) (Assessor, error) {
	usr, err := svc.usrSvc.Create(ctx, user.NewUser{
		Name:            na.FullName,
		Email:           na.Email,
		Password:        na.Password,
		PasswordConfirm: na.PasswordConfirm,
		Roles:           []string{user.RoleAssessor},
	})
	if err != nil {
		return Assessor{}, errors.Wrap(err, "creating assessor user")
	}

	now := core.Now()
	asr, err := svc.repo.CreateAssessor(ctx, Assessor{
		ID:           core.NewID(),
		UserID:       usr.ID,
		FullName:     na.FullName,
		Email:        na.Email,
		Expertise:    na.Expertise,
		AssessorType: na.AssessorType,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		_ = svc.usrSvc.Delete(ctx, usr.ID)
		return Assessor{}, errors.Wrap(err, "creating assessor")
	}
	return asr, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Assessor, error) {
	return svc.repo.QueryAssessors(ctx, filter)
}

// Available returns the approved assessors, which are the only ones applicants can be assigned to.
func (svc *Service) Available(ctx context.Context) ([]Assessor, error) {
	approved := true
	return svc.repo.QueryAssessors(ctx, QueryFilter{IsApproved: &approved})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assessor, error) {
	if !core.IsValidID(id) {
		return Assessor{}, ErrNotFound
	}
	return svc.repo.GetAssessorByID(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Assessor, error) {
	return svc.repo.GetAssessorByUserID(ctx, userID)
}

// GetApproved returns the assessor if it exists and is approved.
func (svc *Service) GetApproved(ctx context.Context, id string) (Assessor, error) {
	asr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Assessor{}, err
	}
	if !asr.IsApproved {
		return Assessor{}, ErrNotApproved
	}
	return asr, nil
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAssessor) (Assessor, error) {
	asr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Assessor{}, err
	}

	var approvedNow bool
	if ua.FullName != "" {
		asr.FullName = ua.FullName
	}
	if ua.Expertise != "" {
		asr.Expertise = ua.Expertise
	}
	if ua.AssessorType != "" {
		asr.AssessorType = ua.AssessorType
	}
	if ua.IsApproved != nil {
		approvedNow = *ua.IsApproved && !asr.IsApproved
		asr.IsApproved = *ua.IsApproved
	}
	asr.UpdatedAt = core.Now()

	asr, err = svc.repo.UpdateAssessor(ctx, asr)
	if err != nil {
		return Assessor{}, errors.Wrap(err, "updating assessor")
	}

	if approvedNow {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: asr.FullName, Address: asr.Email}},
			Subject:      "Your assessor account has been approved",
			TemplateName: "assessor_approved",
			TemplateData: map[string]string{"Name": asr.FullName},
		})
	}
	return asr, nil
}

// Delete removes the assessor and its user account.
// Assessors still assessing applicants cannot be deleted: reassign their applicants first.
func (svc *Service) Delete(ctx context.Context, id string) error {
	asr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := svc.workload.CountUnderAssessment(ctx, asr.ID)
	if err != nil {
		return errors.Wrap(err, "counting assessor workload")
	}
	if n > 0 {
		return ErrHasWork
	}
	if err = svc.repo.DeleteAssessor(ctx, asr.ID); err != nil {
		return errors.Wrap(err, "deleting assessor")
	}
	return errors.Wrap(svc.usrSvc.Delete(ctx, asr.UserID), "deleting assessor user")
}
