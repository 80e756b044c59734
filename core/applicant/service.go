package applicant

import (
	"context"
	"io"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("applicant")
	ErrDocumentNotFound = core.NewNotFoundError("document")
	ErrNotAssigned      = core.NewForbiddenError("applicant is not assigned to you")
	ErrStatusChanged    = core.NewConflictError("applicant status was changed by someone else, reload and try again")
	ErrInfoLocked       = core.NewStateError("personal information can no longer be changed")
	ErrDocumentsLocked  = core.NewStateError("documents can no longer be submitted")
	ErrNeedsAssessor    = core.NewStateError("assign an assessor to put the applicant under assessment")
	ErrNeedsEvaluation  = core.NewStateError("finalize the evaluation to set an evaluated status")
	ErrEvaluationClosed = core.NewStateError("the evaluation of this applicant is finalized")
)

type (
	Repository interface {
		CreateApplicant(ctx context.Context, a Applicant) (Applicant, error)
		GetApplicantByID(ctx context.Context, id string) (Applicant, error)
		GetApplicantByUserID(ctx context.Context, userID string) (Applicant, error)
		// QueryApplicants applies AND operation on available QueryFilter fields.
		QueryApplicants(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Applicant, error)
		// UpdateApplicant saves a only if its stored status is still prevStatus; returns ErrStatusChanged otherwise.
		UpdateApplicant(ctx context.Context, a Applicant, prevStatus Status) (Applicant, error)
		CreateDocuments(ctx context.Context, docs ...Document) error
		GetDocument(ctx context.Context, id string) (Document, error)
		ListDocuments(ctx context.Context, applicantID string) ([]Document, error)
		CountUnderAssessment(ctx context.Context, assessorID string) (int, error)
		ApplicantStats(ctx context.Context) (Stats, error)
	}

	// FinalizedChecker tells whether an applicant's evaluation is finalized.
	FinalizedChecker interface {
		HasFinalizedEvaluation(ctx context.Context, applicantID string) (bool, error)
	}

	Service struct {
		repo        Repository
		usrSvc      *user.Service
		assessorSvc *assessor.Service
		evaluations FinalizedChecker
		files       core.FileStore
		mailSvc     core.EmailService
	}
)

func NewService(
	repo Repository,
	usrSvc *user.Service,
	assessorSvc *assessor.Service,
	evaluations FinalizedChecker,
	files core.FileStore,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		repo:        repo,
		usrSvc:      usrSvc,
		assessorSvc: assessorSvc,
		evaluations: evaluations,
		files:       files,
		mailSvc:     mailSvc,
	}
}

func (na *NewApplicant) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	na.Email = core.CleanString(na.Email, true /* lower */)
	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.usrSvc.CheckUniqueness(ctx, na.Email)
}

// Register creates the applicant's account and their application in Pending Review.
func (svc *Service) Register(ctx context.Context, na NewApplicant) (Applicant, error) {
	usr, err := svc.usrSvc.Create(ctx, user.NewUser{
		Email:           na.Email,
		Password:        na.Password,
		PasswordConfirm: na.PasswordConfirm,
		Roles:           []string{user.RoleApplicant},
	})
	if err != nil {
		return Applicant{}, errors.Wrap(err, "creating applicant user")
	}

	now := core.Now()
	a, err := svc.repo.CreateApplicant(ctx, Applicant{
		ID:        core.NewID(),
		UserID:    usr.ID,
		Email:     usr.Email,
		Status:    StatusPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		_ = svc.usrSvc.Delete(ctx, usr.ID)
		return Applicant{}, errors.Wrap(err, "creating applicant")
	}
	return a, nil
}

// GetByID returns the applicant with their documents.
func (svc *Service) GetByID(ctx context.Context, id string) (Applicant, error) {
	if !core.IsValidID(id) {
		return Applicant{}, ErrNotFound
	}
	a, err := svc.repo.GetApplicantByID(ctx, id)
	if err != nil {
		return Applicant{}, err
	}
	if a.Documents, err = svc.repo.ListDocuments(ctx, a.ID); err != nil {
		return Applicant{}, errors.Wrap(err, "listing documents")
	}
	return a, nil
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Applicant, error) {
	a, err := svc.repo.GetApplicantByUserID(ctx, userID)
	if err != nil {
		return Applicant{}, err
	}
	if a.Documents, err = svc.repo.ListDocuments(ctx, a.ID); err != nil {
		return Applicant{}, errors.Wrap(err, "listing documents")
	}
	return a, nil
}

// GetForAssessor returns the applicant only if it is assigned to the assessor.
func (svc *Service) GetForAssessor(ctx context.Context, assessorID, id string) (Applicant, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Applicant{}, err
	}
	if a.AssessorID != assessorID {
		return Applicant{}, ErrNotAssigned
	}
	return a, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Applicant, error) {
	return svc.repo.QueryApplicants(ctx, filter, ordering)
}

func (svc *Service) Search(ctx context.Context, term string) ([]Applicant, error) {
	filter := QueryFilter{Search: term}
	filter.Clean()
	return svc.repo.QueryApplicants(ctx, filter, nil)
}

// UpdatePersonalInfo replaces the applicant's personal information while their application is pending review.
func (svc *Service) UpdatePersonalInfo(ctx context.Context, id string, pi PersonalInfo) (Applicant, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Applicant{}, err
	}
	if a.Status != StatusPendingReview {
		return Applicant{}, ErrInfoLocked
	}

	a.PersonalInfo = pi
	a.UpdatedAt = core.Now()
	if a, err = svc.save(ctx, a, a.Status); err != nil {
		return Applicant{}, err
	}

	// keep the account name in sync
	usr, err := svc.usrSvc.GetByID(ctx, a.UserID)
	if err != nil {
		return Applicant{}, errors.Wrap(err, "finding applicant user")
	}
	if _, err = svc.usrSvc.Update(ctx, usr.ID, user.UpdateUser{Name: pi.FullName(), Email: usr.Email}); err != nil {
		return Applicant{}, errors.Wrap(err, "updating applicant user")
	}
	return a, nil
}

// SubmitDocuments stores the uploads and attaches them to the applicant.
// Either all uploads are recorded or none is.
func (svc *Service) SubmitDocuments(ctx context.Context, id string, uploads []Upload) ([]Document, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, ErrDocumentsLocked
	}
	if err = validateUploads(uploads); err != nil {
		return nil, err
	}

	now := core.Now()
	docs := make([]Document, 0, len(uploads))
	cleanUp := func() {
		for _, doc := range docs {
			_ = svc.files.Delete(ctx, doc.StorageKey)
		}
	}
	for _, up := range uploads {
		doc := Document{
			ID:          core.NewID(),
			ApplicantID: a.ID,
			Filename:    up.Filename,
			Label:       up.Label,
			ContentType: up.ContentType,
			Size:        up.Size,
			UploadedAt:  now,
		}
		doc.StorageKey = documentKey(a.ID, doc.ID, doc.Filename)
		if err = svc.files.Put(ctx, doc.StorageKey, up.Content, up.Size, up.ContentType); err != nil {
			cleanUp()
			return nil, errors.Wrapf(err, "storing %s", up.Filename)
		}
		docs = append(docs, doc)
	}

	if err = svc.repo.CreateDocuments(ctx, docs...); err != nil {
		cleanUp()
		return nil, errors.Wrap(err, "recording documents")
	}
	return docs, nil
}

// Portfolio returns the applicant's documents grouped by label.
func (svc *Service) Portfolio(ctx context.Context, id string) ([]PortfolioSection, error) {
	if !core.IsValidID(id) {
		return nil, ErrNotFound
	}
	docs, err := svc.repo.ListDocuments(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	return groupPortfolio(docs), nil
}

func (svc *Service) GetDocument(ctx context.Context, id string) (Document, error) {
	if !core.IsValidID(id) {
		return Document{}, ErrDocumentNotFound
	}
	return svc.repo.GetDocument(ctx, id)
}

// OpenDocument returns a document with its stored content. The caller must close the content.
func (svc *Service) OpenDocument(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := svc.GetDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := svc.files.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Cause(err) == core.ErrFileNotFound {
			return Document{}, nil, ErrDocumentNotFound
		}
		return Document{}, nil, errors.Wrap(err, "opening document")
	}
	return doc, rc, nil
}

func (svc *Service) Approve(ctx context.Context, id string) (Applicant, error) {
	a, err := svc.transition(ctx, id, StatusApproved, nil)
	if err != nil {
		return Applicant{}, err
	}
	svc.notifyApplicant(a, "Your application has been approved", "applicant_approved", map[string]string{"Name": a.Name()})
	return a, nil
}

func (svc *Service) Reject(ctx context.Context, id, reason string) (Applicant, error) {
	reason = core.CleanString(reason)
	a, err := svc.transition(ctx, id, StatusRejected, func(a *Applicant) { a.RejectionReason = reason })
	if err != nil {
		return Applicant{}, err
	}
	svc.notifyApplicant(a, "Update on your application", "applicant_rejected", map[string]string{
		"Name":   a.Name(),
		"Reason": a.RejectionReason,
	})
	return a, nil
}

// RejectAsAssessor rejects an applicant on behalf of the assessor they are assigned to.
func (svc *Service) RejectAsAssessor(ctx context.Context, assessorID, id, reason string) (Applicant, error) {
	if _, err := svc.GetForAssessor(ctx, assessorID, id); err != nil {
		return Applicant{}, err
	}
	return svc.Reject(ctx, id, reason)
}

// SetStatus is the admin's explicit status change.
// Under Assessment is only reached by assigning an assessor, evaluated statuses only by finalizing an evaluation.
func (svc *Service) SetStatus(ctx context.Context, id string, status Status, reason string) (Applicant, error) {
	switch status {
	case StatusApproved:
		return svc.Approve(ctx, id)
	case StatusRejected:
		return svc.Reject(ctx, id, reason)
	case StatusUnderAssessment:
		return Applicant{}, ErrNeedsAssessor
	case StatusEvaluatedPassed, StatusEvaluatedFailed:
		return Applicant{}, ErrNeedsEvaluation
	default:
		a, err := svc.GetByID(ctx, id)
		if err != nil {
			return Applicant{}, err
		}
		return Applicant{}, newTransitionError(a.Status, status)
	}
}

// AssignAssessor puts an approved applicant under assessment by an approved assessor.
// An applicant already under assessment can be reassigned until their evaluation is finalized.
func (svc *Service) AssignAssessor(ctx context.Context, id, assessorID string) (Applicant, error) {
	asr, err := svc.assessorSvc.GetApproved(ctx, assessorID)
	if err != nil {
		return Applicant{}, err
	}
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Applicant{}, err
	}
	prevStatus := a.Status
	if prevStatus != StatusUnderAssessment {
		if err = Transition(prevStatus, StatusUnderAssessment); err != nil {
			return Applicant{}, err
		}
	}
	finalized, err := svc.evaluations.HasFinalizedEvaluation(ctx, a.ID)
	if err != nil {
		return Applicant{}, errors.Wrap(err, "checking evaluation")
	}
	if finalized {
		return Applicant{}, ErrEvaluationClosed
	}

	now := core.Now()
	a.Status = StatusUnderAssessment
	a.AssessorID = asr.ID
	a.AssignedAt = &now
	a.UpdatedAt = now
	if a, err = svc.save(ctx, a, prevStatus); err != nil {
		return Applicant{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: asr.FullName, Address: asr.Email}},
		Subject:      "New applicant assigned to you",
		TemplateName: "assessor_assigned",
		TemplateData: map[string]string{
			"AssessorName":  asr.FullName,
			"ApplicantName": a.Name(),
			"ApplicantID":   a.ID,
		},
	})
	return a, nil
}

// SetEvaluated records the outcome of the applicant's finalized evaluation.
func (svc *Service) SetEvaluated(ctx context.Context, id string, passed bool) (Applicant, error) {
	a, err := svc.transition(ctx, id, EvaluatedStatus(passed), nil)
	if err != nil {
		return Applicant{}, err
	}
	svc.notifyApplicant(a, "Your evaluation result is available", "evaluation_result", map[string]string{"Name": a.Name()})
	return a, nil
}

func (svc *Service) Progress(ctx context.Context, id string) (Progress, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		Status:          a.Status,
		RejectionReason: a.RejectionReason,
		Steps:           progressSteps(a),
	}, nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.ApplicantStats(ctx)
}

// StaleAssessments returns the applicants under assessment whose assessor was assigned more than olderThan ago.
func (svc *Service) StaleAssessments(ctx context.Context, olderThan time.Duration) ([]Applicant, error) {
	return svc.repo.QueryApplicants(ctx, QueryFilter{
		Status:         StatusUnderAssessment,
		AssignedBefore: core.Now().Add(-olderThan),
	}, []core.DBOrdering{{Field: "assigned_at", Ascending: true}})
}

func (svc *Service) transition(ctx context.Context, id string, to Status, mutate func(a *Applicant)) (Applicant, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Applicant{}, err
	}
	prevStatus := a.Status
	if err = Transition(prevStatus, to); err != nil {
		return Applicant{}, err
	}
	a.Status = to
	a.UpdatedAt = core.Now()
	if mutate != nil {
		mutate(&a)
	}
	return svc.save(ctx, a, prevStatus)
}

func (svc *Service) save(ctx context.Context, a Applicant, prevStatus Status) (Applicant, error) {
	docs := a.Documents
	a, err := svc.repo.UpdateApplicant(ctx, a, prevStatus)
	if err != nil {
		if errors.Cause(err) == ErrStatusChanged {
			return Applicant{}, err
		}
		return Applicant{}, errors.Wrap(err, "updating applicant")
	}
	a.Documents = docs
	return a, nil
}

func (svc *Service) notifyApplicant(a Applicant, subject, tmpl string, data map[string]string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: a.PersonalInfo.FullName(), Address: a.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}
