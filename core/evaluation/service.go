package evaluation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("evaluation")
	ErrResultPending    = core.NewNotFoundError("evaluation result")
	ErrVersionConflict  = core.NewConflictError("evaluation was saved by someone else, reload and try again")
	ErrAlreadyFinalized = core.NewStateError("evaluation is already finalized")
	ErrNotAssessable    = core.NewStateError("applicant is not under assessment")
)

type (
	Repository interface {
		// CreateEvaluation returns ErrVersionConflict when the applicant already has an evaluation.
		CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
		GetEvaluationByApplicant(ctx context.Context, applicantID string) (Evaluation, error)
		// UpdateEvaluation saves ev, with entries appended to the points ledger, only if the stored version is still
		// prevVersion; returns ErrVersionConflict otherwise.
		UpdateEvaluation(ctx context.Context, ev Evaluation, prevVersion int, entries ...PointsEntry) (Evaluation, error)
		ListPointsEntries(ctx context.Context, applicantID string) ([]PointsEntry, error)
		HasFinalizedEvaluation(ctx context.Context, applicantID string) (bool, error)
	}

	Service struct {
		repo         Repository
		applicantSvc *applicant.Service
	}
)

func NewService(repo Repository, applicantSvc *applicant.Service) *Service {
	return &Service{repo: repo, applicantSvc: applicantSvc}
}

// Save stores the assessor's draft scores for an applicant under assessment.
func (svc *Service) Save(ctx context.Context, assessorID string, se SaveEvaluation) (Evaluation, error) {
	if _, err := svc.assessable(ctx, assessorID, se.ApplicantID); err != nil {
		return Evaluation{}, err
	}

	ev, err := svc.repo.GetEvaluationByApplicant(ctx, se.ApplicantID)
	switch {
	case errors.Cause(err) == ErrNotFound:
		if se.Version != 0 {
			return Evaluation{}, ErrVersionConflict
		}
		now := core.Now()
		return svc.repo.CreateEvaluation(ctx, Evaluation{
			ID:          core.NewID(),
			ApplicantID: se.ApplicantID,
			AssessorID:  assessorID,
			Scores:      se.Scores.Clamped(),
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	case err != nil:
		return Evaluation{}, errors.Wrap(err, "finding evaluation")
	}

	if ev.IsFinalized {
		return Evaluation{}, ErrAlreadyFinalized
	}
	if ev.Version != se.Version {
		return Evaluation{}, ErrVersionConflict
	}
	ev.AssessorID = assessorID
	ev.Scores = se.Scores.Clamped()
	return svc.update(ctx, ev)
}

func (svc *Service) GetByApplicant(ctx context.Context, applicantID string) (Evaluation, error) {
	if !core.IsValidID(applicantID) {
		return Evaluation{}, ErrNotFound
	}
	return svc.repo.GetEvaluationByApplicant(ctx, applicantID)
}

// RecordPoints adds points to one category of the applicant's evaluation and keeps a ledger entry of it.
func (svc *Service) RecordPoints(ctx context.Context, assessorID string, rp RecordPoints) (Evaluation, error) {
	if _, err := svc.assessable(ctx, assessorID, rp.ApplicantID); err != nil {
		return Evaluation{}, err
	}

	ev, err := svc.getOrCreate(ctx, assessorID, rp.ApplicantID)
	if err != nil {
		return Evaluation{}, err
	}
	if ev.IsFinalized {
		return Evaluation{}, ErrAlreadyFinalized
	}

	cs := ev.Scores.Get(rp.Category)
	if cs == nil {
		return Evaluation{}, ErrInvalidCategory
	}
	if cs.Score, err = AddPoints(cs.Score, rp.Category, rp.Points); err != nil {
		return Evaluation{}, err
	}
	if rp.Comments != "" {
		cs.Comments = rp.Comments
	}
	ev.AssessorID = assessorID

	return svc.update(ctx, ev, PointsEntry{
		ID:           core.NewID(),
		EvaluationID: ev.ID,
		ApplicantID:  ev.ApplicantID,
		AssessorID:   assessorID,
		Category:     rp.Category,
		Points:       rp.Points,
		Comments:     rp.Comments,
		CreatedAt:    core.Now(),
	})
}

// Finalize computes the final result and closes the evaluation for good.
// The applicant moves to the evaluated status matching the result.
// Finalizing again while the applicant is still under assessment only retries that move.
func (svc *Service) Finalize(ctx context.Context, assessorID string, fe FinalizeEvaluation) (Evaluation, error) {
	if _, err := svc.assessable(ctx, assessorID, fe.ApplicantID); err != nil {
		return Evaluation{}, err
	}

	ev, err := svc.repo.GetEvaluationByApplicant(ctx, fe.ApplicantID)
	if err != nil {
		return Evaluation{}, err
	}
	if ev.IsFinalized {
		if _, err = svc.applicantSvc.SetEvaluated(ctx, fe.ApplicantID, ev.Passed); err != nil {
			return Evaluation{}, errors.Wrap(err, "setting applicant evaluated")
		}
		return ev, nil
	}

	res := Evaluate(ev.Scores)
	now := core.Now()
	ev.Scores = ev.Scores.Clamped()
	ev.TotalScore = res.Total
	ev.Passed = res.Passed
	ev.IsFinalized = true
	ev.FinalComments = fe.Comments
	ev.FinalizedAt = &now
	ev.AssessorID = assessorID
	if ev, err = svc.update(ctx, ev); err != nil {
		return Evaluation{}, err
	}

	if _, err = svc.applicantSvc.SetEvaluated(ctx, fe.ApplicantID, res.Passed); err != nil {
		return Evaluation{}, errors.Wrap(err, "setting applicant evaluated")
	}
	return ev, nil
}

// Result returns the finalized evaluation of an applicant as shown to them.
func (svc *Service) Result(ctx context.Context, applicantID string) (ResultView, error) {
	ev, err := svc.GetByApplicant(ctx, applicantID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ResultView{}, ErrResultPending
		}
		return ResultView{}, err
	}
	if !ev.IsFinalized {
		return ResultView{}, ErrResultPending
	}
	return newResultView(ev), nil
}

func (svc *Service) Ledger(ctx context.Context, applicantID string) ([]PointsEntry, error) {
	if !core.IsValidID(applicantID) {
		return []PointsEntry{}, nil
	}
	return svc.repo.ListPointsEntries(ctx, applicantID)
}

// assessable checks that the applicant is under assessment by the assessor.
func (svc *Service) assessable(ctx context.Context, assessorID, applicantID string) (applicant.Applicant, error) {
	a, err := svc.applicantSvc.GetForAssessor(ctx, assessorID, applicantID)
	if err != nil {
		return applicant.Applicant{}, err
	}
	if a.Status != applicant.StatusUnderAssessment {
		return applicant.Applicant{}, ErrNotAssessable
	}
	return a, nil
}

func (svc *Service) getOrCreate(ctx context.Context, assessorID, applicantID string) (Evaluation, error) {
	ev, err := svc.repo.GetEvaluationByApplicant(ctx, applicantID)
	if errors.Cause(err) != ErrNotFound {
		return ev, err
	}
	now := core.Now()
	return svc.repo.CreateEvaluation(ctx, Evaluation{
		ID:          core.NewID(),
		ApplicantID: applicantID,
		AssessorID:  assessorID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) update(ctx context.Context, ev Evaluation, entries ...PointsEntry) (Evaluation, error) {
	prevVersion := ev.Version
	ev.Version++
	ev.UpdatedAt = core.Now()
	ev, err := svc.repo.UpdateEvaluation(ctx, ev, prevVersion, entries...)
	if err != nil && errors.Cause(err) != ErrVersionConflict {
		return Evaluation{}, errors.Wrap(err, "updating evaluation")
	}
	return ev, err
}
