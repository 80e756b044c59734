package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/evaluation"
)

type evaluationRow struct {
	ID            string         `db:"id"`
	ApplicantID   string         `db:"applicant_id"`
	AssessorID    null.String    `db:"assessor_id"`
	Scores        types.JSONText `db:"scores"`
	TotalScore    float64        `db:"total_score"`
	Passed        bool           `db:"passed"`
	IsFinalized   bool           `db:"is_finalized"`
	FinalComments string         `db:"final_comments"`
	FinalizedAt   null.Time      `db:"finalized_at"`
	Version       int            `db:"version"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func newEvaluationRow(ev evaluation.Evaluation) (evaluationRow, error) {
	scores, err := json.Marshal(ev.Scores)
	if err != nil {
		return evaluationRow{}, errors.Wrap(err, "encoding scores")
	}
	return evaluationRow{
		ID:            ev.ID,
		ApplicantID:   ev.ApplicantID,
		AssessorID:    null.NewString(ev.AssessorID, ev.AssessorID != ""),
		Scores:        scores,
		TotalScore:    ev.TotalScore,
		Passed:        ev.Passed,
		IsFinalized:   ev.IsFinalized,
		FinalComments: ev.FinalComments,
		FinalizedAt:   null.TimeFromPtr(ev.FinalizedAt),
		Version:       ev.Version,
		CreatedAt:     ev.CreatedAt.UTC(),
		UpdatedAt:     ev.UpdatedAt.UTC(),
	}, nil
}

func (r evaluationRow) evaluation() (evaluation.Evaluation, error) {
	ev := evaluation.Evaluation{
		ID:            r.ID,
		ApplicantID:   r.ApplicantID,
		AssessorID:    r.AssessorID.String,
		TotalScore:    r.TotalScore,
		Passed:        r.Passed,
		IsFinalized:   r.IsFinalized,
		FinalComments: r.FinalComments,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.FinalizedAt.Valid {
		at := r.FinalizedAt.Time.UTC()
		ev.FinalizedAt = &at
	}
	if err := r.Scores.Unmarshal(&ev.Scores); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "decoding scores")
	}
	return ev, nil
}

const evaluationColumns = "id, applicant_id, assessor_id, scores, total_score, passed, is_finalized, final_comments, " +
	"finalized_at, version, created_at, updated_at"

type evaluationRepository struct {
	exec core.DBExecutor
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(exec core.DBExecutor) *evaluationRepository {
	return &evaluationRepository{exec: exec}
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	row, err := newEvaluationRow(ev)
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	q := "INSERT INTO evaluations (" + evaluationColumns + ") VALUES (:id, :applicant_id, :assessor_id, :scores, " +
		":total_score, :passed, :is_finalized, :final_comments, :finalized_at, :version, :created_at, :updated_at)"
	if _, err = sqlxNamedExec(ctx, repo.exec, q, row); err != nil {
		if pqCode(err) == uniqueViolation {
			return evaluation.Evaluation{}, evaluation.ErrVersionConflict
		}
		return evaluation.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByApplicant(ctx context.Context, applicantID string) (evaluation.Evaluation, error) {
	var row evaluationRow
	q := "SELECT " + evaluationColumns + " FROM evaluations WHERE applicant_id = $1"
	if err := repo.exec.GetContext(ctx, &row, q, applicantID); err != nil {
		if isNoRows(err) {
			return evaluation.Evaluation{}, evaluation.ErrNotFound
		}
		return evaluation.Evaluation{}, errors.Wrap(err, "selecting evaluation")
	}
	return row.evaluation()
}

func (repo *evaluationRepository) HasFinalizedEvaluation(ctx context.Context, applicantID string) (bool, error) {
	var finalized bool
	q := "SELECT EXISTS(SELECT 1 FROM evaluations WHERE applicant_id = $1 AND is_finalized)"
	if err := repo.exec.GetContext(ctx, &finalized, q, applicantID); err != nil {
		return false, errors.Wrap(err, "checking finalized evaluation")
	}
	return finalized, nil
}

func (repo *evaluationRepository) UpdateEvaluation(
	ctx context.Context,
	ev evaluation.Evaluation,
	prevVersion int,
	entries ...evaluation.PointsEntry,
) (evaluation.Evaluation, error) {
	row, err := newEvaluationRow(ev)
	if err != nil {
		return evaluation.Evaluation{}, err
	}

	err = withTx(ctx, repo.exec, func(exec core.DBExecutor) error {
		q := "UPDATE evaluations SET assessor_id = $1, scores = $2, total_score = $3, passed = $4, is_finalized = $5, " +
			"final_comments = $6, finalized_at = $7, version = $8, updated_at = $9 WHERE id = $10 AND version = $11"
		res, err := exec.ExecContext(ctx, q, row.AssessorID, row.Scores, row.TotalScore, row.Passed, row.IsFinalized,
			row.FinalComments, row.FinalizedAt, row.Version, row.UpdatedAt, row.ID, prevVersion)
		if err != nil {
			return errors.Wrap(err, "updating evaluation")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists bool
			if err = exec.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM evaluations WHERE id = $1)", row.ID); err != nil {
				return errors.Wrap(err, "checking evaluation")
			}
			if !exists {
				return evaluation.ErrNotFound
			}
			return evaluation.ErrVersionConflict
		}

		q = "INSERT INTO points_entries (id, evaluation_id, applicant_id, assessor_id, category, points, comments, created_at) " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
		for _, e := range entries {
			_, err = exec.ExecContext(ctx, q, e.ID, e.EvaluationID, e.ApplicantID, null.NewString(e.AssessorID, e.AssessorID != ""),
				string(e.Category), e.Points, e.Comments, e.CreatedAt.UTC())
			if err != nil {
				return errors.Wrap(err, "inserting points entry")
			}
		}
		return nil
	})
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	return ev, nil
}

func (repo *evaluationRepository) ListPointsEntries(ctx context.Context, applicantID string) ([]evaluation.PointsEntry, error) {
	var rows []struct {
		ID           string      `db:"id"`
		EvaluationID string      `db:"evaluation_id"`
		ApplicantID  string      `db:"applicant_id"`
		AssessorID   null.String `db:"assessor_id"`
		Category     string      `db:"category"`
		Points       float64     `db:"points"`
		Comments     string      `db:"comments"`
		CreatedAt    time.Time   `db:"created_at"`
	}
	q := "SELECT id, evaluation_id, applicant_id, assessor_id, category, points, comments, created_at " +
		"FROM points_entries WHERE applicant_id = $1 ORDER BY created_at"
	if err := repo.exec.SelectContext(ctx, &rows, q, applicantID); err != nil {
		return nil, errors.Wrap(err, "selecting points entries")
	}

	entries := make([]evaluation.PointsEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, evaluation.PointsEntry{
			ID:           row.ID,
			EvaluationID: row.EvaluationID,
			ApplicantID:  row.ApplicantID,
			AssessorID:   row.AssessorID.String,
			Category:     evaluation.Category(row.Category),
			Points:       row.Points,
			Comments:     row.Comments,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return entries, nil
}
