package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
)

type assessorRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	FullName           string    `db:"full_name"`
	Email              string    `db:"email"`
	Expertise          string    `db:"expertise"`
	AssessorType       string    `db:"assessor_type"`
	IsApproved         bool      `db:"is_approved"`
	AssignedApplicants int       `db:"assigned_applicants"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func newAssessorRow(asr assessor.Assessor) assessorRow {
	return assessorRow{
		ID:           asr.ID,
		UserID:       asr.UserID,
		FullName:     asr.FullName,
		Email:        asr.Email,
		Expertise:    string(asr.Expertise),
		AssessorType: string(asr.AssessorType),
		IsApproved:   asr.IsApproved,
		CreatedAt:    asr.CreatedAt.UTC(),
		UpdatedAt:    asr.UpdatedAt.UTC(),
	}
}

func (r assessorRow) assessor() assessor.Assessor {
	return assessor.Assessor{
		ID:                 r.ID,
		UserID:             r.UserID,
		FullName:           r.FullName,
		Email:              r.Email,
		Expertise:          assessor.Expertise(r.Expertise),
		AssessorType:       assessor.Type(r.AssessorType),
		IsApproved:         r.IsApproved,
		AssignedApplicants: r.AssignedApplicants,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

// assessorSelect counts the workload of each assessor along its columns. Its only bindvar is the Under Assessment status.
const assessorSelect = "SELECT a.id, a.user_id, a.full_name, a.email, a.expertise, a.assessor_type, a.is_approved, " +
	"a.created_at, a.updated_at, (SELECT COUNT(*) FROM applicants ap WHERE ap.assessor_id = a.id AND ap.status = ?) " +
	"AS assigned_applicants FROM assessors a"

type assessorRepository struct {
	exec core.DBExecutor
}

var _ assessor.Repository = (*assessorRepository)(nil) // interface compliance check

func NewAssessorRepository(exec core.DBExecutor) *assessorRepository {
	return &assessorRepository{exec: exec}
}

func (repo *assessorRepository) CreateAssessor(ctx context.Context, asr assessor.Assessor) (assessor.Assessor, error) {
	q := "INSERT INTO assessors (id, user_id, full_name, email, expertise, assessor_type, is_approved, created_at, updated_at) " +
		"VALUES (:id, :user_id, :full_name, :email, :expertise, :assessor_type, :is_approved, :created_at, :updated_at)"
	if _, err := sqlxNamedExec(ctx, repo.exec, q, newAssessorRow(asr)); err != nil {
		return assessor.Assessor{}, errors.Wrap(err, "inserting assessor")
	}
	return asr, nil
}

func (repo *assessorRepository) getBy(ctx context.Context, where string, arg interface{}) (assessor.Assessor, error) {
	var row assessorRow
	q := repo.exec.Rebind(assessorSelect + " WHERE " + where)
	if err := repo.exec.GetContext(ctx, &row, q, string(applicant.StatusUnderAssessment), arg); err != nil {
		if isNoRows(err) {
			return assessor.Assessor{}, assessor.ErrNotFound
		}
		return assessor.Assessor{}, errors.Wrap(err, "selecting assessor")
	}
	return row.assessor(), nil
}

func (repo *assessorRepository) GetAssessorByID(ctx context.Context, id string) (assessor.Assessor, error) {
	return repo.getBy(ctx, "a.id = ?", id)
}

func (repo *assessorRepository) GetAssessorByUserID(ctx context.Context, userID string) (assessor.Assessor, error) {
	return repo.getBy(ctx, "a.user_id = ?", userID)
}

func (repo *assessorRepository) QueryAssessors(ctx context.Context, qf assessor.QueryFilter) ([]assessor.Assessor, error) {
	var f filter
	if qf.Search != "" {
		pattern := likePattern(qf.Search)
		f.add("(a.full_name ILIKE ? OR a.email ILIKE ? OR replace(a.expertise, '_', ' ') ILIKE ?)", pattern, pattern, pattern)
	}
	if qf.Expertise != "" {
		f.add("a.expertise = ?", qf.Expertise)
	}
	if qf.IsApproved != nil {
		f.add("a.is_approved = ?", *qf.IsApproved)
	}

	args := append([]interface{}{string(applicant.StatusUnderAssessment)}, f.args...)
	q := repo.exec.Rebind(assessorSelect + f.String() + " ORDER BY a.full_name")
	rows := make([]assessorRow, 0)
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting assessors")
	}

	assessors := make([]assessor.Assessor, 0, len(rows))
	for _, row := range rows {
		assessors = append(assessors, row.assessor())
	}
	return assessors, nil
}

func (repo *assessorRepository) UpdateAssessor(ctx context.Context, asr assessor.Assessor) (assessor.Assessor, error) {
	q := "UPDATE assessors SET full_name = :full_name, expertise = :expertise, assessor_type = :assessor_type, " +
		"is_approved = :is_approved, updated_at = :updated_at WHERE id = :id"
	res, err := sqlxNamedExec(ctx, repo.exec, q, newAssessorRow(asr))
	if err != nil {
		return assessor.Assessor{}, errors.Wrap(err, "updating assessor")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessor.Assessor{}, assessor.ErrNotFound
	}
	return repo.GetAssessorByID(ctx, asr.ID)
}

// DeleteAssessor relies on the foreign keys to unlink the assessor from applicants and evaluations.
func (repo *assessorRepository) DeleteAssessor(ctx context.Context, id string) error {
	_, err := repo.exec.ExecContext(ctx, "DELETE FROM assessors WHERE id = $1", id)
	return errors.Wrap(err, "deleting assessor")
}
