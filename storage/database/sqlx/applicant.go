package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
)

type applicantRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Email           string         `db:"email"`
	PersonalInfo    types.JSONText `db:"personal_info"`
	Status          string         `db:"status"`
	AssessorID      null.String    `db:"assessor_id"`
	AssignedAt      null.Time      `db:"assigned_at"`
	RejectionReason string         `db:"rejection_reason"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newApplicantRow(a applicant.Applicant) (applicantRow, error) {
	info, err := json.Marshal(a.PersonalInfo)
	if err != nil {
		return applicantRow{}, errors.Wrap(err, "encoding personal info")
	}
	return applicantRow{
		ID:              a.ID,
		UserID:          a.UserID,
		Email:           a.Email,
		PersonalInfo:    info,
		Status:          string(a.Status),
		AssessorID:      null.NewString(a.AssessorID, a.AssessorID != ""),
		AssignedAt:      null.TimeFromPtr(a.AssignedAt),
		RejectionReason: a.RejectionReason,
		CreatedAt:       a.CreatedAt.UTC(),
		UpdatedAt:       a.UpdatedAt.UTC(),
	}, nil
}

func (r applicantRow) applicant() (applicant.Applicant, error) {
	a := applicant.Applicant{
		ID:              r.ID,
		UserID:          r.UserID,
		Email:           r.Email,
		Status:          applicant.Status(r.Status),
		AssessorID:      r.AssessorID.String,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.AssignedAt.Valid {
		at := r.AssignedAt.Time.UTC()
		a.AssignedAt = &at
	}
	if err := r.PersonalInfo.Unmarshal(&a.PersonalInfo); err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "decoding personal info")
	}
	return a, nil
}

const applicantColumns = "id, user_id, email, personal_info, status, assessor_id, assigned_at, rejection_reason, created_at, updated_at"

var applicantOrderings = map[string]string{
	"name":        "concat_ws(' ', personal_info->>'firstname', personal_info->>'lastname')",
	"status":      "status",
	"created_at":  "created_at",
	"assigned_at": "assigned_at",
}

type applicantRepository struct {
	exec core.DBExecutor
}

var _ applicant.Repository = (*applicantRepository)(nil) // interface compliance check

func NewApplicantRepository(exec core.DBExecutor) *applicantRepository {
	return &applicantRepository{exec: exec}
}

func (repo *applicantRepository) CreateApplicant(ctx context.Context, a applicant.Applicant) (applicant.Applicant, error) {
	row, err := newApplicantRow(a)
	if err != nil {
		return applicant.Applicant{}, err
	}
	q := "INSERT INTO applicants (" + applicantColumns + ") VALUES (:id, :user_id, :email, :personal_info, :status, " +
		":assessor_id, :assigned_at, :rejection_reason, :created_at, :updated_at)"
	if _, err = sqlxNamedExec(ctx, repo.exec, q, row); err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "inserting applicant")
	}
	return a, nil
}

func (repo *applicantRepository) getBy(ctx context.Context, where string, arg interface{}) (applicant.Applicant, error) {
	var row applicantRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+applicantColumns+" FROM applicants WHERE "+where, arg); err != nil {
		if isNoRows(err) {
			return applicant.Applicant{}, applicant.ErrNotFound
		}
		return applicant.Applicant{}, errors.Wrap(err, "selecting applicant")
	}
	return row.applicant()
}

func (repo *applicantRepository) GetApplicantByID(ctx context.Context, id string) (applicant.Applicant, error) {
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *applicantRepository) GetApplicantByUserID(ctx context.Context, userID string) (applicant.Applicant, error) {
	return repo.getBy(ctx, "user_id = $1", userID)
}

func (repo *applicantRepository) QueryApplicants(ctx context.Context, qf applicant.QueryFilter, ordering []core.DBOrdering) ([]applicant.Applicant, error) {
	var f filter
	if qf.Search != "" {
		pattern := likePattern(qf.Search)
		f.add("(concat_ws(' ', personal_info->>'firstname', personal_info->>'middlename', personal_info->>'lastname', "+
			"personal_info->>'suffix') ILIKE ? OR email ILIKE ? OR personal_info->>'email_address' ILIKE ? OR status ILIKE ? "+
			"OR personal_info->>'first_priority_course' ILIKE ? OR personal_info->>'second_priority_course' ILIKE ? "+
			"OR personal_info->>'third_priority_course' ILIKE ?)",
			pattern, pattern, pattern, pattern, pattern, pattern, pattern)
	}
	if qf.Status != "" {
		f.add("status = ?", string(qf.Status))
	}
	if qf.AssessorID != "" {
		f.add("assessor_id::text = ?", qf.AssessorID)
	}
	if !qf.AssignedBefore.IsZero() {
		f.add("assigned_at < ?", qf.AssignedBefore.UTC())
	}

	q := "SELECT " + applicantColumns + " FROM applicants" + f.String() +
		core.OrderByClause(core.CleanOrderings(ordering, applicantOrderings), "created_at DESC")
	rows := make([]applicantRow, 0)
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), f.args...); err != nil {
		return nil, errors.Wrap(err, "selecting applicants")
	}

	applicants := make([]applicant.Applicant, 0, len(rows))
	for _, row := range rows {
		a, err := row.applicant()
		if err != nil {
			return nil, err
		}
		applicants = append(applicants, a)
	}
	return applicants, nil
}

func (repo *applicantRepository) UpdateApplicant(ctx context.Context, a applicant.Applicant, prevStatus applicant.Status) (applicant.Applicant, error) {
	row, err := newApplicantRow(a)
	if err != nil {
		return applicant.Applicant{}, err
	}
	q := "UPDATE applicants SET personal_info = $1, status = $2, assessor_id = $3, assigned_at = $4, " +
		"rejection_reason = $5, updated_at = $6 WHERE id = $7 AND status = $8"
	res, err := repo.exec.ExecContext(ctx, q, row.PersonalInfo, row.Status, row.AssessorID, row.AssignedAt,
		row.RejectionReason, row.UpdatedAt, row.ID, string(prevStatus))
	if err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "updating applicant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err = repo.GetApplicantByID(ctx, a.ID); err != nil {
			return applicant.Applicant{}, err
		}
		return applicant.Applicant{}, applicant.ErrStatusChanged
	}
	return a, nil
}

type documentRow struct {
	ID          string    `db:"id"`
	ApplicantID string    `db:"applicant_id"`
	Filename    string    `db:"filename"`
	Label       string    `db:"label"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	StorageKey  string    `db:"storage_key"`
	UploadedAt  time.Time `db:"uploaded_at"`
}

func (r documentRow) document() applicant.Document {
	return applicant.Document{
		ID:          r.ID,
		ApplicantID: r.ApplicantID,
		Filename:    r.Filename,
		Label:       applicant.DocumentLabel(r.Label),
		ContentType: r.ContentType,
		Size:        r.Size,
		StorageKey:  r.StorageKey,
		UploadedAt:  r.UploadedAt.UTC(),
	}
}

const documentColumns = "id, applicant_id, filename, label, content_type, size, storage_key, uploaded_at"

func (repo *applicantRepository) CreateDocuments(ctx context.Context, docs ...applicant.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentRow{
			ID:          doc.ID,
			ApplicantID: doc.ApplicantID,
			Filename:    doc.Filename,
			Label:       string(doc.Label),
			ContentType: doc.ContentType,
			Size:        doc.Size,
			StorageKey:  doc.StorageKey,
			UploadedAt:  doc.UploadedAt.UTC(),
		})
	}
	q := "INSERT INTO documents (" + documentColumns + ") VALUES " +
		"(:id, :applicant_id, :filename, :label, :content_type, :size, :storage_key, :uploaded_at)"
	return withTx(ctx, repo.exec, func(exec core.DBExecutor) error {
		for _, row := range rows {
			if _, err := sqlxNamedExec(ctx, exec, q, row); err != nil {
				if pqCode(err) == foreignKeyViolation {
					return applicant.ErrNotFound
				}
				return errors.Wrap(err, "inserting document")
			}
		}
		return nil
	})
}

func (repo *applicantRepository) GetDocument(ctx context.Context, id string) (applicant.Document, error) {
	var row documentRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id); err != nil {
		if isNoRows(err) {
			return applicant.Document{}, applicant.ErrDocumentNotFound
		}
		return applicant.Document{}, errors.Wrap(err, "selecting document")
	}
	return row.document(), nil
}

func (repo *applicantRepository) ListDocuments(ctx context.Context, applicantID string) ([]applicant.Document, error) {
	rows := make([]documentRow, 0)
	q := "SELECT " + documentColumns + " FROM documents WHERE applicant_id = $1 ORDER BY uploaded_at, filename"
	if err := repo.exec.SelectContext(ctx, &rows, q, applicantID); err != nil {
		return nil, errors.Wrap(err, "selecting documents")
	}
	docs := make([]applicant.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs, nil
}

func (repo *applicantRepository) CountUnderAssessment(ctx context.Context, assessorID string) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM applicants WHERE assessor_id::text = $1 AND status = $2"
	if err := repo.exec.GetContext(ctx, &n, q, assessorID, string(applicant.StatusUnderAssessment)); err != nil {
		return 0, errors.Wrap(err, "counting applicants")
	}
	return n, nil
}

func (repo *applicantRepository) ApplicantStats(ctx context.Context) (applicant.Stats, error) {
	var row struct {
		Total           int `db:"total"`
		Pending         int `db:"pending"`
		WithoutAssessor int `db:"without_assessor"`
		UnderAssessment int `db:"under_assessment"`
		Evaluated       int `db:"evaluated"`
		Rejected        int `db:"rejected"`
	}
	q := `SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = $1) AS pending,
		COUNT(*) FILTER (WHERE status = $2 AND assessor_id IS NULL) AS without_assessor,
		COUNT(*) FILTER (WHERE status = $3) AS under_assessment,
		COUNT(*) FILTER (WHERE status IN ($4, $5)) AS evaluated,
		COUNT(*) FILTER (WHERE status = $6) AS rejected
		FROM applicants`
	err := repo.exec.GetContext(ctx, &row, q,
		string(applicant.StatusPendingReview),
		string(applicant.StatusApproved),
		string(applicant.StatusUnderAssessment),
		string(applicant.StatusEvaluatedPassed),
		string(applicant.StatusEvaluatedFailed),
		string(applicant.StatusRejected),
	)
	if err != nil {
		return applicant.Stats{}, errors.Wrap(err, "counting applicants")
	}
	return applicant.Stats{
		TotalApplicants: row.Total,
		NewApplicants:   row.Pending,
		WithoutAssessor: row.WithoutAssessor,
		UnderAssessment: row.UnderAssessment,
		Evaluated:       row.Evaluated,
		Rejected:        row.Rejected,
	}, nil
}
