package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
)

type applicantRepository struct {
	db *applicantTable
}

var _ applicant.Repository = (*applicantRepository)(nil) // interface compliance check

func NewApplicantRepository(db *DB) *applicantRepository {
	return &applicantRepository{db: db.applicant}
}

func copyApplicant(a applicant.Applicant) applicant.Applicant {
	if a.AssignedAt != nil {
		at := *a.AssignedAt
		a.AssignedAt = &at
	}
	a.Documents = nil
	return a
}

func (repo *applicantRepository) CreateApplicant(_ context.Context, a applicant.Applicant) (applicant.Applicant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a = copyApplicant(a)
	repo.db.table[a.ID] = &a
	return copyApplicant(a), nil
}

func (repo *applicantRepository) GetApplicantByID(_ context.Context, id string) (applicant.Applicant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return copyApplicant(*a), nil
	}
	return applicant.Applicant{}, applicant.ErrNotFound
}

func (repo *applicantRepository) GetApplicantByUserID(_ context.Context, userID string) (applicant.Applicant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.table {
		if a.UserID == userID {
			return copyApplicant(*a), nil
		}
	}
	return applicant.Applicant{}, applicant.ErrNotFound
}

var applicantOrderings = map[string]string{
	"name":        "name",
	"status":      "status",
	"created_at":  "created_at",
	"assigned_at": "assigned_at",
}

func (repo *applicantRepository) QueryApplicants(_ context.Context, filter applicant.QueryFilter, ordering []core.DBOrdering) ([]applicant.Applicant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	applicants := make([]applicant.Applicant, 0)
	for _, a := range repo.db.table {
		if filter.Match(*a) {
			applicants = append(applicants, copyApplicant(*a))
		}
	}

	ordering = core.CleanOrderings(ordering, applicantOrderings)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	ord := ordering[0]
	sort.SliceStable(applicants, func(i, j int) bool {
		a, b := applicants[i], applicants[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "name":
			return a.Name() < b.Name()
		case "status":
			return a.Status < b.Status
		case "assigned_at":
			if a.AssignedAt == nil || b.AssignedAt == nil {
				return a.AssignedAt == nil && b.AssignedAt != nil
			}
			return a.AssignedAt.Before(*b.AssignedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return applicants, nil
}

func (repo *applicantRepository) UpdateApplicant(_ context.Context, a applicant.Applicant, prevStatus applicant.Status) (applicant.Applicant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[a.ID]
	if !ok {
		return applicant.Applicant{}, applicant.ErrNotFound
	}
	if stored.Status != prevStatus {
		return applicant.Applicant{}, applicant.ErrStatusChanged
	}
	a = copyApplicant(a)
	repo.db.table[a.ID] = &a
	return copyApplicant(a), nil
}

func (repo *applicantRepository) CreateDocuments(_ context.Context, docs ...applicant.Document) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, doc := range docs {
		if _, ok := repo.db.table[doc.ApplicantID]; !ok {
			return applicant.ErrNotFound
		}
	}
	for i := range docs {
		doc := docs[i]
		repo.db.documents[doc.ID] = &doc
	}
	return nil
}

func (repo *applicantRepository) GetDocument(_ context.Context, id string) (applicant.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if doc, ok := repo.db.documents[id]; ok {
		return *doc, nil
	}
	return applicant.Document{}, applicant.ErrDocumentNotFound
}

func (repo *applicantRepository) ListDocuments(_ context.Context, applicantID string) ([]applicant.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	docs := make([]applicant.Document, 0)
	for _, doc := range repo.db.documents {
		if doc.ApplicantID == applicantID {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].Filename < docs[j].Filename
		}
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs, nil
}

func (repo *applicantRepository) CountUnderAssessment(_ context.Context, assessorID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, a := range repo.db.table {
		if a.AssessorID == assessorID && a.Status == applicant.StatusUnderAssessment {
			n++
		}
	}
	return n, nil
}

func (repo *applicantRepository) ApplicantStats(_ context.Context) (applicant.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats applicant.Stats
	for _, a := range repo.db.table {
		stats.TotalApplicants++
		switch {
		case a.Status == applicant.StatusPendingReview:
			stats.NewApplicants++
		case a.Status == applicant.StatusApproved && !a.HasAssessor():
			stats.WithoutAssessor++
		case a.Status == applicant.StatusUnderAssessment:
			stats.UnderAssessment++
		case a.Status.IsEvaluated():
			stats.Evaluated++
		case a.Status == applicant.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}
