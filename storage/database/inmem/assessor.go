package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
)

type assessorRepository struct {
	db *DB
}

var _ assessor.Repository = (*assessorRepository)(nil) // interface compliance check

func NewAssessorRepository(db *DB) *assessorRepository {
	return &assessorRepository{db: db}
}

// withWorkload sets the number of applicants under assessment by asr. The applicant table must not be locked.
func (repo *assessorRepository) withWorkload(asr assessor.Assessor) assessor.Assessor {
	repo.db.applicant.RLock()
	defer repo.db.applicant.RUnlock()

	asr.AssignedApplicants = 0
	for _, a := range repo.db.applicant.table {
		if a.AssessorID == asr.ID && a.Status == applicant.StatusUnderAssessment {
			asr.AssignedApplicants++
		}
	}
	return asr
}

func (repo *assessorRepository) CreateAssessor(_ context.Context, asr assessor.Assessor) (assessor.Assessor, error) {
	repo.db.assessor.Lock()
	defer repo.db.assessor.Unlock()

	repo.db.assessor.table[asr.ID] = &asr
	return asr, nil
}

func (repo *assessorRepository) GetAssessorByID(_ context.Context, id string) (assessor.Assessor, error) {
	repo.db.assessor.RLock()
	asr, ok := repo.db.assessor.table[id]
	repo.db.assessor.RUnlock()

	if !ok {
		return assessor.Assessor{}, assessor.ErrNotFound
	}
	return repo.withWorkload(*asr), nil
}

func (repo *assessorRepository) GetAssessorByUserID(_ context.Context, userID string) (assessor.Assessor, error) {
	repo.db.assessor.RLock()
	var found *assessor.Assessor
	for _, asr := range repo.db.assessor.table {
		if asr.UserID == userID {
			found = asr
			break
		}
	}
	repo.db.assessor.RUnlock()

	if found == nil {
		return assessor.Assessor{}, assessor.ErrNotFound
	}
	return repo.withWorkload(*found), nil
}

func (repo *assessorRepository) QueryAssessors(_ context.Context, filter assessor.QueryFilter) ([]assessor.Assessor, error) {
	repo.db.assessor.RLock()
	assessors := make([]assessor.Assessor, 0)
	for _, asr := range repo.db.assessor.table {
		if filter.Match(*asr) {
			assessors = append(assessors, *asr)
		}
	}
	repo.db.assessor.RUnlock()

	for i := range assessors {
		assessors[i] = repo.withWorkload(assessors[i])
	}
	sort.Slice(assessors, func(i, j int) bool { return assessors[i].FullName < assessors[j].FullName })
	return assessors, nil
}

func (repo *assessorRepository) UpdateAssessor(_ context.Context, asr assessor.Assessor) (assessor.Assessor, error) {
	repo.db.assessor.Lock()
	if _, ok := repo.db.assessor.table[asr.ID]; !ok {
		repo.db.assessor.Unlock()
		return assessor.Assessor{}, assessor.ErrNotFound
	}
	repo.db.assessor.table[asr.ID] = &asr
	repo.db.assessor.Unlock()
	return repo.withWorkload(asr), nil
}

// DeleteAssessor unlinks the assessor from the applicants it had assessed.
func (repo *assessorRepository) DeleteAssessor(_ context.Context, id string) error {
	repo.db.assessor.Lock()
	delete(repo.db.assessor.table, id)
	repo.db.assessor.Unlock()

	repo.db.applicant.Lock()
	defer repo.db.applicant.Unlock()
	for _, a := range repo.db.applicant.table {
		if a.AssessorID == id {
			a.AssessorID = ""
		}
	}
	return nil
}
