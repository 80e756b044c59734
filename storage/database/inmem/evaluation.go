package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/eteeap/core/evaluation"
)

type evaluationRepository struct {
	db *evaluationTable
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db.evaluation}
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[ev.ApplicantID]; ok {
		return evaluation.Evaluation{}, evaluation.ErrVersionConflict
	}
	repo.db.table[ev.ApplicantID] = &ev
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByApplicant(_ context.Context, applicantID string) (evaluation.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ev, ok := repo.db.table[applicantID]; ok {
		return *ev, nil
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) HasFinalizedEvaluation(_ context.Context, applicantID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ev, ok := repo.db.table[applicantID]
	return ok && ev.IsFinalized, nil
}

func (repo *evaluationRepository) UpdateEvaluation(
	_ context.Context,
	ev evaluation.Evaluation,
	prevVersion int,
	entries ...evaluation.PointsEntry,
) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[ev.ApplicantID]
	if !ok || stored.ID != ev.ID {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	if stored.Version != prevVersion {
		return evaluation.Evaluation{}, evaluation.ErrVersionConflict
	}
	repo.db.table[ev.ApplicantID] = &ev
	repo.db.points = append(repo.db.points, entries...)
	return ev, nil
}

func (repo *evaluationRepository) ListPointsEntries(_ context.Context, applicantID string) ([]evaluation.PointsEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]evaluation.PointsEntry, 0)
	for _, e := range repo.db.points {
		if e.ApplicantID == applicantID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}
