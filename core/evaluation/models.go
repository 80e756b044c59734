package evaluation

import (
	"time"

	"github.com/trezcool/eteeap/core"
)

type Evaluation struct {
	ID            string     `json:"id"`
	ApplicantID   string     `json:"applicant_id"`
	AssessorID    string     `json:"assessor_id"`
	Scores        Scores     `json:"scores"`
	TotalScore    float64    `json:"total_score"`
	Passed        bool       `json:"passed"`
	IsFinalized   bool       `json:"is_finalized"`
	FinalComments string     `json:"final_comments,omitempty"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"` // UTC
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at"` // UTC
}

// PointsEntry is one line of the points ledger kept for an applicant.
type PointsEntry struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluation_id"`
	ApplicantID  string    `json:"applicant_id"`
	AssessorID   string    `json:"assessor_id"`
	Category     Category  `json:"category"`
	Points       float64   `json:"points"`
	Comments     string    `json:"comments,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// SaveEvaluation is a draft save. Version is the version of the evaluation the assessor last read, 0 if none.
type SaveEvaluation struct {
	ApplicantID string `json:"applicant_id" validate:"required"`
	Scores      Scores `json:"scores"`
	Version     int    `json:"version" validate:"min=0"`
}

func (se *SaveEvaluation) Clean() {
	se.ApplicantID = core.CleanString(se.ApplicantID)
	for _, c := range Categories {
		cs := se.Scores.Get(c)
		cs.Comments = core.CleanString(cs.Comments)
	}
}

type RecordPoints struct {
	ApplicantID string   `json:"applicant_id" validate:"required"`
	Category    Category `json:"category" validate:"required,category"`
	Points      float64  `json:"points" validate:"min=0"`
	Comments    string   `json:"comments"`
}

func (rp *RecordPoints) Clean() {
	rp.ApplicantID = core.CleanString(rp.ApplicantID)
	rp.Category = Category(core.CleanString(string(rp.Category)))
	rp.Comments = core.CleanString(rp.Comments)
}

type FinalizeEvaluation struct {
	ApplicantID string `json:"applicant_id" validate:"required"`
	Comments    string `json:"comments"`
}

func (fe *FinalizeEvaluation) Clean() {
	fe.ApplicantID = core.CleanString(fe.ApplicantID)
	fe.Comments = core.CleanString(fe.Comments)
}

// CategoryResult is a category score as shown on the result page, e.g. 18/20.
type CategoryResult struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Score    float64  `json:"score"`
	Max      float64  `json:"max"`
	Comments string   `json:"comments,omitempty"`
}

type ResultView struct {
	ApplicantID   string           `json:"applicant_id"`
	Categories    []CategoryResult `json:"categories"`
	Total         float64          `json:"total"`
	MaxTotal      float64          `json:"max_total"`
	Passed        bool             `json:"passed"`
	FinalComments string           `json:"final_comments,omitempty"`
	FinalizedAt   time.Time        `json:"finalized_at"` // UTC
}

func newResultView(ev Evaluation) ResultView {
	view := ResultView{
		ApplicantID:   ev.ApplicantID,
		Categories:    make([]CategoryResult, 0, len(Categories)),
		Total:         ev.TotalScore,
		MaxTotal:      MaxTotal,
		Passed:        ev.Passed,
		FinalComments: ev.FinalComments,
	}
	if ev.FinalizedAt != nil {
		view.FinalizedAt = *ev.FinalizedAt
	}
	for _, c := range Categories {
		cs := ev.Scores.Get(c)
		view.Categories = append(view.Categories, CategoryResult{
			Category: c,
			Label:    c.Label(),
			Score:    cs.Score,
			Max:      Caps[c],
			Comments: cs.Comments,
		})
	}
	return view
}
