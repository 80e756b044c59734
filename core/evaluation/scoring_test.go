package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core"
)

func scores(edu, work, achieve, interview float64) Scores {
	return Scores{
		EducationalQualification: CategoryScore{Score: edu},
		WorkExperience:           CategoryScore{Score: work},
		ProfessionalAchievements: CategoryScore{Score: achieve},
		Interview:                CategoryScore{Score: interview},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   Result
	}{
		{name: "threshold reached", scores: scores(20, 40, 0, 0), want: Result{Total: 60, Passed: true}},
		{name: "below threshold", scores: scores(10, 20, 10, 5), want: Result{Total: 45, Passed: false}},
		{name: "perfect", scores: scores(20, 40, 25, 15), want: Result{Total: MaxTotal, Passed: true}},
		{name: "zero", scores: Scores{}, want: Result{Total: 0, Passed: false}},
		{name: "over caps are clamped", scores: scores(50, 90, 30, 100), want: Result{Total: MaxTotal, Passed: true}},
		{name: "negatives count as zero", scores: scores(-5, 40, 20, -1), want: Result{Total: 60, Passed: true}},
		{name: "fractions", scores: scores(19.5, 30, 10, 0.25), want: Result{Total: 59.75, Passed: false}},
		{name: "nan counts as zero", scores: scores(math.NaN(), 40, 20, 0), want: Result{Total: 60, Passed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.scores))
		})
	}
}

func TestEvaluate_totalIsSumOfClampedScores(t *testing.T) {
	for edu := -10.0; edu <= 30; edu += 5 {
		for work := -10.0; work <= 50; work += 7 {
			for achieve := -10.0; achieve <= 35; achieve += 9 {
				for interview := -10.0; interview <= 25; interview += 4 {
					s := scores(edu, work, achieve, interview)
					clamped := s.Clamped()
					var sum float64
					for _, c := range Categories {
						cs := clamped.Get(c)
						assert.GreaterOrEqual(t, cs.Score, 0.0)
						assert.LessOrEqual(t, cs.Score, Caps[c])
						sum += cs.Score
					}
					res := Evaluate(s)
					assert.Equal(t, sum, res.Total)
					assert.Equal(t, res.Total >= PassingScore, res.Passed)
					assert.LessOrEqual(t, res.Total, float64(MaxTotal))
				}
			}
		}
	}
}

func TestCaps_addUpToMaxTotal(t *testing.T) {
	var sum float64
	for _, c := range Categories {
		sum += Caps[c]
	}
	assert.Equal(t, float64(MaxTotal), sum)
}

func TestAddPoints(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		category Category
		points   float64
		want     float64
		wantErr  error
	}{
		{name: "add", current: 5, category: CategoryEducation, points: 10, want: 15},
		{name: "capped", current: 15, category: CategoryEducation, points: 10, want: 20},
		{name: "cap exactly", current: 0, category: CategoryWork, points: 40, want: 40},
		{name: "zero points", current: 7, category: CategoryInterview, points: 0, want: 7},
		{name: "current over cap", current: 30, category: CategoryInterview, points: 1, want: 15},
		{name: "negative points", current: 7, category: CategoryInterview, points: -1, want: 7, wantErr: ErrInvalidPoints},
		{name: "points over cap", current: 0, category: CategoryAchievements, points: 26, want: 0, wantErr: ErrInvalidPoints},
		{name: "unknown category", current: 3, category: Category("sports"), points: 1, want: 3, wantErr: ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddPoints(tt.current, tt.category, tt.points)
			assert.Equal(t, tt.want, got)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			if tt.wantErr == ErrInvalidCategory {
				assert.Equal(t, ErrInvalidCategory, err)
			} else {
				assert.Equal(t, tt.wantErr, verr.Err)
				assert.Equal(t, "points", verr.Fields[0].Field)
			}
		})
	}
}

func TestNewResultView(t *testing.T) {
	ev := Evaluation{
		ApplicantID: "a1",
		Scores:      scores(18, 35, 20, 12),
		TotalScore:  85,
		Passed:      true,
		IsFinalized: true,
	}
	view := newResultView(ev)
	require.Len(t, view.Categories, 4)
	assert.Equal(t, CategoryResult{Category: CategoryEducation, Label: "Educational Qualification", Score: 18, Max: 20}, view.Categories[0])
	assert.Equal(t, 40.0, view.Categories[1].Max)
	assert.Equal(t, 25.0, view.Categories[2].Max)
	assert.Equal(t, 15.0, view.Categories[3].Max)
	assert.Equal(t, float64(MaxTotal), view.MaxTotal)
	assert.True(t, view.Passed)
}
