package evaluation

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
)

type Category string

const (
	CategoryEducation    Category = "educationalQualification"
	CategoryWork         Category = "workExperience"
	CategoryAchievements Category = "professionalAchievements"
	CategoryInterview    Category = "interview"
)

const (
	PassingScore = 60
	MaxTotal     = 100
)

var (
	Categories = []Category{CategoryEducation, CategoryWork, CategoryAchievements, CategoryInterview}

	// Caps is the maximum score of each category. They add up to MaxTotal.
	Caps = map[Category]float64{
		CategoryEducation:    20,
		CategoryWork:         40,
		CategoryAchievements: 25,
		CategoryInterview:    15,
	}

	categoryLabels = map[Category]string{
		CategoryEducation:    "Educational Qualification",
		CategoryWork:         "Work Experience",
		CategoryAchievements: "Professional Achievements",
		CategoryInterview:    "Interview",
	}

	ErrInvalidPoints   = errors.New("points out of range")
	ErrInvalidCategory = core.NewValidationError(nil, core.FieldError{Field: "category", Error: "unknown category"})
)

func (c Category) IsValid() bool {
	_, ok := Caps[c]
	return ok
}

func (c Category) Label() string {
	return categoryLabels[c]
}

type CategoryScore struct {
	Score    float64 `json:"score"`
	Comments string  `json:"comments"`
}

type Scores struct {
	EducationalQualification CategoryScore `json:"educationalQualification"`
	WorkExperience           CategoryScore `json:"workExperience"`
	ProfessionalAchievements CategoryScore `json:"professionalAchievements"`
	Interview                CategoryScore `json:"interview"`
}

// Get returns a pointer to the score of category c, nil if c is unknown.
func (s *Scores) Get(c Category) *CategoryScore {
	switch c {
	case CategoryEducation:
		return &s.EducationalQualification
	case CategoryWork:
		return &s.WorkExperience
	case CategoryAchievements:
		return &s.ProfessionalAchievements
	case CategoryInterview:
		return &s.Interview
	}
	return nil
}

// Clamped returns a copy of s with every category score clamped to its cap.
func (s Scores) Clamped() Scores {
	for _, c := range Categories {
		cs := s.Get(c)
		cs.Score = Clamp(c, cs.Score)
	}
	return s
}

type Result struct {
	Total  float64 `json:"total"`
	Passed bool    `json:"passed"`
}

// Clamp bounds score into [0, cap of c]. NaN counts as 0.
func Clamp(c Category, score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return math.Min(score, Caps[c])
}

// Evaluate sums the clamped category scores. The applicant passes with a total of at least PassingScore.
func Evaluate(scores Scores) Result {
	var total float64
	for _, c := range Categories {
		total += Clamp(c, scores.Get(c).Score)
	}
	return Result{Total: total, Passed: total >= PassingScore}
}

// AddPoints adds points to the current score of category c, without exceeding its cap.
func AddPoints(current float64, c Category, points float64) (float64, error) {
	if !c.IsValid() {
		return current, ErrInvalidCategory
	}
	max := Caps[c]
	if math.IsNaN(points) || points < 0 || points > max {
		return current, core.NewValidationError(ErrInvalidPoints, core.FieldError{
			Field: "points",
			Error: fmt.Sprintf("points must be between 0 and %g for %s", max, c.Label()),
		})
	}
	return math.Min(Clamp(c, current)+points, max), nil
}
