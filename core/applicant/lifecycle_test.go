package applicant

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "pending to approved", from: StatusPendingReview, to: StatusApproved},
		{name: "pending to rejected", from: StatusPendingReview, to: StatusRejected},
		{name: "pending to under assessment", from: StatusPendingReview, to: StatusUnderAssessment, wantErr: true},
		{name: "pending to passed", from: StatusPendingReview, to: StatusEvaluatedPassed, wantErr: true},
		{name: "approved to under assessment", from: StatusApproved, to: StatusUnderAssessment},
		{name: "approved to rejected", from: StatusApproved, to: StatusRejected},
		{name: "approved to pending", from: StatusApproved, to: StatusPendingReview, wantErr: true},
		{name: "under assessment to passed", from: StatusUnderAssessment, to: StatusEvaluatedPassed},
		{name: "under assessment to failed", from: StatusUnderAssessment, to: StatusEvaluatedFailed},
		{name: "under assessment to rejected", from: StatusUnderAssessment, to: StatusRejected},
		{name: "under assessment to approved", from: StatusUnderAssessment, to: StatusApproved, wantErr: true},
		{name: "passed is final", from: StatusEvaluatedPassed, to: StatusRejected, wantErr: true},
		{name: "failed is final", from: StatusEvaluatedFailed, to: StatusEvaluatedPassed, wantErr: true},
		{name: "rejected is final", from: StatusRejected, to: StatusApproved, wantErr: true},
		{name: "unknown status", from: Status("Archived"), to: StatusApproved, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ErrInvalidTransition, errors.Cause(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusEvaluatedPassed: true,
		StatusEvaluatedFailed: true,
		StatusRejected:        true,
	}
	for _, st := range Statuses {
		assert.Equal(t, terminal[st], st.IsTerminal(), st)
	}
	assert.False(t, Status("bogus").IsTerminal())
}

func TestEvaluatedStatus(t *testing.T) {
	assert.Equal(t, StatusEvaluatedPassed, EvaluatedStatus(true))
	assert.Equal(t, StatusEvaluatedFailed, EvaluatedStatus(false))
}

func TestProgressSteps(t *testing.T) {
	current := func(steps []Step) string {
		for _, s := range steps {
			if s.Current {
				return s.Name
			}
		}
		return ""
	}
	withInfo := PersonalInfo{Firstname: "Juan", Lastname: "Dela Cruz"}
	withDocs := []Document{{ID: "d1"}}

	tests := []struct {
		name          string
		applicant     Applicant
		wantCurrent   string
		wantCompleted int
	}{
		{
			name:          "just registered",
			applicant:     Applicant{Status: StatusPendingReview},
			wantCurrent:   "Personal Information",
			wantCompleted: 1,
		},
		{
			name:          "info and documents in",
			applicant:     Applicant{Status: StatusPendingReview, PersonalInfo: withInfo, Documents: withDocs},
			wantCurrent:   "Approved",
			wantCompleted: 3,
		},
		{
			name:          "under assessment",
			applicant:     Applicant{Status: StatusUnderAssessment, PersonalInfo: withInfo, Documents: withDocs},
			wantCurrent:   "Evaluated",
			wantCompleted: 5,
		},
		{
			name:          "evaluated",
			applicant:     Applicant{Status: StatusEvaluatedFailed, PersonalInfo: withInfo, Documents: withDocs},
			wantCurrent:   "",
			wantCompleted: 6,
		},
		{
			name:          "rejected",
			applicant:     Applicant{Status: StatusRejected, PersonalInfo: withInfo},
			wantCurrent:   "",
			wantCompleted: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := progressSteps(tt.applicant)
			assert.Len(t, steps, 6)
			assert.Equal(t, tt.wantCurrent, current(steps))
			var completed int
			for _, s := range steps {
				if s.Completed {
					completed++
				}
			}
			assert.Equal(t, tt.wantCompleted, completed)
		})
	}
}
