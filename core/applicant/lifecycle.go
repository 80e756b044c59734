package applicant

import (
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
)

// ErrInvalidTransition is the cause of every refused status change.
var ErrInvalidTransition = core.NewStateError("invalid status transition")

type Status string

const (
	StatusPendingReview   Status = "Pending Review"
	StatusApproved        Status = "Approved"
	StatusUnderAssessment Status = "Under Assessment"
	StatusEvaluatedPassed Status = "Evaluated - Passed"
	StatusEvaluatedFailed Status = "Evaluated - Failed"
	StatusRejected        Status = "Rejected"
)

var (
	Statuses = []Status{
		StatusPendingReview,
		StatusApproved,
		StatusUnderAssessment,
		StatusEvaluatedPassed,
		StatusEvaluatedFailed,
		StatusRejected,
	}

	// transitions lists the statuses reachable from each non-terminal status.
	transitions = map[Status][]Status{
		StatusPendingReview:   {StatusApproved, StatusRejected},
		StatusApproved:        {StatusUnderAssessment, StatusRejected},
		StatusUnderAssessment: {StatusEvaluatedPassed, StatusEvaluatedFailed, StatusRejected},
	}
)

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return s.IsValid() && !ok
}

func (s Status) IsEvaluated() bool {
	return s == StatusEvaluatedPassed || s == StatusEvaluatedFailed
}

// EvaluatedStatus returns the final status matching an evaluation outcome.
func EvaluatedStatus(passed bool) Status {
	if passed {
		return StatusEvaluatedPassed
	}
	return StatusEvaluatedFailed
}

func CanTransition(from, to Status) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// Transition checks that an applicant in status `from` may move to status `to`.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return newTransitionError(from, to)
	}
	return nil
}

func newTransitionError(from, to Status) error {
	return errors.Wrapf(ErrInvalidTransition, "cannot change status from %q to %q", from, to)
}

// progressSteps returns the timeline shown to the applicant for their current state.
func progressSteps(a Applicant) []Step {
	reached := func(sts ...Status) bool {
		for _, st := range sts {
			if a.Status == st {
				return true
			}
		}
		return false
	}
	steps := []Step{
		{Name: "Application Submitted", Completed: true},
		{Name: "Personal Information", Completed: a.PersonalInfo.Firstname != ""},
		{Name: "Documents Submitted", Completed: len(a.Documents) > 0},
		{Name: "Approved", Completed: reached(StatusApproved, StatusUnderAssessment, StatusEvaluatedPassed, StatusEvaluatedFailed)},
		{Name: "Under Assessment", Completed: reached(StatusUnderAssessment, StatusEvaluatedPassed, StatusEvaluatedFailed)},
		{Name: "Evaluated", Completed: a.Status.IsEvaluated()},
	}
	if a.Status.IsTerminal() {
		return steps
	}
	for i := range steps {
		if !steps[i].Completed {
			steps[i].Current = true
			break
		}
	}
	return steps
}
