package scheduler

import (
	"context"
	"net/mail"
	"time"

	"github.com/jasonlvhit/gocron"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
)

type (
	staleApplicant struct {
		ID         string
		Name       string
		AssignedAt time.Time
	}

	reminderData struct {
		AssessorName string
		Days         int
		Applicants   []staleApplicant
	}

	// Reminder emails assessors about the applicants they have been assessing for too long.
	Reminder struct {
		applicants *applicant.Service
		assessors  *assessor.Service
		mailSvc    core.EmailService
		logger     core.Logger
		staleAfter time.Duration
		everyHours uint64
	}
)

func NewReminder(
	applicantSvc *applicant.Service,
	assessorSvc *assessor.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf core.ReminderConfig,
) *Reminder {
	r := &Reminder{
		applicants: applicantSvc,
		assessors:  assessorSvc,
		mailSvc:    mailSvc,
		logger:     logger,
		staleAfter: conf.StaleAfter,
		everyHours: conf.EveryHours,
	}
	if r.staleAfter == 0 {
		r.staleAfter = 7 * 24 * time.Hour
	}
	if r.everyHours == 0 {
		r.everyHours = 24
	}
	return r
}

// RunOnce sends one reminder per assessor with stale assessments and returns how many were sent.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	stale, err := r.applicants.StaleAssessments(ctx, r.staleAfter)
	if err != nil {
		return 0, errors.Wrap(err, "querying stale assessments")
	}

	order := make([]string, 0)
	byAssessor := make(map[string][]staleApplicant)
	for _, a := range stale {
		if !a.HasAssessor() || a.AssignedAt == nil {
			continue
		}
		if _, ok := byAssessor[a.AssessorID]; !ok {
			order = append(order, a.AssessorID)
		}
		byAssessor[a.AssessorID] = append(byAssessor[a.AssessorID], staleApplicant{
			ID:         a.ID,
			Name:       a.Name(),
			AssignedAt: *a.AssignedAt,
		})
	}

	msgs := make([]*core.EmailMessage, 0, len(order))
	for _, id := range order {
		asr, err := r.assessors.GetByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == assessor.ErrNotFound {
				continue
			}
			return 0, errors.Wrapf(err, "getting assessor %s", id)
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: asr.FullName, Address: asr.Email}},
			Subject:      "Pending Assessments Reminder",
			TemplateName: "assessment_reminder",
			TemplateData: reminderData{
				AssessorName: asr.FullName,
				Days:         int(r.staleAfter.Hours() / 24),
				Applicants:   byAssessor[id],
			},
		})
	}
	if len(msgs) > 0 {
		r.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}

// Start runs the reminder every configured number of hours until the returned func is called.
func (r *Reminder) Start() (stop func()) {
	s := gocron.NewScheduler()
	if err := s.Every(r.everyHours).Hours().Do(r.run); err != nil {
		r.logger.Error("scheduling assessment reminder", err)
		return func() {}
	}
	stopped := s.Start()
	return func() {
		s.Clear()
		close(stopped)
	}
}

func (r *Reminder) run() {
	sent, err := r.RunOnce(context.Background())
	if err != nil {
		r.logger.Error("sending assessment reminders", err)
		return
	}
	if sent > 0 {
		r.logger.Info("assessment reminders sent", map[string]interface{}{"count": sent})
	}
}
