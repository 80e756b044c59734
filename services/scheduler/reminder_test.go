package scheduler

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/services/logger"
	"github.com/trezcool/eteeap/testutil"
)

func TestReminder_RunOnce(t *testing.T) {
	env := testutil.NewEnv(t)
	ana := testutil.CreateAssessor(t, env, "Ana Reyes", "ana@example.com", true)
	ben := testutil.CreateAssessor(t, env, "Ben Cruz", "ben@example.com", true)
	testutil.PutUnderAssessment(t, env, testutil.CreateApplicant(t, env, "a1@example.com", "Juan", "Dela Cruz"), ana)
	testutil.PutUnderAssessment(t, env, testutil.CreateApplicant(t, env, "a2@example.com", "Maria", "Clara"), ana)
	testutil.PutUnderAssessment(t, env, testutil.CreateApplicant(t, env, "a3@example.com", "Jose", "Rizal"), ben)
	testutil.CreateApplicant(t, env, "a4@example.com", "Not", "Assigned")

	lgr := logsvc.NewRollbarLogger(log.New(os.Stderr, "", 0), env.Conf)

	tests := []struct {
		name       string
		staleAfter time.Duration
		wantSent   int
	}{
		{name: "nothing stale yet", staleAfter: 24 * time.Hour, wantSent: 0},
		// a negative age makes every assignment stale
		{name: "one reminder per assessor", staleAfter: -time.Hour, wantSent: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			r := NewReminder(env.ApplicantSvc, env.AssessorSvc, env.Mail, lgr, core.ReminderConfig{StaleAfter: tt.staleAfter})

			sent, err := r.RunOnce(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, sent)

			msgs := emailsvc.LastSentMessages(10)
			require.Len(t, msgs, tt.wantSent)
			for _, msg := range msgs {
				assert.Equal(t, "assessment_reminder", msg.TemplateName)
				data := msg.TemplateData.(reminderData)
				switch msg.To[0].Address {
				case "ana@example.com":
					assert.Len(t, data.Applicants, 2)
					assert.Contains(t, msg.TextContent, "Juan Dela Cruz")
					assert.Contains(t, msg.TextContent, "Maria Clara")
				case "ben@example.com":
					assert.Len(t, data.Applicants, 1)
					assert.Contains(t, msg.TextContent, "Jose Rizal")
				default:
					t.Errorf("unexpected recipient %s", msg.To[0].Address)
				}
			}
		})
	}
}

func TestNewReminder_defaults(t *testing.T) {
	r := NewReminder(nil, nil, nil, nil, core.ReminderConfig{})
	assert.Equal(t, 7*24*time.Hour, r.staleAfter)
	assert.Equal(t, uint64(24), r.everyHours)

	stop := r.Start()
	stop()
}
