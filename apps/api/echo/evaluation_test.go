package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/testutil"
)

func Test_evaluationApi(t *testing.T) {
	s := setup(t)
	maria := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	jose := testutil.CreateAssessor(t, s.env, "Jose Rizal", "jose@test.ph", true)
	juan := testutil.PutUnderAssessment(t, s.env, testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz"), maria)
	token := s.token(t, s.userOf(t, maria.UserID))
	joseToken := s.token(t, s.userOf(t, jose.UserID))
	adminToken := s.token(t, testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin}))
	juanToken := s.token(t, s.userOf(t, juan.UserID))

	save := func(version int, edu, work, ach, interview float64) httpTest {
		return httpTest{
			method: http.MethodPost, path: "/api/evaluations", token: token,
			body: marchallObj(t, evaluation.SaveEvaluation{
				ApplicantID: juan.ID,
				Version:     version,
				Scores: evaluation.Scores{
					EducationalQualification: evaluation.CategoryScore{Score: edu},
					WorkExperience:           evaluation.CategoryScore{Score: work, Comments: "10 years in IT"},
					ProfessionalAchievements: evaluation.CategoryScore{Score: ach},
					Interview:                evaluation.CategoryScore{Score: interview},
				},
			}),
		}
	}

	t.Run("save", func(t *testing.T) {
		rec := s.do(save(0, 15, 30, 10, 8))
		checkCode(t, httpTest{}, rec)
		var ev evaluation.Evaluation
		unmarchall(t, rec, &ev)
		assert.Equal(t, 1, ev.Version)
		assert.Equal(t, maria.ID, ev.AssessorID)

		tt := save(0, 15, 30, 10, 8)
		tt.wantCode = http.StatusConflict
		checkCode(t, tt, s.do(tt))

		tt = save(1, 15, 30, 10, 8)
		tt.token = joseToken
		tt.wantCode = http.StatusForbidden
		checkCode(t, tt, s.do(tt))

		// camelCase category keys on the wire
		rec = s.do(httpTest{path: "/api/evaluations?applicantId=" + juan.ID, token: adminToken})
		checkCode(t, httpTest{}, rec)
		var raw map[string]interface{}
		unmarchall(t, rec, &raw)
		scores, ok := raw["scores"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, scores, "workExperience")
	})

	t.Run("record points", func(t *testing.T) {
		post := func(category evaluation.Category, points float64) httpTest {
			return httpTest{
				method: http.MethodPost, path: "/api/record-points", token: token,
				body: marchallObj(t, evaluation.RecordPoints{ApplicantID: juan.ID, Category: category, Points: points}),
			}
		}

		rec := s.do(post(evaluation.CategoryInterview, 4))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var ev evaluation.Evaluation
		unmarchall(t, rec, &ev)
		assert.Equal(t, float64(12), ev.Scores.Interview.Score)
		assert.Equal(t, 2, ev.Version)

		for _, tt := range []httpTest{post("astrology", 1), post(evaluation.CategoryInterview, 99), post(evaluation.CategoryInterview, -1)} {
			tt.wantCode = http.StatusBadRequest
			checkCode(t, tt, s.do(tt))
		}

		rec = s.do(httpTest{path: "/api/evaluations/points?applicantId=" + juan.ID, token: token})
		checkCode(t, httpTest{}, rec)
		var entries []evaluation.PointsEntry
		unmarchall(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, evaluation.CategoryInterview, entries[0].Category)

		tt := httpTest{path: "/api/evaluations/points?applicantId=" + juan.ID, token: joseToken, wantCode: http.StatusForbidden}
		checkCode(t, tt, s.do(tt))
		tt = httpTest{path: "/api/evaluations/points", token: adminToken, wantCode: http.StatusBadRequest}
		checkCode(t, tt, s.do(tt))
	})

	t.Run("result pending", func(t *testing.T) {
		tt := httpTest{path: "/api/result", token: juanToken, wantCode: http.StatusNotFound}
		checkCode(t, tt, s.do(tt))
	})

	t.Run("finalize", func(t *testing.T) {
		finalize := httpTest{
			method: http.MethodPost, path: "/api/evaluations/finalize", token: token,
			body: marchallObj(t, evaluation.FinalizeEvaluation{ApplicantID: juan.ID, Comments: "Well done"}),
		}
		rec := s.do(finalize)
		checkCode(t, httpTest{}, rec)
		var ev evaluation.Evaluation
		unmarchall(t, rec, &ev)
		assert.True(t, ev.IsFinalized)
		assert.True(t, ev.Passed)
		assert.Equal(t, float64(67), ev.TotalScore)

		a, err := s.env.ApplicantSvc.GetByID(bgCtx, juan.ID)
		require.NoError(t, err)
		assert.Equal(t, applicant.StatusEvaluatedPassed, a.Status)

		finalize.wantCode = http.StatusUnprocessableEntity
		checkCode(t, finalize, s.do(finalize))
		tt := save(3, 20, 40, 25, 15)
		tt.wantCode = http.StatusUnprocessableEntity
		checkCode(t, tt, s.do(tt))
	})

	t.Run("result", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/result", token: juanToken})
		checkCode(t, httpTest{}, rec)
		var res evaluation.ResultView
		unmarchall(t, rec, &res)
		assert.Equal(t, float64(67), res.Total)
		assert.Equal(t, float64(evaluation.MaxTotal), res.MaxTotal)
		assert.True(t, res.Passed)
		assert.Equal(t, "Well done", res.FinalComments)
		assert.Len(t, res.Categories, 4)
	})
}
