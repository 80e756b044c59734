package echoapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/testutil"
)

func Test_dashboardApi(t *testing.T) {
	s := setup(t)
	token := s.token(t, testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin}))
	asr := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	testutil.PutUnderAssessment(t, s.env, testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz"), asr)
	testutil.CreateApplicant(t, s.env, "ana@test.ph", "Ana", "Lim")
	jose := testutil.CreateApplicant(t, s.env, "jose@test.ph", "Jose", "Rizal")
	_, err := s.env.ApplicantSvc.Approve(bgCtx, jose.ID)
	require.NoError(t, err)

	t.Run("stats", func(t *testing.T) {
		tt := httpTest{
			path: "/api/dashboard/stats", token: token,
			wantData: marchallObj(t, applicant.Stats{
				TotalApplicants: 3,
				NewApplicants:   1,
				WithoutAssessor: 1,
				UnderAssessment: 1,
			}),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})

	t.Run("report", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/admin/reports/applicants?status=Under+Assessment", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"applicants-")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows("Applicants")
		require.NoError(t, err)
		require.Len(t, rows, 2) // header + juan
		assert.Equal(t, "juan@test.ph", rows[1][2])
		assert.Equal(t, "Maria Santos", rows[1][8])
	})
}
