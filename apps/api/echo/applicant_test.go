package echoapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/testutil"
)

// upload is a file part, or a plain form value when filename is empty.
type upload struct {
	field, filename string
	content         []byte
}

func newMultipartRequest(t *testing.T, path, token string, uploads ...upload) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, up := range uploads {
		if up.filename == "" {
			require.NoError(t, w.WriteField(up.field, string(up.content)))
			continue
		}
		part, err := w.CreateFormFile(up.field, up.filename)
		require.NoError(t, err)
		_, err = part.Write(up.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func Test_applicantApi_register(t *testing.T) {
	s := setup(t)

	body := func(email, pwd, confirm string) []byte {
		return marchallObj(t, applicant.NewApplicant{Email: email, Password: pwd, PasswordConfirm: confirm})
	}

	rec := s.do(httpTest{method: http.MethodPost, path: "/api/register", body: body("Juan@Test.ph", testutil.Password, testutil.Password)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a applicant.Applicant
	unmarchall(t, rec, &a)
	assert.Equal(t, "juan@test.ph", a.Email)
	assert.Equal(t, applicant.StatusPendingReview, a.Status)

	tests := []httpTest{
		{name: "duplicate email", body: body("juan@test.ph", testutil.Password, testutil.Password)},
		{name: "passwords mismatch", body: body("pedro@test.ph", testutil.Password, "other")},
		{name: "invalid email", body: body("pedro", testutil.Password, testutil.Password)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/register"
			tt.wantCode = http.StatusBadRequest
			checkCode(t, tt, s.do(tt))
		})
	}
}

func Test_applicantApi_selfService(t *testing.T) {
	s := setup(t)
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	token := s.token(t, s.userOf(t, a.UserID))

	t.Run("update personal info", func(t *testing.T) {
		info := a.PersonalInfo
		info.Firstname = "  Juanito "
		info.City = "Manila"
		rec := s.do(httpTest{method: http.MethodPut, path: "/api/update-personal-info", token: token, body: marchallObj(t, info)})
		checkCode(t, httpTest{}, rec)
		var got applicant.Applicant
		unmarchall(t, rec, &got)
		assert.Equal(t, "Juanito", got.PersonalInfo.Firstname)
		assert.Equal(t, "Manila", got.PersonalInfo.City)

		usr := s.userOf(t, a.UserID)
		assert.Equal(t, got.Name(), usr.Name)
	})

	t.Run("invalid personal info", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPut, path: "/api/update-personal-info", token: token,
			body:     marchallObj(t, applicant.PersonalInfo{Firstname: "Juan"}),
			wantCode: http.StatusBadRequest,
		}
		checkCode(t, tt, s.do(tt))
	})

	t.Run("submit documents", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/submit-documents", token,
			upload{field: "files", filename: "diploma.pdf", content: []byte("%PDF-1.4 diploma")},
			upload{field: "files", filename: "ID.PNG", content: []byte("png bytes")},
		)
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var docs []applicant.Document
		unmarchall(t, rec, &docs)
		require.Len(t, docs, 2)
		assert.Equal(t, "application/pdf", docs[0].ContentType)
		assert.Equal(t, "image/png", docs[1].ContentType)
		assert.Equal(t, applicant.LabelInitialSubmission, docs[0].Label)
	})

	t.Run("submit labelled documents", func(t *testing.T) {
		tests := []struct {
			name     string
			label    string
			wantCode int
			want     applicant.DocumentLabel
		}{
			{name: "resume", label: "resume", wantCode: http.StatusCreated, want: applicant.LabelResume},
			{name: "mixed case", label: " Awards ", wantCode: http.StatusCreated, want: applicant.LabelAwards},
			{name: "unknown", label: "selfie", wantCode: http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newMultipartRequest(t, "/api/submit-documents", token,
					upload{field: "label", content: []byte(tt.label)},
					upload{field: "files", filename: tt.name + ".pdf", content: []byte("%PDF-1.4")},
				)
				s.ServeHTTP(rec, req)
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				if tt.wantCode != http.StatusCreated {
					assert.Contains(t, rec.Body.String(), "label")
					return
				}
				var docs []applicant.Document
				unmarchall(t, rec, &docs)
				require.Len(t, docs, 1)
				assert.Equal(t, tt.want, docs[0].Label)
			})
		}
	})

	t.Run("portfolio", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/portfolio", token: token})
		checkCode(t, httpTest{}, rec)
		var sections []applicant.PortfolioSection
		unmarchall(t, rec, &sections)
		require.Len(t, sections, len(applicant.DocumentLabels))

		counts := make(map[applicant.DocumentLabel]int, len(sections))
		for i, section := range sections {
			assert.Equal(t, applicant.DocumentLabels[i], section.Label)
			assert.NotEmpty(t, section.Title)
			for _, doc := range section.Documents {
				assert.Equal(t, section.Label, doc.Label)
			}
			counts[section.Label] = len(section.Documents)
		}
		assert.Equal(t, map[applicant.DocumentLabel]int{
			applicant.LabelInitialSubmission: 2,
			applicant.LabelResume:            1,
			applicant.LabelTraining:          0,
			applicant.LabelAwards:            1,
			applicant.LabelInterview:         0,
			applicant.LabelOthers:            0,
		}, counts)
	})

	t.Run("submit bad documents", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/submit-documents", token,
			upload{field: "files", filename: "virus.exe", content: []byte("MZ")},
		)
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newMultipartRequest(t, "/api/submit-documents", token)
		s.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"files": "at least one file is required"}),
		}, rec)
	})

	t.Run("progress", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/progress", token: token})
		checkCode(t, httpTest{}, rec)
		var p applicant.Progress
		unmarchall(t, rec, &p)
		assert.Equal(t, applicant.StatusPendingReview, p.Status)
		current := 0
		for _, step := range p.Steps {
			if step.Current {
				current++
			}
		}
		assert.Equal(t, 1, current)
	})

	t.Run("result pending", func(t *testing.T) {
		tt := httpTest{
			path: "/api/result", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "evaluation result not found"}),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})
}

func Test_applicantApi_access(t *testing.T) {
	s := setup(t)
	ctx := bgCtx
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	other := testutil.CreateApplicant(t, s.env, "ana@test.ph", "Ana", "Lim")
	asr := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	otherAsr := testutil.CreateAssessor(t, s.env, "Jose Rizal", "jose@test.ph", true)
	admin := testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin})
	a = testutil.PutUnderAssessment(t, s.env, a, asr)

	docs, err := s.env.ApplicantSvc.SubmitDocuments(ctx, a.ID, []applicant.Upload{
		{Filename: "tor.pdf", Size: 9, Content: bytes.NewReader([]byte("%PDF-tor!"))},
	})
	require.NoError(t, err)

	ownerToken := s.token(t, s.userOf(t, a.UserID))
	otherToken := s.token(t, s.userOf(t, other.UserID))
	asrToken := s.token(t, s.userOf(t, asr.UserID))
	otherAsrToken := s.token(t, s.userOf(t, otherAsr.UserID))
	adminToken := s.token(t, admin)

	t.Run("profile", func(t *testing.T) {
		tests := []httpTest{
			{name: "self", token: ownerToken, wantCode: http.StatusOK},
			{name: "admin", token: adminToken, wantCode: http.StatusOK},
			{name: "other applicant", token: otherToken, wantCode: http.StatusForbidden},
			{name: "assessor", token: asrToken, wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/api/profile/" + a.ID
				rec := s.do(tt)
				checkCode(t, tt, rec)
				if tt.wantCode == http.StatusOK {
					var got applicant.Applicant
					unmarchall(t, rec, &got)
					assert.Equal(t, a.ID, got.ID)
					assert.Len(t, got.Documents, 1)
				}
			})
		}
	})

	t.Run("document", func(t *testing.T) {
		tests := []httpTest{
			{name: "owner", token: ownerToken, wantCode: http.StatusOK},
			{name: "assigned assessor", token: asrToken, wantCode: http.StatusOK},
			{name: "admin", token: adminToken, wantCode: http.StatusOK},
			{name: "other applicant", token: otherToken, wantCode: http.StatusForbidden},
			{name: "other assessor", token: otherAsrToken, wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/api/documents/" + docs[0].ID
				rec := s.do(tt)
				checkCode(t, tt, rec)
				if tt.wantCode == http.StatusOK {
					assert.Equal(t, "%PDF-tor!", rec.Body.String())
					assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
					assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="tor.pdf"`)
				}
			})
		}

		tt := httpTest{path: "/api/documents/lol", token: adminToken, wantCode: http.StatusNotFound}
		checkCode(t, tt, s.do(tt))
	})
}

func Test_applicantApi_admin(t *testing.T) {
	s := setup(t)
	juan := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	ana := testutil.CreateApplicant(t, s.env, "ana@test.ph", "Ana", "Lim")
	asr := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	pending := testutil.CreateAssessor(t, s.env, "Pedro Reyes", "pedro@test.ph", false)
	token := s.token(t, testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin}))

	ids := func(t *testing.T, rec *httptest.ResponseRecorder) []string {
		var applicants []applicant.Applicant
		unmarchall(t, rec, &applicants)
		res := make([]string, 0, len(applicants))
		for _, a := range applicants {
			res = append(res, a.ID)
		}
		return res
	}
	post := func(path string, body interface{}) httpTest {
		return httpTest{method: http.MethodPost, path: path, token: token, body: marchallObj(t, body)}
	}

	t.Run("approve", func(t *testing.T) {
		rec := s.do(post("/api/admin/applicants/"+juan.ID+"/approve", nil))
		checkCode(t, httpTest{}, rec)
		var a applicant.Applicant
		unmarchall(t, rec, &a)
		assert.Equal(t, applicant.StatusApproved, a.Status)
	})

	t.Run("assign", func(t *testing.T) {
		tt := post("/api/admin/applicants/"+juan.ID+"/assign-assessor", applicant.Assignment{AssessorID: pending.ID})
		tt.wantCode = http.StatusForbidden
		checkCode(t, tt, s.do(tt))

		tt = post("/api/admin/applicants/"+ana.ID+"/assign-assessor", applicant.Assignment{AssessorID: asr.ID})
		tt.wantCode = http.StatusUnprocessableEntity
		checkCode(t, tt, s.do(tt))

		rec := s.do(post("/api/admin/applicants/"+juan.ID+"/assign-assessor", applicant.Assignment{AssessorID: asr.ID}))
		checkCode(t, httpTest{}, rec)
		var a applicant.Applicant
		unmarchall(t, rec, &a)
		assert.Equal(t, applicant.StatusUnderAssessment, a.Status)
		assert.Equal(t, asr.ID, a.AssessorID)
	})

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
			want  []string
		}{
			{name: "all", query: "", want: []string{juan.ID, ana.ID}},
			{name: "status", query: "?status=Pending+Review", want: []string{ana.ID}},
			{name: "assessor", query: "?assessor=" + asr.ID, want: []string{juan.ID}},
			{name: "search", query: "?search=lim", want: []string{ana.ID}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				rec := s.do(httpTest{path: "/api/admin/applicants" + tc.query, token: token})
				checkCode(t, httpTest{}, rec)
				assert.ElementsMatch(t, tc.want, ids(t, rec))
			})
		}

		tt := httpTest{path: "/api/admin/applicants?status=lol", token: token, wantCode: http.StatusBadRequest}
		checkCode(t, tt, s.do(tt))

		rec := s.do(httpTest{path: "/api/admin/applicants/search?term=DELA", token: token})
		checkCode(t, httpTest{}, rec)
		assert.Equal(t, []string{juan.ID}, ids(t, rec))
	})

	t.Run("detail", func(t *testing.T) {
		_, err := s.env.EvaluationSvc.Save(bgCtx, asr.ID, evaluation.SaveEvaluation{ApplicantID: juan.ID})
		require.NoError(t, err)

		rec := s.do(httpTest{path: "/api/admin/applicants/" + juan.ID, token: token})
		checkCode(t, httpTest{}, rec)
		var detail ApplicantDetail
		unmarchall(t, rec, &detail)
		assert.Equal(t, juan.ID, detail.ID)
		require.NotNil(t, detail.Evaluation)
		assert.Equal(t, 1, detail.Evaluation.Version)

		rec = s.do(httpTest{path: "/api/admin/applicants/" + ana.ID, token: token})
		checkCode(t, httpTest{}, rec)
		detail = ApplicantDetail{}
		unmarchall(t, rec, &detail)
		assert.Nil(t, detail.Evaluation)
	})

	t.Run("status", func(t *testing.T) {
		tests := []struct {
			httpTest
			body applicant.StatusChange
		}{
			{httpTest: httpTest{name: "unknown status", wantCode: http.StatusBadRequest}, body: applicant.StatusChange{Status: "Lost"}},
			{
				httpTest: httpTest{name: "under assessment needs an assessor", wantCode: http.StatusUnprocessableEntity},
				body:     applicant.StatusChange{Status: applicant.StatusUnderAssessment},
			},
			{
				httpTest: httpTest{name: "evaluated needs an evaluation", wantCode: http.StatusUnprocessableEntity},
				body:     applicant.StatusChange{Status: applicant.StatusEvaluatedPassed},
			},
			{httpTest: httpTest{name: "approve"}, body: applicant.StatusChange{Status: applicant.StatusApproved}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPut
				tt.path = "/api/admin/applicants/" + ana.ID + "/status"
				tt.token = token
				tt.httpTest.body = marchallObj(t, tt.body)
				checkCode(t, tt.httpTest, s.do(tt.httpTest))
			})
		}
	})

	t.Run("reject", func(t *testing.T) {
		tt := post("/api/admin/applicants/"+ana.ID+"/reject", applicant.Rejection{})
		tt.wantCode = http.StatusBadRequest
		checkCode(t, tt, s.do(tt))

		rec := s.do(post("/api/admin/applicants/"+ana.ID+"/reject", applicant.Rejection{Reason: "Incomplete documents"}))
		checkCode(t, httpTest{}, rec)
		var a applicant.Applicant
		unmarchall(t, rec, &a)
		assert.Equal(t, applicant.StatusRejected, a.Status)
		assert.Equal(t, "Incomplete documents", a.RejectionReason)

		tt = post("/api/admin/applicants/"+ana.ID+"/approve", nil)
		tt.wantCode = http.StatusUnprocessableEntity
		checkCode(t, tt, s.do(tt))
	})

	t.Run("unknown applicant", func(t *testing.T) {
		tt := post("/api/admin/applicants/lol/approve", nil)
		tt.wantCode = http.StatusNotFound
		tt.wantData = marchallObj(t, httpErr{Error: "applicant not found"})
		checkCodeAndData(t, tt, s.do(tt))
	})
}
