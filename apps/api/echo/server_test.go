package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/services/logger"
	"github.com/trezcool/eteeap/services/spreadsheet"
	"github.com/trezcool/eteeap/testutil"
)

var (
	bgCtx = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testServer struct {
	*Server
	env *testutil.Env
}

func setup(t *testing.T) *testServer {
	t.Helper()
	env := testutil.NewEnv(t)
	emailsvc.ResetSentMessages()

	srv := NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), env.Conf),
		Validate:       env.Validate,
		Translator:     env.Translator,
		UserSvc:        env.UserSvc,
		AssessorSvc:    env.AssessorSvc,
		ApplicantSvc:   env.ApplicantSvc,
		EvaluationSvc:  env.EvaluationSvc,
		CourseSvc:      env.CourseSvc,
		Reporter:       spreadsheet.NewReporter(env.ApplicantSvc, env.AssessorSvc, env.EvaluationSvc),
		DisableReqLogs: true,
	})
	return &testServer{Server: srv, env: env}
}

func (s *testServer) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := s.auth.tokenFor(usr)
	if err != nil {
		t.Fatalf("tokenFor(): %v", err)
	}
	return token
}

func (s *testServer) userOf(t *testing.T, id string) user.User {
	t.Helper()
	usr, err := s.env.UserSvc.GetByID(bgCtx, id)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	return usr
}

// do runs the request through the whole server.
func (s *testServer) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	s.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestServer_home(t *testing.T) {
	s := setup(t)
	rec := s.do(httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+s.env.Conf.AppName+" API!", rec.Body.String())
}

func TestServer_authRequired(t *testing.T) {
	s := setup(t)

	tests := []httpTest{
		{name: "missing token", path: "/api/progress", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "missing token (admin)", path: "/api/admin/applicants", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "missing token (assessor)", path: "/assessor/profile", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid token", path: "/api/progress", token: "not.a.token", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, s.do(tt))
		})
	}
}

func TestServer_roleRequired(t *testing.T) {
	s := setup(t)
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	asr := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	appToken := s.token(t, s.userOf(t, a.UserID))
	asrToken := s.token(t, s.userOf(t, asr.UserID))

	tests := []httpTest{
		{name: "applicant on admin endpoint", path: "/api/admin/applicants", token: appToken},
		{name: "assessor on admin endpoint", path: "/api/dashboard/stats", token: asrToken},
		{name: "applicant on assessor endpoint", path: "/api/assessor/applicants", token: appToken},
		{name: "assessor on applicant endpoint", path: "/api/progress", token: asrToken},
		{name: "applicant on staff endpoint", path: "/api/evaluations?applicantId=" + a.ID, token: appToken},
		{name: "applicant on students", path: "/api/students", token: appToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.wantCode = http.StatusForbidden
			tt.wantData = marchallObj(t, errForbidden)
			checkCodeAndData(t, tt, s.do(tt))
		})
	}
}

func TestServer_accountChangedAfterLogin(t *testing.T) {
	s := setup(t)
	admin := testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin})
	deactivated := testutil.CreateUser(t, s.env, "Former Admin", "former@test.ph", []string{user.RoleAdmin})
	deleted := testutil.CreateUser(t, s.env, "Gone Admin", "gone@test.ph", []string{user.RoleAdmin})
	demoted := testutil.CreateUser(t, s.env, "Demoted Admin", "demoted@test.ph", []string{user.RoleAdmin})
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")

	// tokens are issued while every account is an active admin
	deactivatedToken := s.token(t, deactivated)
	deletedToken := s.token(t, deleted)
	demotedToken := s.token(t, demoted)

	deactivated.IsActive = false
	_, err := s.env.UserRepo.UpdateUser(bgCtx, deactivated)
	require.NoError(t, err)
	require.NoError(t, s.env.UserSvc.Delete(bgCtx, deleted.ID))
	demoted.Roles = []string{user.RoleApplicant}
	_, err = s.env.UserRepo.UpdateUser(bgCtx, demoted)
	require.NoError(t, err)

	errDeactivated := httpErr{Error: "account deactivated"}
	errUnauthenticated := httpErr{Error: "user not authenticated"}
	tests := []httpTest{
		{name: "deactivated: admin list", path: "/api/admin/applicants", token: deactivatedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeactivated)},
		{name: "deactivated: stats", path: "/api/dashboard/stats", token: deactivatedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeactivated)},
		{name: "deactivated: staff endpoint", path: "/api/evaluations?applicantId=" + a.ID, token: deactivatedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeactivated)},
		{name: "deactivated: courses", path: "/api/courses", token: deactivatedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeactivated)},
		{name: "deactivated: profile", path: "/api/profile/" + a.ID, token: deactivatedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeactivated)},
		{name: "deleted: admin list", path: "/api/admin/applicants", token: deletedToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthenticated)},
		{name: "deleted: students", path: "/api/students", token: deletedToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthenticated)},
		{name: "demoted: admin list", path: "/api/admin/applicants", token: demotedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "demoted: profile of someone else", path: "/api/profile/" + a.ID, token: demotedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "active admin", path: "/api/admin/applicants", token: s.token(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
