package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/testutil"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Test_userApi_login(t *testing.T) {
	s := setup(t)
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	admin := testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin})
	approved := testutil.CreateAssessor(t, s.env, "Maria Santos", "maria@test.ph", true)
	_ = testutil.CreateAssessor(t, s.env, "Pedro Reyes", "pedro@test.ph", false)
	inactive := testutil.CreateUser(t, s.env, "Gone", "gone@test.ph", []string{user.RoleApplicant})
	isActive := false
	_, err := s.env.UserSvc.Update(bgCtx, inactive.ID, user.UpdateUser{IsActive: &isActive})
	require.NoError(t, err)

	body := func(email, pwd string) []byte { return marchallObj(t, loginBody{Email: email, Password: pwd}) }
	failed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []struct {
		httpTest
		wantUserID string
	}{
		{httpTest: httpTest{name: "applicant", path: "/api/login", body: body(" JUAN@test.ph ", testutil.Password)}, wantUserID: a.UserID},
		{httpTest: httpTest{name: "admin", path: "/admin/login", body: body("admin@test.ph", testutil.Password)}, wantUserID: admin.ID},
		{httpTest: httpTest{name: "approved assessor", path: "/assessor/login", body: body("maria@test.ph", testutil.Password)}, wantUserID: approved.UserID},
		{httpTest: httpTest{
			name: "wrong password", path: "/api/login", body: body("juan@test.ph", "nope"),
			wantCode: http.StatusBadRequest, wantData: failed,
		}},
		{httpTest: httpTest{
			name: "unknown email", path: "/admin/login", body: body("who@test.ph", testutil.Password),
			wantCode: http.StatusBadRequest, wantData: failed,
		}},
		{httpTest: httpTest{
			name: "admin on applicant portal", path: "/api/login", body: body("admin@test.ph", testutil.Password),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		}},
		{httpTest: httpTest{
			name: "applicant on assessor portal", path: "/assessor/login", body: body("juan@test.ph", testutil.Password),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		}},
		{httpTest: httpTest{
			name: "assessor pending approval", path: "/assessor/login", body: body("pedro@test.ph", testutil.Password),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "assessor account is pending approval"}),
		}},
		{httpTest: httpTest{
			name: "deactivated", path: "/api/login", body: body("gone@test.ph", testutil.Password),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		}},
		{httpTest: httpTest{
			name: "invalid body", path: "/api/login", body: body("juan", ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{
				"email":    "email must be a valid email address",
				"password": "password is a required field",
			}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			rec := s.do(tt.httpTest)
			if tt.wantUserID == "" {
				checkCodeAndData(t, tt.httpTest, rec)
				return
			}

			checkCode(t, tt.httpTest, rec)
			var resp LoginResponse
			unmarchall(t, rec, &resp)
			assert.Equal(t, tt.wantUserID, resp.User.ID)
			assert.NotEmpty(t, resp.Token)
			assert.False(t, resp.User.LastLogin.IsZero())

			// the token opens the auth-status of any portal
			status := s.do(httpTest{path: "/applicant/auth-status", token: resp.Token})
			checkCode(t, httpTest{}, status)
			var as AuthStatusResponse
			unmarchall(t, status, &as)
			assert.True(t, as.Authenticated)
			assert.Equal(t, tt.wantUserID, as.User.ID)
		})
	}
}

func Test_userApi_refreshAndLogout(t *testing.T) {
	s := setup(t)
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	usr := s.userOf(t, a.UserID)

	t.Run("refresh", func(t *testing.T) {
		rec := s.do(httpTest{method: http.MethodPost, path: "/api/token-refresh", token: s.token(t, usr)})
		checkCode(t, httpTest{}, rec)
		var resp LoginResponse
		unmarchall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, usr.ID, resp.User.ID)
	})

	t.Run("refresh expired", func(t *testing.T) {
		claims := s.auth.userClaims(usr, time.Now().Add(-s.env.Conf.Server.JWTRefreshExpirationDelta-time.Minute).Unix())
		token, err := s.auth.generateToken(claims)
		require.NoError(t, err)

		tt := httpTest{
			method: http.MethodPost, path: "/api/token-refresh", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})

	t.Run("logout", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/applicant/logout", token: s.token(t, usr),
			wantData: marchallObj(t, SuccessResponse{Success: "Logged out."}),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})

	t.Run("deleted user", func(t *testing.T) {
		token := s.token(t, usr)
		require.NoError(t, s.env.UserSvc.Delete(bgCtx, usr.ID))
		tt := httpTest{
			path: "/applicant/auth-status", token: token,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	s := setup(t)
	testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")

	for _, email := range []string{"juan@test.ph", "nobody@test.ph"} {
		tt := httpTest{method: http.MethodPost, path: "/api/password-reset", body: marchallObj(t, PasswordResetRequest{Email: email})}
		checkCode(t, tt, s.do(tt))
	}

	sent := emailsvc.LastSentMessages(1)
	require.Len(t, sent, 1)
	assert.Equal(t, "juan@test.ph", sent[0].To[0].Address)

	tt := httpTest{
		method: http.MethodPost, path: "/api/password-reset-confirm",
		body:     []byte(`{"token": "bogus", "password": "n3w-S3cure!pwd", "password_confirm": "n3w-S3cure!pwd"}`),
		wantCode: http.StatusBadRequest,
	}
	checkCode(t, tt, s.do(tt))
}

func Test_userApi_admins(t *testing.T) {
	s := setup(t)
	admin := testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin})
	other := testutil.CreateUser(t, s.env, "Other Admin", "other@test.ph", []string{user.RoleAdmin})
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	adminToken := s.token(t, admin)

	t.Run("register admin", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/admin/register", token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]interface{}{
				"name":             "New Admin",
				"email":            "new@test.ph",
				"password":         testutil.Password,
				"password_confirm": testutil.Password,
				"roles":            []string{user.RoleApplicant},
			}),
		}
		rec := s.do(tt)
		checkCode(t, tt, rec)
		var usr user.User
		unmarchall(t, rec, &usr)
		assert.Equal(t, []string{user.RoleAdmin}, usr.Roles)
	})

	t.Run("register requires admin", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/admin/register", token: s.token(t, s.userOf(t, a.UserID)), body: []byte(`{}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		}
		checkCodeAndData(t, tt, s.do(tt))
	})

	t.Run("list admins", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/admin/admins", token: adminToken})
		checkCode(t, httpTest{}, rec)
		var admins []user.User
		unmarchall(t, rec, &admins)
		emails := make([]string, 0, len(admins))
		for _, usr := range admins {
			emails = append(emails, usr.Email)
		}
		assert.ElementsMatch(t, []string{"admin@test.ph", "other@test.ph", "new@test.ph"}, emails)
	})

	tests := []httpTest{
		{name: "no self delete", path: "/api/admin/admins/" + admin.ID, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "not an admin", path: "/api/admin/admins/" + a.UserID, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "unknown", path: "/api/admin/admins/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"})},
		{name: "delete", path: "/api/admin/admins/" + other.ID, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodDelete
			tt.token = adminToken
			rec := s.do(tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	_, err := s.env.UserSvc.GetByID(bgCtx, other.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
