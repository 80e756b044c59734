package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/user"
)

type userApi struct {
	svc      *user.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerUserAPI(root *echo.Echo, api *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	h := userApi{
		svc:      deps.UserSvc,
		auth:     auth,
		validate: deps.Validate,
	}

	// un-authed endpoints
	api.POST("/login", h.login(rolePortal(user.RoleApplicant)))
	root.POST("/admin/login", h.login(rolePortal(user.RoleAdmin)))
	api.POST("/password-reset", h.resetPassword)
	api.POST("/password-reset-confirm", h.confirmPasswordReset)

	// authed endpoints
	api.POST("/token-refresh", h.refreshToken, jwt)
	for _, portal := range []string{"/admin", "/assessor", "/applicant"} {
		root.GET(portal+"/auth-status", h.authStatus, jwt)
		root.POST(portal+"/logout", h.logout, jwt)
	}

	root.POST("/admin/register", h.createAdmin, jwt, adminMiddleware(deps.UserSvc))
	ag := api.Group("/admin/admins", jwt, adminMiddleware(deps.UserSvc))
	ag.GET("", h.queryAdmins)
	ag.DELETE("/:id", h.destroyAdmin)
}

// Handlers

// login authenticates users allowed to use a portal.
func (h *userApi) login(allowed portalCheck) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data LoginRequest
		if err := bindAndValidate(ctx, h.validate, &data); err != nil {
			return err
		}

		usr, err := h.auth.authenticate(ctx.Request().Context(), data.Email, data.Password, allowed)
		if err != nil {
			return err
		}
		token, err := h.auth.tokenFor(usr)
		if err != nil {
			return errors.Wrap(err, "generating token")
		}
		return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
	}
}

func (h *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	if err := h.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (h *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(h.validate); err != nil {
		return err
	}

	if err := h.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (h *userApi) refreshToken(ctx echo.Context) error {
	token, err := h.auth.refreshToken(ctx)
	if err != nil {
		return err
	}
	usr, _ := getContextUser(ctx, h.svc)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (h *userApi) authStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx, h.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AuthStatusResponse{Authenticated: true, User: usr})
}

// logout is stateless: the client drops its token.
func (h *userApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

func (h *userApi) createAdmin(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Roles = []string{user.RoleAdmin}
	if err := data.Validate(ctx.Request().Context(), h.validate, h.svc); err != nil {
		return err
	}

	usr, err := h.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating admin")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (h *userApi) queryAdmins(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Roles:    user.AdminRoles,
		IsActive: queryBool(ctx, "is_active"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	admins, err := h.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (h *userApi) destroyAdmin(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, h.svc)
	if err != nil {
		return err
	}
	// Say No to Suicide! ctxUser cannot delete themselves
	if ctx.Param("id") == ctxUsr.ID {
		return errHttpForbidden
	}

	usr, err := h.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !usr.IsAdmin() {
		return errHttpNotFound
	}
	// admins cannot delete admins with a higher role than theirs
	if user.MaxRolePriority(usr.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return errHttpForbidden
	}

	if err = h.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting admin")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	AuthStatusResponse struct {
		Authenticated bool      `json:"authenticated"`
		User          user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}

func (pr *PasswordResetRequest) Clean() {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
}
