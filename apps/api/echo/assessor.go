package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/user"
)

type assessorApi struct {
	svc          *assessor.Service
	usrSvc       *user.Service
	applicantSvc *applicant.Service
	auth         *authenticator
	validate     *validator.Validate
}

func registerAssessorAPI(root *echo.Echo, api *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	h := assessorApi{
		svc:          deps.AssessorSvc,
		usrSvc:       deps.UserSvc,
		applicantSvc: deps.ApplicantSvc,
		auth:         auth,
		validate:     deps.Validate,
	}
	isAssessor := assessorMiddleware(deps.UserSvc, deps.AssessorSvc)

	root.POST("/assessor/register", h.register)
	root.POST("/assessor/login", h.login)
	root.GET("/assessor/profile", h.profile, jwt, isAssessor)

	mg := root.Group("/assessor", jwt, adminMiddleware(deps.UserSvc))
	mg.GET("/all", h.query)
	mg.GET("/:id", h.retrieve)
	mg.PUT("/:id", h.update)
	mg.DELETE("/:id", h.destroy)
	api.GET("/admin/available-assessors", h.available, jwt, adminMiddleware(deps.UserSvc))

	ag := api.Group("/assessor/applicants", jwt, isAssessor)
	ag.GET("", h.assignedApplicants)
	ag.GET("/:id", h.assignedApplicant)
	ag.POST("/:id/reject", h.rejectApplicant)
}

// approvedAssessor only lets approved assessors into the assessor portal.
func (h *assessorApi) approvedAssessor(ctx context.Context, usr user.User) error {
	if !usr.IsAssessor() {
		return errHttpForbidden
	}
	asr, err := h.svc.GetByUserID(ctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == assessor.ErrNotFound {
			return errHttpForbidden
		}
		return errors.Wrap(err, "finding assessor profile")
	}
	if !asr.IsApproved {
		return assessor.ErrNotApproved
	}
	return nil
}

func (h *assessorApi) register(ctx echo.Context) error {
	var data assessor.NewAssessor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessor")
	}
	if err := data.Validate(ctx.Request().Context(), h.validate, h.svc); err != nil {
		return err
	}

	asr, err := h.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asr)
}

func (h *assessorApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	usr, err := h.auth.authenticate(ctx.Request().Context(), data.Email, data.Password, h.approvedAssessor)
	if err != nil {
		return err
	}
	token, err := h.auth.tokenFor(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (h *assessorApi) profile(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextAssessor(ctx))
}

func (h *assessorApi) query(ctx echo.Context) error {
	filter := assessor.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Expertise:  ctx.QueryParam("expertise"),
		IsApproved: queryBool(ctx, "is_approved"),
	}
	filter.Clean()

	assessors, err := h.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assessors")
	}
	return ctx.JSON(http.StatusOK, assessors)
}

func (h *assessorApi) available(ctx echo.Context) error {
	assessors, err := h.svc.Available(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying available assessors")
	}
	return ctx.JSON(http.StatusOK, assessors)
}

func (h *assessorApi) retrieve(ctx echo.Context) error {
	asr, err := h.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asr)
}

func (h *assessorApi) update(ctx echo.Context) error {
	var data assessor.UpdateAssessor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessor")
	}
	if err := data.Validate(h.validate); err != nil {
		return err
	}

	asr, err := h.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asr)
}

func (h *assessorApi) destroy(ctx echo.Context) error {
	if err := h.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (h *assessorApi) assignedApplicants(ctx echo.Context) error {
	filter := applicant.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Status:     applicant.Status(ctx.QueryParam("status")),
		AssessorID: contextAssessor(ctx).ID,
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	applicants, err := h.applicantSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assigned applicants")
	}
	return ctx.JSON(http.StatusOK, applicants)
}

func (h *assessorApi) assignedApplicant(ctx echo.Context) error {
	a, err := h.applicantSvc.GetForAssessor(ctx.Request().Context(), contextAssessor(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (h *assessorApi) rejectApplicant(ctx echo.Context) error {
	var data applicant.Rejection
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	a, err := h.applicantSvc.RejectAsAssessor(ctx.Request().Context(), contextAssessor(ctx).ID, ctx.Param("id"), data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}
