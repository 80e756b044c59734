package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
)

type evaluationApi struct {
	svc          *evaluation.Service
	asrSvc       *assessor.Service
	applicantSvc *applicant.Service
	usrSvc       *user.Service
	validate     *validator.Validate
}

func registerEvaluationAPI(api *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	h := evaluationApi{
		svc:          deps.EvaluationSvc,
		asrSvc:       deps.AssessorSvc,
		applicantSvc: deps.ApplicantSvc,
		usrSvc:       deps.UserSvc,
		validate:     deps.Validate,
	}
	isAssessor := assessorMiddleware(deps.UserSvc, deps.AssessorSvc)

	api.POST("/evaluations", h.save, jwt, isAssessor)
	api.POST("/evaluations/finalize", h.finalize, jwt, isAssessor)
	api.POST("/record-points", h.recordPoints, jwt, isAssessor)

	api.GET("/evaluations", h.retrieve, jwt, staffMiddleware(deps.UserSvc))
	api.GET("/evaluations/points", h.ledger, jwt, staffMiddleware(deps.UserSvc))
}

func (h *evaluationApi) save(ctx echo.Context) error {
	var data evaluation.SaveEvaluation
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	ev, err := h.svc.Save(ctx.Request().Context(), contextAssessor(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (h *evaluationApi) finalize(ctx echo.Context) error {
	var data evaluation.FinalizeEvaluation
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	ev, err := h.svc.Finalize(ctx.Request().Context(), contextAssessor(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (h *evaluationApi) recordPoints(ctx echo.Context) error {
	var data evaluation.RecordPoints
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	ev, err := h.svc.RecordPoints(ctx.Request().Context(), contextAssessor(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (h *evaluationApi) retrieve(ctx echo.Context) error {
	applicantID, err := h.readableApplicant(ctx)
	if err != nil {
		return err
	}

	ev, err := h.svc.GetByApplicant(ctx.Request().Context(), applicantID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (h *evaluationApi) ledger(ctx echo.Context) error {
	applicantID, err := h.readableApplicant(ctx)
	if err != nil {
		return err
	}

	entries, err := h.svc.Ledger(ctx.Request().Context(), applicantID)
	if err != nil {
		return errors.Wrap(err, "listing points")
	}
	return ctx.JSON(http.StatusOK, entries)
}

// readableApplicant returns the requested applicant ID if the user may read their evaluation.
// Assessors only read the evaluations of the applicants assigned to them.
func (h *evaluationApi) readableApplicant(ctx echo.Context) (string, error) {
	applicantID := core.CleanString(ctx.QueryParam("applicantId"))
	if applicantID == "" {
		return "", core.NewValidationError(nil, core.FieldError{Field: "applicantId", Error: "applicantId is required"})
	}

	usr, err := getContextUser(ctx, h.usrSvc)
	if err != nil {
		return "", err
	}
	if usr.IsAdmin() {
		return applicantID, nil
	}

	asr, err := h.asrSvc.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		if errors.Cause(err) == assessor.ErrNotFound {
			return "", errHttpForbidden
		}
		return "", errors.Wrap(err, "finding assessor profile")
	}
	if !asr.IsApproved {
		return "", assessor.ErrNotApproved
	}
	if _, err = h.applicantSvc.GetForAssessor(ctx.Request().Context(), asr.ID, applicantID); err != nil {
		return "", err
	}
	return applicantID, nil
}
