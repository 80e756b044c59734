package echoapi

import (
	"fmt"
	"mime/multipart"
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

type applicantApi struct {
	svc      *applicant.Service
	usrSvc   *user.Service
	asrSvc   *assessor.Service
	evalSvc  *evaluation.Service
	validate *validator.Validate
}

func registerApplicantAPI(api *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	h := applicantApi{
		svc:      deps.ApplicantSvc,
		usrSvc:   deps.UserSvc,
		asrSvc:   deps.AssessorSvc,
		evalSvc:  deps.EvaluationSvc,
		validate: deps.Validate,
	}
	isApplicant := applicantMiddleware(deps.UserSvc, deps.ApplicantSvc)

	api.POST("/register", h.register)

	// applicant portal
	api.PUT("/update-personal-info", h.updatePersonalInfo, jwt, isApplicant)
	api.POST("/submit-documents", h.submitDocuments, jwt, isApplicant)
	api.GET("/portfolio", h.portfolio, jwt, isApplicant)
	api.GET("/progress", h.progress, jwt, isApplicant)
	api.GET("/result", h.result, jwt, isApplicant)

	active := activeUserMiddleware(deps.UserSvc)
	api.GET("/profile/:id", h.profile, jwt, active)
	api.GET("/documents/:id", h.document, jwt, active)

	ag := api.Group("/admin/applicants", jwt, adminMiddleware(deps.UserSvc))
	ag.GET("", h.query)
	ag.GET("/search", h.search)
	ag.GET("/:id", h.retrieve)
	ag.POST("/:id/approve", h.approve)
	ag.POST("/:id/reject", h.reject)
	ag.PUT("/:id/status", h.setStatus)
	ag.POST("/:id/assign-assessor", h.assignAssessor)
}

// ApplicantDetail is an applicant as seen by admins, with their evaluation once started.
type ApplicantDetail struct {
	applicant.Applicant
	Evaluation *evaluation.Evaluation `json:"evaluation,omitempty"`
}

func (h *applicantApi) register(ctx echo.Context) error {
	var data applicant.NewApplicant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplicant")
	}
	if err := data.Validate(ctx.Request().Context(), h.validate, h.svc); err != nil {
		return err
	}

	a, err := h.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (h *applicantApi) updatePersonalInfo(ctx echo.Context) error {
	var data applicant.PersonalInfo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PersonalInfo")
	}
	if err := data.Validate(h.validate); err != nil {
		return err
	}

	a, err := h.svc.UpdatePersonalInfo(ctx.Request().Context(), contextApplicant(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (h *applicantApi) submitDocuments(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "a multipart form is required"})
	}

	data := applicant.DocumentsForm{Label: applicant.DocumentLabel(core.CleanString(ctx.FormValue("label"), true /* lower */))}
	if err = h.validate.Struct(data); err != nil {
		return err
	}

	uploads := make([]applicant.Upload, 0, len(form.File["files"]))
	files := make([]multipart.File, 0, len(form.File["files"]))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s", fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, applicant.Upload{
			Filename:    fh.Filename,
			Label:       data.Label,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		})
	}

	docs, err := h.svc.SubmitDocuments(ctx.Request().Context(), contextApplicant(ctx).ID, uploads)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, docs)
}

func (h *applicantApi) portfolio(ctx echo.Context) error {
	sections, err := h.svc.Portfolio(ctx.Request().Context(), contextApplicant(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (h *applicantApi) progress(ctx echo.Context) error {
	p, err := h.svc.Progress(ctx.Request().Context(), contextApplicant(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (h *applicantApi) result(ctx echo.Context) error {
	res, err := h.evalSvc.Result(ctx.Request().Context(), contextApplicant(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// profile is visible to the applicant themselves and to admins.
func (h *applicantApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, h.usrSvc)
	if err != nil {
		return err
	}

	a, err := h.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && a.UserID != usr.ID {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, a)
}

// document streams a document to its owner, to the assessor of the owner, or to admins.
func (h *applicantApi) document(ctx echo.Context) error {
	usr, err := getContextUser(ctx, h.usrSvc)
	if err != nil {
		return err
	}

	doc, err := h.svc.GetDocument(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !usr.IsAdmin() {
		a, err := h.svc.GetByID(ctx.Request().Context(), doc.ApplicantID)
		if err != nil {
			return err
		}
		if err = h.canSeeDocumentsOf(ctx, usr, a); err != nil {
			return err
		}
	}

	doc, content, err := h.svc.OpenDocument(ctx.Request().Context(), doc.ID)
	if err != nil {
		return err
	}
	defer content.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", doc.Filename))
	return ctx.Stream(http.StatusOK, doc.ContentType, content)
}

func (h *applicantApi) canSeeDocumentsOf(ctx echo.Context, usr user.User, a applicant.Applicant) error {
	if a.UserID == usr.ID {
		return nil
	}
	if usr.IsAssessor() && a.HasAssessor() {
		asr, err := h.asrSvc.GetByUserID(ctx.Request().Context(), usr.ID)
		if err != nil && errors.Cause(err) != assessor.ErrNotFound {
			return errors.Wrap(err, "finding assessor profile")
		}
		if err == nil && asr.ID == a.AssessorID {
			return nil
		}
	}
	return errHttpForbidden
}

func (h *applicantApi) query(ctx echo.Context) error {
	filter := applicant.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Status:     applicant.Status(ctx.QueryParam("status")),
		AssessorID: ctx.QueryParam("assessor"),
	}
	filter.Clean()
	if filter.Status != "" && !filter.Status.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status"})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	applicants, err := h.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applicants")
	}
	return ctx.JSON(http.StatusOK, applicants)
}

func (h *applicantApi) search(ctx echo.Context) error {
	applicants, err := h.svc.Search(ctx.Request().Context(), ctx.QueryParam("term"))
	if err != nil {
		return errors.Wrap(err, "searching applicants")
	}
	return ctx.JSON(http.StatusOK, applicants)
}

func (h *applicantApi) retrieve(ctx echo.Context) error {
	a, err := h.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	detail := ApplicantDetail{Applicant: a}
	ev, err := h.evalSvc.GetByApplicant(ctx.Request().Context(), a.ID)
	switch {
	case err == nil:
		detail.Evaluation = &ev
	case errors.Cause(err) != evaluation.ErrNotFound:
		return errors.Wrap(err, "finding evaluation")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (h *applicantApi) approve(ctx echo.Context) error {
	a, err := h.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (h *applicantApi) reject(ctx echo.Context) error {
	var data applicant.Rejection
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	a, err := h.svc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (h *applicantApi) setStatus(ctx echo.Context) error {
	var data applicant.StatusChange
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	a, err := h.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (h *applicantApi) assignAssessor(ctx echo.Context) error {
	var data applicant.Assignment
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	a, err := h.svc.AssignAssessor(ctx.Request().Context(), ctx.Param("id"), data.AssessorID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}
