package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/services/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type dashboardApi struct {
	applicantSvc *applicant.Service
	reporter     *spreadsheet.Reporter
}

func registerDashboardAPI(api *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	h := dashboardApi{applicantSvc: deps.ApplicantSvc, reporter: deps.Reporter}

	api.GET("/dashboard/stats", h.stats, jwt, adminMiddleware(deps.UserSvc))
	api.GET("/admin/reports/applicants", h.applicantsReport, jwt, adminMiddleware(deps.UserSvc))
}

func (h *dashboardApi) stats(ctx echo.Context) error {
	stats, err := h.applicantSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// applicantsReport downloads the applicants matching ?status=&assessor=&search= as an XLSX workbook.
func (h *dashboardApi) applicantsReport(ctx echo.Context) error {
	filter := applicant.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Status:     applicant.Status(ctx.QueryParam("status")),
		AssessorID: ctx.QueryParam("assessor"),
	}
	filter.Clean()

	buf := new(bytes.Buffer)
	if err := h.reporter.WriteApplicantsReport(ctx.Request().Context(), buf, filter); err != nil {
		return errors.Wrap(err, "writing applicants report")
	}

	filename := fmt.Sprintf("applicants-%s.xlsx", core.Now().Format("20060102"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
