package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/services/spreadsheet"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(api *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	h := courseApi{svc: deps.CourseSvc, validate: deps.Validate}
	admin := adminMiddleware(deps.UserSvc)

	cg := api.Group("/courses", jwt, activeUserMiddleware(deps.UserSvc))
	cg.GET("", h.query)
	cg.GET("/:id", h.retrieve)
	cg.POST("", h.create, admin)
	cg.POST("/import", h.importCourses, admin)
	cg.PUT("/:id", h.update, admin)
	cg.DELETE("/:id", h.destroy, admin)

	sg := api.Group("/students", jwt, admin)
	sg.GET("", h.queryStudents)
	sg.POST("", h.createStudent)
	sg.GET("/:id", h.retrieveStudent)
	sg.PUT("/:id", h.updateStudent)
	sg.DELETE("/:id", h.destroyStudent)
}

// Courses

func (h *courseApi) query(ctx echo.Context) error {
	filter := course.QueryFilter{
		Search: ctx.QueryParam("search"),
		Status: course.Status(ctx.QueryParam("status")),
	}
	filter.Clean()

	courses, err := h.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (h *courseApi) retrieve(ctx echo.Context) error {
	c, err := h.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (h *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	c, err := h.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (h *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	c, err := h.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (h *courseApi) destroy(ctx echo.Context) error {
	if err := h.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importCourses creates courses from the rows of an uploaded .xls or .xlsx sheet (multipart field "file").
func (h *courseApi) importCourses(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a spreadsheet file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", fh.Filename)
	}
	defer f.Close()

	rows, err := spreadsheet.ReadRows(f, fh.Filename)
	if err != nil {
		return err
	}
	report, err := h.svc.ImportCourses(ctx.Request().Context(), rows)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

// Students

func (h *courseApi) queryStudents(ctx echo.Context) error {
	filter := course.StudentFilter{
		Search:   ctx.QueryParam("search"),
		CourseID: ctx.QueryParam("course"),
		Status:   course.StudentStatus(ctx.QueryParam("status")),
	}
	filter.Clean()

	students, err := h.svc.QueryStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (h *courseApi) retrieveStudent(ctx echo.Context) error {
	s, err := h.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (h *courseApi) createStudent(ctx echo.Context) error {
	var data course.NewStudent
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	s, err := h.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (h *courseApi) updateStudent(ctx echo.Context) error {
	var data course.UpdateStudent
	if err := bindAndValidate(ctx, h.validate, &data); err != nil {
		return err
	}

	s, err := h.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (h *courseApi) destroyStudent(ctx echo.Context) error {
	if err := h.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
