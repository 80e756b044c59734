package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/user"
)

const (
	contextAssessorKey  = "assessor"
	contextApplicantKey = "applicant"
)

// roleMiddleware loads the authenticated user and lets the request through when allowed passes.
// Deleted users get a 401 and deactivated ones a 403, whatever their token says.
func roleMiddleware(usrSvc *user.Service, allowed func(user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return err
			}
			if allowed(usr) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// activeUserMiddleware only requires an existing, active user.
func activeUserMiddleware(usrSvc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(usrSvc, func(user.User) bool { return true })
}

func adminMiddleware(usrSvc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(usrSvc, func(u user.User) bool { return u.IsAdmin() })
}

func staffMiddleware(usrSvc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(usrSvc, func(u user.User) bool { return u.IsAdmin() || u.IsAssessor() })
}

// assessorMiddleware loads the approved assessor profile of the authenticated user.
func assessorMiddleware(usrSvc *user.Service, svc *assessor.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return err
			}
			if !usr.IsAssessor() {
				return errHttpForbidden
			}
			asr, err := svc.GetByUserID(ctx.Request().Context(), usr.ID)
			if err != nil {
				if errors.Cause(err) == assessor.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "finding assessor profile")
			}
			if !asr.IsApproved {
				return assessor.ErrNotApproved
			}
			ctx.Set(contextAssessorKey, asr)
			return next(ctx)
		}
	}
}

// applicantMiddleware loads the application of the authenticated user.
func applicantMiddleware(usrSvc *user.Service, svc *applicant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return err
			}
			if !usr.IsApplicant() {
				return errHttpForbidden
			}
			a, err := svc.GetByUserID(ctx.Request().Context(), usr.ID)
			if err != nil {
				if errors.Cause(err) == applicant.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "finding application")
			}
			ctx.Set(contextApplicantKey, a)
			return next(ctx)
		}
	}
}

func contextAssessor(ctx echo.Context) assessor.Assessor {
	asr, _ := ctx.Get(contextAssessorKey).(assessor.Assessor)
	return asr
}

func contextApplicant(ctx echo.Context) applicant.Applicant {
	a, _ := ctx.Get(contextApplicantKey).(applicant.Applicant)
	return a
}
