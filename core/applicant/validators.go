package applicant

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/user"
)

var (
	statusTag  = "applicantstatus"
	statusText = "unknown applicant status"
	labelTag   = "documentlabel"
	labelText  = "must be one of initial-submission, resume, training, awards, interview, others"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(labelTag, func(fl validator.FieldLevel) bool {
		return DocumentLabel(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, labelTag, labelText)

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		na := sl.Current().Interface().(NewApplicant)
		user.ValidatePassword(na.Password, sl, na.Email)
	}, NewApplicant{})
}
