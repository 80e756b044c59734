package assessor

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/user"
)

var (
	expertiseTag  = "expertise"
	expertiseText = "unknown expertise"

	assessorTypeTag  = "assessortype"
	assessorTypeText = "assessor type must be internal or external"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(expertiseTag, func(fl validator.FieldLevel) bool {
		return Expertise(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, expertiseTag, expertiseText)

	_ = validate.RegisterValidation(assessorTypeTag, func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, assessorTypeTag, assessorTypeText)

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		na := sl.Current().Interface().(NewAssessor)
		user.ValidatePassword(na.Password, sl, na.FullName, na.Email)
	}, NewAssessor{})
}
