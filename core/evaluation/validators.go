package evaluation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
)

const (
	categoryTag  = "category"
	categoryText = "must be one of educationalQualification, workExperience, professionalAchievements, interview"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}
