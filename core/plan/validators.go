package plan

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studyplan/core"
)

var (
	difficultyTag  = "difficulty"
	difficultyText = "{0} must be one of beginner, intermediate or advanced"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(difficultyTag, func(fl validator.FieldLevel) bool {
		return Difficulty(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)
}
