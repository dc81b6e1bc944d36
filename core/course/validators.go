package course

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	categoryTag  = "category"
	categoryText = "invalid category"
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

// categoryValidation checks that the value is one of Categories.
func categoryValidation(fl validator.FieldLevel) bool {
	cat := fl.Field().String()
	idx := sort.SearchStrings(Categories, cat)
	return idx < len(Categories) && Categories[idx] == cat
}
