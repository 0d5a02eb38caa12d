package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

const notBlankTag = "notblank"

// requestValidator проверяет тела запросов по тегам validate
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var _ echo.Validator = (*requestValidator)(nil)

func newRequestValidator() *requestValidator {
	v := validator.New()

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(v, trans)

	// В ошибках - имена полей из json
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterTranslation(notBlankTag, trans,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "this field cannot be blank" },
	)

	return &requestValidator{validate: v, translator: trans}
}

func (rv *requestValidator) Validate(i any) error {
	return rv.validate.Struct(i)
}

// fieldErrors переводит ошибки валидации в map поле -> сообщение
func (rv *requestValidator) fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(rv.translator)
	}
	return out
}
