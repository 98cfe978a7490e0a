package user

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/studyplan/core"
)

var (
	// password policy
	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
	pwdBytesTag    = "pwdmaxbytes"
	pwdBytesText   = "{0} cannot be longer than 72 bytes"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	_ = validate.RegisterValidation(pwdBytesTag, passwordFitsHash)
	core.RegisterCustomTranslation(validate, translator, pwdBytesTag, pwdBytesText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// newUserStructValidation rejects passwords too similar to the user's name or email.
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok || nu.Password == "" {
		return
	}
	if passwordTooSimilar(nu.Password, nu.Name, nu.Email) {
		sl.ReportError(nu.Password, "password", "Password", pwdAttrSimTag, "")
	}
}

// passwordFitsHash reports whether the password is within bcrypt's input limit.
func passwordFitsHash(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= pwdMaxBytes
}

func passwordTooSimilar(pwd string, attrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return true
		}
	}
	return false
}
