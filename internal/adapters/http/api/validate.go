package api

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"golang.org/x/text/language"
)

var (
	signaturePattern = regexp.MustCompile(`^[A-Z]{3}-[0-9]{3}$`)
	typePattern      = regexp.MustCompile(`^[A-Z][0-9]{3}$`)
)

// customMessages holds the translations of the wormhole-specific tags.
var customMessages = map[string]map[string]string{
	"en": {
		"signature": "{0} must look like ABC-123",
		"whtype":    "{0} must be a wormhole type code such as K162",
	},
	"zh": {
		"signature": "{0}必须形如ABC-123",
		"whtype":    "{0}必须是虫洞类型代码，例如K162",
	},
}

// requestValidator validates request bodies and renders the failures in
// the caller's language.
type requestValidator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("signature", func(fl validator.FieldLevel) bool {
		return signaturePattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	_ = v.RegisterValidation("whtype", func(fl validator.FieldLevel) bool {
		return typePattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())
	enTrans, _ := uni.GetTranslator("en")
	zhTrans, _ := uni.GetTranslator("zh")
	_ = en_translations.RegisterDefaultTranslations(v, enTrans)
	_ = zh_translations.RegisterDefaultTranslations(v, zhTrans)

	for locale, msgs := range customMessages {
		trans, _ := uni.GetTranslator(locale)
		for tag, msg := range msgs {
			registerTranslation(v, trans, tag, msg)
		}
	}

	return &requestValidator{validate: v, uni: uni}
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, msg string) {
	_ = v.RegisterTranslation(tag, trans, func(t ut.Translator) error {
		return t.Add(tag, msg, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		s, err := t.T(fe.Tag(), fe.Field())
		if err != nil {
			return fe.Error()
		}
		return s
	})
}

// Struct validates s and returns one error listing every failed field in
// the language of tag.
func (rv *requestValidator) Struct(tag language.Tag, s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	base, _ := tag.Base()
	trans, found := rv.uni.GetTranslator(base.String())
	if !found {
		trans = rv.uni.GetFallback()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(trans))
	}
	return errors.New(strings.Join(msgs, "; "))
}
