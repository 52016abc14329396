package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/nulzo/model-catalog/pkg/schema"
)

var (
	validate  *validator.Validate
	trans     ut.Translator
	validOnce sync.Once
)

// Validator returns the shared validator engine, configured once with json tag
// names and English messages.
func Validator() *validator.Validate {
	validOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		en := en.New()
		uni := ut.New(en, en)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(validate, trans)
	})
	return validate
}

// ValidateProvider validates a provider before it is saved. Models are validated
// separately by ValidateModel.
func ValidateProvider(p *schema.Provider) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Credentials.APIKeys == nil {
		p.Credentials.APIKeys = []string{}
	}
	if p.Limits == nil {
		p.Limits = []schema.Limit{}
	}
	return structErrors(Validator().Struct(p))
}

// ValidateModel validates a model before it is saved. An empty name is filled
// in from the id.
func ValidateModel(m *schema.Model) error {
	m.ID = strings.TrimSpace(m.ID)
	if strings.TrimSpace(m.Name) == "" && m.ID != "" {
		m.Name = FormatModelName(m.ID)
	}
	// limits is omitempty on the wire
	if len(m.Limits) == 0 {
		m.Limits = nil
	}
	return structErrors(Validator().Struct(m))
}

// ParseValidationError converts raw validator output into field errors keyed by
// their json path, e.g. "pricing.input".
func ParseValidationError(err error) ValidationErrors {
	var out ValidationErrors

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ValidationErrors{{Field: "body", Message: "Invalid request body format"}}
	}

	for _, e := range validationErrors {
		ns := e.Namespace()
		if i := strings.Index(ns, "."); i != -1 {
			ns = ns[i+1:]
		}

		msg := e.Translate(trans)
		if e.Tag() == "http_url" {
			msg = e.Field() + " must be a valid http or https URL"
		}

		out = append(out, FieldError{Field: ns, Message: msg})
	}
	return out
}

func structErrors(err error) error {
	if err == nil {
		return nil
	}
	return ParseValidationError(err)
}
