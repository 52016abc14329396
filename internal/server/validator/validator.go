// Package validator plugs the catalog's validation rules into gin binding.
package validator

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/nulzo/model-catalog/internal/core/domain"
)

var once sync.Once

// engine validates bound request bodies with the shared domain validator, so
// request errors carry the same json field names as service errors.
type engine struct{}

func (engine) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := domain.Validator().Struct(obj); err != nil {
		return domain.ParseValidationError(err)
	}
	return nil
}

func (engine) Engine() any {
	return domain.Validator()
}

// InitValidator replaces gin's default binding validator.
func InitValidator() {
	once.Do(func() {
		binding.Validator = engine{}
	})
}

// BindingProblem converts a bind failure into a problem response.
func BindingProblem(err error) *domain.Problem {
	if verrs, ok := err.(domain.ValidationErrors); ok {
		return domain.ValidationProblem(verrs)
	}
	return domain.BadRequestError("Invalid request body format. Please fix your payload.",
		domain.WithExtension("errors", map[string]string{"body": err.Error()}))
}
