package resume

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"resumekit/internal/jsonresp"
)

// ErrInvalidResume marks a resume that failed schema validation
var ErrInvalidResume = errors.New("invalid resume")

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

// Validator returns the shared validator. Field names in messages are the JSON names.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Validate applies defaults and checks required fields
func (r *ParsedResume) Validate() error {
	r.ApplyDefaults()
	if err := Validator().Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResume, jsonresp.FormatValidation(err))
	}
	return nil
}
