package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/laudo/internal/report/domain"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(field.Name)
		}
		return name
	})
	_ = v.RegisterValidation("report_section", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseSection(fl.Field().String())
		return err == nil
	})
	return v
}

// validationError reports the first failing field, addressed the way the
// request body names it (client.tax_id, photos[0].section).
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return &domain.ValidationError{Field: field, Code: fe.Tag()}
}
