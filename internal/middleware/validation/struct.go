// internal/middleware/validation/struct.go
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Hata mesajlarında json alan adlarını kullan
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// ValidateStruct DTO'yu validate tag'lerine göre kontrol eder. İlk hatalı alan
// ValidationError olarak döner.
func ValidateStruct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("", nil, "geçersiz istek: %v", err)
	}

	fe := fieldErrs[0]
	return apperrors.NewValidationError(fe.Field(), fe.Value(), "%s", messageFor(fe))
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s alanı zorunlu", fe.Field())
	case "max":
		return fmt.Sprintf("%s en fazla %s olabilir", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s en az %s olmalı", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s şunlardan biri olmalı: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s geçersiz (%s)", fe.Field(), fe.Tag())
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
