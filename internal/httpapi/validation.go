package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"GreenCampusServer/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct tag validation and reports failures as a
// domain validation error keyed by JSON field name.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return domain.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be an email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a uuid"
	default:
		return "invalid"
	}
}

// decodeRequest decodes a strict JSON body into dst and validates it. It
// writes the error response itself and reports whether the handler
// should continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return false
	}
	if err := validateRequest(dst); err != nil {
		WriteDomainError(w, err)
		return false
	}
	return true
}

// pathID returns the {id} path segment in canonical form. Anything that is
// not a UUID cannot name a row, so it answers 404.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	if raw == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return "", false
	}
	id, ok := domain.NormalizeID(raw)
	if !ok {
		WriteDomainError(w, domain.ErrNotFound)
		return "", false
	}
	return id, true
}
