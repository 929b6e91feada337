package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"GreenCampusServer/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrSelfTarget, http.StatusBadRequest, "self_target"},
		{domain.ErrInvalidKind, http.StatusBadRequest, "invalid_kind"},
		{domain.ErrEmptyContent, http.StatusBadRequest, "empty_content"},
		{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("lookup: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{domain.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
		{fmt.Errorf("%w: serialization failure", domain.ErrConflict), http.StatusConflict, "conflict"},
		{domain.ErrStudentIDTaken, http.StatusConflict, "student_id_taken"},
		{domain.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrUserDisabled, http.StatusForbidden, "user_disabled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteDomainError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, "err=%v", tc.err)
		assert.Equal(t, tc.code, errorCode(t, rr), "err=%v", tc.err)
		assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	}
}

func TestWriteDomainErrorIncludesValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDomainError(rr, domain.NewValidationError(map[string]string{"batch": "unknown batch"}))

	var env errorEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, map[string]string{"batch": "unknown batch"}, env.Error.Fields)
}
