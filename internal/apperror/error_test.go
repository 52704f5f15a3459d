package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	fromBackend := FromStatus(http.StatusUnauthorized, "Token has expired")
	wrapped := fmt.Errorf("GET /api/leave/requests: %w", fromBackend)

	assert.True(t, IsUnauthenticated(fromBackend))
	assert.True(t, IsUnauthenticated(wrapped))
	assert.False(t, IsUnauthenticated(ErrInvalidCredentials))
	assert.False(t, IsUnauthenticated(errors.New("boom")))
}

func TestFromStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          CodeInvalidInput,
		http.StatusForbidden:           CodeForbidden,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusTooManyRequests:     CodeRateLimited,
		http.StatusBadGateway:          CodeServiceUnavailable,
		http.StatusInternalServerError: CodeInternalError,
	}
	for status, code := range cases {
		assert.Equal(t, code, FromStatus(status, "").Code, "status %d", status)
	}
	assert.Equal(t, "Not Found", FromStatus(http.StatusNotFound, "").Message)
}

func TestMessageAndStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeRejected, "Face not recognized", http.StatusUnprocessableEntity))
	assert.Equal(t, "Face not recognized", Message(err, "fallback"))
	assert.Equal(t, http.StatusUnprocessableEntity, Status(err))

	assert.Equal(t, "fallback", Message(errors.New("dial tcp: refused"), "fallback"))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("x")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternalError, "x", 500))

	cause := errors.New("connection reset")
	err := Wrap(cause, CodeServiceUnavailable, "backend down", 503)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "backend down: connection reset", err.Error())
}

func TestMapValidationError(t *testing.T) {
	type form struct {
		StartDate string `form:"start_date" validate:"required"`
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string { return "start_date" })
	err := v.Struct(form{})

	mapped := MapValidationError(err)
	assert.Equal(t, CodeInvalidInput, mapped.Code)
	assert.Equal(t, "Start Date is required", mapped.Message)

	assert.Equal(t, ErrInvalidInput, MapValidationError(errors.New("EOF")))
}
