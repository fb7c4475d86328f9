package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("amount must be positive"), KindValidation},
		{"not found", NotFound("issue %s not found", "abc"), KindNotFound},
		{"wrapped", fmt.Errorf("contribute: %w", Authentication("sign in first")), KindAuthentication},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("set status: %w", Conflict("issue changed concurrently"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindConflict, cause, "retry budget exhausted")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "retry budget exhausted: connection reset", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuthentication))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindAuthorization))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}

func TestFromValidator(t *testing.T) {
	type payload struct {
		Title string `validate:"required"`
		Email string `validate:"required,email"`
	}

	err := FromValidator(validator.New().Struct(payload{Email: "not-an-email"}))

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "Title is required")
	assert.Contains(t, err.Error(), "Email must be a valid email address")

	plain := errors.New("boom")
	assert.Same(t, plain, FromValidator(plain))
	assert.NoError(t, FromValidator(nil))
}
