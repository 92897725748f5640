package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	err := NotFound("Product", "abc-123")

	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "Product not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "abc-123")
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("Name, description, and size are required")

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "Name, description, and size are required", err.Message)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnauthorizedAndForbidden(t *testing.T) {
	unauth := Unauthorized("Unauthorized: No token provided")
	assert.Equal(t, http.StatusUnauthorized, unauth.Status)
	assert.ErrorIs(t, unauth, ErrUnauthorized)

	forbidden := Forbidden("Forbidden: Admin access required")
	assert.Equal(t, http.StatusForbidden, forbidden.Status)
	assert.ErrorIs(t, forbidden, ErrForbidden)
}

func TestInternal(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(NotFound("Product", "abc"), "get product for delete")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get product for delete")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("Product", "x"), http.StatusNotFound},
		{fmt.Errorf("outer: %w", NotFound("Product", "x")), http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err))
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("row scan failed")
	err := &AppError{Code: "X", Message: "m", Status: 500, Err: cause}

	require.ErrorIs(t, err, cause)
}
