package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "bad input")))
	assert.Equal(t, CodeUnavailable, CodeOf(Wrap(CodeUnavailable, "down", errors.New("refused"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")), "unclassified errors are internal")

	wrapped := fmt.Errorf("handler: %w", New(CodeNotFound, "unknown assessment step"))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped), "codes survive wrapping")
}

func TestDescriptionOf(t *testing.T) {
	assert.Equal(t, "bad input", DescriptionOf(New(CodeBadRequest, "bad input")))
	assert.Empty(t, DescriptionOf(errors.New("plain")))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, "store down", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("made-up"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.code), string(tc.code))
	}
}
