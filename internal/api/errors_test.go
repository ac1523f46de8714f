package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/shelf-api/internal/api/shared"
	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/query"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"mutation over GET", query.ErrMutationNotAllowed, http.StatusMethodNotAllowed},
		{"deadline", query.ErrDeadlineExceeded, http.StatusGatewayTimeout},
		{"raw deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", query.ErrCanceled, http.StatusServiceUnavailable},
		{"syntax", &query.SyntaxError{Message: "unexpected }"}, http.StatusBadRequest},
		{"validation", domain.NewValidationError("name", "must not be blank", nil), http.StatusBadRequest},
		{"bad json", fmt.Errorf("%w: eof", shared.ErrInvalidJSON), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Invalid request format", GetSafeErrorMessage(fmt.Errorf("%w: eof", shared.ErrInvalidJSON)))
	assert.Equal(t, "Request timed out", GetSafeErrorMessage(query.ErrDeadlineExceeded))

	leaky := errors.New("pq: password authentication failed for user shelf")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(leaky))
}
