package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"img-thumbs/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad exp", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: garbage", domain.ErrDecode), http.StatusBadRequest},
		{fmt.Errorf("%w: webp", domain.ErrEncode), http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrPermissionDenied), http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConfiguration, http.StatusUnprocessableEntity},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	zlog.Init()

	rec := httptest.NewRecorder()
	Error(rec, &zlog.Logger, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Message)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestErrorUnauthorizedChallenges(t *testing.T) {
	zlog.Init()

	rec := httptest.NewRecorder()
	Error(rec, &zlog.Logger, domain.ErrUnauthenticated)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}
