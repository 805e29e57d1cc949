package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

func TestWriteInvalidCredentials(t *testing.T) {
	rec := httptest.NewRecorder()
	pkghttp.WriteInvalidCredentials(rec, 2)

	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_credentials", body.Error)
	if assert.NotNil(t, body.RemainingAttempts) {
		assert.Equal(t, 2, *body.RemainingAttempts)
	}
}

func TestWriteLocked(t *testing.T) {
	until := time.Now().Add(15 * time.Minute)
	rec := httptest.NewRecorder()
	pkghttp.WriteLocked(rec, until, 900)

	assert.Equal(t, 429, rec.Code)

	var body pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "account_locked", body.Error)
	assert.Equal(t, 900, body.RemainingTime)
	assert.Equal(t, until.UTC().Format(time.RFC3339), body.LockedUntil)
}

func TestWriteError_OmitsOptionalFields(t *testing.T) {
	rec := httptest.NewRecorder()
	pkghttp.WriteBadRequest(rec, "nope")

	assert.Equal(t, 400, rec.Code)
	assert.NotContains(t, rec.Body.String(), "remaining_attempts")
	assert.NotContains(t, rec.Body.String(), "locked_until")
}
