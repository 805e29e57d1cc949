package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkarsten/gatehouse/internal/models"
	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
	if m.LoginFunc == nil {
		return nil, &models.InvalidCredentialsError{RemainingAttempts: 4}
	}
	return m.LoginFunc(ctx, identifier, password, originIP, userAgent)
}

// MockOTPService implements OTPServiceInterface for testing
type MockOTPService struct {
	GenerateFunc func(ctx context.Context, address string) error
	VerifyFunc   func(ctx context.Context, address, code string) error
}

func (m *MockOTPService) Generate(ctx context.Context, address string) error {
	if m.GenerateFunc == nil {
		return nil
	}
	return m.GenerateFunc(ctx, address)
}

func (m *MockOTPService) Verify(ctx context.Context, address, code string) error {
	if m.VerifyFunc == nil {
		return nil
	}
	return m.VerifyFunc(ctx, address, code)
}

// MockAlertReview implements AlertReviewInterface for testing
type MockAlertReview struct {
	ListByAccountFunc func(ctx context.Context, accountID string, limit int) ([]*models.SecurityAlert, error)
	UpdateStatusFunc  func(ctx context.Context, id, status string) error
	CountActiveFunc   func(ctx context.Context) (int64, error)
}

func (m *MockAlertReview) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.SecurityAlert, error) {
	if m.ListByAccountFunc == nil {
		return nil, nil
	}
	return m.ListByAccountFunc(ctx, accountID, limit)
}

func (m *MockAlertReview) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc == nil {
		return nil
	}
	return m.UpdateStatusFunc(ctx, id, status)
}

func (m *MockAlertReview) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc == nil {
		return 0, nil
	}
	return m.CountActiveFunc(ctx)
}
