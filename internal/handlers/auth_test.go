package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarsten/gatehouse/internal/handlers"
	"github.com/mkarsten/gatehouse/internal/models"
)

func TestLoginHandler_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			return &models.SessionGrant{
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
				AccountID:    "acct-1",
				Email:        "user@example.com",
				Username:     "user",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
		Password:   "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)
	assert.Equal(t, "acct-1", resp.User.ID)
	assert.Nil(t, resp.SecurityAlert)
}

func TestLoginHandler_SuccessWithOriginAdvisory(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			return &models.SessionGrant{
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
				AccountID:    "acct-1",
				Email:        "user@example.com",
				Username:     "user",
				OriginAdvisory: &models.OriginChange{
					PreviousIP:        "198.51.100.7",
					PreviousUserAgent: "OldBrowser/1.0",
				},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
		Password:   "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.NotNil(t, resp.SecurityAlert)
	assert.Equal(t, models.AlertUnusualLogin, resp.SecurityAlert.Type)
	assert.Equal(t, "198.51.100.7", resp.SecurityAlert.PreviousIP)
}

func TestLoginHandler_InvalidCredentialsCarriesRemaining(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: 2}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
		Password:   "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 401, "invalid_credentials")
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 2, *resp.RemainingAttempts)
}

func TestLoginHandler_LockedCarriesExpiry(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			return nil, &models.LockedError{Until: until}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
		Password:   "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 429, "account_locked")
	assert.NotEmpty(t, resp.LockedUntil)
	assert.InDelta(t, 600, resp.RemainingTime, 2)
}

func TestLoginHandler_PersistenceFailureIsGeneric(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			return nil, models.ErrInternalServer
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
		Password:   "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 500, "internal_error")
}

func TestLoginHandler_MissingFieldsRejected(t *testing.T) {
	called := false
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
			called = true
			return nil, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier: "user@example.com",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.False(t, called, "malformed input must not reach the service")
}

func TestLoginHandler_MalformedBodyRejected(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", nil)

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestLoginHandler_ShortCaptchaTokenRejected(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Identifier:   "user@example.com",
		Password:     "password123",
		CaptchaToken: "short",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
