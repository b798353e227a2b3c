package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/api/middleware"
	"github.com/angelmondragon/bakery-backend/internal/auth"
	"github.com/angelmondragon/bakery-backend/internal/users"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error)
	loginFn    func(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
	refreshFn  func(ctx context.Context, req auth.RefreshRequest) (*auth.AuthResponse, error)
	logoutFn   func(ctx context.Context, accessID string) error
	meFn       func(ctx context.Context, userID uuid.UUID) (*users.Profile, error)
	profileFn  func(ctx context.Context, userID uuid.UUID, req auth.ProfileRequest) (*users.Profile, error)
}

func (s stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return s.registerFn(ctx, req)
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return s.loginFn(ctx, req)
}

func (s stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.AuthResponse, error) {
	return s.refreshFn(ctx, req)
}

func (s stubAuthService) Logout(ctx context.Context, accessID string) error {
	return s.logoutFn(ctx, accessID)
}

func (s stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.Profile, error) {
	return s.meFn(ctx, userID)
}

func (s stubAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req auth.ProfileRequest) (*users.Profile, error) {
	return s.profileFn(ctx, userID, req)
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := stubAuthService{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
			require.Equal(t, "jo@example.com", req.Email)
			return &auth.AuthResponse{Token: "access", RefreshToken: "refresh", User: &users.Profile{Email: req.Email, Role: enums.UserRoleCustomer}}, nil
		},
	}
	body := `{"name":"Jo","email":"jo@example.com","password":"secret1"}`
	resp := httptest.NewRecorder()
	AuthRegister(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	var got auth.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "access", got.Token)
	require.Equal(t, "refresh", got.RefreshToken)
}

func TestAuthRegisterShortPassword(t *testing.T) {
	body := `{"name":"Jo","email":"jo@example.com","password":"abc"}`
	resp := httptest.NewRecorder()
	AuthRegister(stubAuthService{}, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	details := got["details"].(map[string]any)
	require.Equal(t, "must be at least 6", details["password"])
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := stubAuthService{
		loginFn: func(context.Context, auth.LoginRequest) (*auth.AuthResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		},
	}
	body := `{"email":"jo@example.com","password":"wrong"}`
	resp := httptest.NewRecorder()
	AuthLogin(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.JSONEq(t, `{"message":"invalid credentials","code":"UNAUTHORIZED"}`, resp.Body.String())
}

func TestAuthRefreshReadsBearerHeader(t *testing.T) {
	svc := stubAuthService{
		refreshFn: func(ctx context.Context, req auth.RefreshRequest) (*auth.AuthResponse, error) {
			require.Equal(t, "expired-access", req.AccessToken)
			require.Equal(t, "refresh-1", req.RefreshToken)
			return &auth.AuthResponse{Token: "new-access", RefreshToken: "refresh-2"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"refreshToken":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()
	AuthRefresh(svc, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRefreshRequiresAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"refreshToken":"refresh-1"}`))
	resp := httptest.NewRecorder()
	AuthRefresh(stubAuthService{}, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthLogoutUsesAccessID(t *testing.T) {
	var revoked string
	svc := stubAuthService{
		logoutFn: func(ctx context.Context, accessID string) error {
			revoked = accessID
			return nil
		},
	}
	req := authedRequest(http.MethodPost, "/api/auth/logout", nil, uuid.New(), enums.UserRoleCustomer)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "jti-7"))
	resp := httptest.NewRecorder()
	AuthLogout(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "jti-7", revoked)
}

func TestAuthMe(t *testing.T) {
	userID := uuid.New()
	svc := stubAuthService{
		meFn: func(ctx context.Context, id uuid.UUID) (*users.Profile, error) {
			require.Equal(t, userID, id)
			return &users.Profile{ID: id, Name: "Jo"}, nil
		},
	}
	resp := httptest.NewRecorder()
	AuthMe(svc, logger.Nop()).ServeHTTP(resp, authedRequest(http.MethodGet, "/api/auth/me", nil, userID, enums.UserRoleCustomer))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	AuthMe(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthUpdateProfile(t *testing.T) {
	svc := stubAuthService{
		profileFn: func(ctx context.Context, id uuid.UUID, req auth.ProfileRequest) (*users.Profile, error) {
			require.NotNil(t, req.Name)
			require.Nil(t, req.Email)
			return &users.Profile{ID: id, Name: *req.Name}, nil
		},
	}
	req := authedRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(`{"name":"Joanna"}`), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	AuthUpdateProfile(svc, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthHandlersWithoutService(t *testing.T) {
	resp := httptest.NewRecorder()
	AuthLogin(nil, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}
