package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/internal/service"
	apperrors "github.com/DarshikR/Chat-App/pkg/errors"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, email, password, displayName string) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*service.LoginResponse, error)
}

func (s *stubAuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	return s.registerFn(ctx, email, password, displayName)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*service.LoginResponse, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) RefreshToken(ctx context.Context, refreshToken string) (*service.TokenResponse, error) {
	return nil, apperrors.ErrInvalidToken
}

func (s *stubAuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	return nil, apperrors.ErrInvalidToken
}

var _ service.AuthService = (*stubAuthService)(nil)

func authTestRouter(svc service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewAuthHandler(svc, logger.NewNop())

	router := gin.New()
	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/login", h.Login)
	return router
}

func TestRegisterFieldValidationErrorsAreBadRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{"invalid email", apperrors.NewAPIError("valid email is required", 400)},
		{"short password", apperrors.NewAPIError("password must be at least 8 characters", 400)},
		{"display name too long", apperrors.NewAPIError("display name is too long (max 100 characters)", 400)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubAuthService{
				registerFn: func(_ context.Context, _, _, _ string) (*domain.User, error) {
					return nil, tc.err
				},
			}

			body := bytes.NewBufferString(`{"email":"a@b.c","password":"longenough","display_name":"Someone"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			authTestRouter(svc).ServeHTTP(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestLoginInvalidCredentialsIsUnauthorized(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{
		loginFn: func(_ context.Context, _, _ string) (*service.LoginResponse, error) {
			return nil, apperrors.ErrInvalidCredentials
		},
	}

	body := bytes.NewBufferString(`{"email":"a@b.c","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	authTestRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
