package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/lib/jwt"
)

// Мок парсера токенов
type ParserMock struct {
	mock.Mock
}

func (m *ParserMock) ParseToken(tokenStr string) (*jwt.CustomClaims, error) {
	args := m.Called(tokenStr)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)
	validToken, err := maker.GenerateToken("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "отсутствует заголовок Authorization",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "неверный префикс заголовка",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "невалидный токен",
			authHeader:     "Bearer invalid.token.here",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "валидный токен",
			authHeader:     "Bearer " + validToken,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				userUID := r.Context().Value(middlewarectx.UserUID)
				assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", userUID)
				w.WriteHeader(http.StatusOK)
			})

			mw := middlewarectx.JWTMiddleware(maker, newNoopLogger())(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
		})
	}
}

func TestJWTMiddleware_ParserError(t *testing.T) {
	parser := new(ParserMock)
	parser.On("ParseToken", "sometoken").Return(nil, assert.AnError)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := middlewarectx.JWTMiddleware(parser, newNoopLogger())(nextHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	parser.AssertExpectations(t)
}
