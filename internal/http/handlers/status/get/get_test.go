package get

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/models"
)

// MockService реализует интерфейс get.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, userUID string) models.SubscriptionStatus {
	args := m.Called(ctx, userUID)
	return args.Get(0).(models.SubscriptionStatus)
}

func TestGetHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное получение статуса триала",
			userUID: "user-1",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "user-1").Return(models.SubscriptionStatus{
					Tier:             models.TierTrial,
					IsInTrial:        true,
					TrialKind:        models.TrialKindInitial,
					DaysRemaining:    12,
					HasPremiumAccess: true,
				})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier":"trial"`,
		},
		{
			name:    "недоступный провайдер отдаёт фолбэк free",
			userUID: "user-2",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "user-2").Return(models.FreeStatus())
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier":"free"`,
		},
		{
			name:           "запрос без идентификации пользователя",
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
