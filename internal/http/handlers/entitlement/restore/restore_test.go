package restore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// MockService реализует интерфейс restore.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) RestorePurchases(ctx context.Context, userUID, receipt string) error {
	args := m.Called(ctx, userUID, receipt)
	return args.Error(0)
}

func TestRestoreHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное восстановление",
			userUID: "user-1",
			body:    `{"receipt":"cmVjZWlwdA=="}`,
			setupMock: func(m *MockService) {
				m.On("RestorePurchases", mock.Anything, "user-1", "cmVjZWlwdA==").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"restored":true`,
		},
		{
			name:           "пустой чек не проходит валидацию",
			userUID:        "user-1",
			body:           `{"receipt":""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Receipt is a required field`,
		},
		{
			name:    "провайдер недоступен",
			userUID: "user-1",
			body:    `{"receipt":"cmVjZWlwdA=="}`,
			setupMock: func(m *MockService) {
				m.On("RestorePurchases", mock.Anything, "user-1", "cmVjZWlwdA==").
					Return(revenuecat.ErrProviderUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"error":"billing provider unavailable"`,
		},
		{
			name:    "отмена восстановления пользователем не считается ошибкой",
			userUID: "user-1",
			body:    `{"receipt":"cmVjZWlwdA=="}`,
			setupMock: func(m *MockService) {
				m.On("RestorePurchases", mock.Anything, "user-1", "cmVjZWlwdA==").
					Return(fmt.Errorf("coordinator.RestorePurchases: %w", revenuecat.ErrPurchaseCancelled))
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"cancelled":true`,
		},
		{
			name:    "отказ оплаты возвращает признак retriable",
			userUID: "user-1",
			body:    `{"receipt":"cmVjZWlwdA=="}`,
			setupMock: func(m *MockService) {
				m.On("RestorePurchases", mock.Anything, "user-1", "cmVjZWlwdA==").
					Return(fmt.Errorf("coordinator.RestorePurchases: %w",
						&revenuecat.PurchaseError{Code: 7104, Message: "receipt already in use", Retriable: false}))
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `"retriable":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/entitlements/restore", strings.NewReader(tt.body))
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
