package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/models"
)

// MockService реализует интерфейс list.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListReconciliations(ctx context.Context, userUID string, limit, offset int) ([]*models.Reconciliation, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reconciliation), args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	computedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		userUID        string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное чтение журнала",
			userUID: "user-1",
			url:     "/api/v1/reconciliations",
			setupMock: func(m *MockService) {
				m.On("ListReconciliations", mock.Anything, "user-1", 20, 0).Return([]*models.Reconciliation{
					{ID: 1, UserUID: "user-1", Tier: models.TierTrial, TrialKind: models.TrialKindInitial, DaysRemaining: 12, ComputedAt: computedAt},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"trial_kind":"initial"`,
		},
		{
			name:    "limit и offset читаются из query",
			userUID: "user-1",
			url:     "/api/v1/reconciliations?limit=5&offset=10",
			setupMock: func(m *MockService) {
				m.On("ListReconciliations", mock.Anything, "user-1", 5, 10).Return([]*models.Reconciliation{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:    "limit сверх максимума обрезается",
			userUID: "user-1",
			url:     "/api/v1/reconciliations?limit=1000",
			setupMock: func(m *MockService) {
				m.On("ListReconciliations", mock.Anything, "user-1", 100, 0).Return([]*models.Reconciliation{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:    "ошибка хранилища",
			userUID: "user-1",
			url:     "/api/v1/reconciliations",
			setupMock: func(m *MockService) {
				m.On("ListReconciliations", mock.Anything, "user-1", 20, 0).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not list reconciliations"`,
		},
		{
			name:           "запрос без идентификации пользователя",
			userUID:        "",
			url:            "/api/v1/reconciliations",
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

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
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
