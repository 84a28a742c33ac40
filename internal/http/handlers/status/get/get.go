// Package get реализует HTTP-обработчик для получения статуса подписки пользователя.
//
// Handler извлекает UID пользователя из контекста, запрашивает статус через сервис
// (с кешем) и возвращает его в JSON-формате. При недоступности данных о подписке
// сервис отдаёт фолбэк со свободным тарифом, поэтому ответ всегда 200.
package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/http/response"
	"github.com/platemate/entitlement-reconciler/internal/models"
)

// Handler обрабатывает запросы на получение статуса подписки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики статуса подписки
}

// Service описывает интерфейс бизнес-логики получения статуса.
type Service interface {
	Get(ctx context.Context, userUID string) models.SubscriptionStatus
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить статус подписки
// @Description Возвращает актуальный статус подписки текущего пользователя: тариф, триал, оставшиеся дни.
// @Tags Status
// @Produce  json
// @Success 200 {object} map[string]any "Статус подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.status.get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	status := h.service.Get(r.Context(), userUID)

	log.Info("success to get subscription status", slog.String("tier", string(status.Tier)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": status,
	}))
}
