// Package refresh реализует HTTP-обработчик принудительной сверки статуса.
//
// Handler сбрасывает закешированный статус и выполняет сверку с биллинг-провайдером
// заново. Используется клиентом после покупки или восстановления на устройстве.
package refresh

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

// Handler обрабатывает запросы на принудительное обновление статуса.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики статуса подписки
}

// Service описывает интерфейс принудительной сверки статуса.
type Service interface {
	Refresh(ctx context.Context, userUID string) models.SubscriptionStatus
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Принудительно обновить статус подписки
// @Description Сбрасывает кеш и заново сверяет статус с биллинг-провайдером.
// @Tags Status
// @Produce  json
// @Success 200 {object} map[string]any "Обновленный статус подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /status/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.status.refresh"
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

	status := h.service.Refresh(r.Context(), userUID)

	log.Info("success to refresh subscription status", slog.String("tier", string(status.Tier)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": status,
	}))
}
