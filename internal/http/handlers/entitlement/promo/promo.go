// Package promo реализует HTTP-обработчик выдачи промо-триала.
//
// Handler выдаёт пользователю промо-entitlement на стороне провайдера.
// Вызывается бэкендом онбординга при создании аккаунта.
package promo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/http/response"
	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// Handler управляет HTTP-запросами на выдачу промо-триала.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Координатор действий над подпиской
}

// Service описывает интерфейс выдачи промо-триала.
type Service interface {
	GrantPromotionalTrial(ctx context.Context, userUID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выдать промо-триал
// @Description Выдаёт пользователю промо-entitlement с триалом стандартной длины.
// @Tags Entitlements
// @Produce  json
// @Success 200 {object} map[string]any "Промо-триал выдан"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 503 {object} response.ErrorResponse "Биллинг-провайдер недоступен"
// @Security BearerAuth
// @Router /entitlements/promo [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.promo"
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

	if err := h.service.GrantPromotionalTrial(r.Context(), userUID); err != nil {
		if errors.Is(err, revenuecat.ErrProviderUnavailable) {
			log.Error("billing provider unavailable", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("billing provider unavailable"))
			return
		}
		log.Error("failed to grant promotional trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not grant promotional trial"))
		return
	}

	log.Info("success to grant promotional trial", sl.UID(userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"granted": true,
	}))
}
