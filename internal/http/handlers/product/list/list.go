// Package list реализует HTTP-обработчик получения каталога продуктов.
//
// Handler возвращает доступные подписочные продукты и справку о длительности
// триалов для экрана покупки.
package list

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

// Handler обрабатывает запросы на получение каталога продуктов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис каталога продуктов
}

// Service описывает интерфейс каталога продуктов.
type Service interface {
	List(ctx context.Context, userUID string) ([]models.Product, models.TrialInfo)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить каталог продуктов
// @Description Возвращает подписочные продукты, доступные пользователю, и справку о триалах.
// @Tags Products
// @Produce  json
// @Success 200 {object} map[string]any "Каталог продуктов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.list"
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

	catalog, trialInfo := h.service.List(r.Context(), userUID)

	log.Info("success to list products", slog.Int("count", len(catalog)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"products":   catalog,
		"trial_info": trialInfo,
	}))
}
