// Package restore реализует HTTP-обработчик восстановления покупок.
//
// Handler принимает чек магазина и проводит его через координатор с признаком
// restore: провайдер привязывает прошлые транзакции чека к текущему пользователю.
package restore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/http/response"
	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/models"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// Handler управляет HTTP-запросами на восстановление покупок.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Координатор действий над подпиской
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс восстановления покупок.
type Service interface {
	RestorePurchases(ctx context.Context, userUID, receipt string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Восстановить покупки
// @Description Проводит чек магазина с признаком restore и сбрасывает кеш статуса.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body models.DummyRestore true "Чек магазина"
// @Success 200 {object} map[string]any "Покупки восстановлены либо восстановление отменено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Отказ оплаты с признаком retriable"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Биллинг-провайдер недоступен"
// @Security BearerAuth
// @Router /entitlements/restore [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.restore"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRestore
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.RestorePurchases(r.Context(), userUID, req.Receipt); err != nil {
		var purchaseErr *revenuecat.PurchaseError
		switch {
		case errors.Is(err, revenuecat.ErrPurchaseCancelled):
			log.Info("restore cancelled by user", sl.UID(userUID))
			render.JSON(w, r, response.StatusOKWithData(map[string]any{
				"restored":  false,
				"cancelled": true,
			}))
		case errors.Is(err, revenuecat.ErrProviderUnavailable):
			log.Error("billing provider unavailable", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("billing provider unavailable"))
		case errors.As(err, &purchaseErr):
			log.Error("provider rejected receipt", sl.Err(err))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.ErrorWithData("purchase failed", map[string]any{
				"retriable": purchaseErr.Retriable,
			}))
		default:
			log.Error("failed to restore purchases", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not restore purchases"))
		}
		return
	}

	log.Info("success to restore purchases", sl.UID(userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"restored": true,
	}))
}
