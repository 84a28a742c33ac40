// Package extend реализует HTTP-обработчик продления триала.
//
// Handler принимает чек магазина, валидирует его и запускает через координатор
// настройку продления: подбор месячного пакета и проведение чека у провайдера.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package extend

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
	"github.com/platemate/entitlement-reconciler/internal/services/coordinator"
)

// Handler управляет HTTP-запросами на продление триала.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Координатор действий над подпиской
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс продления триала.
type Service interface {
	RequestTrialExtension(ctx context.Context, userUID, receipt string) error
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
// @Summary Продлить триал
// @Description Подбирает месячный пакет из текущих предложений и проводит чек, включая автопродление.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body models.DummyExtend true "Чек магазина"
// @Success 200 {object} map[string]any "Продление оформлено либо отменено пользователем"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Отказ оплаты с признаком retriable"
// @Failure 404 {object} response.ErrorResponse "Продукт недоступен для покупки"
// @Failure 409 {object} response.ErrorResponse "Продление уже использовано"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Биллинг-провайдер недоступен"
// @Security BearerAuth
// @Router /entitlements/extend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.extend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyExtend
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

	if err := h.service.RequestTrialExtension(r.Context(), userUID, req.Receipt); err != nil {
		var purchaseErr *revenuecat.PurchaseError
		switch {
		case errors.Is(err, revenuecat.ErrPurchaseCancelled):
			log.Info("trial extension cancelled by user", sl.UID(userUID))
			render.JSON(w, r, response.StatusOKWithData(map[string]any{
				"extended":  false,
				"cancelled": true,
			}))
		case errors.Is(err, coordinator.ErrExtensionAlreadyUsed):
			log.Info("trial extension already used", sl.UID(userUID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("trial extension already used"))
		case errors.Is(err, revenuecat.ErrProductNotFound):
			log.Error("monthly product not available", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("product not available"))
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
			log.Error("failed to extend trial", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not extend trial"))
		}
		return
	}

	log.Info("success to extend trial", sl.UID(userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"extended": true,
	}))
}
