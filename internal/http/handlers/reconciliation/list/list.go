// Package list реализует HTTP-обработчик получения журнала сверок пользователя.
//
// Handler читает limit и offset из query-параметров и возвращает последние
// записи журнала от новых к старым.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/http/response"
	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler обрабатывает запросы на чтение журнала сверок.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Хранилище журнала сверок
}

// Service описывает интерфейс чтения журнала сверок.
type Service interface {
	ListReconciliations(ctx context.Context, userUID string, limit, offset int) ([]*models.Reconciliation, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить журнал сверок
// @Description Возвращает последние сверки статуса текущего пользователя, от новых к старым.
// @Tags Reconciliations
// @Produce  json
// @Param limit query int false "Максимум записей (по умолчанию 20, не более 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Журнал сверок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения журнала"
// @Security BearerAuth
// @Router /reconciliations [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconciliation.list"
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

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = min(v, maxLimit)
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}

	items, err := h.service.ListReconciliations(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list reconciliations", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list reconciliations"))
		return
	}

	log.Info("success to list reconciliations", slog.Int("count", len(items)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"reconciliations": items,
	}))
}
