package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/platemate/entitlement-reconciler/internal/http/response"
)

// AccessChecker определяет интерфейс проверки премиум-доступа пользователя.
type AccessChecker interface {
	HasPremiumAccess(ctx context.Context, userUID string) bool
}

// PremiumAccessMiddleware создает middleware, пропускающий только
// пользователей с активным премиум-доступом. При недоступности данных
// о подписке доступ закрывается.
func PremiumAccessMiddleware(log *slog.Logger, checker AccessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			if !checker.HasPremiumAccess(r.Context(), userUID) {
				w.WriteHeader(http.StatusPaymentRequired)
				render.JSON(w, r, response.Error("premium subscription required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
