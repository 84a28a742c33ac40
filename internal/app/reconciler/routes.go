// Package reconciler предоставляет маршруты для основного приложения.
package reconciler

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/platemate/entitlement-reconciler/internal/http/handlers/entitlement/extend"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/entitlement/promo"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/entitlement/purchase"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/entitlement/restore"
	productlist "github.com/platemate/entitlement-reconciler/internal/http/handlers/product/list"
	reconciliationlist "github.com/platemate/entitlement-reconciler/internal/http/handlers/reconciliation/list"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/status/get"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/status/health"
	"github.com/platemate/entitlement-reconciler/internal/http/handlers/status/refresh"
	"github.com/platemate/entitlement-reconciler/internal/http/middlewarectx"
	"github.com/platemate/entitlement-reconciler/internal/lib/jwt"
	"github.com/platemate/entitlement-reconciler/internal/services/coordinator"
	"github.com/platemate/entitlement-reconciler/internal/services/products"
	"github.com/platemate/entitlement-reconciler/internal/services/status"
	"github.com/platemate/entitlement-reconciler/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, tokenMaker jwt.Maker,
	statusService *status.StatusService, coordinatorService *coordinator.Coordinator,
	productsService *products.Service, db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(10), 20)

	r.Route("/api/v1", func(r chi.Router) {
		// Liveness-проверка без аутентификации
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokenMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Get("/status", get.New(logger, statusService).ServeHTTP)
			r.Post("/status/refresh", refresh.New(logger, statusService).ServeHTTP)
			r.Post("/entitlements/extend", extend.New(logger, coordinatorService).ServeHTTP)
			r.Post("/entitlements/purchase", purchase.New(logger, coordinatorService).ServeHTTP)
			r.Post("/entitlements/restore", restore.New(logger, coordinatorService).ServeHTTP)
			r.Post("/entitlements/promo", promo.New(logger, coordinatorService).ServeHTTP)
			r.Get("/products", productlist.New(logger, productsService).ServeHTTP)

			// История сверок доступна только подписчикам
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumAccessMiddleware(logger, statusService))
				r.Get("/reconciliations", reconciliationlist.New(logger, db).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
