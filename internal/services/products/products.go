// Package products отдаёт каталог подписочных продуктов для экрана покупки.
//
// Каталог статический, но доступность продуктов сверяется с текущими
// предложениями биллинг-провайдера: продукт, выпавший из offering'а,
// не показывается клиенту.
package products

import (
	"context"
	"log/slog"

	"github.com/platemate/entitlement-reconciler/internal/config"
	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/models"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// OfferingsProvider описывает получение текущих предложений провайдера.
type OfferingsProvider interface {
	GetOfferings(ctx context.Context, appUserID string) (*revenuecat.OfferingsResponse, error)
}

// Service собирает каталог продуктов и справку о триалах.
type Service struct {
	provider OfferingsProvider
	rules    config.TrialRules
	log      *slog.Logger
}

// New создает новый Service.
func New(provider OfferingsProvider, rules config.TrialRules, log *slog.Logger) *Service {
	return &Service{
		provider: provider,
		rules:    rules,
		log:      log,
	}
}

// List возвращает каталог продуктов, доступных пользователю, и справку
// о триалах. Если провайдер недоступен, возвращается полный каталог:
// экран покупки важнее фильтрации по offering'у.
func (s *Service) List(ctx context.Context, userUID string) ([]models.Product, models.TrialInfo) {
	const op = "products.List"

	catalog := s.catalog()
	info := models.TrialInfo{
		InitialTrialDays:       s.rules.InitialTrialLengthDays,
		ExtendedTrialDays:      s.rules.ExtendedTrialDays,
		TotalPossibleTrialDays: s.rules.InitialTrialLengthDays + s.rules.ExtendedTrialDays,
	}

	offerings, err := s.provider.GetOfferings(ctx, userUID)
	if err != nil {
		s.log.Warn("failed to fetch offerings, returning full catalog",
			slog.String("op", op), sl.UID(userUID), sl.Err(err))
		return catalog, info
	}

	available := availableProducts(offerings)
	if len(available) == 0 {
		return catalog, info
	}

	filtered := make([]models.Product, 0, len(catalog))
	for _, p := range catalog {
		if available[p.ID] {
			filtered = append(filtered, p)
		}
	}
	return filtered, info
}

func (s *Service) catalog() []models.Product {
	return []models.Product{
		{
			ID:            s.rules.MonthlyProductID,
			Type:          "subscription",
			Title:         "PlateMate Premium Monthly",
			Description:   "Monthly subscription to PlateMate Premium features",
			Price:         9.99,
			Currency:      "USD",
			BillingPeriod: "monthly",
			Features: []string{
				"Unlimited food photo analysis",
				"AI-powered meal recommendations",
				"Advanced nutrition tracking",
				"Premium recipes",
				"Priority support",
			},
		},
		{
			ID:            s.rules.AnnualProductID,
			Type:          "subscription",
			Title:         "PlateMate Premium Annual",
			Description:   "Annual subscription to PlateMate Premium features (Save 25%)",
			Price:         89.99,
			Currency:      "USD",
			BillingPeriod: "annual",
			Savings:       "25%",
			Features: []string{
				"All Premium Monthly features",
				"25% discount compared to monthly",
				"Exclusive annual member perks",
				"Early access to new features",
			},
		},
	}
}

func availableProducts(offerings *revenuecat.OfferingsResponse) map[string]bool {
	available := make(map[string]bool)
	for _, offering := range offerings.Offerings {
		if offering.Identifier != offerings.CurrentOfferingID {
			continue
		}
		for _, pkg := range offering.Packages {
			available[pkg.PlatformProductIdentifier] = true
		}
	}
	return available
}
