// Package coordinator управляет переходами подписки, инициированными
// пользователем: продление триала, покупка, восстановление покупок,
// выдача промо-триала. После каждого успешного действия кеш статуса
// инвалидируется, чтобы UI сразу увидел новое состояние.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/platemate/entitlement-reconciler/internal/config"
	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// ProviderClient описывает операции биллинг-провайдера, нужные координатору.
type ProviderClient interface {
	GetOfferings(ctx context.Context, appUserID string) (*revenuecat.OfferingsResponse, error)
	PostReceipt(ctx context.Context, req revenuecat.ReceiptRequest) (*revenuecat.Subscriber, error)
	GrantPromotionalEntitlement(ctx context.Context, appUserID, entitlementID string, endTime time.Time) error
}

// ErrExtensionAlreadyUsed — журнал сверок уже видел продлённый триал
// этого пользователя, второе продление не оформляется.
var ErrExtensionAlreadyUsed = errors.New("trial extension already used")

// ExtensionJournal описывает проверку по журналу сверок, получал ли
// пользователь продление триала раньше.
type ExtensionJournal interface {
	HasUsedExtension(ctx context.Context, userUID string) (bool, error)
}

// StatusInvalidator описывает сброс закешированного статуса.
type StatusInvalidator interface {
	Invalidate(ctx context.Context, userUID string) error
}

// EventPublisher описывает публикацию событий entitlement'ов
// для внешних потребителей.
type EventPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Event — событие изменения entitlement'ов, публикуемое после
// успешного действия.
type Event struct {
	ID         string    `json:"id"`
	UserUID    string    `json:"user_uid"`
	Kind       string    `json:"kind"` // trial_extended, purchase_completed, purchases_restored, promo_granted
	ProductID  string    `json:"product_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const eventsExchange = "entitlements"

// Coordinator выполняет действия над подпиской и согласует кеш после них.
type Coordinator struct {
	provider  ProviderClient
	status    StatusInvalidator
	publisher EventPublisher
	journal   ExtensionJournal
	cfg       config.RevenueCat
	rules     config.TrialRules
	now       func() time.Time
	log       *slog.Logger
}

// New создает новый Coordinator.
func New(provider ProviderClient, status StatusInvalidator, publisher EventPublisher,
	journal ExtensionJournal, cfg config.RevenueCat, rules config.TrialRules,
	now func() time.Time, log *slog.Logger) *Coordinator {
	return &Coordinator{
		provider:  provider,
		status:    status,
		publisher: publisher,
		journal:   journal,
		cfg:       cfg,
		rules:     rules,
		now:       now,
		log:       log,
	}
}

// RequestTrialExtension продлевает триал: находит в текущих предложениях
// пакет месячной подписки и проводит чек — у провайдера это включает
// автопродление без немедленного списания. Автоматических повторов нет:
// поток покупки интерактивен и не должен молча повторяться.
func (c *Coordinator) RequestTrialExtension(ctx context.Context, userUID, receipt string) error {
	const op = "coordinator.RequestTrialExtension"

	used, err := c.journal.HasUsedExtension(ctx, userUID)
	if err != nil {
		// Журнал — производная история, а не источник истины. Если он
		// недоступен, продление не блокируется: провайдер остаётся
		// последней инстанцией по чеку.
		c.log.Warn("failed to check extension journal", sl.UID(userUID), sl.Err(err))
	} else if used {
		return fmt.Errorf("%s: %w", op, ErrExtensionAlreadyUsed)
	}

	offerings, err := c.provider.GetOfferings(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	productID, found := findProduct(offerings, c.rules.MonthlyProductID)
	if !found {
		return fmt.Errorf("%s: %w: %s", op, revenuecat.ErrProductNotFound, c.rules.MonthlyProductID)
	}

	if _, err := c.provider.PostReceipt(ctx, revenuecat.ReceiptRequest{
		AppUserID:  userUID,
		FetchToken: receipt,
		ProductID:  productID,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("trial extension set up", sl.UID(userUID), slog.String("product_id", productID))
	c.reconcileAfterAction(ctx, userUID, "trial_extended", productID)
	return nil
}

// CompletePurchase проводит чек покупки продукта. Повторный вызов
// с уже купленным продуктом безопасен: провайдер идемпотентен
// по транзакции.
func (c *Coordinator) CompletePurchase(ctx context.Context, userUID, productID, receipt string) error {
	const op = "coordinator.CompletePurchase"

	if _, err := c.provider.PostReceipt(ctx, revenuecat.ReceiptRequest{
		AppUserID:  userUID,
		FetchToken: receipt,
		ProductID:  productID,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("purchase completed", sl.UID(userUID), slog.String("product_id", productID))
	c.reconcileAfterAction(ctx, userUID, "purchase_completed", productID)
	return nil
}

// RestorePurchases восстанавливает покупки по чеку магазина.
func (c *Coordinator) RestorePurchases(ctx context.Context, userUID, receipt string) error {
	const op = "coordinator.RestorePurchases"

	if _, err := c.provider.PostReceipt(ctx, revenuecat.ReceiptRequest{
		AppUserID:  userUID,
		FetchToken: receipt,
		IsRestore:  true,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("purchases restored", sl.UID(userUID))
	c.reconcileAfterAction(ctx, userUID, "purchases_restored", "")
	return nil
}

// GrantPromotionalTrial выдаёт промо-триал на стороне провайдера.
// Вызывается при онбординге; отказ не должен блокировать создание
// аккаунта — у вызывающего потока свой цикл повторов.
func (c *Coordinator) GrantPromotionalTrial(ctx context.Context, userUID string) error {
	const op = "coordinator.GrantPromotionalTrial"

	endTime := c.now().AddDate(0, 0, c.rules.PromoTrialDays)
	if err := c.provider.GrantPromotionalEntitlement(ctx, userUID, c.cfg.EntitlementID, endTime); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("promotional trial granted", sl.UID(userUID),
		slog.Time("trial_end", endTime))
	c.reconcileAfterAction(ctx, userUID, "promo_granted", "")
	return nil
}

// reconcileAfterAction сбрасывает кеш и публикует событие.
// Оба шага best-effort: действие у провайдера уже состоялось.
func (c *Coordinator) reconcileAfterAction(ctx context.Context, userUID, kind, productID string) {
	if err := c.status.Invalidate(ctx, userUID); err != nil {
		c.log.Warn("failed to invalidate status cache after action",
			sl.UID(userUID), slog.String("kind", kind), sl.Err(err))
	}

	event := Event{
		ID:         uuid.New().String(),
		UserUID:    userUID,
		Kind:       kind,
		ProductID:  productID,
		OccurredAt: c.now(),
	}
	if err := c.publisher.Publish(eventsExchange, kind, event); err != nil {
		c.log.Warn("failed to publish entitlement event",
			sl.UID(userUID), slog.String("kind", kind), sl.Err(err))
	}
}

func findProduct(offerings *revenuecat.OfferingsResponse, productID string) (string, bool) {
	for _, offering := range offerings.Offerings {
		if offering.Identifier != offerings.CurrentOfferingID {
			continue
		}
		for _, pkg := range offering.Packages {
			if pkg.PlatformProductIdentifier == productID {
				return pkg.PlatformProductIdentifier, true
			}
		}
	}
	return "", false
}
