// Package snapshot сводит ответ биллинг-провайдера к нормализованному
// снимку EntitlementSnapshot. Чистое отображение без решений:
// классификацией занимается пакет classifier.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/models"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
)

// ProviderClient описывает операцию чтения состояния подписчика у провайдера.
type ProviderClient interface {
	GetSubscriber(ctx context.Context, appUserID string) (*revenuecat.Subscriber, error)
}

// Reader запрашивает состояние подписчика и нормализует его в снимок.
type Reader struct {
	provider      ProviderClient
	entitlementID string
	now           func() time.Time
	log           *slog.Logger
}

// New создает новый Reader. Часы инжектируются, чтобы тесты могли
// детерминированно управлять понятием "сейчас".
func New(provider ProviderClient, entitlementID string, now func() time.Time, log *slog.Logger) *Reader {
	return &Reader{
		provider:      provider,
		entitlementID: entitlementID,
		now:           now,
		log:           log,
	}
}

// Fetch возвращает свежий снимок entitlement'ов пользователя.
// Снимок не кешируется здесь: этим занимается сервис статуса.
func (r *Reader) Fetch(ctx context.Context, userUID string) (models.EntitlementSnapshot, error) {
	sub, err := r.provider.GetSubscriber(ctx, userUID)
	if err != nil {
		r.log.Warn("failed to fetch subscriber", sl.UID(userUID), sl.Err(err))
		return models.EntitlementSnapshot{}, err
	}
	return Normalize(sub, r.entitlementID, r.now()), nil
}

// Normalize сводит состояние подписчика к снимку на момент now.
//
// Снимок различает три ситуации: истории нет вообще (новый пользователь),
// есть активный entitlement, все entitlement'ы истекли (вернувшийся
// пользователь). Провайдер заводит пустую запись при первом же запросе
// неизвестного идентификатора, поэтому "нет истории" определяется
// по отсутствию entitlement'ов и подписок, а не по отсутствию записи.
func Normalize(sub *revenuecat.Subscriber, entitlementID string, now time.Time) models.EntitlementSnapshot {
	hasHistory := len(sub.Entitlements) > 0 || len(sub.Subscriptions) > 0

	snap := models.EntitlementSnapshot{}
	if hasHistory {
		snap.FirstSeenDate = sub.FirstSeen
	}

	ent, ok := sub.Entitlements[entitlementID]
	if !ok || !isActive(ent, now) {
		return snap
	}

	snap.HasActiveEntitlement = true
	snap.ExpirationDate = ent.ExpiresDate
	if ent.ProductIdentifier != "" {
		productID := ent.ProductIdentifier
		snap.ProductIdentifier = &productID
	}
	snap.OriginalPurchaseDate = ent.PurchaseDate

	entSub, ok := sub.Subscriptions[ent.ProductIdentifier]
	if !ok {
		return snap
	}

	if entSub.OriginalPurchaseDate != nil {
		snap.OriginalPurchaseDate = entSub.OriginalPurchaseDate
	}
	snap.UnsubscribeDetectedAt = entSub.UnsubscribeDetectedAt
	snap.Store = entSub.Store
	if pt := periodType(entSub.PeriodType); pt != nil {
		snap.PeriodType = pt
	}
	snap.WillRenew = willRenew(entSub)

	return snap
}

func isActive(ent revenuecat.Entitlement, now time.Time) bool {
	if ent.ExpiresDate == nil {
		// бессрочный грант
		return true
	}
	if ent.ExpiresDate.After(now) {
		return true
	}
	return ent.GracePeriodExpiry != nil && ent.GracePeriodExpiry.After(now)
}

// willRenew выводит намерение продления из данных подписки: провайдер
// продлит её, если пользователь не отписался, нет проблем с оплатой
// и грант не промо (промо никогда не продлеваются автоматически).
func willRenew(s revenuecat.Subscription) bool {
	if s.Store == "promotional" {
		return false
	}
	return s.UnsubscribeDetectedAt == nil && s.BillingIssuesDetectedAt == nil
}

func periodType(raw string) *models.PeriodType {
	var pt models.PeriodType
	switch raw {
	case "trial":
		pt = models.PeriodTypeTrial
	case "intro":
		pt = models.PeriodTypeIntro
	case "normal":
		pt = models.PeriodTypeNormal
	default:
		return nil
	}
	return &pt
}
