// Package classifier реализует чистую функцию классификации снимка
// entitlement'ов в статус подписки. Никакого ввода-вывода: классификация
// полностью определяется снимком, текущим временем и бизнес-правилами.
package classifier

import (
	"errors"
	"strings"
	"time"

	"github.com/platemate/entitlement-reconciler/internal/config"
	"github.com/platemate/entitlement-reconciler/internal/lib/days"
	"github.com/platemate/entitlement-reconciler/internal/models"
)

// ErrInvariantViolation — активный снимок без обязательных меток времени.
// Нарушение контракта снимающей стороны: ошибка логируется вызывающим
// кодом, статус никогда не угадывается по умолчанию.
var ErrInvariantViolation = errors.New("malformed entitlement snapshot")

// Rules — бизнес-правила классификации. Значения приходят из конфига,
// классификатор не держит собственных констант.
type Rules struct {
	InitialTrialLengthDays int    // Длина начального триала в днях
	ExtendedTrialDays      int    // Добавка продлённого триала в днях
	ExtensionWindowDays    int    // Окно в конце начального триала, когда доступно продление
	AnnualSKUSuffix        string // Суффикс SKU годовой подписки
}

// RulesFromConfig переносит правила из секции конфига.
func RulesFromConfig(cfg config.TrialRules) Rules {
	return Rules{
		InitialTrialLengthDays: cfg.InitialTrialLengthDays,
		ExtendedTrialDays:      cfg.ExtendedTrialDays,
		ExtensionWindowDays:    cfg.ExtensionWindowDays,
		AnnualSKUSuffix:        cfg.AnnualSKUSuffix,
	}
}

// Магазины, чьи триальные периоды считаются store-триалами,
// а не выданными бекендом.
var appStores = map[string]struct{}{
	"app_store":     {},
	"mac_app_store": {},
	"play_store":    {},
	"amazon":        {},
	"stripe":        {},
}

const storePromotional = "promotional"

// Classify сводит снимок провайдера к статусу подписки на момент now.
//
// Порядок решений, первое совпавшее правило выигрывает:
//  1. Нет активного entitlement'а — free, независимо от того, новый это
//     пользователь или вернувшийся с истёкшей подпиской.
//  2. Активный entitlement с will_renew — оплачиваемая подписка, даже если
//     период помечен как триальный: намерение продления у провайдера
//     авторитетно, и конвертирующийся пользователь не должен видеть
//     предложение апгрейда.
//  3. Активный триальный entitlement — tier trial с видом и оставшимися
//     днями, вычисленными из меток времени провайдера.
//  4. Иначе — оплачиваемая подписка (месячная или годовая по SKU).
//
// Факт использованного продления выводится из арифметики дат
// (daysSinceStart > InitialTrialLengthDays), а не хранится локально:
// записываемый клиентом флаг, управляющий монетизацией, — вектор подделки.
func Classify(snap models.EntitlementSnapshot, now time.Time, rules Rules) (models.SubscriptionStatus, error) {
	if !snap.HasActiveEntitlement {
		return models.FreeStatus(), nil
	}

	if snap.OriginalPurchaseDate == nil || snap.ExpirationDate == nil {
		return models.FreeStatus(), ErrInvariantViolation
	}

	if snap.WillRenew || !isTrialShaped(snap) {
		return paidStatus(snap, now, rules), nil
	}

	return trialStatus(snap, now, rules), nil
}

// isTrialShaped распознаёт триал: триальный или вводный период,
// либо активный entitlement без автопродления, который пользователь
// не отменял явно (так выглядит грант, выданный бекендом).
func isTrialShaped(snap models.EntitlementSnapshot) bool {
	if snap.PeriodType != nil &&
		(*snap.PeriodType == models.PeriodTypeTrial || *snap.PeriodType == models.PeriodTypeIntro) {
		return true
	}
	return !snap.WillRenew && snap.UnsubscribeDetectedAt == nil
}

func paidStatus(snap models.EntitlementSnapshot, now time.Time, rules Rules) models.SubscriptionStatus {
	tier := models.TierPremiumMonthly
	if snap.ProductIdentifier != nil && strings.HasSuffix(*snap.ProductIdentifier, rules.AnnualSKUSuffix) {
		tier = models.TierPremiumAnnual
	}
	return models.SubscriptionStatus{
		Tier:             tier,
		TrialKind:        models.TrialKindNone,
		DaysRemaining:    days.Until(now, *snap.ExpirationDate),
		HasPremiumAccess: true,
	}
}

func trialStatus(snap models.EntitlementSnapshot, now time.Time, rules Rules) models.SubscriptionStatus {
	daysSinceStart := days.Since(*snap.OriginalPurchaseDate, now)
	daysRemaining := days.Until(now, *snap.ExpirationDate)

	kind := trialKind(snap, daysSinceStart, rules)

	// Использованное продление выводится из дат, не хранится
	hasUsedExtension := daysSinceStart > rules.InitialTrialLengthDays
	canExtend := kind == models.TrialKindInitial &&
		daysRemaining > 0 &&
		daysRemaining <= rules.ExtensionWindowDays &&
		!hasUsedExtension

	end := *snap.ExpirationDate
	return models.SubscriptionStatus{
		Tier:               models.TierTrial,
		IsInTrial:          true,
		TrialKind:          kind,
		DaysRemaining:      daysRemaining,
		CanExtendOrUpgrade: canExtend,
		TrialEndDate:       &end,
		HasPremiumAccess:   true,
	}
}

// trialKind различает варианты триала.
//
// Store-триал: триальный или вводный период, заведённый самим магазином.
// Промо: серверный грант длиннее стандартного онбордингового триала
// (например, компенсация от поддержки). Всё остальное — стандартный
// триал продукта: начальный в пределах порога, продлённый дальше.
func trialKind(snap models.EntitlementSnapshot, daysSinceStart int, rules Rules) models.TrialKind {
	if snap.PeriodType != nil &&
		(*snap.PeriodType == models.PeriodTypeTrial || *snap.PeriodType == models.PeriodTypeIntro) {
		if _, fromStore := appStores[snap.Store]; fromStore {
			return models.TrialKindStore
		}
	}

	if snap.Store == storePromotional {
		grantLength := days.Until(*snap.OriginalPurchaseDate, *snap.ExpirationDate)
		if grantLength > rules.InitialTrialLengthDays+rules.ExtendedTrialDays {
			return models.TrialKindPromotional
		}
	}

	if daysSinceStart <= rules.InitialTrialLengthDays {
		return models.TrialKindInitial
	}
	return models.TrialKindExtended
}
