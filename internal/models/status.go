// Package models содержит доменные структуры движка сверки подписок:
// нормализованный снимок данных биллинг-провайдера (EntitlementSnapshot),
// итоговый статус подписки (SubscriptionStatus) и вспомогательные типы
// для приёма данных из внешних источников (JSON-запросы).
package models

import "time"

// Tier определяет уровень доступа пользователя.
type Tier string

const (
	// TierFree — нет активной подписки и активного триала.
	TierFree Tier = "free"
	// TierTrial — действует один из видов триального периода.
	TierTrial Tier = "trial"
	// TierPremiumMonthly — оплаченная месячная подписка.
	TierPremiumMonthly Tier = "premium_monthly"
	// TierPremiumAnnual — оплаченная годовая подписка.
	TierPremiumAnnual Tier = "premium_annual"
)

// TrialKind определяет разновидность триального периода.
type TrialKind string

const (
	// TrialKindNone — триал не действует.
	TrialKindNone TrialKind = "none"
	// TrialKindInitial — начальный триал, выданный при онбординге.
	TrialKindInitial TrialKind = "initial"
	// TrialKindExtended — продлённый триал (пользователь добавил способ оплаты).
	TrialKindExtended TrialKind = "extended"
	// TrialKindStore — триал, предоставленный магазином приложений.
	TrialKindStore TrialKind = "store"
	// TrialKindPromotional — промо-триал, выданный провайдером по запросу бекенда.
	TrialKindPromotional TrialKind = "promotional"
)

// PeriodType тип текущего периода подписки по данным провайдера.
type PeriodType string

const (
	// PeriodTypeTrial — триальный период магазина.
	PeriodTypeTrial PeriodType = "trial"
	// PeriodTypeIntro — вводное предложение (intro offer).
	PeriodTypeIntro PeriodType = "intro"
	// PeriodTypeNormal — обычный оплачиваемый период.
	PeriodTypeNormal PeriodType = "normal"
)

// EntitlementSnapshot — нормализованный снимок ответа биллинг-провайдера
// для одного пользователя в один момент времени. Снимок запрашивается заново
// при каждой сверке, никогда не сохраняется как есть и сразу сводится
// к SubscriptionStatus классификатором.
//
// Для снимка выполняется ровно одно из трёх: истории нет вообще,
// есть активный entitlement, либо все entitlement'ы истекли.
type EntitlementSnapshot struct {
	HasActiveEntitlement  bool       // Есть ли активный entitlement
	ProductIdentifier     *string    // SKU продукта, различает месячную и годовую подписку
	OriginalPurchaseDate  *time.Time // Начало текущего периода entitlement
	ExpirationDate        *time.Time // Окончание текущего периода
	WillRenew             bool       // Провайдер спишет оплату в конце периода
	PeriodType            *PeriodType
	UnsubscribeDetectedAt *time.Time // Не nil — пользователь явно отменил продление
	FirstSeenDate         *time.Time // Самая ранняя запись провайдера об этом пользователе
	Store                 string     // Источник entitlement: app_store, play_store, promotional
}

// SubscriptionStatus — значение, которое потребляет остальная система.
// Создаётся классификатором при каждой сверке и всегда заменяется целиком,
// никогда не изменяется по месту.
//
// Инварианты: IsInTrial == true влечёт Tier == trial;
// DaysRemaining == 0 влечёт IsInTrial == false, кроме границы того же дня.
type SubscriptionStatus struct {
	Tier               Tier       `json:"tier"`
	IsInTrial          bool       `json:"is_in_trial"`
	TrialKind          TrialKind  `json:"trial_kind"`
	DaysRemaining      int        `json:"days_remaining"`
	CanExtendOrUpgrade bool       `json:"can_extend_or_upgrade"`
	TrialEndDate       *time.Time `json:"trial_end_date,omitempty"`
	HasPremiumAccess   bool       `json:"has_premium_access"`
}

// FreeStatus возвращает консервативный статус "нет доступа".
// Используется и как ответ для нового пользователя без истории,
// и как fail-closed значение при недоступности провайдера.
func FreeStatus() SubscriptionStatus {
	return SubscriptionStatus{
		Tier:      TierFree,
		TrialKind: TrialKindNone,
	}
}

// CachedStatus оборачивает SubscriptionStatus отметкой времени вычисления.
// Хранится в кеше только по значению (JSON), чтобы вызывающая сторона
// не могла изменить общий объект и незаметно испортить кеш.
type CachedStatus struct {
	Status     SubscriptionStatus `json:"status"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Reconciliation — запись журнала сверок: что классификатор вычислил
// для пользователя и когда. Производные данные для поддержки и отладки,
// источником истины остаются метки времени провайдера.
type Reconciliation struct {
	ID            int       `json:"id"`
	UserUID       string    `json:"user_uid"`
	Tier          Tier      `json:"tier"`
	TrialKind     TrialKind `json:"trial_kind"`
	DaysRemaining int       `json:"days_remaining"`
	CanExtend     bool      `json:"can_extend"`
	ComputedAt    time.Time `json:"computed_at"`
}

// Product описывает позицию каталога для экрана покупки.
type Product struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	BillingPeriod string   `json:"billing_period"`
	Savings       string   `json:"savings,omitempty"`
	Features      []string `json:"features"`
}

// TrialInfo — справка о длительности триалов для экрана покупки.
type TrialInfo struct {
	InitialTrialDays       int `json:"initial_trial_days"`
	ExtendedTrialDays      int `json:"extended_trial_days"`
	TotalPossibleTrialDays int `json:"total_possible_trial_days"`
}
