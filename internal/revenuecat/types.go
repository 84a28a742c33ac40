package revenuecat

import "time"

// SubscriberResponse представляет ответ на запрос данных подписчика.
type SubscriberResponse struct {
	RequestDateMs int64      `json:"request_date_ms"`
	Subscriber    Subscriber `json:"subscriber"`
}

// Subscriber представляет состояние подписчика по данным провайдера:
// все entitlement'ы (активные и истекшие) и подписки по продуктам.
type Subscriber struct {
	FirstSeen         *time.Time              `json:"first_seen"`
	OriginalAppUserID string                  `json:"original_app_user_id"`
	Entitlements      map[string]Entitlement  `json:"entitlements"`
	Subscriptions     map[string]Subscription `json:"subscriptions"`
}

// Entitlement — грант доступа к именованному набору функций.
type Entitlement struct {
	ExpiresDate       *time.Time `json:"expires_date"`        // nil — бессрочный грант
	PurchaseDate      *time.Time `json:"purchase_date"`       // начало текущего периода
	ProductIdentifier string     `json:"product_identifier"`  // SKU, породивший entitlement
	GracePeriodExpiry *time.Time `json:"grace_period_expires_date"`
}

// Subscription — данные подписки на конкретный продукт.
type Subscription struct {
	ExpiresDate             *time.Time `json:"expires_date"`
	PurchaseDate            *time.Time `json:"purchase_date"`
	OriginalPurchaseDate    *time.Time `json:"original_purchase_date"`
	PeriodType              string     `json:"period_type"` // trial, intro, normal
	Store                   string     `json:"store"`       // app_store, play_store, promotional
	UnsubscribeDetectedAt   *time.Time `json:"unsubscribe_detected_at"`
	BillingIssuesDetectedAt *time.Time `json:"billing_issues_detected_at"`
	IsSandbox               bool       `json:"is_sandbox"`
}

// OfferingsResponse представляет ответ на запрос доступных предложений.
type OfferingsResponse struct {
	CurrentOfferingID string     `json:"current_offering_id"`
	Offerings         []Offering `json:"offerings"`
}

// Offering — именованный набор покупаемых пакетов.
type Offering struct {
	Identifier  string    `json:"identifier"`
	Description string    `json:"description"`
	Packages    []Package `json:"packages"`
}

// Package — покупаемый пакет внутри offering'а.
type Package struct {
	Identifier                string `json:"identifier"` // $rc_monthly, $rc_annual
	PlatformProductIdentifier string `json:"platform_product_identifier"`
}

// ReceiptRequest представляет запрос на проведение чека магазина.
type ReceiptRequest struct {
	AppUserID  string `json:"app_user_id"`
	FetchToken string `json:"fetch_token"` // чек магазина в base64
	ProductID  string `json:"product_id"`
	IsRestore  bool   `json:"is_restore,omitempty"`
}

// promotionalGrantRequest — тело запроса на выдачу промо-entitlement.
type promotionalGrantRequest struct {
	EndTimeMs int64 `json:"end_time_ms"`
}

// apiError — тело ошибки провайдера.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
