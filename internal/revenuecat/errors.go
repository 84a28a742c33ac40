package revenuecat

import (
	"errors"
	"fmt"
)

// Типизированные ошибки провайдера. Снимок и координатор возвращают их
// наверх как есть; кеш статуса их не пропускает и деградирует
// к fail-closed значению.
var (
	// ErrProviderUnavailable — сеть, таймаут или 5xx от провайдера.
	ErrProviderUnavailable = errors.New("billing provider unavailable")
	// ErrProductNotFound — запрошенный продукт отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrPurchaseCancelled — пользователь отменил покупку. Не ошибка
	// для пользователя: обработчики отвечают без алерта.
	ErrPurchaseCancelled = errors.New("purchase cancelled by user")
)

// Коды ошибок провайдера, различающие постоянные и временные отказы оплаты.
const (
	codeInvalidReceipt     = 7103
	codeReceiptInUse       = 7104
	codeProductNotForSale  = 7110
	codePurchaseCancelled  = 7186
	codeBillingUnavailable = 7225
)

// PurchaseError описывает отказ проведения покупки с признаком
// возможности повтора по классификации провайдера.
type PurchaseError struct {
	Code      int
	Message   string
	Retriable bool
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase failed: %s (code %d)", e.Message, e.Code)
}

// IsRetriable сообщает, уместен ли повтор для ошибки покупки.
// Для ошибок вне таксономии покупок ответ всегда false.
func IsRetriable(err error) bool {
	var pe *PurchaseError
	if errors.As(err, &pe) {
		return pe.Retriable
	}
	return false
}

func classifyPurchaseError(apiErr apiError) error {
	switch apiErr.Code {
	case codePurchaseCancelled:
		return ErrPurchaseCancelled
	case codeProductNotForSale:
		return ErrProductNotFound
	case codeBillingUnavailable:
		return &PurchaseError{Code: apiErr.Code, Message: apiErr.Message, Retriable: true}
	case codeInvalidReceipt, codeReceiptInUse:
		return &PurchaseError{Code: apiErr.Code, Message: apiErr.Message, Retriable: false}
	default:
		return &PurchaseError{Code: apiErr.Code, Message: apiErr.Message, Retriable: false}
	}
}
