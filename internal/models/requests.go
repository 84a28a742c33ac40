package models

// DummyPurchase используется для приёма данных о покупке из JSON-запроса,
// прежде чем передать их координатору.
type DummyPurchase struct {
	ProductID string `json:"product_id" validate:"required"` // Идентификатор продукта из каталога
	Receipt   string `json:"receipt" validate:"required"`    // Чек магазина в base64
}

// DummyRestore используется для приёма запроса на восстановление покупок.
type DummyRestore struct {
	Receipt string `json:"receipt" validate:"required"` // Чек магазина в base64
}

// DummyExtend используется для приёма запроса на продление триала.
type DummyExtend struct {
	Receipt string `json:"receipt" validate:"required"` // Чек магазина в base64
}
