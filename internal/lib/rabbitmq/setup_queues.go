package rabbitmq

// EventsExchange — exchange, в который публикуются события entitlement'ов.
const EventsExchange = "entitlements"

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEntitlementQueues возвращает очереди потребителей событий entitlement'ов.
func GetEntitlementQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "entitlements.trial_extended", RoutingKey: "trial_extended"},
		{QueueName: "entitlements.purchase_completed", RoutingKey: "purchase_completed"},
		{QueueName: "entitlements.purchases_restored", RoutingKey: "purchases_restored"},
		{QueueName: "entitlements.promo_granted", RoutingKey: "promo_granted"},
	}
}
