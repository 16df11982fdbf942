package adapter

import (
	"context"

	"telegram-vpn-shop/internal/domain/model"
)

// Deliverer is the hex port for the fulfillment side of the shop: whatever
// provisions the purchased VPN key once a payment is confirmed. The webhook
// core never calls it inline; delivery is scheduled through the fulfillment
// queue and this interface is invoked from there. Implementations are not
// assumed to be idempotent.
type Deliverer interface {
	Deliver(ctx context.Context, meta *model.PaymentMetadata) error
}
