package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

// Gateway starts and cancels payments for one payment method.
type Gateway interface {
	Method() enums.PaymentMethod
	Initiate(ctx context.Context, req PaymentRequest) (*PaymentHandle, error)
	// Cancel is best effort; the checkout is resolved regardless of its result.
	// It is called for every checkout that ends without an order.
	Cancel(ctx context.Context, reference string) error
}

// PaymentRequest is the amount a checkout asks a gateway to collect.
type PaymentRequest struct {
	CheckoutID  string
	SessionID   string
	Amount      decimal.Decimal
	AmountMinor int64
	Currency    enums.Currency
	Description string
}

// PaymentHandle identifies a started payment. Gateways that settle on the
// spot, like cash on delivery, set Immediate.
type PaymentHandle struct {
	Reference    string
	ClientSecret string
	Immediate    *Outcome
}

// Outcome is the terminal result reported for a payment.
type Outcome struct {
	Status enums.CheckoutStatus
	Reason string
	// Closed marks outcomes the gateway reported as already final on its
	// side, like a cancelled payment intent.
	Closed bool
}

func Succeeded() Outcome { return Outcome{Status: enums.CheckoutStatusSucceeded} }

func Cancelled(reason string) Outcome {
	return Outcome{Status: enums.CheckoutStatusCancelled, Reason: reason}
}

func Failed(reason string) Outcome {
	return Outcome{Status: enums.CheckoutStatusFailed, Reason: reason}
}
