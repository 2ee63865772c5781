package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/shopnearby-backend/pkg/stripe"
)

// StripeGateway collects card payments through Stripe PaymentIntents. The
// client confirms the intent with the returned client secret; the outcome
// arrives through the webhook.
type StripeGateway struct {
	intents pkgstripe.PaymentIntentAPI
}

func NewStripeGateway(intents pkgstripe.PaymentIntentAPI) (*StripeGateway, error) {
	if intents == nil {
		return nil, errors.New("stripe payment intents api required")
	}
	return &StripeGateway{intents: intents}, nil
}

func (g *StripeGateway) Method() enums.PaymentMethod { return enums.PaymentMethodCard }

func (g *StripeGateway) Initiate(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentHandle, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payments need a positive amount")
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(req.Currency.Lower()),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("checkout_id", req.CheckoutID)
	params.AddMetadata("session_id", req.SessionID)
	params.SetIdempotencyKey(req.CheckoutID)

	intent, err := g.intents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe payment intent")
	}
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned an empty payment intent")
	}
	return &checkout.PaymentHandle{Reference: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) Cancel(ctx context.Context, reference string) error {
	_, err := g.intents.Cancel(ctx, reference, &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe payment intent")
	}
	return nil
}
