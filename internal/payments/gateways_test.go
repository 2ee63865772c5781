package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

type fakeIntents struct {
	created   []*stripe.PaymentIntentParams
	cancelled []string
	err       error
}

func (f *fakeIntents) Create(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, params)
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (f *fakeIntents) Cancel(_ context.Context, id string, _ *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cancelled = append(f.cancelled, id)
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

func cardRequest() checkout.PaymentRequest {
	return checkout.PaymentRequest{
		CheckoutID:  "chk_1",
		SessionID:   "sess-1",
		Amount:      decimal.RequireFromString("129.50"),
		AmountMinor: 12950,
		Currency:    enums.CurrencyINR,
		Description: "ShopNearby order (3 items)",
	}
}

func TestStripeGatewayCreatesIntent(t *testing.T) {
	intents := &fakeIntents{}
	gw, err := NewStripeGateway(intents)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	if gw.Method() != enums.PaymentMethodCard {
		t.Fatalf("unexpected method %s", gw.Method())
	}

	handle, err := gw.Initiate(context.Background(), cardRequest())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if handle.Reference != "pi_123" || handle.ClientSecret != "pi_123_secret" || handle.Immediate != nil {
		t.Fatalf("unexpected handle %+v", handle)
	}

	params := intents.created[0]
	if *params.Amount != 12950 || *params.Currency != "inr" {
		t.Fatalf("unexpected amount/currency %d %s", *params.Amount, *params.Currency)
	}
	if params.Metadata["checkout_id"] != "chk_1" || params.Metadata["session_id"] != "sess-1" {
		t.Fatalf("unexpected metadata %v", params.Metadata)
	}
	if params.IdempotencyKey == nil || *params.IdempotencyKey != "chk_1" {
		t.Fatal("expected the checkout id as idempotency key")
	}
}

func TestStripeGatewayErrors(t *testing.T) {
	if _, err := NewStripeGateway(nil); err == nil {
		t.Fatal("expected nil api to be rejected")
	}

	gw, _ := NewStripeGateway(&fakeIntents{err: errors.New("network")})
	_, err := gw.Initiate(context.Background(), cardRequest())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}

	req := cardRequest()
	req.AmountMinor = 0
	_, err = gw.Initiate(context.Background(), req)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for a zero amount, got %v", err)
	}
	if err := gw.Cancel(context.Background(), "pi_1"); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected cancel failure to be wrapped, got %v", err)
	}
}

func TestStripeGatewayCancel(t *testing.T) {
	intents := &fakeIntents{}
	gw, _ := NewStripeGateway(intents)
	if err := gw.Cancel(context.Background(), "pi_9"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(intents.cancelled) != 1 || intents.cancelled[0] != "pi_9" {
		t.Fatalf("unexpected cancellations %v", intents.cancelled)
	}
}

func TestCashOnDeliverySucceedsImmediately(t *testing.T) {
	gw := NewCashOnDeliveryGateway()
	if gw.Method() != enums.PaymentMethodCOD {
		t.Fatalf("unexpected method %s", gw.Method())
	}
	handle, err := gw.Initiate(context.Background(), cardRequest())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !strings.HasPrefix(handle.Reference, "cod_") {
		t.Fatalf("unexpected reference %q", handle.Reference)
	}
	if handle.Immediate == nil || handle.Immediate.Status != enums.CheckoutStatusSucceeded {
		t.Fatalf("expected immediate success, got %+v", handle.Immediate)
	}
	if err := gw.Cancel(context.Background(), handle.Reference); err != nil {
		t.Fatalf("cancel should be a no-op: %v", err)
	}
}

var (
	_ checkout.Gateway = (*StripeGateway)(nil)
	_ checkout.Gateway = CashOnDeliveryGateway{}
)
