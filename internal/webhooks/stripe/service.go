package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
)

type checkoutResolver interface {
	ResolveByReference(ctx context.Context, reference string, outcome checkout.Outcome) (*checkout.Session, error)
}

type ServiceParams struct {
	Checkout checkoutResolver
	Logger   *logger.Logger
}

// Service turns PaymentIntent events into checkout outcomes.
type Service struct {
	checkout checkoutResolver
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, errors.New("checkout resolver required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{checkout: params.Checkout, logg: params.Logger}, nil
}

// HandleEvent resolves the checkout behind a PaymentIntent event. Events for
// unknown or already resolved checkouts are acknowledged without effect.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	outcome, ok := OutcomeForEvent(event.Type)
	if !ok {
		return nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	outcome.Reason = failureReason(&intent, outcome)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       event.ID,
		"event_type":     string(event.Type),
		"payment_intent": intent.ID,
	})
	_, err := s.checkout.ResolveByReference(ctx, intent.ID, outcome)
	switch {
	case err == nil:
		return nil
	case pkgerrors.HasCode(err, pkgerrors.CodeStateConflict):
		s.logg.Info(ctx, "payment intent already resolved")
		return nil
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		s.logg.Warn(ctx, "payment intent has no checkout")
		return nil
	default:
		return err
	}
}

// OutcomeForEvent maps the PaymentIntent event types the storefront handles.
func OutcomeForEvent(eventType stripe.EventType) (checkout.Outcome, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return checkout.Succeeded(), true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return checkout.Failed(""), true
	case stripe.EventTypePaymentIntentCanceled:
		outcome := checkout.Cancelled("")
		outcome.Closed = true
		return outcome, true
	default:
		return checkout.Outcome{}, false
	}
}

func failureReason(intent *stripe.PaymentIntent, outcome checkout.Outcome) string {
	switch {
	case outcome.Status == checkout.Succeeded().Status:
		return ""
	case intent.LastPaymentError != nil && intent.LastPaymentError.Code != "":
		return string(intent.LastPaymentError.Code)
	case intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "":
		return intent.LastPaymentError.Msg
	case intent.CancellationReason != "":
		return string(intent.CancellationReason)
	}
	return string(intent.Status)
}
