package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/internal/orders"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
)

const checkoutIDPrefix = "chk_"

type cartProvider interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

type orderPlacer interface {
	Place(ctx context.Context, input orders.PlaceInput) (*orders.Order, error)
}

type couponUsage interface {
	RecordUsage(ctx context.Context, code string) error
}

// Service hands a locked cart to a payment gateway and settles the result.
type Service interface {
	Begin(ctx context.Context, sessionID string, method enums.PaymentMethod) (*Session, error)
	Resolve(ctx context.Context, checkoutID string, outcome Outcome) (*Session, error)
	ResolveByReference(ctx context.Context, reference string, outcome Outcome) (*Session, error)
	Cancel(ctx context.Context, sessionID, checkoutID string) (*Session, error)
	Get(checkoutID string) (*Session, error)
	Await(ctx context.Context, checkoutID string) (*Session, error)
	Expire(ctx context.Context, pendingTTL, retain time.Duration) (int, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Carts    cartProvider
	Orders   orderPlacer
	Coupons  couponUsage
	Gateways []Gateway
	Logger   *logger.Logger
	Metrics  *metrics.Storefront
	Clock    func() time.Time
}

type service struct {
	carts    cartProvider
	orders   orderPlacer
	coupons  couponUsage
	gateways map[enums.PaymentMethod]Gateway
	logg     *logger.Logger
	metrics  *metrics.Storefront
	now      func() time.Time

	mu    sync.Mutex
	byID  map[string]*entry
	byRef map[string]string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, errors.New("cart provider required")
	}
	if params.Orders == nil {
		return nil, errors.New("order placer required")
	}
	if params.Coupons == nil {
		return nil, errors.New("coupon usage recorder required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if len(params.Gateways) == 0 {
		return nil, errors.New("at least one payment gateway required")
	}
	gateways := make(map[enums.PaymentMethod]Gateway, len(params.Gateways))
	for _, gw := range params.Gateways {
		if gw == nil {
			return nil, errors.New("nil payment gateway")
		}
		if _, dup := gateways[gw.Method()]; dup {
			return nil, fmt.Errorf("duplicate gateway for %s", gw.Method())
		}
		gateways[gw.Method()] = gw
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		carts:    params.Carts,
		orders:   params.Orders,
		coupons:  params.Coupons,
		gateways: gateways,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
		byID:     make(map[string]*entry),
		byRef:    make(map[string]string),
	}, nil
}

// Begin locks the session's cart and starts a payment for its grand total.
func (s *service) Begin(ctx context.Context, sessionID string, method enums.PaymentMethod) (*Session, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %q is not available", method))
	}
	store, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart session is invalid")
	}

	checkoutID := checkoutIDPrefix + uuid.NewString()
	view, err := store.BeginCheckout(checkoutID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id":  sessionID,
		"checkout_id": checkoutID,
		"method":      method.String(),
	})

	handle, err := gw.Initiate(ctx, PaymentRequest{
		CheckoutID:  checkoutID,
		SessionID:   sessionID,
		Amount:      view.Totals.GrandTotal,
		AmountMinor: view.Totals.AmountMinor(),
		Currency:    view.Totals.Currency,
		Description: fmt.Sprintf("ShopNearby order (%d items)", view.Totals.ItemCount),
	})
	if err != nil {
		if abortErr := store.AbortCheckout(checkoutID); abortErr != nil {
			s.logg.Error(ctx, "release cart after failed initiation", abortErr)
		}
		s.metrics.CheckoutOutcome(method.String(), "initiate_error")
		s.logg.Error(ctx, "payment initiation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment could not be started")
	}

	e := &entry{
		done: make(chan struct{}),
		session: Session{
			ID:           checkoutID,
			CartSession:  sessionID,
			Method:       method,
			Status:       enums.CheckoutStatusPending,
			PaymentRef:   handle.Reference,
			ClientSecret: handle.ClientSecret,
			AmountMinor:  view.Totals.AmountMinor(),
			Totals:       view.Totals,
			Lines:        view.Lines,
			CreatedAt:    s.now(),
		},
	}
	s.mu.Lock()
	s.byID[checkoutID] = e
	if handle.Reference != "" {
		s.byRef[handle.Reference] = checkoutID
	}
	s.mu.Unlock()
	s.metrics.CheckoutOutcome(method.String(), enums.CheckoutStatusPending.String())
	s.logg.Info(ctx, "checkout started")

	if handle.Immediate != nil {
		return s.settle(ctx, e, *handle.Immediate)
	}
	out := e.snapshot()
	return &out, nil
}

// Resolve records the terminal outcome of a checkout. Only the first outcome
// counts; later ones get STATE_CONFLICT.
func (s *service) Resolve(ctx context.Context, checkoutID string, outcome Outcome) (*Session, error) {
	e, err := s.lookup(checkoutID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, e, outcome)
}

func (s *service) ResolveByReference(ctx context.Context, reference string, outcome Outcome) (*Session, error) {
	s.mu.Lock()
	checkoutID, ok := s.byRef[reference]
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout for payment reference").
			WithDetails(map[string]any{"payment_ref": reference})
	}
	return s.Resolve(ctx, checkoutID, outcome)
}

// Cancel is the shopper dismissing the payment. The cart is released.
func (s *service) Cancel(ctx context.Context, sessionID, checkoutID string) (*Session, error) {
	e, err := s.lookup(checkoutID)
	if err != nil {
		return nil, err
	}
	current := e.snapshot()
	if current.CartSession != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
	}
	return s.settle(ctx, e, Cancelled("user_dismissed"))
}

func (s *service) Get(checkoutID string) (*Session, error) {
	e, err := s.lookup(checkoutID)
	if err != nil {
		return nil, err
	}
	out := e.snapshot()
	return &out, nil
}

// Await blocks until the checkout is resolved or ctx ends. A context timeout
// returns the still pending session without an error.
func (s *service) Await(ctx context.Context, checkoutID string) (*Session, error) {
	e, err := s.lookup(checkoutID)
	if err != nil {
		return nil, err
	}
	select {
	case <-e.done:
		out := e.snapshot()
		return &out, out.Err()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out := e.snapshot()
			return &out, nil
		}
		return nil, ctx.Err()
	}
}

// Expire fails checkouts pending longer than pendingTTL, releasing their
// carts, and forgets resolved checkouts older than retain.
func (s *service) Expire(ctx context.Context, pendingTTL, retain time.Duration) (int, error) {
	now := s.now()

	s.mu.Lock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	processed := 0
	var errs error
	for _, e := range entries {
		current := e.snapshot()
		switch {
		case current.Status == enums.CheckoutStatusPending && pendingTTL > 0 && now.Sub(current.CreatedAt) > pendingTTL:
			if _, err := s.settle(ctx, e, Failed("expired")); err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				errs = multierr.Append(errs, err)
				continue
			}
			processed++
		case current.ResolvedAt != nil && retain > 0 && now.Sub(*current.ResolvedAt) > retain:
			s.forget(current)
			processed++
		}
	}
	return processed, errs
}

func (s *service) lookup(checkoutID string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.byID[strings.TrimSpace(checkoutID)]
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found").
			WithDetails(map[string]any{"checkout_id": checkoutID})
	}
	return e, nil
}

func (s *service) forget(sess Session) {
	s.mu.Lock()
	delete(s.byID, sess.ID)
	if sess.PaymentRef != "" {
		delete(s.byRef, sess.PaymentRef)
	}
	s.mu.Unlock()
}

// settle applies outcome under the entry lock. Success places the order before
// the cart is cleared; a failed placement leaves the checkout pending so the
// outcome can be delivered again. Any other outcome cancels the payment at the
// gateway unless the gateway already closed it.
func (s *service) settle(ctx context.Context, e *entry, outcome Outcome) (*Session, error) {
	if !outcome.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be terminal")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	sess := &e.session
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id":  sess.CartSession,
		"checkout_id": sess.ID,
		"payment_ref": sess.PaymentRef,
		"outcome":     outcome.Status.String(),
	})
	if sess.Status.IsTerminal() {
		if outcome.Status == enums.CheckoutStatusSucceeded && sess.Status != enums.CheckoutStatusSucceeded {
			s.logg.Error(ctx, "payment captured for a checkout that already ended", nil)
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already resolved").
			WithDetails(map[string]any{"checkout_id": sess.ID, "status": sess.Status.String()})
	}

	store, err := s.carts.Get(ctx, sess.CartSession)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart for checkout")
	}

	switch outcome.Status {
	case enums.CheckoutStatusSucceeded:
		order, err := s.orders.Place(ctx, orders.PlaceInput{
			SessionID:     sess.CartSession,
			CheckoutID:    sess.ID,
			PaymentMethod: sess.Method,
			PaymentRef:    sess.PaymentRef,
			Lines:         sess.Lines,
			Totals:        sess.Totals,
		})
		if err != nil {
			s.logg.Error(ctx, "place order after payment", err)
			return nil, err
		}
		sess.OrderNumber = order.Number
		if code := sess.Totals.CouponCode; code != "" {
			if err := s.coupons.RecordUsage(ctx, code); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "coupon usage not recorded")
			}
		}
		if err := store.CompleteCheckout(ctx, sess.ID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart was not held by checkout")
		}
	default:
		if !outcome.Closed {
			s.cancelPayment(ctx, sess)
		}
		if err := store.AbortCheckout(sess.ID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart was not held by checkout")
		}
		sess.FailureReason = outcome.Reason
	}

	at := s.now()
	sess.Status = outcome.Status
	sess.ResolvedAt = &at
	sess.ClientSecret = ""
	close(e.done)

	s.metrics.CheckoutOutcome(sess.Method.String(), outcome.Status.String())
	s.logg.Info(ctx, "checkout resolved")

	out := e.copyLocked()
	return &out, nil
}

// cancelPayment voids the gateway side of a checkout that ends without an
// order. A failed card payment can still be confirmed again until then.
func (s *service) cancelPayment(ctx context.Context, sess *Session) {
	gw, ok := s.gateways[sess.Method]
	if !ok || sess.PaymentRef == "" {
		return
	}
	if err := gw.Cancel(ctx, sess.PaymentRef); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "gateway cancel failed")
	}
}

// ExpiryJob runs Expire from the background job runner.
type ExpiryJob struct {
	Service    Service
	PendingTTL time.Duration
	Retain     time.Duration
}

func (j ExpiryJob) Name() string { return "checkout_expiry" }

func (j ExpiryJob) Run(ctx context.Context) (int, error) {
	if j.Service == nil {
		return 0, errors.New("checkout service required")
	}
	return j.Service.Expire(ctx, j.PendingTTL, j.Retain)
}
