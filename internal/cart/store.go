package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
)

const defaultPersistTimeout = 250 * time.Millisecond

// CouponLookup resolves a code to its rule.
type CouponLookup interface {
	Lookup(ctx context.Context, code string) (*coupons.Coupon, error)
}

// StoreParams configures a Store.
type StoreParams struct {
	SessionID      string
	Pricing        Pricing
	Coupons        CouponLookup
	Persister      Persister
	Logger         *logger.Logger
	Metrics        *metrics.Storefront
	PersistTimeout time.Duration
	Clock          func() time.Time
}

// Store owns one session's cart. Every mutation is all-or-nothing and is
// followed by a best-effort save; persistence errors are logged, never returned.
type Store struct {
	mu sync.Mutex

	sessionID      string
	pricing        Pricing
	coupons        CouponLookup
	persister      Persister
	logg           *logger.Logger
	metrics        *metrics.Storefront
	persistTimeout time.Duration
	now            func() time.Time

	lines       []Line
	coupon      *coupons.Coupon
	checkoutRef string
	touchedAt   time.Time
}

// Checkout is the frozen view of a cart handed to the payment flow.
type Checkout struct {
	Ref    string
	Lines  []Line
	Coupon *coupons.Coupon
	Totals Totals
}

// NewStore builds an empty store without touching persistence.
func NewStore(params StoreParams) (*Store, error) {
	if strings.TrimSpace(params.SessionID) == "" {
		return nil, errors.New("session id required")
	}
	if params.Coupons == nil {
		return nil, errors.New("coupon lookup required")
	}
	if err := params.Pricing.validate(); err != nil {
		return nil, err
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	s := &Store{
		sessionID:      params.SessionID,
		pricing:        params.Pricing,
		coupons:        params.Coupons,
		persister:      params.Persister,
		logg:           params.Logger,
		metrics:        params.Metrics,
		persistTimeout: params.PersistTimeout,
		now:            params.Clock,
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = defaultPersistTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.touchedAt = s.now()
	return s, nil
}

// OpenStore builds a store and restores any persisted cart. A missing or
// unreadable snapshot yields an empty cart.
func OpenStore(ctx context.Context, params StoreParams) (*Store, error) {
	s, err := NewStore(params)
	if err != nil {
		return nil, err
	}
	s.restore(ctx)
	return s, nil
}

func (s *Store) SessionID() string { return s.sessionID }

// AddItem adds qty of product, merging into an existing line. The resulting
// quantity is silently clamped to the per-line maximum.
func (s *Store) AddItem(ctx context.Context, product catalog.Product, qty int) (err error) {
	defer s.record("add_item", &err)
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if strings.TrimSpace(product.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if product.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return err
	}

	if idx := s.indexOf(product.ID); idx >= 0 {
		s.lines[idx].Quantity = min(s.lines[idx].Quantity+qty, s.pricing.MaxQty)
	} else {
		s.lines = append(s.lines, lineFromProduct(product, min(qty, s.pricing.MaxQty)))
	}
	s.persistLocked(ctx)
	return nil
}

// RemoveItem deletes the line for productID. Unknown ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID string) (err error) {
	defer s.record("remove_item", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return err
	}
	if s.removeLocked(productID) {
		s.persistLocked(ctx)
	}
	return nil
}

// SetQuantity sets a line's quantity exactly. qty <= 0 removes the line and a
// missing line is left alone. Above the maximum the configured policy decides
// between rejecting with QUANTITY_LIMIT_EXCEEDED and clamping.
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) (err error) {
	defer s.record("set_quantity", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return err
	}

	if qty <= 0 {
		if s.removeLocked(productID) {
			s.persistLocked(ctx)
		}
		return nil
	}

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}
	if qty > s.pricing.MaxQty {
		if s.pricing.QuantityPolicy == enums.QuantityPolicyReject {
			return pkgerrors.New(pkgerrors.CodeQuantityLimitExceeded,
				fmt.Sprintf("at most %d of an item per order", s.pricing.MaxQty)).
				WithDetails(map[string]any{
					"product_id": productID,
					"requested":  qty,
					"max_qty":    s.pricing.MaxQty,
				})
		}
		qty = s.pricing.MaxQty
	}
	if s.lines[idx].Quantity == qty {
		return nil
	}
	s.lines[idx].Quantity = qty
	s.persistLocked(ctx)
	return nil
}

// Clear empties the cart and drops the applied coupon.
func (s *Store) Clear(ctx context.Context) (err error) {
	defer s.record("clear", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return err
	}
	s.clearLocked(ctx)
	return nil
}

// ApplyCoupon looks up code and, when eligible for the current subtotal,
// replaces any previously applied coupon. Failures leave the cart untouched.
func (s *Store) ApplyCoupon(ctx context.Context, code string) (applied *coupons.Coupon, err error) {
	defer func() {
		result := "applied"
		if err != nil {
			result = "error"
			if perr := pkgerrors.As(err); perr != nil {
				result = strings.ToLower(string(perr.Code()))
			}
		}
		s.metrics.CouponResult(result)
		s.record("apply_coupon", &err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}

	coupon, err := s.coupons.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid coupon code")
	}
	subtotal := ComputeTotals(s.lines, nil, s.pricing).Subtotal
	if err := coupon.CheckEligibility(subtotal, s.now()); err != nil {
		return nil, err
	}

	cp := *coupon
	s.coupon = &cp
	s.persistLocked(ctx)
	out := cp
	return &out, nil
}

// RemoveCoupon drops the applied coupon, if any.
func (s *Store) RemoveCoupon(ctx context.Context) (err error) {
	defer s.record("remove_coupon", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return err
	}
	if s.coupon == nil {
		return nil
	}
	s.coupon = nil
	s.persistLocked(ctx)
	return nil
}

// Totals derives the money view from the current state.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.lines, s.coupon, s.pricing)
}

// ItemCount is the sum of line quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Coupon returns a copy of the applied coupon or nil.
func (s *Store) Coupon() *coupons.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coupon == nil {
		return nil
	}
	cp := *s.coupon
	return &cp
}

// IsInCart reports whether productID has a line.
func (s *Store) IsInCart(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(productID) >= 0
}

// View is a consistent read of the whole cart.
type View struct {
	SessionID   string
	Lines       []Line
	Coupon      *coupons.Coupon
	Totals      Totals
	CheckoutRef string
}

// View returns lines, coupon and totals taken under one lock.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		SessionID:   s.sessionID,
		Lines:       append([]Line(nil), s.lines...),
		Totals:      ComputeTotals(s.lines, s.coupon, s.pricing),
		CheckoutRef: s.checkoutRef,
	}
	if s.coupon != nil {
		cp := *s.coupon
		v.Coupon = &cp
	}
	return v
}

// Snapshot captures the persistable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CheckoutRef returns the reference of the checkout holding the cart, or "".
func (s *Store) CheckoutRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkoutRef
}

// BeginCheckout freezes the cart under ref and returns what will be charged.
// The cart stays read-only until AbortCheckout or CompleteCheckout with the same ref.
func (s *Store) BeginCheckout(ref string) (*Checkout, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout reference is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}
	if len(s.lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCartCheckout, "your cart is empty")
	}
	s.checkoutRef = ref
	s.touchedAt = s.now()

	view := &Checkout{
		Ref:    ref,
		Lines:  append([]Line(nil), s.lines...),
		Totals: ComputeTotals(s.lines, s.coupon, s.pricing),
	}
	if s.coupon != nil {
		cp := *s.coupon
		view.Coupon = &cp
	}
	return view, nil
}

// AbortCheckout releases the lock after a cancelled or failed payment.
func (s *Store) AbortCheckout(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureHeldBy(ref); err != nil {
		return err
	}
	s.checkoutRef = ""
	s.touchedAt = s.now()
	return nil
}

// CompleteCheckout empties the cart after a successful payment and releases the lock.
func (s *Store) CompleteCheckout(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureHeldBy(ref); err != nil {
		return err
	}
	s.checkoutRef = ""
	s.clearLocked(ctx)
	return nil
}

func (s *Store) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt, s.checkoutRef != ""
}

func (s *Store) ensureUnlocked() error {
	if s.checkoutRef == "" {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeCartLocked, "cart is locked while a payment is in progress").
		WithDetails(map[string]any{"checkout_id": s.checkoutRef})
}

func (s *Store) ensureHeldBy(ref string) error {
	if s.checkoutRef == "" || s.checkoutRef != ref {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not held by this checkout")
	}
	return nil
}

func (s *Store) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) bool {
	idx := s.indexOf(productID)
	if idx < 0 {
		return false
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	return true
}

func (s *Store) clearLocked(ctx context.Context) {
	s.lines = nil
	s.coupon = nil
	s.persistLocked(ctx)
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Version: snapshotVersion, Lines: append([]Line{}, s.lines...)}
	if s.coupon != nil {
		cp := *s.coupon
		snap.Coupon = &cp
	}
	return snap
}

// persistLocked writes the snapshot with a bounded timeout. The in-memory cart
// stays authoritative if this fails.
func (s *Store) persistLocked(ctx context.Context) {
	s.touchedAt = s.now()
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	var err error
	if len(s.lines) == 0 && s.coupon == nil {
		err = s.persister.Delete(ctx, s.sessionID)
	} else {
		var data []byte
		data, err = EncodeSnapshot(s.snapshotLocked())
		if err == nil {
			err = s.persister.Save(ctx, s.sessionID, data)
		}
	}
	if err != nil {
		s.metrics.PersistFailure("save")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"session_id": s.sessionID,
			"error":      err.Error(),
		}), "cart persist failed")
	}
}

func (s *Store) restore(ctx context.Context) {
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	data, found, err := s.persister.Load(ctx, s.sessionID)
	if err == nil && !found {
		return
	}
	var snap Snapshot
	if err == nil {
		snap, err = DecodeSnapshot(data, s.pricing.MaxQty)
	}
	if err != nil {
		s.metrics.PersistFailure("load")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"session_id": s.sessionID,
			"error":      err.Error(),
		}), "cart restore failed; starting empty")
		return
	}

	s.mu.Lock()
	s.lines = snap.Lines
	s.coupon = snap.Coupon
	s.mu.Unlock()
}

func (s *Store) record(op string, err *error) {
	s.metrics.CartMutation(op, *err)
}
