package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

type stubCatalog map[string]catalog.Product

func (s stubCatalog) ListProducts(_ context.Context, includeHidden bool) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(s))
	for _, p := range s {
		if p.Hidden && !includeHidden {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s stubCatalog) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	all, _ := s.ListProducts(ctx, false)
	out := make([]catalog.Product, 0, len(all))
	for _, p := range all {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s stubCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"1": {ID: "1", Name: "Hyderabadi Chicken Biryani", Price: decimal.NewFromInt(999), Store: "Biryani House"},
		"4": {ID: "4", Name: "Flaky Paratha Bread", Price: decimal.NewFromInt(199), Store: "Paratha Corner"},
		"9": {ID: "9", Name: "Retired Thali", Price: decimal.NewFromInt(450), Hidden: true},
	}
}

func newTestRegistry(t *testing.T) *cart.Registry {
	t.Helper()
	reg, err := cart.NewRegistry(cart.StoreParams{
		Pricing: cart.DefaultPricing(),
		Coupons: coupons.StaticLookup{
			"SAVE10":  {Code: "SAVE10", Kind: enums.CouponKindPercentage, Value: decimal.NewFromInt(10)},
			"EXPIRED": {Code: "EXPIRED", Kind: enums.CouponKindFixed, Value: decimal.NewFromInt(5), Status: enums.CouponStatusExpired},
		},
		Persister: cart.NewMemoryPersister(),
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

type cartBody struct {
	SessionID string `json:"session_id"`
	Lines     []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
	Coupon *struct {
		Code string `json:"code"`
	} `json:"coupon"`
	Totals struct {
		Subtotal   decimal.Decimal `json:"subtotal"`
		Discount   decimal.Decimal `json:"discount"`
		GrandTotal decimal.Decimal `json:"grand_total"`
		ItemCount  int             `json:"item_count"`
	} `json:"totals"`
	Locked bool `json:"locked"`
}

func TestAddCartItemDefaultsQuantityAndMerges(t *testing.T) {
	reg := newTestRegistry(t)
	add := AddCartItem(reg, testCatalog(), testLogger())

	rec := serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1"}`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1","quantity":2}`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var body cartBody
	decodeData(t, rec, &body)
	if body.SessionID != "sess-1" {
		t.Fatalf("unexpected session %q", body.SessionID)
	}
	if len(body.Lines) != 1 || body.Lines[0].Quantity != 3 {
		t.Fatalf("expected one merged line of 3, got %+v", body.Lines)
	}
	if !body.Totals.Subtotal.Equal(decimal.NewFromInt(2997)) || body.Totals.ItemCount != 3 {
		t.Fatalf("unexpected totals %+v", body.Totals)
	}
}

func TestAddCartItemRejectsUnknownAndHiddenProducts(t *testing.T) {
	reg := newTestRegistry(t)
	add := AddCartItem(reg, testCatalog(), testLogger())

	for _, id := range []string{"404", "9"} {
		rec := serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"`+id+`"}`, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("product %s: expected 404, got %d", id, rec.Code)
		}
	}

	rec := serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1","quantity":-1}`, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative quantity, got %d", rec.Code)
	}
}

func TestUpdateCartItemEnforcesLimitAndRemovesAtZero(t *testing.T) {
	reg := newTestRegistry(t)
	add := AddCartItem(reg, testCatalog(), testLogger())
	update := UpdateCartItem(reg, testLogger())
	params := map[string]string{"productId": "1"}

	serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1"}`, nil))

	rec := serve(update, newRequest(http.MethodPatch, "/api/v1/cart/items/1", "sess-1", `{"quantity":6}`, params))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 above max qty, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeQuantityLimitExceeded) {
		t.Fatalf("unexpected code %s", code)
	}

	rec = serve(update, newRequest(http.MethodPatch, "/api/v1/cart/items/1", "sess-1", `{"quantity":0}`, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body cartBody
	decodeData(t, rec, &body)
	if len(body.Lines) != 0 || !body.Totals.GrandTotal.IsZero() {
		t.Fatalf("expected empty cart, got %+v", body)
	}
}

func TestCartCountAndItemStatus(t *testing.T) {
	reg := newTestRegistry(t)
	add := AddCartItem(reg, testCatalog(), testLogger())
	serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1","quantity":2}`, nil))
	serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"4"}`, nil))

	rec := serve(CartCount(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart/count", "sess-1", "", nil))
	var count struct {
		Count int `json:"count"`
	}
	decodeData(t, rec, &count)
	if count.Count != 3 {
		t.Fatalf("expected count 3, got %d", count.Count)
	}

	rec = serve(CartItemStatus(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart/items/4", "sess-1", "", map[string]string{"productId": "4"}))
	var status struct {
		InCart   bool `json:"in_cart"`
		Quantity int  `json:"quantity"`
	}
	decodeData(t, rec, &status)
	if !status.InCart || status.Quantity != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	// Other sessions are isolated.
	rec = serve(CartCount(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart/count", "sess-2", "", nil))
	decodeData(t, rec, &count)
	if count.Count != 0 {
		t.Fatalf("expected empty cart for other session, got %d", count.Count)
	}
}

func TestApplyCouponFlow(t *testing.T) {
	reg := newTestRegistry(t)
	serve(AddCartItem(reg, testCatalog(), testLogger()),
		newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1"}`, nil))
	apply := ApplyCoupon(reg, testLogger())

	rec := serve(apply, newRequest(http.MethodPost, "/api/v1/cart/coupon", "sess-1", `{"code":" save10 "}`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body cartBody
	decodeData(t, rec, &body)
	if body.Coupon == nil || body.Coupon.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 applied, got %+v", body.Coupon)
	}
	if !body.Totals.Discount.Equal(decimal.RequireFromString("99.9")) {
		t.Fatalf("unexpected discount %s", body.Totals.Discount)
	}

	rec = serve(apply, newRequest(http.MethodPost, "/api/v1/cart/coupon", "sess-1", `{"code":"NOPE"}`, nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != string(pkgerrors.CodeCouponNotFound) {
		t.Fatalf("expected COUPON_NOT_FOUND, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(apply, newRequest(http.MethodPost, "/api/v1/cart/coupon", "sess-1", `{"code":"EXPIRED"}`, nil))
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != string(pkgerrors.CodeCouponIneligible) {
		t.Fatalf("expected COUPON_INELIGIBLE, got %d %s", rec.Code, rec.Body.String())
	}

	// A rejected code leaves the previous coupon in place.
	rec = serve(GetCart(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart", "sess-1", "", nil))
	decodeData(t, rec, &body)
	if body.Coupon == nil || body.Coupon.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 to survive rejection, got %+v", body.Coupon)
	}

	rec = serve(RemoveCoupon(reg, testLogger()), newRequest(http.MethodDelete, "/api/v1/cart/coupon", "sess-1", "", nil))
	decodeData(t, rec, &body)
	if body.Coupon != nil || !body.Totals.Discount.IsZero() {
		t.Fatalf("expected coupon removed, got %+v", body)
	}
}

func TestClearAndRemoveCartItem(t *testing.T) {
	reg := newTestRegistry(t)
	add := AddCartItem(reg, testCatalog(), testLogger())
	serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1"}`, nil))
	serve(add, newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"4"}`, nil))

	rec := serve(RemoveCartItem(reg, testLogger()),
		newRequest(http.MethodDelete, "/api/v1/cart/items/1", "sess-1", "", map[string]string{"productId": "1"}))
	var body cartBody
	decodeData(t, rec, &body)
	if len(body.Lines) != 1 || body.Lines[0].ProductID != "4" {
		t.Fatalf("unexpected lines after remove %+v", body.Lines)
	}

	rec = serve(ClearCart(reg, testLogger()), newRequest(http.MethodDelete, "/api/v1/cart", "sess-1", "", nil))
	decodeData(t, rec, &body)
	if len(body.Lines) != 0 {
		t.Fatalf("expected cleared cart, got %+v", body.Lines)
	}
}

func TestCartHandlersRequireSession(t *testing.T) {
	reg := newTestRegistry(t)
	rec := serve(GetCart(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart", "", "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	rec = serve(GetCart(nil, testLogger()), newRequest(http.MethodGet, "/api/v1/cart", "sess-1", "", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without registry, got %d", rec.Code)
	}
}

func TestLockedCartRejectsMutation(t *testing.T) {
	reg := newTestRegistry(t)
	serve(AddCartItem(reg, testCatalog(), testLogger()),
		newRequest(http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"1"}`, nil))

	store, err := reg.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if _, err := store.BeginCheckout("chk_1"); err != nil {
		t.Fatalf("begin checkout: %v", err)
	}

	rec := serve(ClearCart(reg, testLogger()), newRequest(http.MethodDelete, "/api/v1/cart", "sess-1", "", nil))
	if rec.Code != http.StatusConflict || errorCode(t, rec) != string(pkgerrors.CodeCartLocked) {
		t.Fatalf("expected CART_LOCKED, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(GetCart(reg, testLogger()), newRequest(http.MethodGet, "/api/v1/cart", "sess-1", "", nil))
	var body cartBody
	decodeData(t, rec, &body)
	if !body.Locked {
		t.Fatalf("expected cart reported as locked")
	}
}
