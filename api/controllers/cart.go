package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopnearby-backend/api/middleware"
	"github.com/angelmondragon/shopnearby-backend/api/responses"
	"github.com/angelmondragon/shopnearby-backend/api/validators"
	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
)

const maxCouponCodeLength = 32

// CartRegistry resolves the store that owns a session's cart.
type CartRegistry interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

type productLookup interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type cartResponse struct {
	SessionID  string          `json:"session_id"`
	Lines      []cart.Line     `json:"lines"`
	Coupon     *coupons.Coupon `json:"coupon,omitempty"`
	Totals     cart.Totals     `json:"totals"`
	Locked     bool            `json:"locked"`
	CheckoutID string          `json:"checkout_id,omitempty"`
}

func newCartResponse(store *cart.Store) cartResponse {
	view := store.View()
	lines := view.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		SessionID:  view.SessionID,
		Lines:      lines,
		Coupon:     view.Coupon,
		Totals:     view.Totals,
		Locked:     view.CheckoutRef != "",
		CheckoutID: view.CheckoutRef,
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// GetCart returns the session's cart with its derived totals.
func GetCart(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartCount returns the badge count (sum of quantities).
func CartCount(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		responses.WriteSuccess(w, map[string]int{"count": store.ItemCount()})
	})
}

// CartItemStatus reports whether a product is already in the cart.
func CartItemStatus(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		productID := chi.URLParam(r, "productId")
		quantity := 0
		for _, line := range store.Lines() {
			if line.ProductID == productID {
				quantity = line.Quantity
				break
			}
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"in_cart":    store.IsInCart(productID),
			"quantity":   quantity,
		})
	})
}

// AddCartItem merges a catalog product into the cart. Quantity defaults to 1.
func AddCartItem(carts CartRegistry, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}

		product, err := products.GetProduct(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if product.Hidden {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		if err := store.AddItem(r.Context(), *product, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// UpdateCartItem sets a line's quantity; zero removes the line.
func UpdateCartItem(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.SetQuantity(r.Context(), chi.URLParam(r, "productId"), payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

func RemoveCartItem(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if err := store.RemoveItem(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

func ClearCart(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// ApplyCoupon replaces any applied coupon with code. A rejected code leaves
// the cart untouched and surfaces COUPON_NOT_FOUND or COUPON_INELIGIBLE.
func ApplyCoupon(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := validators.SanitizeString(payload.Code, maxCouponCodeLength)
		if _, err := store.ApplyCoupon(r.Context(), code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

func RemoveCoupon(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if err := store.RemoveCoupon(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

func withCart(carts CartRegistry, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *cart.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}
		store, err := carts.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, store)
	}
}
