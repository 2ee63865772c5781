package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopnearby-backend/api/middleware"
	"github.com/angelmondragon/shopnearby-backend/api/responses"
	"github.com/angelmondragon/shopnearby-backend/api/validators"
	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
)

type beginCheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card cod"`
}

// BeginCheckout locks the session's cart and hands its total to the selected
// payment gateway. Cash on delivery settles in the same call.
func BeginCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}

		var payload beginCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		sess, err := svc.Begin(r.Context(), sessionID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}

// GetCheckout returns a checkout owned by the session. With ?wait=true the
// call blocks until the checkout resolves or the await timeout elapses; a
// cancelled or failed payment is then reported as its error.
func GetCheckout(svc checkout.Service, awaitTimeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		checkoutID := chi.URLParam(r, "checkoutId")
		sess, err := ownedCheckout(svc, middleware.SessionIDFromContext(r.Context()), checkoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
		if wait && sess.Status == enums.CheckoutStatusPending {
			ctx := r.Context()
			if awaitTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, awaitTimeout)
				defer cancel()
			}
			sess, err = svc.Await(ctx, checkoutID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, sess)
	}
}

// CancelCheckout records the shopper dismissing the payment and unlocks the cart.
func CancelCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		sess, err := svc.Cancel(r.Context(), sessionID, chi.URLParam(r, "checkoutId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}

func ownedCheckout(svc checkout.Service, sessionID, checkoutID string) (*checkout.Session, error) {
	sess, err := svc.Get(checkoutID)
	if err != nil {
		return nil, err
	}
	if sessionID == "" || sess.CartSession != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
	}
	return sess, nil
}
