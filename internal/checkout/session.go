package checkout

import (
	"sync"
	"time"

	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

// Session is one checkout attempt. It starts pending and reaches exactly one
// terminal status.
type Session struct {
	ID            string               `json:"checkout_id"`
	CartSession   string               `json:"-"`
	Method        enums.PaymentMethod  `json:"payment_method"`
	Status        enums.CheckoutStatus `json:"status"`
	PaymentRef    string               `json:"payment_ref,omitempty"`
	ClientSecret  string               `json:"client_secret,omitempty"`
	AmountMinor   int64                `json:"amount_minor"`
	Totals        cart.Totals          `json:"totals"`
	Lines         []cart.Line          `json:"lines"`
	OrderNumber   string               `json:"order_number,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

// Err maps a terminal non-success status to its error; nil otherwise.
func (s Session) Err() error {
	switch s.Status {
	case enums.CheckoutStatusCancelled:
		return pkgerrors.New(pkgerrors.CodePaymentCancelled, "payment was cancelled").
			WithDetails(map[string]any{"checkout_id": s.ID, "reason": s.FailureReason})
	case enums.CheckoutStatusFailed:
		return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment failed").
			WithDetails(map[string]any{"checkout_id": s.ID, "reason": s.FailureReason})
	}
	return nil
}

type entry struct {
	mu      sync.Mutex
	session Session
	done    chan struct{}
}

func (e *entry) snapshot() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyLocked()
}

func (e *entry) copyLocked() Session {
	out := e.session
	out.Lines = append([]cart.Line(nil), e.session.Lines...)
	if e.session.ResolvedAt != nil {
		at := *e.session.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}
