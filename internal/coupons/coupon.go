package coupons

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

// Coupon is a named discount rule.
type Coupon struct {
	Code        string             `json:"code"`
	Kind        enums.CouponKind   `json:"kind"`
	Value       decimal.Decimal    `json:"value"`
	MinSubtotal *decimal.Decimal   `json:"min_subtotal,omitempty"`
	MaxUses     *int               `json:"max_uses,omitempty"`
	UsedCount   int                `json:"used_count"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	Status      enums.CouponStatus `json:"status"`
}

// NormalizeCode turns user input into the canonical lookup key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the rule itself is well formed.
func (c Coupon) Validate() error {
	if c.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	switch c.Kind {
	case enums.CouponKindPercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be in (0, 100]")
		}
	case enums.CouponKindFixed:
		if c.Value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "fixed amount must not be negative")
		}
	case enums.CouponKindWaiveDelivery:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported coupon kind %q", c.Kind))
	}
	return nil
}

// CheckEligibility reports why the coupon cannot be applied to a cart with the given subtotal.
func (c Coupon) CheckEligibility(subtotal decimal.Decimal, now time.Time) error {
	reason := ""
	switch {
	case c.Status == enums.CouponStatusExpired:
		reason = "expired"
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		reason = "expired"
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		reason = "usage_exhausted"
	case c.MinSubtotal != nil && subtotal.LessThan(*c.MinSubtotal):
		reason = "below_minimum"
	}
	if reason == "" {
		return nil
	}

	details := map[string]any{"code": c.Code, "reason": reason}
	msg := fmt.Sprintf("coupon %s is not eligible: %s", c.Code, strings.ReplaceAll(reason, "_", " "))
	if reason == "below_minimum" {
		details["min_subtotal"] = c.MinSubtotal.StringFixed(2)
		details["subtotal"] = subtotal.StringFixed(2)
		msg = fmt.Sprintf("coupon %s requires a subtotal of at least %s", c.Code, c.MinSubtotal.StringFixed(2))
	}
	return pkgerrors.New(pkgerrors.CodeCouponIneligible, msg).WithDetails(details)
}

func fromModel(m models.Coupon) Coupon {
	c := Coupon{
		Code:      m.Code,
		Kind:      m.Kind,
		Value:     m.Value,
		MaxUses:   m.MaxUses,
		UsedCount: m.UsedCount,
		ExpiresAt: m.ExpiresAt,
		Status:    m.Status,
	}
	if m.MinSubtotal.Valid {
		minSubtotal := m.MinSubtotal.Decimal
		c.MinSubtotal = &minSubtotal
	}
	return c
}
