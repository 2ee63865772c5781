package coupons

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func ptrDec(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func TestCheckEligibility(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	three := 3

	cases := []struct {
		name     string
		coupon   Coupon
		subtotal string
		reason   string
	}{
		{"no constraints", Coupon{Code: "A", Kind: enums.CouponKindPercentage, Value: dec("10")}, "0", ""},
		{"meets minimum exactly", Coupon{Code: "A", MinSubtotal: ptrDec("200")}, "200", ""},
		{"below minimum", Coupon{Code: "A", MinSubtotal: ptrDec("200")}, "199.99", "below_minimum"},
		{"expired by date", Coupon{Code: "A", ExpiresAt: &past}, "500", "expired"},
		{"not yet expired", Coupon{Code: "A", ExpiresAt: &future}, "500", ""},
		{"expired by status", Coupon{Code: "A", Status: enums.CouponStatusExpired}, "500", "expired"},
		{"exhausted", Coupon{Code: "A", MaxUses: &three, UsedCount: 3}, "500", "usage_exhausted"},
		{"under cap", Coupon{Code: "A", MaxUses: &three, UsedCount: 2}, "500", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.coupon.CheckEligibility(dec(tc.subtotal), now)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("expected eligible, got %v", err)
				}
				return
			}
			perr := pkgerrors.As(err)
			if perr == nil || perr.Code() != pkgerrors.CodeCouponIneligible {
				t.Fatalf("expected COUPON_INELIGIBLE, got %v", err)
			}
			details, _ := perr.Details().(map[string]any)
			if details["reason"] != tc.reason {
				t.Fatalf("expected reason %q, got %v", tc.reason, details["reason"])
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := []Coupon{
		{Code: "P", Kind: enums.CouponKindPercentage, Value: dec("100")},
		{Code: "F", Kind: enums.CouponKindFixed, Value: dec("0")},
		{Code: "W", Kind: enums.CouponKindWaiveDelivery},
	}
	for _, c := range valid {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s should be valid: %v", c.Code, err)
		}
	}

	invalid := []Coupon{
		{Code: "", Kind: enums.CouponKindFixed},
		{Code: "P0", Kind: enums.CouponKindPercentage, Value: dec("0")},
		{Code: "P101", Kind: enums.CouponKindPercentage, Value: dec("100.01")},
		{Code: "FNEG", Kind: enums.CouponKindFixed, Value: dec("-1")},
		{Code: "BOGO", Kind: enums.CouponKind("bogo")},
	}
	for _, c := range invalid {
		if err := c.Validate(); err == nil {
			t.Fatalf("%q should be invalid", c.Code)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  welcome10 "); got != "WELCOME10" {
		t.Fatalf("unexpected normalized code %q", got)
	}
}
