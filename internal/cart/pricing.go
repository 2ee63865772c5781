package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	"github.com/angelmondragon/shopnearby-backend/pkg/config"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the constants every cart total is derived from.
type Pricing struct {
	MaxQty         int
	DeliveryFee    decimal.Decimal
	TaxRate        decimal.Decimal
	Currency       enums.Currency
	QuantityPolicy enums.QuantityPolicy
}

// DefaultPricing matches the storefront's launch constants.
func DefaultPricing() Pricing {
	return Pricing{
		MaxQty:         5,
		DeliveryFee:    decimal.NewFromInt(199),
		TaxRate:        decimal.RequireFromString("0.08"),
		Currency:       enums.CurrencyINR,
		QuantityPolicy: enums.QuantityPolicyReject,
	}
}

// PricingFromConfig converts the cart config section.
func PricingFromConfig(cfg config.CartConfig) (Pricing, error) {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return Pricing{}, err
	}
	policy, err := enums.ParseQuantityPolicy(cfg.QuantityPolicy)
	if err != nil {
		return Pricing{}, err
	}
	p := Pricing{
		MaxQty:         cfg.MaxQty,
		DeliveryFee:    cfg.DeliveryFeeAmount(),
		TaxRate:        cfg.TaxRateValue(),
		Currency:       currency,
		QuantityPolicy: policy,
	}
	return p, p.validate()
}

func (p Pricing) validate() error {
	if p.MaxQty < 1 {
		return fmt.Errorf("max qty must be at least 1")
	}
	if p.DeliveryFee.IsNegative() || p.TaxRate.IsNegative() {
		return fmt.Errorf("delivery fee and tax rate must not be negative")
	}
	if !p.Currency.IsValid() || !p.QuantityPolicy.IsValid() {
		return fmt.Errorf("currency and quantity policy are required")
	}
	return nil
}

// Totals is the derived money view of a cart.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	ItemCount   int             `json:"item_count"`
	Currency    enums.Currency  `json:"currency"`
	CouponCode  string          `json:"coupon_code,omitempty"`
}

// AmountMinor returns the grand total in the currency's minor unit (paise, cents).
func (t Totals) AmountMinor() int64 {
	return t.GrandTotal.Round(2).Shift(2).IntPart()
}

// ComputeTotals is the single place cart money is derived. It has no side effects.
//
// Discounts apply to the subtotal only, except waive_delivery which offsets the
// delivery fee. The grand total never drops below zero.
func ComputeTotals(lines []Line, coupon *coupons.Coupon, p Pricing) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
		count += line.Quantity
	}

	deliveryFee := decimal.Zero
	if subtotal.IsPositive() {
		deliveryFee = p.DeliveryFee
	}

	discount := decimal.Zero
	code := ""
	if coupon != nil {
		code = coupon.Code
		switch coupon.Kind {
		case enums.CouponKindPercentage:
			discount = subtotal.Mul(coupon.Value).Div(hundred)
		case enums.CouponKindFixed:
			discount = decimal.Min(coupon.Value, subtotal)
		case enums.CouponKindWaiveDelivery:
			discount = deliveryFee
		}
	}

	tax := subtotal.Mul(p.TaxRate)
	grand := subtotal.Add(deliveryFee).Add(tax).Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: deliveryFee,
		Tax:         tax,
		GrandTotal:  grand,
		ItemCount:   count,
		Currency:    p.Currency,
		CouponCode:  code,
	}
}
