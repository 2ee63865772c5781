package enums

import "testing"

func TestParseCouponKind(t *testing.T) {
	cases := map[string]CouponKind{
		"percentage":      CouponKindPercentage,
		" Fixed ":         CouponKindFixed,
		"WAIVE_DELIVERY":  CouponKindWaiveDelivery,
	}
	for raw, want := range cases {
		got, err := ParseCouponKind(raw)
		if err != nil || got != want {
			t.Fatalf("ParseCouponKind(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseCouponKind("bogo"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestCheckoutStatusTerminal(t *testing.T) {
	if CheckoutStatusPending.IsTerminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, s := range []CheckoutStatus{CheckoutStatusSucceeded, CheckoutStatusCancelled, CheckoutStatusFailed} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if c, err := ParseCurrency("inr"); err != nil || c != CurrencyINR || c.Lower() != "inr" {
		t.Fatalf("unexpected currency parse %q %v", c, err)
	}
	if p, err := ParseQuantityPolicy("CLAMP"); err != nil || p != QuantityPolicyClamp {
		t.Fatalf("unexpected policy parse %q %v", p, err)
	}
	if _, err := ParseQuantityPolicy("ignore"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
	if m, err := ParsePaymentMethod("COD"); err != nil || m != PaymentMethodCOD {
		t.Fatalf("unexpected method parse %q %v", m, err)
	}
	if _, err := ParseChatSender("bot"); err == nil {
		t.Fatalf("expected error for unknown sender")
	}
}
