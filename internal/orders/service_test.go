package orders

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/migrate/migratetest"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-[0-9A-F]{9}$`)

func newTestService(t *testing.T) *service {
	t.Helper()
	client := migratetest.Open(t)
	svc, err := NewService(client, NewRepository(client.DB()))
	require.NoError(t, err)
	return svc.(*service)
}

func placeInput(checkoutID string) PlaceInput {
	lines := []cart.Line{
		{ProductID: "4", Name: "Flaky Paratha Bread", Price: decimal.NewFromInt(199), Store: "Paratha Corner", Quantity: 2},
		{ProductID: "1", Name: "Hyderabadi Chicken Biryani", Price: decimal.NewFromInt(999), Store: "Biryani House", Quantity: 1},
	}
	totals := cart.ComputeTotals(lines, nil, cart.DefaultPricing())
	totals.CouponCode = "WELCOME10"
	return PlaceInput{
		SessionID:     "sess-1",
		CheckoutID:    checkoutID,
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentRef:    "cod_ref",
		Lines:         lines,
		Totals:        totals,
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber()
		if !orderNumberPattern.MatchString(n) {
			t.Fatalf("unexpected order number %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 45 {
		t.Fatalf("order numbers should be effectively unique, got %d distinct", len(seen))
	}
}

func TestPlaceStoresOrderAndLines(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	order, err := svc.Place(ctx, placeInput("chk-1"))
	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, order.Number)
	assert.Equal(t, "WELCOME10", order.CouponCode)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1397)))
	require.Len(t, order.Lines, 2)

	fetched, err := svc.Get(ctx, order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	require.Len(t, fetched.Lines, 2)
	assert.Equal(t, "4", fetched.Lines[0].ProductID)
	assert.True(t, fetched.Lines[0].LineTotal.Equal(decimal.NewFromInt(398)))
	assert.True(t, fetched.GrandTotal.Equal(order.GrandTotal))

	list, err := svc.ListForSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPlaceIsIdempotentPerCheckout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Place(ctx, placeInput("chk-1"))
	require.NoError(t, err)
	second, err := svc.Place(ctx, placeInput("chk-1"))
	require.NoError(t, err)
	assert.Equal(t, first.Number, second.Number)

	list, err := svc.ListForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPlaceRetriesOnNumberCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	numbers := []string{"ORD-AAAAAAAAA", "ORD-AAAAAAAAA", "ORD-BBBBBBBBB"}
	svc.newNumber = func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	first, err := svc.Place(ctx, placeInput("chk-1"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-AAAAAAAAA", first.Number)

	second, err := svc.Place(ctx, placeInput("chk-2"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-BBBBBBBBB", second.Number)
}

func TestPlaceValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := placeInput("chk-1")
	in.Lines = nil
	_, err := svc.Place(ctx, in)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCartCheckout))

	in = placeInput("")
	_, err = svc.Place(ctx, in)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	in = placeInput("chk-1")
	in.PaymentMethod = "barter"
	_, err = svc.Place(ctx, in)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetUnknownOrder(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "ORD-ZZZZZZZZZ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, &Repository{}); err == nil {
		t.Fatal("expected missing tx runner to fail")
	}
}
