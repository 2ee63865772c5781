package cart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

func TestSnapshotRoundTripKeepsOrderAndCoupon(t *testing.T) {
	t.Parallel()

	in := Snapshot{
		Lines: []Line{
			{ProductID: "B", Name: "Paneer", Price: d("249.50"), Quantity: 2, Store: "Veggie Delight"},
			{ProductID: "A", Name: "Biryani", Price: d("999"), Quantity: 1},
		},
		Coupon: &coupons.Coupon{Code: "WELCOME10", Kind: enums.CouponKindPercentage, Value: d("10"), Status: enums.CouponStatusActive},
	}
	data, err := EncodeSnapshot(in)
	require.NoError(t, err)
	require.Contains(t, string(data), `"249.5"`)

	out, err := DecodeSnapshot(data, 5)
	require.NoError(t, err)
	require.Len(t, out.Lines, 2)
	require.Equal(t, "B", out.Lines[0].ProductID)
	require.True(t, out.Lines[0].Price.Equal(d("249.50")))
	require.Equal(t, "WELCOME10", out.CouponCode())
}

func TestEncodeSnapshotEmptyCart(t *testing.T) {
	t.Parallel()

	data, err := EncodeSnapshot(Snapshot{})
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"lines":[]}`, string(data))
}

func TestDecodeSnapshotSanitizes(t *testing.T) {
	t.Parallel()

	raw := `{"version":1,"lines":[
		{"product_id":"A","name":"A","price":"100","quantity":9},
		{"product_id":"A","name":"A dup","price":"100","quantity":1},
		{"product_id":"","name":"blank","price":"1","quantity":1},
		{"product_id":"C","name":"C","price":"5","quantity":0},
		{"product_id":"D","name":"D","price":"-5","quantity":1},
		{"product_id":"E","name":"E","price":"7","quantity":2}
	],"coupon":{"code":"BAD","kind":"mystery","value":"1"}}`

	out, err := DecodeSnapshot([]byte(raw), 5)
	require.NoError(t, err)
	require.Len(t, out.Lines, 2)
	require.Equal(t, "A", out.Lines[0].ProductID)
	require.Equal(t, 5, out.Lines[0].Quantity)
	require.Equal(t, "E", out.Lines[1].ProductID)
	require.Nil(t, out.Coupon)
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeSnapshot([]byte("not json"), 5)
	require.Error(t, err)

	_, err = DecodeSnapshot([]byte(`{"version":7,"lines":[]}`), 5)
	require.Error(t, err)
}
