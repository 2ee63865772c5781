package cart

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
)

const snapshotVersion = 1

// Snapshot is the persisted form of a cart. The applied coupon is stored with
// its rule so a reload does not re-validate it.
type Snapshot struct {
	Version int             `json:"version"`
	Lines   []Line          `json:"lines"`
	Coupon  *coupons.Coupon `json:"coupon,omitempty"`
}

// CouponCode returns the applied code or "".
func (s Snapshot) CouponCode() string {
	if s.Coupon == nil {
		return ""
	}
	return s.Coupon.Code
}

// EncodeSnapshot serializes a snapshot. Prices are written as decimal strings.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = snapshotVersion
	if s.Lines == nil {
		s.Lines = []Line{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a persisted cart and drops anything that would break
// the cart's invariants: unknown versions, empty ids, non-positive quantities,
// duplicate products and malformed coupons. Quantities above maxQty are clamped.
func DecodeSnapshot(data []byte, maxQty int) (Snapshot, error) {
	var raw Snapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if raw.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported cart snapshot version %d", raw.Version)
	}

	out := Snapshot{Version: snapshotVersion, Lines: make([]Line, 0, len(raw.Lines))}
	seen := make(map[string]struct{}, len(raw.Lines))
	for _, line := range raw.Lines {
		if line.ProductID == "" || line.Quantity < 1 || line.Price.IsNegative() {
			continue
		}
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}
		if maxQty > 0 && line.Quantity > maxQty {
			line.Quantity = maxQty
		}
		out.Lines = append(out.Lines, line)
	}
	if raw.Coupon != nil && raw.Coupon.Validate() == nil {
		out.Coupon = raw.Coupon
	}
	return out, nil
}
