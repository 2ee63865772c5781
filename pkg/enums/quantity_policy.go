package enums

import (
	"fmt"
	"strings"
)

// QuantityPolicy decides what happens when an explicit quantity exceeds the per-line cap.
type QuantityPolicy string

const (
	QuantityPolicyReject QuantityPolicy = "reject"
	QuantityPolicyClamp  QuantityPolicy = "clamp"
)

// IsValid reports whether the value is a known QuantityPolicy.
func (q QuantityPolicy) IsValid() bool {
	return q == QuantityPolicyReject || q == QuantityPolicyClamp
}

// ParseQuantityPolicy converts raw input into a QuantityPolicy.
func ParseQuantityPolicy(value string) (QuantityPolicy, error) {
	switch QuantityPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case QuantityPolicyReject:
		return QuantityPolicyReject, nil
	case QuantityPolicyClamp:
		return QuantityPolicyClamp, nil
	}
	return "", fmt.Errorf("invalid quantity policy %q", value)
}
