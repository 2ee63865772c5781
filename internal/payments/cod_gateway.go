package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

const codReferencePrefix = "cod_"

// CashOnDeliveryGateway settles at once: the order is paid at the door.
type CashOnDeliveryGateway struct{}

func NewCashOnDeliveryGateway() CashOnDeliveryGateway { return CashOnDeliveryGateway{} }

func (CashOnDeliveryGateway) Method() enums.PaymentMethod { return enums.PaymentMethodCOD }

func (CashOnDeliveryGateway) Initiate(context.Context, checkout.PaymentRequest) (*checkout.PaymentHandle, error) {
	outcome := checkout.Succeeded()
	return &checkout.PaymentHandle{
		Reference: codReferencePrefix + uuid.NewString(),
		Immediate: &outcome,
	}, nil
}

func (CashOnDeliveryGateway) Cancel(context.Context, string) error { return nil }
