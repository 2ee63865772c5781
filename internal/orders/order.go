package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

const (
	numberPrefix = "ORD-"
	numberLength = 9
)

// Order is the placed order returned to clients.
type Order struct {
	ID            uuid.UUID           `json:"id"`
	Number        string              `json:"order_number"`
	CheckoutID    string              `json:"checkout_id"`
	SessionID     string              `json:"-"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentRef    string              `json:"payment_ref"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	Currency      enums.Currency      `json:"currency"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Tax           decimal.Decimal     `json:"tax"`
	GrandTotal    decimal.Decimal     `json:"grand_total"`
	Lines         []Line              `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Store     string          `json:"store"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewOrderNumber returns "ORD-" followed by nine uppercase alphanumerics.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return numberPrefix + strings.ToUpper(raw[:numberLength])
}

func fromModel(m models.Order) Order {
	out := Order{
		ID:            m.ID,
		Number:        m.Number,
		CheckoutID:    m.CheckoutID,
		SessionID:     m.SessionID,
		PaymentMethod: m.PaymentMethod,
		PaymentRef:    m.PaymentRef,
		Currency:      m.Currency,
		Subtotal:      m.Subtotal,
		Discount:      m.Discount,
		DeliveryFee:   m.DeliveryFee,
		Tax:           m.Tax,
		GrandTotal:    m.GrandTotal,
		Lines:         make([]Line, 0, len(m.Lines)),
		CreatedAt:     m.CreatedAt,
	}
	if m.CouponCode != nil {
		out.CouponCode = *m.CouponCode
	}
	for _, l := range m.Lines {
		out.Lines = append(out.Lines, Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Store:     l.Store,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}
	return out
}
