package orders

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/pkg/db"
	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

const maxNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records orders for paid checkouts.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*Order, error)
	Get(ctx context.Context, number string) (*Order, error)
	ListForSession(ctx context.Context, sessionID string) ([]Order, error)
}

// PlaceInput is the frozen cart of a successful checkout.
type PlaceInput struct {
	SessionID     string
	CheckoutID    string
	PaymentMethod enums.PaymentMethod
	PaymentRef    string
	Lines         []cart.Line
	Totals        cart.Totals
}

type service struct {
	tx        txRunner
	repo      *Repository
	newNumber func() string
}

func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, errors.New("tx runner required")
	}
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	return &service{tx: tx, repo: repo, newNumber: NewOrderNumber}, nil
}

// Place writes the order once per checkout. A repeated call for the same
// checkout returns the order already stored.
func (s *service) Place(ctx context.Context, input PlaceInput) (*Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindByCheckoutID(ctx, input.CheckoutID); err == nil {
		out := fromModel(*existing)
		return &out, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		row := buildModel(input, s.newNumber())
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).Create(ctx, row)
		})
		if err == nil {
			out := fromModel(*row)
			return &out, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if strings.Contains(err.Error(), "checkout_id") {
			existing, findErr := s.repo.FindByCheckoutID(ctx, input.CheckoutID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "lookup order")
			}
			out := fromModel(*existing)
			return &out, nil
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate order number")
}

func (s *service) Get(ctx context.Context, number string) (*Order, error) {
	row, err := s.repo.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	out := fromModel(*row)
	return &out, nil
}

func (s *service) ListForSession(ctx context.Context, sessionID string) ([]Order, error) {
	rows, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (in PlaceInput) validate() error {
	switch {
	case strings.TrimSpace(in.SessionID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	case strings.TrimSpace(in.CheckoutID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	case !in.PaymentMethod.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid")
	case len(in.Lines) == 0:
		return pkgerrors.New(pkgerrors.CodeEmptyCartCheckout, "order has no lines")
	}
	return nil
}

func buildModel(in PlaceInput, number string) *models.Order {
	row := &models.Order{
		Number:        number,
		SessionID:     in.SessionID,
		CheckoutID:    in.CheckoutID,
		PaymentMethod: in.PaymentMethod,
		PaymentRef:    in.PaymentRef,
		Currency:      in.Totals.Currency,
		Subtotal:      in.Totals.Subtotal,
		Discount:      in.Totals.Discount,
		DeliveryFee:   in.Totals.DeliveryFee,
		Tax:           in.Totals.Tax,
		GrandTotal:    in.Totals.GrandTotal,
		Lines:         make([]models.OrderLine, 0, len(in.Lines)),
	}
	if in.Totals.CouponCode != "" {
		code := in.Totals.CouponCode
		row.CouponCode = &code
	}
	for i, line := range in.Lines {
		row.Lines = append(row.Lines, models.OrderLine{
			Position:  i,
			ProductID: line.ProductID,
			Name:      line.Name,
			Store:     line.Store,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
			LineTotal: line.Total(),
		})
	}
	return row
}
