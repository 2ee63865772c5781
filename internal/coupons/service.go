package coupons

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

// Service validates coupon codes and records their use.
type Service interface {
	Lookup(ctx context.Context, code string) (*Coupon, error)
	RecordUsage(ctx context.Context, code string) error
	List(ctx context.Context) ([]Coupon, error)
}

type couponStore interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]models.Coupon, error)
}

type service struct {
	repo couponStore
}

func NewService(repo couponStore) (Service, error) {
	if repo == nil {
		return nil, errors.New("coupon repository required")
	}
	return &service{repo: repo}, nil
}

// Lookup resolves a code case-insensitively. Eligibility is checked by the caller.
func (s *service) Lookup(ctx context.Context, code string) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	row, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid coupon code").
				WithDetails(map[string]any{"code": normalized})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	c := fromModel(*row)
	if err := c.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored coupon is malformed")
	}
	return &c, nil
}

func (s *service) RecordUsage(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil
	}
	updated, err := s.repo.IncrementUsage(ctx, normalized)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid coupon code")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]Coupon, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]Coupon, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// StaticLookup serves a fixed set of coupons, for tests and for running without a database.
type StaticLookup map[string]Coupon

func (s StaticLookup) Lookup(_ context.Context, code string) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	c, ok := s[normalized]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid coupon code").
			WithDetails(map[string]any{"code": normalized})
	}
	return &c, nil
}
