package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
)

// Service is the read-only catalog consumed by browsing and the cart.
type Service interface {
	ListProducts(ctx context.Context, includeHidden bool) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
}

type productReader interface {
	List(ctx context.Context, includeHidden bool) ([]models.CatalogProduct, error)
	FindByID(ctx context.Context, id string) (*models.CatalogProduct, error)
}

type service struct {
	repo productReader
}

// NewService builds the catalog service.
func NewService(repo productReader) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, includeHidden bool) ([]Product, error) {
	rows, err := s.repo.List(ctx, includeHidden)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Search filters visible products by a case-insensitive substring. A blank query lists everything visible.
func (s *service) Search(ctx context.Context, query string) ([]Product, error) {
	visible, err := s.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return visible, nil
	}
	matched := make([]Product, 0, len(visible))
	for _, p := range visible {
		if p.Matches(query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetProduct returns a product by id. Hidden products remain addressable so existing carts keep resolving.
func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	p := fromModel(*row)
	return &p, nil
}
