package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/pkg/db/models"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
)

// Snapshot captures the price and ownership of a product at one instant.
// Orders copy these values so later catalog edits never change placed orders.
type Snapshot struct {
	ProductID  uuid.UUID
	SellerID   uuid.UUID
	Name       string
	PriceCents int64
}

// Service is the read surface the order flow uses to price and validate a
// basket.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Product(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// SnapshotAll resolves every product, requiring all of them to exist and
	// be available. One missing or unavailable product fails the whole call.
	SnapshotAll(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error)
}

type service struct {
	repo Repository
}

// NewService wires the catalog read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) SnapshotAll(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	byID := make(map[uuid.UUID]Snapshot, len(products))
	for _, product := range products {
		if !product.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": product.ID, "name": product.Name})
		}
		byID[product.ID] = Snapshot{
			ProductID:  product.ID,
			SellerID:   product.SellerID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
		}
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return byID, nil
}
