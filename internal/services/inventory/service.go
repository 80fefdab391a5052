// Package inventory manages the parts and battery catalogue and its stock movements.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
)

// Compile-time interface check
var _ interfaces.InventoryService = (*Service)(nil)

// Service implements InventoryService
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new inventory service
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

func (s *Service) all(ctx context.Context) ([]*models.Product, error) {
	products, err := txn.List[models.Product](ctx, s.storage.RecordStore(), models.CollProduct, interfaces.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListProducts returns products sorted by name.
func (s *Service) ListProducts(ctx context.Context, filter interfaces.ProductFilter) ([]*models.Product, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := products[:0]
	for _, p := range products {
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		if filter.LowStock && !p.IsLowStock(s.config.Shop.LowStockThreshold) {
			continue
		}
		if search != "" && !matches(p, search) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func matches(p *models.Product, search string) bool {
	for _, field := range []string{p.Name, p.SKU, p.Brand, p.Model, p.Category} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	version, err := txn.Load(ctx, s.storage.RecordStore(), models.CollProduct, id, &p)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	p.Version = version
	return &p, nil
}

func normalize(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = strings.TrimSpace(p.Category)
	p.Model = strings.TrimSpace(p.Model)
	if p.Kind == "" {
		p.Kind = models.KindPart
	}

	switch {
	case p.Name == "":
		return models.Invalidf("name is required")
	case p.SKU == "":
		return models.Invalidf("sku is required")
	case !models.ValidProductKind(p.Kind):
		return models.Invalidf("unknown product kind %q", p.Kind)
	case p.CostPrice.IsNegative():
		return models.Invalidf("cost_price must not be negative")
	case p.SalePrice.IsNegative():
		return models.Invalidf("sale_price must not be negative")
	case p.ReorderLevel < 0:
		return models.Invalidf("reorder_level must not be negative")
	case p.WarrantyMonths < 0:
		return models.Invalidf("warranty_months must not be negative")
	}
	return nil
}

func (s *Service) checkSKU(ctx context.Context, sku, exceptID string) error {
	products, err := s.all(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.SKU == sku && p.ID != exceptID {
			return models.Invalidf("sku %s already used by %s", sku, p.Name)
		}
	}
	return nil
}

// CreateProduct adds a product. Initial stock is booked as an opening movement.
func (s *Service) CreateProduct(ctx context.Context, in models.Product) (*models.Product, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, models.Invalidf("stock must not be negative")
	}
	if err := s.checkSKU(ctx, in.SKU, ""); err != nil {
		return nil, err
	}

	opening := in.Stock
	var created *models.Product
	err := txn.Retry(ctx, 3, func() error {
		p := in
		p.ID = txn.NewID()
		p.Stock = 0
		b := txn.New(ctx, s.storage.RecordStore())
		b.AddProduct(&p)
		if err := b.MoveStock(&p, opening, models.MoveOpening, "", "", "opening stock"); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		created = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("id", created.ID).Str("sku", created.SKU).Int("stock", created.Stock).Msg("Product created")
	return created, nil
}

// UpdateProduct replaces catalogue fields. Stock only changes through movements.
func (s *Service) UpdateProduct(ctx context.Context, id string, in models.Product) (*models.Product, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}
	if err := s.checkSKU(ctx, in.SKU, id); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Product(ctx, id)
		if err != nil {
			return err
		}
		p.Kind = in.Kind
		p.Name = in.Name
		p.SKU = in.SKU
		p.Brand = in.Brand
		p.Category = in.Category
		p.Model = in.Model
		p.CapacityAh = in.CapacityAh
		p.Voltage = in.Voltage
		p.WarrantyMonths = in.WarrantyMonths
		p.CostPrice = in.CostPrice
		p.SalePrice = in.SalePrice
		p.ReorderLevel = in.ReorderLevel
		p.Notes = in.Notes
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info().Str("id", id).Str("sku", updated.SKU).Msg("Product updated")
	return updated, nil
}

// DeleteProduct removes a product. Products still in stock need force.
func (s *Service) DeleteProduct(ctx context.Context, id string, force bool) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete product: %w", models.ErrForbidden)
	}

	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Product(ctx, id)
		if err != nil {
			return err
		}
		if p.Stock > 0 && !force {
			return models.Invalidf("%s still has %d in stock", p.Name, p.Stock)
		}
		b.DeleteProduct(id)
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info().Str("id", id).Bool("force", force).Msg("Product deleted")
	return nil
}

// AdjustStock books a manual correction (count, damage, theft).
func (s *Service) AdjustStock(ctx context.Context, id string, delta int, reason string) (*models.Product, error) {
	if !common.IsAdmin(ctx) {
		return nil, fmt.Errorf("adjust stock: %w", models.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if delta == 0 {
		return nil, models.Invalidf("delta must not be zero")
	}
	if reason == "" {
		return nil, models.Invalidf("reason is required")
	}

	var adjusted *models.Product
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Product(ctx, id)
		if err != nil {
			return err
		}
		if err := b.MoveStock(p, delta, models.MoveAdjustment, "", "", reason); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		adjusted = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	s.logger.Info().Str("id", id).Int("delta", delta).Int("stock", adjusted.Stock).Str("reason", reason).Msg("Stock adjusted")
	return adjusted, nil
}

// Movements returns the product's stock history, newest first.
func (s *Service) Movements(ctx context.Context, productID string, limit int) ([]*models.StockMovement, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	moves, err := txn.List[models.StockMovement](ctx, s.storage.RecordStore(), models.CollStockMovement, interfaces.QueryOptions{
		Ref:   productID,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return moves, nil
}

// LowStock returns products at or below their reorder level, emptiest first.
func (s *Service) LowStock(ctx context.Context) ([]*models.Product, error) {
	products, err := s.ListProducts(ctx, interfaces.ProductFilter{LowStock: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Stock < products[j].Stock })
	return products, nil
}
