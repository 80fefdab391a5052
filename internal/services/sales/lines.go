package sales

import (
	"context"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
)

// Pricing selects the product price used when a line leaves unit_price empty.
type Pricing int

const (
	// SalePricing defaults to the product sale price (sales, repair parts).
	SalePricing Pricing = iota
	// CostPricing defaults to the product cost price (purchases).
	CostPricing
)

// ResolveLines validates line items and fills product details from the
// catalogue: name, kind, default price, cost snapshot and battery warranty.
// Lines without a product are service lines and never touch stock.
func ResolveLines(ctx context.Context, b *txn.Batch, items []models.LineItem, pricing Pricing) error {
	if len(items) == 0 {
		return models.Invalidf("at least one item is required")
	}
	for i := range items {
		it := &items[i]
		it.Name = strings.TrimSpace(it.Name)
		it.Serial = strings.ToUpper(strings.TrimSpace(it.Serial))

		if it.Quantity <= 0 {
			return models.Invalidf("item %d: quantity must be positive", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return models.Invalidf("item %d: unit_price must not be negative", i+1)
		}

		if it.ProductID == "" {
			if it.Name == "" {
				return models.Invalidf("item %d: service lines need a name", i+1)
			}
			it.Kind = ""
			it.WarrantyMonths = 0
			continue
		}

		p, err := b.Product(ctx, it.ProductID)
		if err != nil {
			return err
		}
		if it.Name == "" {
			it.Name = p.Name
		}
		it.Kind = p.Kind
		it.UnitCost = p.CostPrice
		if it.UnitPrice.IsZero() {
			if pricing == CostPricing {
				it.UnitPrice = p.CostPrice
			} else {
				it.UnitPrice = p.SalePrice
			}
		}
		if p.Kind == models.KindBattery {
			if it.WarrantyMonths <= 0 {
				it.WarrantyMonths = p.WarrantyMonths
			}
			if it.Serial != "" && it.Quantity != 1 {
				return models.Invalidf("item %d: a serial number identifies one battery", i+1)
			}
		} else {
			it.WarrantyMonths = 0
		}
	}
	return nil
}

// MoveLines moves stock for every product line: sign -1 takes stock out, +1 puts it back.
func MoveLines(ctx context.Context, b *txn.Batch, items []models.LineItem, sign int, typ models.MovementType, refType, refID, reason string) error {
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		p, err := b.Product(ctx, it.ProductID)
		if err != nil {
			return err
		}
		if err := b.MoveStock(p, sign*it.Quantity, typ, refType, refID, reason); err != nil {
			return err
		}
	}
	return nil
}
