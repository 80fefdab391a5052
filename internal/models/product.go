package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind separates the spare-parts catalogue from battery stock.
type ProductKind string

const (
	KindPart    ProductKind = "part"
	KindBattery ProductKind = "battery"
)

// ValidProductKind returns true if k is a known product kind.
func ValidProductKind(k ProductKind) bool {
	return k == KindPart || k == KindBattery
}

// Product is a stocked item: a spare part or a battery model.
type Product struct {
	ID             string          `json:"id"`
	Kind           ProductKind     `json:"kind"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Brand          string          `json:"brand,omitempty"`
	Category       string          `json:"category,omitempty"`
	Model          string          `json:"model,omitempty"`       // battery model code
	CapacityAh     int             `json:"capacity_ah,omitempty"` // battery capacity
	Voltage        int             `json:"voltage,omitempty"`
	WarrantyMonths int             `json:"warranty_months,omitempty"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Stock          int             `json:"stock"`
	ReorderLevel   int             `json:"reorder_level"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// IsLowStock reports whether stock is at or below the reorder level, using
// fallback when the product has no reorder level of its own.
func (p *Product) IsLowStock(fallback int) bool {
	level := p.ReorderLevel
	if level <= 0 {
		level = fallback
	}
	return p.Stock <= level
}

// MovementType labels why stock changed.
type MovementType string

const (
	MoveOpening          MovementType = "opening"
	MoveSale             MovementType = "sale"
	MoveSaleReversal     MovementType = "sale_reversal"
	MovePurchase         MovementType = "purchase"
	MovePurchaseReversal MovementType = "purchase_reversal"
	MoveClaimReplacement MovementType = "claim_replacement"
	MoveClaimReversal    MovementType = "claim_reversal"
	MoveRepair           MovementType = "repair"
	MoveAdjustment       MovementType = "adjustment"
)

// StockMovement records one change to a product's stock.
// Quantity is signed: positive in, negative out.
type StockMovement struct {
	ID          string       `json:"id"`
	ProductID   string       `json:"product_id"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	StockBefore int          `json:"stock_before"`
	StockAfter  int          `json:"stock_after"`
	RefType     string       `json:"ref_type,omitempty"`
	RefID       string       `json:"ref_id,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
