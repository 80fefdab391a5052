package models

import (
	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from total and paid on every save.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

// PaymentMethod records how the paid part was settled.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodUPI    PaymentMethod = "upi"
	MethodBank   PaymentMethod = "bank"
	MethodCredit PaymentMethod = "credit"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodCash:   true,
	MethodCard:   true,
	MethodUPI:    true,
	MethodBank:   true,
	MethodCredit: true,
}

// ValidPaymentMethod returns true if m is empty or a known method.
func ValidPaymentMethod(m PaymentMethod) bool {
	return m == "" || validPaymentMethods[m]
}

// LineItem is one row on a sale, purchase or repair job.
// UnitCost is snapshotted from the product at save time for profit reporting.
type LineItem struct {
	ProductID      string          `json:"product_id,omitempty"` // empty for service lines
	Name           string          `json:"name"`
	Kind           ProductKind     `json:"kind,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Serial         string          `json:"serial,omitempty"`
	WarrantyMonths int             `json:"warranty_months,omitempty"`
	Total          decimal.Decimal `json:"total"`
}

// Totals is the money block shared by sales, purchases and repair jobs.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Due           decimal.Decimal `json:"due"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// ComputeTotals fills line totals and returns subtotal, total = subtotal − discount,
// due = total − paid and the derived payment status. Range checks are left to
// callers so they can report field-level messages.
func ComputeTotals(items []LineItem, discount, paid decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for i := range items {
		items[i].Total = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		subtotal = subtotal.Add(items[i].Total)
	}
	total := subtotal.Sub(discount)
	due := total.Sub(paid)

	status := PaymentPartial
	switch {
	case due.Sign() <= 0:
		status = PaymentPaid
	case paid.Sign() <= 0:
		status = PaymentUnpaid
	}

	return Totals{
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		Paid:          paid,
		Due:           due,
		PaymentStatus: status,
	}
}

// CostOfGoods sums quantity × unit cost over stocked lines.
func CostOfGoods(items []LineItem) decimal.Decimal {
	cost := decimal.Zero
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		cost = cost.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return cost
}

// Validate checks 0 ≤ discount ≤ subtotal and 0 ≤ paid ≤ total.
func (t Totals) Validate() error {
	switch {
	case t.Discount.IsNegative():
		return Invalidf("discount must not be negative")
	case t.Discount.GreaterThan(t.Subtotal):
		return Invalidf("discount %s exceeds subtotal %s", t.Discount.StringFixed(2), t.Subtotal.StringFixed(2))
	case t.Paid.IsNegative():
		return Invalidf("paid must not be negative")
	case t.Paid.GreaterThan(t.Total):
		return Invalidf("paid %s exceeds total %s", t.Paid.StringFixed(2), t.Total.StringFixed(2))
	}
	return nil
}
