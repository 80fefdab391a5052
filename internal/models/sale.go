package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleSource tells where a sale came from. Only counter sales are edited directly.
type SaleSource string

const (
	SourceCounter SaleSource = "counter"
	SourceClaim   SaleSource = "claim"
	SourceRepair  SaleSource = "repair"
)

// Sale is a customer invoice.
type Sale struct {
	ID            string        `json:"id"`
	InvoiceNo     string        `json:"invoice_no"`
	Date          time.Time     `json:"date"`
	CustomerID    string        `json:"customer_id,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Source        SaleSource    `json:"source"`
	SourceID      string        `json:"source_id,omitempty"` // claim or repair job id
	Notes         string        `json:"notes,omitempty"`
	Totals
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarrantyExpiry returns the expiry of the battery line carrying serial, or
// false when no such line exists or it carries no warranty.
func (s *Sale) WarrantyExpiry(serial string) (time.Time, bool) {
	for _, it := range s.Items {
		if it.Serial == serial && it.WarrantyMonths > 0 {
			return s.Date.AddDate(0, it.WarrantyMonths, 0), true
		}
	}
	return time.Time{}, false
}

// SaleInput is the editable part of a sale.
type SaleInput struct {
	Date          time.Time       `json:"date"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Items         []LineItem      `json:"items"`
	Discount      decimal.Decimal `json:"discount"`
	Paid          decimal.Decimal `json:"paid"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes"`
}
