package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a dealer bill that brings stock in.
type Purchase struct {
	ID            string        `json:"id"`
	PurchaseNo    string        `json:"purchase_no"`
	BillNo        string        `json:"bill_no,omitempty"` // dealer's own invoice number
	Date          time.Time     `json:"date"`
	DealerID      string        `json:"dealer_id"`
	DealerName    string        `json:"dealer_name"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Totals
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PurchaseInput is the editable part of a purchase. Line UnitPrice is the unit cost paid.
type PurchaseInput struct {
	Date          time.Time       `json:"date"`
	BillNo        string          `json:"bill_no"`
	DealerID      string          `json:"dealer_id"`
	Items         []LineItem      `json:"items"`
	Discount      decimal.Decimal `json:"discount"`
	Paid          decimal.Decimal `json:"paid"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes"`
}
