package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarrantyClaim swaps a failed battery for a new one from stock.
type WarrantyClaim struct {
	ID                   string          `json:"id"`
	ClaimNo              string          `json:"claim_no"`
	Date                 time.Time       `json:"date"`
	CustomerID           string          `json:"customer_id,omitempty"`
	CustomerName         string          `json:"customer_name,omitempty"`
	SaleID               string          `json:"sale_id,omitempty"` // original sale of the failed battery
	PreviousClaimID      string          `json:"previous_claim_id,omitempty"`
	OldSerial            string          `json:"old_serial"`
	ReturnedProductID    string          `json:"returned_product_id,omitempty"`
	ReplacementProductID string          `json:"replacement_product_id"`
	ReplacementName      string          `json:"replacement_name"`
	ReplacementSerial    string          `json:"replacement_serial,omitempty"`
	WarrantyExpiry       *time.Time      `json:"warranty_expiry,omitempty"`
	WithinWarranty       bool            `json:"within_warranty"`
	Override             bool            `json:"override,omitempty"`
	ServiceCharge        decimal.Decimal `json:"service_charge"`
	ServicePaid          decimal.Decimal `json:"service_paid"`
	ServiceSaleID        string          `json:"service_sale_id,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	UserID               string          `json:"user_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ClaimSerial marks a battery serial as already replaced. It is keyed by the
// old serial and points at the latest claim that took it back.
type ClaimSerial struct {
	Serial  string    `json:"serial"`
	ClaimID string    `json:"claim_id"`
	ClaimNo string    `json:"claim_no"`
	Date    time.Time `json:"date"`
}

// ClaimInput is the request to process a warranty claim.
type ClaimInput struct {
	Date                 time.Time       `json:"date"`
	CustomerID           string          `json:"customer_id"`
	CustomerName         string          `json:"customer_name"`
	SaleID               string          `json:"sale_id"`
	OldSerial            string          `json:"old_serial"`
	ReturnedProductID    string          `json:"returned_product_id"`
	ReplacementProductID string          `json:"replacement_product_id"`
	ReplacementSerial    string          `json:"replacement_serial"`
	ServiceCharge        decimal.Decimal `json:"service_charge"`
	ServicePaid          decimal.Decimal `json:"service_paid"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	Override             bool            `json:"override"`
	Notes                string          `json:"notes"`
}
