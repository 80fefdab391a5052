package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepairStatus tracks a job through the workshop.
type RepairStatus string

const (
	RepairOpen       RepairStatus = "open"
	RepairInProgress RepairStatus = "in_progress"
	RepairCompleted  RepairStatus = "completed"
	RepairDelivered  RepairStatus = "delivered"
	RepairCancelled  RepairStatus = "cancelled"
)

// Editable reports whether the job can still change parts and charges.
func (s RepairStatus) Editable() bool {
	return s == RepairOpen || s == RepairInProgress
}

// RepairJob is a workshop job card. Parts leave stock only when the job completes.
type RepairJob struct {
	ID           string          `json:"id"`
	JobNo        string          `json:"job_no"`
	Date         time.Time       `json:"date"`
	CustomerID   string          `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Vehicle      string          `json:"vehicle,omitempty"`
	Complaint    string          `json:"complaint"`
	Work         string          `json:"work,omitempty"`
	Parts        []LineItem      `json:"parts"`
	LaborCharge  decimal.Decimal `json:"labor_charge"`
	Discount     decimal.Decimal `json:"discount"`
	Status       RepairStatus    `json:"status"`
	SaleID       string          `json:"sale_id,omitempty"`
	Total        decimal.Decimal `json:"total"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RepairInput is the editable part of a job card.
type RepairInput struct {
	Date         time.Time       `json:"date"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Vehicle      string          `json:"vehicle"`
	Complaint    string          `json:"complaint"`
	Work         string          `json:"work"`
	Parts        []LineItem      `json:"parts"`
	LaborCharge  decimal.Decimal `json:"labor_charge"`
	Discount     decimal.Decimal `json:"discount"`
	Status       RepairStatus    `json:"status"`
}

// RepairCompletion carries the settlement made when a job completes.
type RepairCompletion struct {
	Paid          decimal.Decimal `json:"paid"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}
