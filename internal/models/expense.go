package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense categories.
const (
	ExpenseRent        = "rent"
	ExpenseSalary      = "salary"
	ExpenseUtilities   = "utilities"
	ExpenseTransport   = "transport"
	ExpenseMaintenance = "maintenance"
	ExpenseOther       = "other"
)

// ValidExpenseCategories lists accepted expense categories.
var ValidExpenseCategories = map[string]bool{
	ExpenseRent:        true,
	ExpenseSalary:      true,
	ExpenseUtilities:   true,
	ExpenseTransport:   true,
	ExpenseMaintenance: true,
	ExpenseOther:       true,
}

// Expense is a shop running cost.
type Expense struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaidTo      string          `json:"paid_to,omitempty"`
	Method      PaymentMethod   `json:"method,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
