package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartyKind distinguishes customers from dealers (suppliers).
type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartyDealer   PartyKind = "dealer"
)

// Collection returns the record collection for the party kind.
func (k PartyKind) Collection() string {
	if k == PartyDealer {
		return CollDealer
	}
	return CollCustomer
}

// PartyRef builds the ledger lookup key for a party, e.g. "customer:3f2a".
func PartyRef(kind PartyKind, id string) string {
	return string(kind) + ":" + id
}

// Party is a customer or dealer with a running ledger balance.
//
// For customers a positive balance means the customer owes the shop.
// For dealers a positive balance means the shop owes the dealer.
type Party struct {
	ID        string          `json:"id"`
	Kind      PartyKind       `json:"kind"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Email     string          `json:"email,omitempty"`
	Address   string          `json:"address,omitempty"`
	Company   string          `json:"company,omitempty"`
	Vehicle   string          `json:"vehicle,omitempty"` // customers: registration / model
	Notes     string          `json:"notes,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}
