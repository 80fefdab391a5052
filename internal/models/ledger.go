package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType categorizes a balance change.
type LedgerEntryType string

const (
	LedgerOpening    LedgerEntryType = "opening"
	LedgerCharge     LedgerEntryType = "charge"   // customer bought on credit
	LedgerPurchase   LedgerEntryType = "purchase" // shop bought from dealer on credit
	LedgerPayment    LedgerEntryType = "payment"
	LedgerReversal   LedgerEntryType = "reversal"
	LedgerAdjustment LedgerEntryType = "adjustment"
)

// LedgerEntry is one signed change to a party balance.
// Amount is the delta applied; BalanceAfter is the balance once applied.
type LedgerEntry struct {
	ID           string          `json:"id"`
	PartyKind    PartyKind       `json:"party_kind"`
	PartyID      string          `json:"party_id"`
	Type         LedgerEntryType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefType      string          `json:"ref_type,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	Date         time.Time       `json:"date"`
	UserID       string          `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PartyLedger is a party with its entries, newest first.
// EntriesTotal is the sum of all entry amounts and equals Balance when the
// books reconcile.
type PartyLedger struct {
	Party        *Party          `json:"party"`
	Entries      []*LedgerEntry  `json:"entries"`
	EntriesTotal decimal.Decimal `json:"entries_total"`
	Reconciled   bool            `json:"reconciled"`
}
