package models

import "time"

// User is an operator account (counter staff or owner).
type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// Record is a generic JSON document. Every domain object (product, party,
// sale, ledger entry, ...) is persisted as one Record in its collection.
// Ref is a secondary lookup key (e.g. "customer:<id>" on ledger entries).
type Record struct {
	Collection string    `json:"collection" badgerhold:"index"`
	Key        string    `json:"key"`
	Ref        string    `json:"ref,omitempty" badgerhold:"index"`
	Value      string    `json:"value"`
	Version    int       `json:"version"`
	DateTime   time.Time `json:"datetime"`
}

// BatchOpKind is the kind of write inside an atomic batch.
type BatchOpKind string

const (
	BatchPut    BatchOpKind = "put"
	BatchDelete BatchOpKind = "delete"
)

// BatchOp is one write in an atomic batch.
//
// A guarded put of a record with Version n succeeds only when the stored
// version is n-1 (a missing record counts as version 0). A guarded delete
// succeeds only when the stored version equals ExpectVersion.
type BatchOp struct {
	Kind          BatchOpKind `json:"kind"`
	Record        *Record     `json:"record"`
	Guard         bool        `json:"guard"`
	ExpectVersion int         `json:"expect_version,omitempty"`
}

// Collection names.
const (
	CollProduct       = "product"
	CollStockMovement = "stock_movement"
	CollCustomer      = "customer"
	CollDealer        = "dealer"
	CollLedger        = "ledger_entry"
	CollSale          = "sale"
	CollPurchase      = "purchase"
	CollClaim         = "claim"
	CollClaimSerial   = "claim_serial"
	CollRepair        = "repair"
	CollExpense       = "expense"
	CollCounter       = "counter"
)
