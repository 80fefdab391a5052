// Package txn builds the atomic write batch behind every business operation.
//
// A Batch loads products, parties and documents, remembers the version each
// was read at, and on Commit turns every change into guarded ops for a single
// RecordStore.Apply. If anything read by the batch changed in the meantime
// the commit fails with models.ErrConflict and nothing is written.
package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type docKey struct {
	collection string
	key        string
}

type trackedProduct struct {
	product     *models.Product
	readVersion int
	deleted     bool
}

type trackedParty struct {
	party       *models.Party
	readVersion int
	deleted     bool
}

type counter struct {
	Kind string `json:"kind"`
	Year int    `json:"year"`
	Last int    `json:"last"`

	readVersion int
}

// Batch collects the reads and writes of one business operation.
type Batch struct {
	store  interfaces.RecordStore
	userID string
	now    time.Time

	products map[string]*trackedProduct
	parties  map[string]*trackedParty
	counters map[string]*counter
	docs     map[docKey]int // read versions of loaded documents

	productOrder []string
	partyOrder   []string
	counterOrder []string

	ops []models.BatchOp
}

// New starts a batch on behalf of the user in ctx.
func New(ctx context.Context, store interfaces.RecordStore) *Batch {
	return &Batch{
		store:    store,
		userID:   common.ResolveUserID(ctx),
		now:      time.Now().UTC(),
		products: make(map[string]*trackedProduct),
		parties:  make(map[string]*trackedParty),
		counters: make(map[string]*counter),
		docs:     make(map[docKey]int),
	}
}

// Now is the timestamp stamped on everything the batch writes.
func (b *Batch) Now() time.Time { return b.now }

// UserID is the operator the batch acts for.
func (b *Batch) UserID() string { return b.userID }

// Product loads a product once per batch and returns the shared mutable copy.
func (b *Batch) Product(ctx context.Context, id string) (*models.Product, error) {
	if t, ok := b.products[id]; ok {
		if t.deleted {
			return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
		}
		return t.product, nil
	}
	var p models.Product
	version, err := Load(ctx, b.store, models.CollProduct, id, &p)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	p.Version = version
	b.products[id] = &trackedProduct{product: &p, readVersion: version}
	b.productOrder = append(b.productOrder, id)
	return &p, nil
}

// AddProduct registers a new product. Commit fails with ErrConflict if the ID is taken.
func (b *Batch) AddProduct(p *models.Product) {
	p.CreatedAt = b.now
	b.products[p.ID] = &trackedProduct{product: p}
	b.productOrder = append(b.productOrder, p.ID)
}

// DeleteProduct removes a loaded product when the batch commits.
func (b *Batch) DeleteProduct(id string) {
	if t, ok := b.products[id]; ok {
		t.deleted = true
	}
}

// Party loads a customer or dealer once per batch.
func (b *Batch) Party(ctx context.Context, kind models.PartyKind, id string) (*models.Party, error) {
	ref := models.PartyRef(kind, id)
	if t, ok := b.parties[ref]; ok {
		if t.deleted {
			return nil, fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
		}
		return t.party, nil
	}
	var p models.Party
	version, err := Load(ctx, b.store, kind.Collection(), id, &p)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	p.Version = version
	p.Kind = kind
	b.parties[ref] = &trackedParty{party: &p, readVersion: version}
	b.partyOrder = append(b.partyOrder, ref)
	return &p, nil
}

// AddParty registers a new customer or dealer.
func (b *Batch) AddParty(p *models.Party) {
	p.CreatedAt = b.now
	ref := models.PartyRef(p.Kind, p.ID)
	b.parties[ref] = &trackedParty{party: p}
	b.partyOrder = append(b.partyOrder, ref)
}

// DeleteParty removes a loaded party when the batch commits.
func (b *Batch) DeleteParty(kind models.PartyKind, id string) {
	if t, ok := b.parties[models.PartyRef(kind, id)]; ok {
		t.deleted = true
	}
}

// MoveStock changes p.Stock by delta and records the movement. Stock never goes negative.
func (b *Batch) MoveStock(p *models.Product, delta int, typ models.MovementType, refType, refID, reason string) error {
	if delta == 0 {
		return nil
	}
	after := p.Stock + delta
	if after < 0 {
		return fmt.Errorf("%s (%s): %d in stock, %d needed: %w", p.Name, p.SKU, p.Stock, -delta, models.ErrInsufficientStock)
	}

	m := models.StockMovement{
		ID:          NewID(),
		ProductID:   p.ID,
		Type:        typ,
		Quantity:    delta,
		StockBefore: p.Stock,
		StockAfter:  after,
		RefType:     refType,
		RefID:       refID,
		Reason:      reason,
		UserID:      b.userID,
		CreatedAt:   b.now,
	}
	p.Stock = after
	return b.append(models.CollStockMovement, m.ID, p.ID, m.CreatedAt, m)
}

// Post applies a signed delta to the party balance and records a ledger entry.
// A zero delta posts nothing.
func (b *Batch) Post(p *models.Party, delta decimal.Decimal, typ models.LedgerEntryType, refType, refID, description string, date time.Time) error {
	if delta.IsZero() {
		return nil
	}
	if date.IsZero() {
		date = b.now
	}
	p.Balance = p.Balance.Add(delta)

	e := models.LedgerEntry{
		ID:           NewID(),
		PartyKind:    p.Kind,
		PartyID:      p.ID,
		Type:         typ,
		Amount:       delta,
		BalanceAfter: p.Balance,
		RefType:      refType,
		RefID:        refID,
		Description:  description,
		Date:         date,
		UserID:       b.userID,
		CreatedAt:    b.now,
	}
	return b.append(models.CollLedger, e.ID, models.PartyRef(p.Kind, p.ID), e.CreatedAt, e)
}

// Number prefixes per document kind.
var numberPrefixes = map[string]string{
	models.CollSale:     "INV",
	models.CollPurchase: "PUR",
	models.CollClaim:    "CLM",
	models.CollRepair:   "JOB",
}

// NextNumber allocates the next document number for kind in the year of date,
// e.g. "INV-2026-0007". Numbers restart every year.
func (b *Batch) NextNumber(ctx context.Context, kind string, date time.Time) (string, error) {
	prefix, ok := numberPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("no document number sequence for %q: %w", kind, models.ErrInvalid)
	}
	if date.IsZero() {
		date = b.now
	}
	year := date.Year()
	key := fmt.Sprintf("%s-%d", kind, year)

	c, ok := b.counters[key]
	if !ok {
		c = &counter{Kind: kind, Year: year}
		version, err := Load(ctx, b.store, models.CollCounter, key, c)
		switch {
		case err == nil:
			c.readVersion = version
		case isNotFound(err):
		default:
			return "", fmt.Errorf("counter %s: %w", key, err)
		}
		b.counters[key] = c
		b.counterOrder = append(b.counterOrder, key)
	}
	c.Last++
	return fmt.Sprintf("%s-%d-%04d", prefix, year, c.Last), nil
}

// Load reads a document into v and remembers its version so a later Put or
// Delete of the same document is guarded.
func (b *Batch) Load(ctx context.Context, collection, key string, v any) error {
	version, err := Load(ctx, b.store, collection, key, v)
	if err != nil {
		return err
	}
	b.docs[docKey{collection, key}] = version
	return nil
}

// Put writes a business document. Loaded documents are guarded at the version
// they were read; new ones must not exist yet.
func (b *Batch) Put(collection, key, ref string, date time.Time, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	read := b.docs[docKey{collection, key}]
	b.ops = append(b.ops, models.BatchOp{
		Kind: models.BatchPut,
		Record: &models.Record{
			Collection: collection,
			Key:        key,
			Ref:        ref,
			Value:      string(data),
			Version:    read + 1,
			DateTime:   date,
		},
		Guard: true,
	})
	return nil
}

// Delete removes a loaded business document, guarded at its read version.
func (b *Batch) Delete(collection, key string) {
	b.ops = append(b.ops, models.BatchOp{
		Kind:          models.BatchDelete,
		Record:        &models.Record{Collection: collection, Key: key},
		Guard:         true,
		ExpectVersion: b.docs[docKey{collection, key}],
	})
}

// append adds an immutable entry (movement or ledger line).
func (b *Batch) append(collection, key, ref string, date time.Time, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	b.ops = append(b.ops, models.BatchOp{
		Kind: models.BatchPut,
		Record: &models.Record{
			Collection: collection,
			Key:        key,
			Ref:        ref,
			Value:      string(data),
			Version:    1,
			DateTime:   date,
		},
		Guard: true,
	})
	return nil
}

// Ops assembles the guarded ops the batch would commit.
func (b *Batch) Ops() ([]models.BatchOp, error) {
	var ops []models.BatchOp

	for _, key := range b.counterOrder {
		c := b.counters[key]
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal counter: %w", err)
		}
		ops = append(ops, models.BatchOp{
			Kind: models.BatchPut,
			Record: &models.Record{
				Collection: models.CollCounter,
				Key:        key,
				Value:      string(data),
				Version:    c.readVersion + 1,
				DateTime:   b.now,
			},
			Guard: true,
		})
	}

	for _, id := range b.productOrder {
		t := b.products[id]
		if t.deleted {
			ops = append(ops, models.BatchOp{
				Kind:          models.BatchDelete,
				Record:        &models.Record{Collection: models.CollProduct, Key: id},
				Guard:         true,
				ExpectVersion: t.readVersion,
			})
			continue
		}
		p := t.product
		p.Version = t.readVersion + 1
		p.UpdatedAt = b.now
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product: %w", err)
		}
		ops = append(ops, models.BatchOp{
			Kind: models.BatchPut,
			Record: &models.Record{
				Collection: models.CollProduct,
				Key:        id,
				Value:      string(data),
				Version:    p.Version,
				DateTime:   p.CreatedAt,
			},
			Guard: true,
		})
	}

	for _, ref := range b.partyOrder {
		t := b.parties[ref]
		p := t.party
		coll := p.Kind.Collection()
		if t.deleted {
			ops = append(ops, models.BatchOp{
				Kind:          models.BatchDelete,
				Record:        &models.Record{Collection: coll, Key: p.ID},
				Guard:         true,
				ExpectVersion: t.readVersion,
			})
			continue
		}
		p.Version = t.readVersion + 1
		p.UpdatedAt = b.now
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal party: %w", err)
		}
		ops = append(ops, models.BatchOp{
			Kind: models.BatchPut,
			Record: &models.Record{
				Collection: coll,
				Key:        p.ID,
				Value:      string(data),
				Version:    p.Version,
				DateTime:   p.CreatedAt,
			},
			Guard: true,
		})
	}

	return append(ops, b.ops...), nil
}

// Commit writes everything in one atomic Apply.
func (b *Batch) Commit(ctx context.Context) error {
	ops, err := b.Ops()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	return b.store.Apply(ctx, ops)
}

// NewID returns a time-ordered document ID so entries written in the same
// instant still list in the order they were posted.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
