// Package parties manages customers and dealers and their running ledgers.
package parties

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.PartyService = (*Service)(nil)

// Service implements PartyService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new party service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func checkKind(kind models.PartyKind) error {
	if kind != models.PartyCustomer && kind != models.PartyDealer {
		return models.Invalidf("unknown party kind %q", kind)
	}
	return nil
}

// List returns parties of a kind sorted by name, optionally filtered by a
// case-insensitive search over name, phone and company.
func (s *Service) List(ctx context.Context, kind models.PartyKind, search string) ([]*models.Party, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	parties, err := txn.List[models.Party](ctx, s.storage.RecordStore(), kind.Collection(), interfaces.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}

	search = strings.ToLower(strings.TrimSpace(search))
	out := parties[:0]
	for _, p := range parties {
		p.Kind = kind
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Phone), search) &&
			!strings.Contains(strings.ToLower(p.Company), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// Get returns a single party.
func (s *Service) Get(ctx context.Context, kind models.PartyKind, id string) (*models.Party, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var p models.Party
	version, err := txn.Load(ctx, s.storage.RecordStore(), kind.Collection(), id, &p)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	p.Kind = kind
	p.Version = version
	return &p, nil
}

func normalize(p *models.Party) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(p.Email)
	if p.Name == "" {
		return models.Invalidf("name is required")
	}
	return nil
}

// Create adds a party. A non-zero opening balance is booked as an opening entry.
func (s *Service) Create(ctx context.Context, in models.Party, openingBalance decimal.Decimal) (*models.Party, error) {
	if err := checkKind(in.Kind); err != nil {
		return nil, err
	}
	if err := normalize(&in); err != nil {
		return nil, err
	}

	var created *models.Party
	err := txn.Retry(ctx, 3, func() error {
		p := in
		p.ID = txn.NewID()
		p.Balance = decimal.Zero
		b := txn.New(ctx, s.storage.RecordStore())
		b.AddParty(&p)
		if err := b.Post(&p, openingBalance, models.LedgerOpening, "", "", "opening balance", b.Now()); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		created = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", in.Kind, err)
	}

	s.logger.Info().Str("kind", string(created.Kind)).Str("id", created.ID).Str("name", created.Name).
		Str("opening_balance", openingBalance.StringFixed(2)).Msg("Party created")
	return created, nil
}

// Update replaces contact details. The balance only moves through ledger entries.
func (s *Service) Update(ctx context.Context, kind models.PartyKind, id string, in models.Party) (*models.Party, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := normalize(&in); err != nil {
		return nil, err
	}

	var updated *models.Party
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Party(ctx, kind, id)
		if err != nil {
			return err
		}
		p.Name = in.Name
		p.Phone = in.Phone
		p.Email = in.Email
		p.Address = in.Address
		p.Company = in.Company
		p.Vehicle = in.Vehicle
		p.Notes = in.Notes
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return updated, nil
}

// Delete removes a party whose balance is settled. Its ledger history is kept.
func (s *Service) Delete(ctx context.Context, kind models.PartyKind, id string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete %s: %w", kind, models.ErrForbidden)
	}

	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Party(ctx, kind, id)
		if err != nil {
			return err
		}
		if !p.Balance.IsZero() {
			return models.Invalidf("%s has an outstanding balance of %s", p.Name, p.Balance.StringFixed(2))
		}
		b.DeleteParty(kind, id)
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	s.logger.Info().Str("kind", string(kind)).Str("id", id).Msg("Party deleted")
	return nil
}

// Ledger returns the party, its entries newest first (limit 0 for all) and
// whether the entries add up to the stored balance.
func (s *Service) Ledger(ctx context.Context, kind models.PartyKind, id string, limit int) (*models.PartyLedger, error) {
	p, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	all, err := txn.List[models.LedgerEntry](ctx, s.storage.RecordStore(), models.CollLedger, interfaces.QueryOptions{
		Ref: models.PartyRef(kind, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}

	total := decimal.Zero
	for _, e := range all {
		total = total.Add(e.Amount)
	}
	entries := all
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return &models.PartyLedger{
		Party:        p,
		Entries:      entries,
		EntriesTotal: total,
		Reconciled:   total.Equal(p.Balance),
	}, nil
}

// RecordPayment books money settled between the shop and the party: a
// customer paying the shop, or the shop paying a dealer. Both reduce the balance.
func (s *Service) RecordPayment(ctx context.Context, kind models.PartyKind, id string, amount decimal.Decimal, date time.Time, note string) (*models.Party, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, models.Invalidf("amount must be positive")
	}
	if note = strings.TrimSpace(note); note == "" {
		note = "payment"
	}

	var updated *models.Party
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Party(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := b.Post(p, amount.Neg(), models.LedgerPayment, "", "", note, date); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info().Str("kind", string(kind)).Str("id", id).Str("amount", amount.StringFixed(2)).
		Str("balance", updated.Balance.StringFixed(2)).Msg("Payment recorded")
	return updated, nil
}

// Adjust books a signed correction to the balance.
func (s *Service) Adjust(ctx context.Context, kind models.PartyKind, id string, delta decimal.Decimal, note string) (*models.Party, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if !common.IsAdmin(ctx) {
		return nil, fmt.Errorf("adjust balance: %w", models.ErrForbidden)
	}
	if delta.IsZero() {
		return nil, models.Invalidf("delta must not be zero")
	}
	if note = strings.TrimSpace(note); note == "" {
		return nil, models.Invalidf("note is required")
	}

	var updated *models.Party
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		p, err := b.Party(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := b.Post(p, delta, models.LedgerAdjustment, "", "", note, b.Now()); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	s.logger.Info().Str("kind", string(kind)).Str("id", id).Str("delta", delta.StringFixed(2)).
		Str("note", note).Msg("Balance adjusted")
	return updated, nil
}
