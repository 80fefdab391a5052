// Package sales records customer invoices and their stock and ledger effects.
package sales

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
)

// Compile-time interface check
var _ interfaces.SaleService = (*Service)(nil)

// RefType marks stock movements and ledger entries caused by a sale.
const RefType = "sale"

// Service implements SaleService
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new sales service
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// RangeOptions converts a date range into record query bounds.
func RangeOptions(r interfaces.DateRange, ref string) interfaces.QueryOptions {
	opts := interfaces.QueryOptions{Ref: ref}
	if !r.From.IsZero() {
		from := r.From
		opts.Since = &from
	}
	if !r.To.IsZero() {
		to := r.To
		opts.Until = &to
	}
	return opts
}

// List returns sales in the range, newest first, optionally for one customer.
func (s *Service) List(ctx context.Context, r interfaces.DateRange, customerID string) ([]*models.Sale, error) {
	list, err := txn.List[models.Sale](ctx, s.storage.RecordStore(), models.CollSale, RangeOptions(r, customerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return list, nil
}

// Get returns a single sale.
func (s *Service) Get(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if _, err := txn.Load(ctx, s.storage.RecordStore(), models.CollSale, id, &sale); err != nil {
		return nil, fmt.Errorf("sale %s: %w", id, err)
	}
	return &sale, nil
}

// Post writes a sale document and posts its due to the customer ledger.
// Claims and repairs use it to book the sales they generate.
func Post(ctx context.Context, b *txn.Batch, sale *models.Sale) error {
	if sale.CustomerID != "" && sale.Due.IsPositive() {
		c, err := b.Party(ctx, models.PartyCustomer, sale.CustomerID)
		if err != nil {
			return err
		}
		if err := b.Post(c, sale.Due, models.LedgerCharge, RefType, sale.ID, sale.InvoiceNo, sale.Date); err != nil {
			return err
		}
	}
	return b.Put(models.CollSale, sale.ID, sale.CustomerID, sale.Date, sale)
}

// Reverse undoes the ledger effect of a stored sale. Stock is handled by the caller.
func Reverse(ctx context.Context, b *txn.Batch, sale *models.Sale, reason string) error {
	if sale.CustomerID == "" || !sale.Due.IsPositive() {
		return nil
	}
	c, err := b.Party(ctx, models.PartyCustomer, sale.CustomerID)
	if err != nil {
		return err
	}
	return b.Post(c, sale.Due.Neg(), models.LedgerReversal, RefType, sale.ID, reason+" "+sale.InvoiceNo, b.Now())
}

// apply validates the input, resolves lines and customer, and books the sale:
// stock out, due to the customer ledger, document written.
func (s *Service) apply(ctx context.Context, b *txn.Batch, sale *models.Sale, in models.SaleInput) error {
	if !models.ValidPaymentMethod(in.PaymentMethod) {
		return models.Invalidf("unknown payment method %q", in.PaymentMethod)
	}

	items := append([]models.LineItem(nil), in.Items...)
	if err := ResolveLines(ctx, b, items, SalePricing); err != nil {
		return err
	}
	totals := models.ComputeTotals(items, in.Discount, in.Paid)
	if err := totals.Validate(); err != nil {
		return err
	}

	sale.CustomerID = strings.TrimSpace(in.CustomerID)
	sale.CustomerName = strings.TrimSpace(in.CustomerName)
	if sale.CustomerID != "" {
		c, err := b.Party(ctx, models.PartyCustomer, sale.CustomerID)
		if err != nil {
			return err
		}
		sale.CustomerName = c.Name
	} else if totals.Due.IsPositive() && !s.config.Shop.WalkInCredit {
		return models.Invalidf("walk-in sales must be paid in full (due %s)", totals.Due.StringFixed(2))
	}

	sale.Items = items
	sale.Totals = totals
	sale.PaymentMethod = in.PaymentMethod
	sale.Notes = strings.TrimSpace(in.Notes)
	sale.UpdatedAt = b.Now()
	sale.UserID = b.UserID()

	if err := MoveLines(ctx, b, sale.Items, -1, models.MoveSale, RefType, sale.ID, sale.InvoiceNo); err != nil {
		return err
	}
	return Post(ctx, b, sale)
}

// Create books a counter sale.
func (s *Service) Create(ctx context.Context, in models.SaleInput) (*models.Sale, error) {
	var created *models.Sale
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		date := in.Date
		if date.IsZero() {
			date = b.Now()
		}
		number, err := b.NextNumber(ctx, models.CollSale, date)
		if err != nil {
			return err
		}
		sale := &models.Sale{
			ID:        txn.NewID(),
			InvoiceNo: number,
			Date:      date,
			Source:    models.SourceCounter,
			CreatedAt: b.Now(),
		}
		if err := s.apply(ctx, b, sale, in); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		created = sale
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	s.logger.Info().
		Str("invoice", created.InvoiceNo).
		Str("customer", created.CustomerName).
		Int("items", len(created.Items)).
		Str("total", created.Total.StringFixed(2)).
		Str("due", created.Due.StringFixed(2)).
		Msg("Sale created")
	return created, nil
}

func editable(sale *models.Sale) error {
	if sale.Source != "" && sale.Source != models.SourceCounter {
		return models.Invalidf("sale %s was generated by a %s and must be changed there", sale.InvoiceNo, sale.Source)
	}
	return nil
}

// Update replaces a counter sale: the old stock and ledger effects are reversed
// and the new ones applied in the same batch.
func (s *Service) Update(ctx context.Context, id string, in models.SaleInput) (*models.Sale, error) {
	var updated *models.Sale
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var old models.Sale
		if err := b.Load(ctx, models.CollSale, id, &old); err != nil {
			return fmt.Errorf("sale %s: %w", id, err)
		}
		if err := editable(&old); err != nil {
			return err
		}

		if err := MoveLines(ctx, b, old.Items, 1, models.MoveSaleReversal, RefType, old.ID, "edit "+old.InvoiceNo); err != nil {
			return err
		}
		if err := Reverse(ctx, b, &old, "edit"); err != nil {
			return err
		}

		sale := old
		if !in.Date.IsZero() {
			sale.Date = in.Date
		}
		if err := s.apply(ctx, b, &sale, in); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = &sale
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	s.logger.Info().Str("invoice", updated.InvoiceNo).Str("total", updated.Total.StringFixed(2)).Msg("Sale updated")
	return updated, nil
}

// Delete removes a counter sale, restocking its lines and reversing its due.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete sale: %w", models.ErrForbidden)
	}

	var invoice string
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var old models.Sale
		if err := b.Load(ctx, models.CollSale, id, &old); err != nil {
			return fmt.Errorf("sale %s: %w", id, err)
		}
		if err := editable(&old); err != nil {
			return err
		}
		if err := MoveLines(ctx, b, old.Items, 1, models.MoveSaleReversal, RefType, old.ID, "delete "+old.InvoiceNo); err != nil {
			return err
		}
		if err := Reverse(ctx, b, &old, "delete"); err != nil {
			return err
		}
		b.Delete(models.CollSale, id)
		invoice = old.InvoiceNo
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	s.logger.Info().Str("invoice", invoice).Msg("Sale deleted")
	return nil
}

// FindBySerial returns the most recent sale of the battery with this serial.
func (s *Service) FindBySerial(ctx context.Context, serial string) (*models.Sale, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if serial == "" {
		return nil, models.Invalidf("serial is required")
	}
	all, err := s.List(ctx, interfaces.DateRange{}, "")
	if err != nil {
		return nil, err
	}

	var found []*models.Sale
	for _, sale := range all {
		for _, it := range sale.Items {
			if it.Serial == serial {
				found = append(found, sale)
				break
			}
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no sale for serial %s: %w", serial, models.ErrNotFound)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Date.After(found[j].Date) })
	return found[0], nil
}

// WarrantyStatus reports the expiry of serial on sale and whether it still
// covers date.
func WarrantyStatus(sale *models.Sale, serial string, date time.Time) (time.Time, bool, bool) {
	expiry, ok := sale.WarrantyExpiry(serial)
	if !ok {
		return time.Time{}, false, false
	}
	return expiry, true, !date.After(expiry)
}
