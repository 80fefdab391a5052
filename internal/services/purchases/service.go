// Package purchases records dealer bills that bring stock in.
package purchases

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/sales"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
)

// Compile-time interface check
var _ interfaces.PurchaseService = (*Service)(nil)

const refType = "purchase"

// Service implements PurchaseService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new purchase service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// List returns purchases in the range, newest first, optionally for one dealer.
func (s *Service) List(ctx context.Context, r interfaces.DateRange, dealerID string) ([]*models.Purchase, error) {
	list, err := txn.List[models.Purchase](ctx, s.storage.RecordStore(), models.CollPurchase, sales.RangeOptions(r, dealerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return list, nil
}

// Get returns a single purchase.
func (s *Service) Get(ctx context.Context, id string) (*models.Purchase, error) {
	var p models.Purchase
	if _, err := txn.Load(ctx, s.storage.RecordStore(), models.CollPurchase, id, &p); err != nil {
		return nil, fmt.Errorf("purchase %s: %w", id, err)
	}
	return &p, nil
}

// apply books a purchase: stock in, latest cost onto the product, due to the dealer.
func (s *Service) apply(ctx context.Context, b *txn.Batch, pur *models.Purchase, in models.PurchaseInput) error {
	if !models.ValidPaymentMethod(in.PaymentMethod) {
		return models.Invalidf("unknown payment method %q", in.PaymentMethod)
	}
	dealerID := strings.TrimSpace(in.DealerID)
	if dealerID == "" {
		return models.Invalidf("dealer_id is required")
	}

	items := append([]models.LineItem(nil), in.Items...)
	if err := sales.ResolveLines(ctx, b, items, sales.CostPricing); err != nil {
		return err
	}
	for i := range items {
		if items[i].ProductID == "" {
			return models.Invalidf("item %d: purchases must reference a product", i+1)
		}
		// On a bill the price paid is the cost.
		items[i].UnitCost = items[i].UnitPrice
	}
	totals := models.ComputeTotals(items, in.Discount, in.Paid)
	if err := totals.Validate(); err != nil {
		return err
	}

	dealer, err := b.Party(ctx, models.PartyDealer, dealerID)
	if err != nil {
		return err
	}

	pur.DealerID = dealer.ID
	pur.DealerName = dealer.Name
	pur.BillNo = strings.TrimSpace(in.BillNo)
	pur.Items = items
	pur.Totals = totals
	pur.PaymentMethod = in.PaymentMethod
	pur.Notes = strings.TrimSpace(in.Notes)
	pur.UpdatedAt = b.Now()
	pur.UserID = b.UserID()

	reason := pur.PurchaseNo
	if pur.BillNo != "" {
		reason += " / " + pur.BillNo
	}
	if err := sales.MoveLines(ctx, b, items, 1, models.MovePurchase, refType, pur.ID, reason); err != nil {
		return err
	}
	for _, it := range items {
		p, err := b.Product(ctx, it.ProductID)
		if err != nil {
			return err
		}
		p.CostPrice = it.UnitPrice
	}

	if err := b.Post(dealer, totals.Due, models.LedgerPurchase, refType, pur.ID, pur.PurchaseNo, pur.Date); err != nil {
		return err
	}
	return b.Put(models.CollPurchase, pur.ID, pur.DealerID, pur.Date, pur)
}

// reverse takes the purchased stock back out and reverses the dealer due.
// It fails with ErrInsufficientStock when the goods have since been sold.
func reverse(ctx context.Context, b *txn.Batch, pur *models.Purchase, reason string) error {
	if err := sales.MoveLines(ctx, b, pur.Items, -1, models.MovePurchaseReversal, refType, pur.ID, reason+" "+pur.PurchaseNo); err != nil {
		return err
	}
	if !pur.Due.IsPositive() {
		return nil
	}
	dealer, err := b.Party(ctx, models.PartyDealer, pur.DealerID)
	if err != nil {
		return err
	}
	return b.Post(dealer, pur.Due.Neg(), models.LedgerReversal, refType, pur.ID, reason+" "+pur.PurchaseNo, b.Now())
}

// Create books a dealer bill.
func (s *Service) Create(ctx context.Context, in models.PurchaseInput) (*models.Purchase, error) {
	var created *models.Purchase
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		date := in.Date
		if date.IsZero() {
			date = b.Now()
		}
		number, err := b.NextNumber(ctx, models.CollPurchase, date)
		if err != nil {
			return err
		}
		pur := &models.Purchase{
			ID:         txn.NewID(),
			PurchaseNo: number,
			Date:       date,
			CreatedAt:  b.Now(),
		}
		if err := s.apply(ctx, b, pur, in); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		created = pur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	s.logger.Info().
		Str("purchase", created.PurchaseNo).
		Str("dealer", created.DealerName).
		Str("total", created.Total.StringFixed(2)).
		Str("due", created.Due.StringFixed(2)).
		Msg("Purchase created")
	return created, nil
}

// Update reverses the stored bill and applies the new one in a single batch.
func (s *Service) Update(ctx context.Context, id string, in models.PurchaseInput) (*models.Purchase, error) {
	var updated *models.Purchase
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var old models.Purchase
		if err := b.Load(ctx, models.CollPurchase, id, &old); err != nil {
			return fmt.Errorf("purchase %s: %w", id, err)
		}
		// New lines go in before the old ones come out, so the edit only
		// fails when the net result would leave negative stock.
		pur := old
		if !in.Date.IsZero() {
			pur.Date = in.Date
		}
		if err := s.apply(ctx, b, &pur, in); err != nil {
			return err
		}
		if err := reverse(ctx, b, &old, "edit"); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = &pur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}

	s.logger.Info().Str("purchase", updated.PurchaseNo).Str("total", updated.Total.StringFixed(2)).Msg("Purchase updated")
	return updated, nil
}

// Delete removes a bill, taking its stock back out and reversing the dealer due.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete purchase: %w", models.ErrForbidden)
	}

	var number string
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var old models.Purchase
		if err := b.Load(ctx, models.CollPurchase, id, &old); err != nil {
			return fmt.Errorf("purchase %s: %w", id, err)
		}
		if err := reverse(ctx, b, &old, "delete"); err != nil {
			return err
		}
		b.Delete(models.CollPurchase, id)
		number = old.PurchaseNo
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	s.logger.Info().Str("purchase", number).Msg("Purchase deleted")
	return nil
}
