// Package claims processes battery warranty claims.
//
// A claim swaps a failed battery for a new one from stock. The stock
// movement, the claim itself and the optional service-charge sale are written
// in one batch, so a claim never exists without its replacement leaving stock.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/sales"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.ClaimService = (*Service)(nil)

const refType = "claim"

// Service implements ClaimService
type Service struct {
	storage interfaces.StorageManager
	sales   interfaces.SaleService
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new claim service. The sale service is used to trace
// the original sale of the returned battery by serial.
func NewService(storage interfaces.StorageManager, saleService interfaces.SaleService, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		sales:   saleService,
		config:  config,
		logger:  logger,
	}
}

// List returns claims in the range, newest first.
func (s *Service) List(ctx context.Context, r interfaces.DateRange) ([]*models.WarrantyClaim, error) {
	list, err := txn.List[models.WarrantyClaim](ctx, s.storage.RecordStore(), models.CollClaim, sales.RangeOptions(r, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return list, nil
}

// Get returns a single claim.
func (s *Service) Get(ctx context.Context, id string) (*models.WarrantyClaim, error) {
	var c models.WarrantyClaim
	if _, err := txn.Load(ctx, s.storage.RecordStore(), models.CollClaim, id, &c); err != nil {
		return nil, fmt.Errorf("claim %s: %w", id, err)
	}
	return &c, nil
}

func validate(in *models.ClaimInput) error {
	in.OldSerial = strings.ToUpper(strings.TrimSpace(in.OldSerial))
	in.ReplacementSerial = strings.ToUpper(strings.TrimSpace(in.ReplacementSerial))
	in.ReplacementProductID = strings.TrimSpace(in.ReplacementProductID)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.SaleID = strings.TrimSpace(in.SaleID)

	switch {
	case in.OldSerial == "":
		return models.Invalidf("old_serial is required")
	case in.ReplacementProductID == "":
		return models.Invalidf("replacement_product_id is required")
	case in.ServiceCharge.IsNegative():
		return models.Invalidf("service_charge must not be negative")
	case in.ServicePaid.IsNegative():
		return models.Invalidf("service_paid must not be negative")
	case in.ServicePaid.GreaterThan(in.ServiceCharge):
		return models.Invalidf("service_paid exceeds service_charge")
	case !models.ValidPaymentMethod(in.PaymentMethod):
		return models.Invalidf("unknown payment method %q", in.PaymentMethod)
	}
	return nil
}

// originalSale finds the sale of the returned battery: by id when given,
// otherwise by serial. A battery sold before the shop kept records has none.
func (s *Service) originalSale(ctx context.Context, b *txn.Batch, in models.ClaimInput) (*models.Sale, error) {
	if in.SaleID != "" {
		var sale models.Sale
		if err := b.Load(ctx, models.CollSale, in.SaleID, &sale); err != nil {
			return nil, fmt.Errorf("original sale %s: %w", in.SaleID, err)
		}
		for _, it := range sale.Items {
			if it.Serial == in.OldSerial {
				return &sale, nil
			}
		}
		return nil, models.Invalidf("sale %s has no battery with serial %s", sale.InvoiceNo, in.OldSerial)
	}
	sale, err := s.sales.FindBySerial(ctx, in.OldSerial)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return sale, err
}

// previousClaim returns the latest claim that issued serial as a replacement.
func (s *Service) previousClaim(ctx context.Context, serial string) (*models.WarrantyClaim, error) {
	list, err := txn.List[models.WarrantyClaim](ctx, s.storage.RecordStore(), models.CollClaim, interfaces.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	for _, c := range list {
		if c.ReplacementSerial == serial {
			return c, nil
		}
	}
	return nil, nil
}

// replacementExpiry is the warranty end of a battery handed out by prev. It
// keeps the expiry of the battery it replaced; a battery that had no known
// expiry starts a fresh term from the claim date.
func (s *Service) replacementExpiry(ctx context.Context, prev *models.WarrantyClaim) (time.Time, bool, error) {
	if prev.WarrantyExpiry != nil {
		return *prev.WarrantyExpiry, true, nil
	}
	var p models.Product
	_, err := txn.Load(ctx, s.storage.RecordStore(), models.CollProduct, prev.ReplacementProductID, &p)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, err
	case p.WarrantyMonths <= 0:
		return time.Time{}, false, nil
	}
	return prev.Date.AddDate(0, p.WarrantyMonths, 0), true, nil
}

// checkReplaced refuses a serial that an earlier claim already took back,
// unless the claim is overridden. It loads the marker into the batch so
// the new marker write is guarded against a concurrent claim.
func checkReplaced(ctx context.Context, b *txn.Batch, in models.ClaimInput) error {
	var marker models.ClaimSerial
	err := b.Load(ctx, models.CollClaimSerial, in.OldSerial, &marker)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	case !in.Override:
		return models.Invalidf("serial %s was already replaced under %s", in.OldSerial, marker.ClaimNo)
	}
	return nil
}

// Process books a warranty claim.
func (s *Service) Process(ctx context.Context, in models.ClaimInput) (*models.WarrantyClaim, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	var claim *models.WarrantyClaim
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		date := in.Date
		if date.IsZero() {
			date = b.Now()
		}

		replacement, err := b.Product(ctx, in.ReplacementProductID)
		if err != nil {
			return err
		}
		if replacement.Kind != models.KindBattery {
			return models.Invalidf("%s is not a battery", replacement.Name)
		}

		c := &models.WarrantyClaim{
			ID:                   txn.NewID(),
			Date:                 date,
			CustomerID:           in.CustomerID,
			CustomerName:         strings.TrimSpace(in.CustomerName),
			OldSerial:            in.OldSerial,
			ReturnedProductID:    strings.TrimSpace(in.ReturnedProductID),
			ReplacementProductID: replacement.ID,
			ReplacementName:      replacement.Name,
			ReplacementSerial:    in.ReplacementSerial,
			WithinWarranty:       true,
			Override:             in.Override,
			ServiceCharge:        in.ServiceCharge,
			ServicePaid:          in.ServicePaid,
			Notes:                strings.TrimSpace(in.Notes),
			UserID:               b.UserID(),
			CreatedAt:            b.Now(),
		}

		if err := checkReplaced(ctx, b, in); err != nil {
			return err
		}

		original, err := s.originalSale(ctx, b, in)
		if err != nil {
			return err
		}
		if original == nil {
			prev, err := s.previousClaim(ctx, in.OldSerial)
			if err != nil {
				return err
			}
			if prev != nil {
				c.PreviousClaimID = prev.ID
				c.SaleID = prev.SaleID
				if c.CustomerID == "" {
					c.CustomerID = prev.CustomerID
					c.CustomerName = prev.CustomerName
				}
				if c.ReturnedProductID == "" {
					c.ReturnedProductID = prev.ReplacementProductID
				}
				expiry, hasWarranty, err := s.replacementExpiry(ctx, prev)
				if err != nil {
					return err
				}
				if hasWarranty {
					c.WarrantyExpiry = &expiry
				}
				c.WithinWarranty = hasWarranty && !date.After(expiry)
			}
		} else {
			c.SaleID = original.ID
			if c.CustomerID == "" {
				c.CustomerID = original.CustomerID
				c.CustomerName = original.CustomerName
			}
			for _, it := range original.Items {
				if it.Serial == in.OldSerial && c.ReturnedProductID == "" {
					c.ReturnedProductID = it.ProductID
				}
			}
			expiry, hasWarranty, covered := sales.WarrantyStatus(original, in.OldSerial, date)
			if hasWarranty {
				c.WarrantyExpiry = &expiry
			}
			c.WithinWarranty = covered
		}
		if !c.WithinWarranty && !in.Override {
			if c.WarrantyExpiry == nil {
				return fmt.Errorf("serial %s was sold without warranty: %w", in.OldSerial, models.ErrWarrantyExpired)
			}
			return fmt.Errorf("serial %s expired on %s: %w", in.OldSerial, c.WarrantyExpiry.Format("2006-01-02"), models.ErrWarrantyExpired)
		}

		if c.CustomerID != "" {
			customer, err := b.Party(ctx, models.PartyCustomer, c.CustomerID)
			if err != nil {
				return err
			}
			c.CustomerName = customer.Name
		}

		if c.ClaimNo, err = b.NextNumber(ctx, models.CollClaim, date); err != nil {
			return err
		}
		if err := b.MoveStock(replacement, -1, models.MoveClaimReplacement, refType, c.ID, c.ClaimNo+" for "+c.OldSerial); err != nil {
			return err
		}
		if err := b.Put(models.CollClaimSerial, c.OldSerial, c.ID, c.Date, models.ClaimSerial{
			Serial: c.OldSerial, ClaimID: c.ID, ClaimNo: c.ClaimNo, Date: c.Date,
		}); err != nil {
			return err
		}

		if c.ServiceCharge.IsPositive() {
			sale, err := s.serviceSale(ctx, b, c, in.PaymentMethod)
			if err != nil {
				return err
			}
			c.ServiceSaleID = sale.ID
		}

		if err := b.Put(models.CollClaim, c.ID, c.CustomerID, c.Date, c); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process claim: %w", err)
	}

	s.logger.Info().
		Str("claim", claim.ClaimNo).
		Str("old_serial", claim.OldSerial).
		Str("replacement", claim.ReplacementName).
		Bool("within_warranty", claim.WithinWarranty).
		Bool("override", claim.Override).
		Str("service_charge", claim.ServiceCharge.StringFixed(2)).
		Msg("Warranty claim processed")
	return claim, nil
}

// serviceSale books the claim's service charge as a one-line sale with no stock effect.
func (s *Service) serviceSale(ctx context.Context, b *txn.Batch, c *models.WarrantyClaim, method models.PaymentMethod) (*models.Sale, error) {
	number, err := b.NextNumber(ctx, models.CollSale, c.Date)
	if err != nil {
		return nil, err
	}
	sale := &models.Sale{
		ID:            txn.NewID(),
		InvoiceNo:     number,
		Date:          c.Date,
		CustomerID:    c.CustomerID,
		CustomerName:  c.CustomerName,
		Items:         []models.LineItem{{Name: "Warranty service charge " + c.ClaimNo, Quantity: 1, UnitPrice: c.ServiceCharge}},
		PaymentMethod: method,
		Source:        models.SourceClaim,
		SourceID:      c.ID,
		UserID:        b.UserID(),
		CreatedAt:     b.Now(),
		UpdatedAt:     b.Now(),
	}
	sale.Totals = models.ComputeTotals(sale.Items, decimal.Zero, c.ServicePaid)
	if sale.CustomerID == "" && sale.Due.IsPositive() && !s.config.Shop.WalkInCredit {
		return nil, models.Invalidf("service charge for a walk-in claim must be paid in full")
	}
	if err := sales.Post(ctx, b, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Delete voids a claim: the replacement goes back into stock and the service
// sale is removed with its due reversed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete claim: %w", models.ErrForbidden)
	}

	var number string
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var c models.WarrantyClaim
		if err := b.Load(ctx, models.CollClaim, id, &c); err != nil {
			return fmt.Errorf("claim %s: %w", id, err)
		}

		replacement, err := b.Product(ctx, c.ReplacementProductID)
		if err != nil {
			return err
		}
		if err := b.MoveStock(replacement, 1, models.MoveClaimReversal, refType, c.ID, "delete "+c.ClaimNo); err != nil {
			return err
		}

		if c.ServiceSaleID != "" {
			var sale models.Sale
			err := b.Load(ctx, models.CollSale, c.ServiceSaleID, &sale)
			switch {
			case err == nil:
				if err := sales.Reverse(ctx, b, &sale, "delete"); err != nil {
					return err
				}
				b.Delete(models.CollSale, sale.ID)
			case !errors.Is(err, models.ErrNotFound):
				return err
			}
		}

		if err := s.releaseSerial(ctx, b, &c); err != nil {
			return err
		}

		b.Delete(models.CollClaim, id)
		number = c.ClaimNo
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}

	s.logger.Info().Str("claim", number).Msg("Warranty claim deleted")
	return nil
}

// releaseSerial points the replaced-serial marker of c at the latest other
// claim on the same serial, or drops it when c was the only one.
func (s *Service) releaseSerial(ctx context.Context, b *txn.Batch, c *models.WarrantyClaim) error {
	var marker models.ClaimSerial
	err := b.Load(ctx, models.CollClaimSerial, c.OldSerial, &marker)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	case marker.ClaimID != c.ID:
		return nil
	}

	list, err := txn.List[models.WarrantyClaim](ctx, s.storage.RecordStore(), models.CollClaim, interfaces.QueryOptions{})
	if err != nil {
		return fmt.Errorf("failed to list claims: %w", err)
	}
	for _, other := range list {
		if other.ID != c.ID && other.OldSerial == c.OldSerial {
			return b.Put(models.CollClaimSerial, c.OldSerial, other.ID, other.Date, models.ClaimSerial{
				Serial: other.OldSerial, ClaimID: other.ID, ClaimNo: other.ClaimNo, Date: other.Date,
			})
		}
	}
	b.Delete(models.CollClaimSerial, c.OldSerial)
	return nil
}
