package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/inventory"
	"github.com/bobmcallan/partsdesk/internal/services/parties"
	"github.com/bobmcallan/partsdesk/internal/services/sales"
	"github.com/bobmcallan/partsdesk/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	claims    *Service
	sales     *sales.Service
	inventory *inventory.Service
	parties   *parties.Service
	battery   *models.Product
	customer  *models.Party
	sale      *models.Sale
}

// newFixture sells battery SN-1001 to a customer on 2025-01-15 with 24 months warranty.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	store := memory.NewManager(logger)
	cfg := common.NewDefaultConfig()
	saleSvc := sales.NewService(store, cfg, logger)
	f := &fixture{
		claims:    NewService(store, saleSvc, cfg, logger),
		sales:     saleSvc,
		inventory: inventory.NewService(store, cfg, logger),
		parties:   parties.NewService(store, logger),
	}

	ctx := context.Background()
	var err error
	f.battery, err = f.inventory.CreateProduct(ctx, models.Product{
		Kind: models.KindBattery, Name: "Amaron Go 35Ah", SKU: "AM-GO35",
		CostPrice: d(3000), SalePrice: d(3900), Stock: 3, WarrantyMonths: 24,
	})
	require.NoError(t, err)
	f.customer, err = f.parties.Create(ctx, models.Party{Kind: models.PartyCustomer, Name: "Lakshmi Travels"}, decimal.Zero)
	require.NoError(t, err)
	f.sale, err = f.sales.Create(ctx, models.SaleInput{
		Date:       time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
		CustomerID: f.customer.ID,
		Items:      []models.LineItem{{ProductID: f.battery.ID, Quantity: 1, Serial: "SN-1001"}},
		Paid:       d(3900),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.inventory.GetProduct(context.Background(), f.battery.ID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	p, err := f.parties.Get(context.Background(), models.PartyCustomer, f.customer.ID)
	require.NoError(t, err)
	return p.Balance
}

func TestProcess_WithinWarrantyWithServiceCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claim, err := f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		OldSerial:            "sn-1001",
		ReplacementProductID: f.battery.ID,
		ReplacementSerial:    "SN-2002",
		ServiceCharge:        d(250),
		ServicePaid:          d(100),
	})
	require.NoError(t, err)

	assert.Equal(t, "CLM-2026-0001", claim.ClaimNo)
	assert.Equal(t, f.sale.ID, claim.SaleID)
	assert.Equal(t, f.customer.ID, claim.CustomerID)
	assert.Equal(t, f.battery.ID, claim.ReturnedProductID)
	assert.True(t, claim.WithinWarranty)
	require.NotNil(t, claim.WarrantyExpiry)
	assert.Equal(t, time.Date(2027, 1, 15, 11, 0, 0, 0, time.UTC), *claim.WarrantyExpiry)

	// 3 opening - 1 sold - 1 replaced
	assert.Equal(t, 1, f.stock(t))

	require.NotEmpty(t, claim.ServiceSaleID)
	svc, err := f.sales.Get(ctx, claim.ServiceSaleID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceClaim, svc.Source)
	assert.Equal(t, claim.ID, svc.SourceID)
	assert.Equal(t, "INV-2026-0001", svc.InvoiceNo)
	assert.True(t, svc.Total.Equal(d(250)))
	assert.True(t, svc.Due.Equal(d(150)))
	assert.Empty(t, svc.Items[0].ProductID)
	assert.True(t, f.balance(t).Equal(d(150)))

	moves, err := f.inventory.Movements(ctx, f.battery.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MoveClaimReplacement, moves[0].Type)
	assert.Equal(t, claim.ID, moves[0].RefID)
}

func TestProcess_NoServiceCharge(t *testing.T) {
	f := newFixture(t)

	claim, err := f.claims.Process(context.Background(), models.ClaimInput{
		Date:                 time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-1001",
		SaleID:               f.sale.ID,
		ReplacementProductID: f.battery.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, claim.ServiceSaleID)
	assert.True(t, f.balance(t).IsZero())
}

func TestProcess_ExpiredWarranty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.claims.Process(ctx, models.ClaimInput{Date: late, OldSerial: "SN-1001", ReplacementProductID: f.battery.ID})
	assert.True(t, errors.Is(err, models.ErrWarrantyExpired))
	assert.Equal(t, 2, f.stock(t))

	claim, err := f.claims.Process(ctx, models.ClaimInput{Date: late, OldSerial: "SN-1001", ReplacementProductID: f.battery.ID, Override: true})
	require.NoError(t, err)
	assert.False(t, claim.WithinWarranty)
	assert.True(t, claim.Override)
	assert.Equal(t, 1, f.stock(t))
}

func TestProcess_UnknownSerialIsAccepted(t *testing.T) {
	f := newFixture(t)

	claim, err := f.claims.Process(context.Background(), models.ClaimInput{
		OldSerial:            "OLD-PAPER-CARD",
		CustomerName:         "Walk-in",
		ReplacementProductID: f.battery.ID,
		ServiceCharge:        d(200),
		ServicePaid:          d(200),
	})
	require.NoError(t, err)
	assert.Empty(t, claim.SaleID)
	assert.Nil(t, claim.WarrantyExpiry)
	assert.True(t, claim.WithinWarranty)
}

func TestProcess_FailsAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Walk-in claim with an unpaid service charge is refused after the stock
	// movement was staged; nothing may be written.
	_, err := f.claims.Process(ctx, models.ClaimInput{
		OldSerial:            "OLD-1",
		ReplacementProductID: f.battery.ID,
		ServiceCharge:        d(200),
	})
	assert.True(t, errors.Is(err, models.ErrInvalid))
	assert.Equal(t, 2, f.stock(t))

	// Out of stock.
	_, err = f.inventory.AdjustStock(ctx, f.battery.ID, -2, "count")
	require.NoError(t, err)
	_, err = f.claims.Process(ctx, models.ClaimInput{OldSerial: "SN-1001", ReplacementProductID: f.battery.ID, Override: true})
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))

	claims, err := f.claims.List(ctx, interfaces.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, claims)
	saleList, err := f.sales.List(ctx, interfaces.DateRange{}, "")
	require.NoError(t, err)
	assert.Len(t, saleList, 1)
}

func TestProcess_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oil, err := f.inventory.CreateProduct(ctx, models.Product{Kind: models.KindPart, Name: "Engine oil", SKU: "OIL", Stock: 5})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   models.ClaimInput
		want error
	}{
		{"missing serial", models.ClaimInput{ReplacementProductID: f.battery.ID}, models.ErrInvalid},
		{"missing replacement", models.ClaimInput{OldSerial: "SN-1001"}, models.ErrInvalid},
		{"not a battery", models.ClaimInput{OldSerial: "SN-1001", ReplacementProductID: oil.ID}, models.ErrInvalid},
		{"overpaid charge", models.ClaimInput{OldSerial: "SN-1001", ReplacementProductID: f.battery.ID, ServiceCharge: d(10), ServicePaid: d(20)}, models.ErrInvalid},
		{"wrong sale", models.ClaimInput{OldSerial: "SN-9", SaleID: f.sale.ID, ReplacementProductID: f.battery.ID}, models.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.claims.Process(ctx, tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGeneratedSaleCannotBeEditedDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claim, err := f.claims.Process(ctx, models.ClaimInput{OldSerial: "SN-1001", ReplacementProductID: f.battery.ID, ServiceCharge: d(100)})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.sales.Delete(ctx, claim.ServiceSaleID), models.ErrInvalid))
}

func TestDelete_RestocksAndRemovesServiceSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claim, err := f.claims.Process(ctx, models.ClaimInput{
		OldSerial:            "SN-1001",
		ReplacementProductID: f.battery.ID,
		ServiceCharge:        d(300),
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t).Equal(d(300)))

	cashier := common.WithUserContext(ctx, &common.UserContext{UserID: "counter", Role: common.RoleCashier})
	assert.True(t, errors.Is(f.claims.Delete(cashier, claim.ID), models.ErrForbidden))

	require.NoError(t, f.claims.Delete(ctx, claim.ID))
	assert.Equal(t, 2, f.stock(t))
	assert.True(t, f.balance(t).IsZero())

	_, err = f.sales.Get(ctx, claim.ServiceSaleID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	_, err = f.claims.Get(ctx, claim.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	ledger, err := f.parties.Ledger(ctx, models.PartyCustomer, f.customer.ID, 0)
	require.NoError(t, err)
	assert.True(t, ledger.Reconciled)
}

func TestProcess_SerialReplacedOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := models.ClaimInput{
		Date:                 time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-1001",
		ReplacementProductID: f.battery.ID,
	}

	first, err := f.claims.Process(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t))

	_, err = f.claims.Process(ctx, in)
	assert.True(t, errors.Is(err, models.ErrInvalid), "got %v", err)
	assert.Contains(t, err.Error(), first.ClaimNo)
	assert.Equal(t, 1, f.stock(t))

	in.Override = true
	second, err := f.claims.Process(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Override)
	assert.Equal(t, 0, f.stock(t))
}

func TestDelete_ReleasesSerial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := models.ClaimInput{
		Date:                 time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-1001",
		ReplacementProductID: f.battery.ID,
	}

	first, err := f.claims.Process(ctx, in)
	require.NoError(t, err)
	in.Override = true
	second, err := f.claims.Process(ctx, in)
	require.NoError(t, err)
	in.Override = false

	// The first claim still holds the serial.
	require.NoError(t, f.claims.Delete(ctx, second.ID))
	_, err = f.claims.Process(ctx, in)
	assert.True(t, errors.Is(err, models.ErrInvalid), "got %v", err)
	assert.Equal(t, 1, f.stock(t))

	require.NoError(t, f.claims.Delete(ctx, first.ID))
	assert.Equal(t, 2, f.stock(t))
	again, err := f.claims.Process(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, f.sale.ID, again.SaleID)
	assert.Equal(t, 1, f.stock(t))
}

func TestProcess_ReplacementKeepsOriginalExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-1001",
		ReplacementProductID: f.battery.ID,
		ReplacementSerial:    "SN-2002",
	})
	require.NoError(t, err)
	expiry := time.Date(2027, 1, 15, 11, 0, 0, 0, time.UTC)

	_, err = f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2036, 3, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-2002",
		ReplacementProductID: f.battery.ID,
	})
	assert.True(t, errors.Is(err, models.ErrWarrantyExpired), "got %v", err)
	assert.Contains(t, err.Error(), "2027-01-15")
	assert.Equal(t, 1, f.stock(t))

	claim, err := f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-2002",
		ReplacementProductID: f.battery.ID,
	})
	require.NoError(t, err)
	assert.True(t, claim.WithinWarranty)
	require.NotNil(t, claim.WarrantyExpiry)
	assert.Equal(t, expiry, *claim.WarrantyExpiry)
	assert.Equal(t, first.ID, claim.PreviousClaimID)
	assert.Equal(t, f.sale.ID, claim.SaleID)
	assert.Equal(t, f.customer.ID, claim.CustomerID)
	assert.Equal(t, f.battery.ID, claim.ReturnedProductID)
	assert.Equal(t, 0, f.stock(t))
}

func TestProcess_ReplacementOfUntracedBatteryStartsFreshTerm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		OldSerial:            "OLD-PAPER-CARD",
		ReplacementProductID: f.battery.ID,
		ReplacementSerial:    "SN-3003",
	})
	require.NoError(t, err)

	_, err = f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-3003",
		ReplacementProductID: f.battery.ID,
	})
	assert.True(t, errors.Is(err, models.ErrWarrantyExpired), "got %v", err)

	claim, err := f.claims.Process(ctx, models.ClaimInput{
		Date:                 time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
		OldSerial:            "SN-3003",
		ReplacementProductID: f.battery.ID,
	})
	require.NoError(t, err)
	assert.True(t, claim.WithinWarranty)
	require.NotNil(t, claim.WarrantyExpiry)
	assert.Equal(t, time.Date(2028, 1, 10, 0, 0, 0, 0, time.UTC), *claim.WarrantyExpiry)
}
