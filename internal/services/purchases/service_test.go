package purchases

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
	purchases *Service
	sales     *sales.Service
	inventory *inventory.Service
	parties   *parties.Service
	dealer    *models.Party
	battery   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	store := memory.NewManager(logger)
	cfg := common.NewDefaultConfig()
	f := &fixture{
		purchases: NewService(store, logger),
		sales:     sales.NewService(store, cfg, logger),
		inventory: inventory.NewService(store, cfg, logger),
		parties:   parties.NewService(store, logger),
	}

	ctx := context.Background()
	var err error
	f.dealer, err = f.parties.Create(ctx, models.Party{Kind: models.PartyDealer, Name: "Exide Distributors"}, decimal.Zero)
	require.NoError(t, err)
	f.battery, err = f.inventory.CreateProduct(ctx, models.Product{
		Kind: models.KindBattery, Name: "Exide Mileage 45Ah", SKU: "EX-ML45",
		CostPrice: d(3500), SalePrice: d(4600), WarrantyMonths: 36,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) product(t *testing.T) *models.Product {
	t.Helper()
	p, err := f.inventory.GetProduct(context.Background(), f.battery.ID)
	require.NoError(t, err)
	return p
}

func (f *fixture) dealerBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	p, err := f.parties.Get(context.Background(), models.PartyDealer, f.dealer.ID)
	require.NoError(t, err)
	return p.Balance
}

func TestCreate_StockCostAndDealerDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pur, err := f.purchases.Create(ctx, models.PurchaseInput{
		Date:     time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		BillNo:   "EXD/8812",
		DealerID: f.dealer.ID,
		Items:    []models.LineItem{{ProductID: f.battery.ID, Quantity: 10, UnitPrice: d(3400)}},
		Discount: d(1000),
		Paid:     d(20000),
	})
	require.NoError(t, err)

	assert.Equal(t, "PUR-2026-0001", pur.PurchaseNo)
	assert.Equal(t, "Exide Distributors", pur.DealerName)
	assert.True(t, pur.Total.Equal(d(33000)))
	assert.True(t, pur.Due.Equal(d(13000)))

	p := f.product(t)
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.CostPrice.Equal(d(3400)))
	assert.True(t, f.dealerBalance(t).Equal(d(13000)))

	ledger, err := f.parties.Ledger(ctx, models.PartyDealer, f.dealer.ID, 0)
	require.NoError(t, err)
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, models.LedgerPurchase, ledger.Entries[0].Type)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.purchases.Create(ctx, models.PurchaseInput{Items: []models.LineItem{{ProductID: f.battery.ID, Quantity: 1}}})
	assert.True(t, errors.Is(err, models.ErrInvalid), "missing dealer: %v", err)

	_, err = f.purchases.Create(ctx, models.PurchaseInput{DealerID: f.dealer.ID, Items: []models.LineItem{{Name: "Freight", Quantity: 1, UnitPrice: d(200)}}})
	assert.True(t, errors.Is(err, models.ErrInvalid), "service line: %v", err)

	_, err = f.purchases.Create(ctx, models.PurchaseInput{DealerID: "ghost", Items: []models.LineItem{{ProductID: f.battery.ID, Quantity: 1}}})
	assert.True(t, errors.Is(err, models.ErrNotFound), "unknown dealer: %v", err)
}

func TestUpdate_NetsStockAndDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pur, err := f.purchases.Create(ctx, models.PurchaseInput{
		DealerID: f.dealer.ID,
		Items:    []models.LineItem{{ProductID: f.battery.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.True(t, f.dealerBalance(t).Equal(d(14000)))

	// Sell three, then correct the bill from 4 to 5 units.
	_, err = f.sales.Create(ctx, models.SaleInput{Items: []models.LineItem{{ProductID: f.battery.ID, Quantity: 3}}, Paid: d(13800)})
	require.NoError(t, err)

	updated, err := f.purchases.Update(ctx, pur.ID, models.PurchaseInput{
		DealerID: f.dealer.ID,
		Items:    []models.LineItem{{ProductID: f.battery.ID, Quantity: 5, UnitPrice: d(3500)}},
		Paid:     d(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, pur.PurchaseNo, updated.PurchaseNo)
	assert.Equal(t, 2, f.product(t).Stock)
	assert.True(t, f.dealerBalance(t).Equal(d(12500)))

	ledger, err := f.parties.Ledger(ctx, models.PartyDealer, f.dealer.ID, 0)
	require.NoError(t, err)
	assert.True(t, ledger.Reconciled)
}

func TestDelete_RefusedWhenStockSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pur, err := f.purchases.Create(ctx, models.PurchaseInput{
		DealerID: f.dealer.ID,
		Items:    []models.LineItem{{ProductID: f.battery.ID, Quantity: 2}},
		Paid:     d(7000),
	})
	require.NoError(t, err)

	_, err = f.sales.Create(ctx, models.SaleInput{Items: []models.LineItem{{ProductID: f.battery.ID, Quantity: 1}}, Paid: d(4600)})
	require.NoError(t, err)

	err = f.purchases.Delete(ctx, pur.ID)
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))
	_, err = f.purchases.Get(ctx, pur.ID)
	require.NoError(t, err)
}

func TestDelete_ReversesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pur, err := f.purchases.Create(ctx, models.PurchaseInput{
		DealerID: f.dealer.ID,
		Items:    []models.LineItem{{ProductID: f.battery.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	cashier := common.WithUserContext(ctx, &common.UserContext{UserID: "counter", Role: common.RoleCashier})
	assert.True(t, errors.Is(f.purchases.Delete(cashier, pur.ID), models.ErrForbidden))

	require.NoError(t, f.purchases.Delete(ctx, pur.ID))
	assert.Equal(t, 0, f.product(t).Stock)
	assert.True(t, f.dealerBalance(t).IsZero())

	list, err := f.purchases.List(ctx, interfaces.DateRange{}, f.dealer.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
