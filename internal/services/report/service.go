// Package report aggregates the books into owner reports.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.ReportService = (*Service)(nil)

// maxSeriesDays caps the zero-filled daily series.
const maxSeriesDays = 366

// Service implements ReportService
type Service struct {
	inventory interfaces.InventoryService
	parties   interfaces.PartyService
	sales     interfaces.SaleService
	purchases interfaces.PurchaseService
	claims    interfaces.ClaimService
	repairs   interfaces.RepairService
	expenses  interfaces.ExpenseService
	logger    *common.Logger
}

// NewService creates a new report service
func NewService(
	inventory interfaces.InventoryService,
	parties interfaces.PartyService,
	sales interfaces.SaleService,
	purchases interfaces.PurchaseService,
	claims interfaces.ClaimService,
	repairs interfaces.RepairService,
	expenses interfaces.ExpenseService,
	logger *common.Logger,
) *Service {
	return &Service{
		inventory: inventory,
		parties:   parties,
		sales:     sales,
		purchases: purchases,
		claims:    claims,
		repairs:   repairs,
		expenses:  expenses,
		logger:    logger,
	}
}

// Summary totals the trading period [r.From, r.To).
func (s *Service) Summary(ctx context.Context, r interfaces.DateRange) (*models.Summary, error) {
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return nil, models.Invalidf("from must be before to")
	}

	sum := &models.Summary{
		From:          r.From,
		To:            r.To,
		ExpensesByCat: make(map[string]decimal.Decimal),
	}

	saleList, err := s.sales.List(ctx, r, "")
	if err != nil {
		return nil, err
	}
	sum.SalesCount = len(saleList)
	for _, sale := range saleList {
		sum.SalesTotal = sum.SalesTotal.Add(sale.Total)
		sum.DiscountTotal = sum.DiscountTotal.Add(sale.Discount)
		sum.CollectedTotal = sum.CollectedTotal.Add(sale.Paid)
		sum.CostOfGoods = sum.CostOfGoods.Add(models.CostOfGoods(sale.Items))
		for _, it := range sale.Items {
			if it.ProductID == "" {
				sum.ServiceRevenue = sum.ServiceRevenue.Add(it.Total)
			}
		}
	}
	sum.GrossProfit = sum.SalesTotal.Sub(sum.CostOfGoods)

	purchaseList, err := s.purchases.List(ctx, r, "")
	if err != nil {
		return nil, err
	}
	sum.PurchasesCount = len(purchaseList)
	for _, p := range purchaseList {
		sum.PurchasesTotal = sum.PurchasesTotal.Add(p.Total)
	}

	expenseList, err := s.expenses.List(ctx, r, "")
	if err != nil {
		return nil, err
	}
	for _, e := range expenseList {
		sum.ExpensesTotal = sum.ExpensesTotal.Add(e.Amount)
		sum.ExpensesByCat[e.Category] = sum.ExpensesByCat[e.Category].Add(e.Amount)
	}
	sum.NetProfit = sum.GrossProfit.Sub(sum.ExpensesTotal)

	claimList, err := s.claims.List(ctx, r)
	if err != nil {
		return nil, err
	}
	sum.ClaimsCount = len(claimList)

	if sum.Receivables, err = s.outstanding(ctx, models.PartyCustomer); err != nil {
		return nil, err
	}
	if sum.Payables, err = s.outstanding(ctx, models.PartyDealer); err != nil {
		return nil, err
	}

	if sum.LowStock, err = s.inventory.LowStock(ctx); err != nil {
		return nil, err
	}

	for _, status := range []models.RepairStatus{models.RepairOpen, models.RepairInProgress} {
		jobs, err := s.repairs.List(ctx, status)
		if err != nil {
			return nil, err
		}
		sum.OpenRepairsCount += len(jobs)
	}

	s.logger.Debug().
		Int("sales", sum.SalesCount).
		Str("sales_total", sum.SalesTotal.StringFixed(2)).
		Str("net_profit", sum.NetProfit.StringFixed(2)).
		Msg("Summary built")
	return sum, nil
}

// outstanding sums the positive balances of every party of kind.
// Credit balances (shop owes a customer, dealer owes the shop) are not netted in.
func (s *Service) outstanding(ctx context.Context, kind models.PartyKind) (decimal.Decimal, error) {
	list, err := s.parties.List(ctx, kind, "")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	total := decimal.Zero
	for _, p := range list {
		if p.Balance.IsPositive() {
			total = total.Add(p.Balance)
		}
	}
	return total, nil
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailySales buckets sales by UTC day, oldest first. When both bounds are set
// every day in the range is present, including days without sales. Otherwise
// the series runs from the first to the last day with a sale. Either way it
// may not span more than maxSeriesDays.
func (s *Service) DailySales(ctx context.Context, r interfaces.DateRange) ([]models.DailySales, error) {
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return nil, models.Invalidf("from must be before to")
	}

	saleList, err := s.sales.List(ctx, r, "")
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*models.DailySales)
	var first, last time.Time
	for _, sale := range saleList {
		day := dayOf(sale.Date)
		point, ok := byDay[day]
		if !ok {
			point = &models.DailySales{Date: day}
			byDay[day] = point
		}
		point.Count++
		point.Total = point.Total.Add(sale.Total)
		point.Profit = point.Profit.Add(sale.Total.Sub(models.CostOfGoods(sale.Items)))
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	if !r.From.IsZero() && !r.To.IsZero() {
		first = dayOf(r.From)
		last = dayOf(r.To.Add(-time.Nanosecond))
	}
	if first.IsZero() {
		return []models.DailySales{}, nil
	}
	if last.Sub(first) > maxSeriesDays*24*time.Hour {
		return nil, models.Invalidf("range longer than %d days", maxSeriesDays)
	}

	var series []models.DailySales
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if point, ok := byDay[day]; ok {
			series = append(series, *point)
			continue
		}
		series = append(series, models.DailySales{Date: day})
	}
	return series, nil
}
