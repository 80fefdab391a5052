package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the owner's view of a trading period [From, To).
type Summary struct {
	From             time.Time                  `json:"from"`
	To               time.Time                  `json:"to"`
	SalesCount       int                        `json:"sales_count"`
	SalesTotal       decimal.Decimal            `json:"sales_total"`
	DiscountTotal    decimal.Decimal            `json:"discount_total"`
	CollectedTotal   decimal.Decimal            `json:"collected_total"`
	CostOfGoods      decimal.Decimal            `json:"cost_of_goods"`
	GrossProfit      decimal.Decimal            `json:"gross_profit"`
	ServiceRevenue   decimal.Decimal            `json:"service_revenue"` // service and labour lines
	PurchasesCount   int                        `json:"purchases_count"`
	PurchasesTotal   decimal.Decimal            `json:"purchases_total"`
	ExpensesTotal    decimal.Decimal            `json:"expenses_total"`
	ExpensesByCat    map[string]decimal.Decimal `json:"expenses_by_category"`
	NetProfit        decimal.Decimal            `json:"net_profit"`
	ClaimsCount      int                        `json:"claims_count"`
	Receivables      decimal.Decimal            `json:"receivables"`
	Payables         decimal.Decimal            `json:"payables"`
	LowStock         []*Product                 `json:"low_stock"`
	OpenRepairsCount int                        `json:"open_repairs_count"`
}

// DailySales is one point of the daily sales series.
type DailySales struct {
	Date   time.Time       `json:"date"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
	Profit decimal.Decimal `json:"profit"`
}
