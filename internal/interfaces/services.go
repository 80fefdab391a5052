package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/shopspring/decimal"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Kind     models.ProductKind
	Search   string // matches name, sku, brand, model (case-insensitive)
	LowStock bool
}

// InventoryService manages the catalogue and stock movements.
type InventoryService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, p models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string, force bool) error
	AdjustStock(ctx context.Context, id string, delta int, reason string) (*models.Product, error)
	Movements(ctx context.Context, productID string, limit int) ([]*models.StockMovement, error)
	LowStock(ctx context.Context) ([]*models.Product, error)
}

// PartyService manages customers and dealers and their ledgers.
type PartyService interface {
	List(ctx context.Context, kind models.PartyKind, search string) ([]*models.Party, error)
	Get(ctx context.Context, kind models.PartyKind, id string) (*models.Party, error)
	Create(ctx context.Context, p models.Party, openingBalance decimal.Decimal) (*models.Party, error)
	Update(ctx context.Context, kind models.PartyKind, id string, p models.Party) (*models.Party, error)
	Delete(ctx context.Context, kind models.PartyKind, id string) error
	Ledger(ctx context.Context, kind models.PartyKind, id string, limit int) (*models.PartyLedger, error)
	RecordPayment(ctx context.Context, kind models.PartyKind, id string, amount decimal.Decimal, date time.Time, note string) (*models.Party, error)
	Adjust(ctx context.Context, kind models.PartyKind, id string, delta decimal.Decimal, note string) (*models.Party, error)
}

// DateRange filters documents by date, half-open [From, To). Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// SaleService records customer invoices.
type SaleService interface {
	List(ctx context.Context, r DateRange, customerID string) ([]*models.Sale, error)
	Get(ctx context.Context, id string) (*models.Sale, error)
	Create(ctx context.Context, in models.SaleInput) (*models.Sale, error)
	Update(ctx context.Context, id string, in models.SaleInput) (*models.Sale, error)
	Delete(ctx context.Context, id string) error
	FindBySerial(ctx context.Context, serial string) (*models.Sale, error)
}

// PurchaseService records dealer bills.
type PurchaseService interface {
	List(ctx context.Context, r DateRange, dealerID string) ([]*models.Purchase, error)
	Get(ctx context.Context, id string) (*models.Purchase, error)
	Create(ctx context.Context, in models.PurchaseInput) (*models.Purchase, error)
	Update(ctx context.Context, id string, in models.PurchaseInput) (*models.Purchase, error)
	Delete(ctx context.Context, id string) error
}

// ClaimService processes battery warranty claims.
type ClaimService interface {
	List(ctx context.Context, r DateRange) ([]*models.WarrantyClaim, error)
	Get(ctx context.Context, id string) (*models.WarrantyClaim, error)
	Process(ctx context.Context, in models.ClaimInput) (*models.WarrantyClaim, error)
	Delete(ctx context.Context, id string) error
}

// RepairService manages workshop job cards.
type RepairService interface {
	List(ctx context.Context, status models.RepairStatus) ([]*models.RepairJob, error)
	Get(ctx context.Context, id string) (*models.RepairJob, error)
	Create(ctx context.Context, in models.RepairInput) (*models.RepairJob, error)
	Update(ctx context.Context, id string, in models.RepairInput) (*models.RepairJob, error)
	Complete(ctx context.Context, id string, c models.RepairCompletion) (*models.RepairJob, error)
	Deliver(ctx context.Context, id string) (*models.RepairJob, error)
	Cancel(ctx context.Context, id string) (*models.RepairJob, error)
	Delete(ctx context.Context, id string) error
}

// ExpenseService records running costs.
type ExpenseService interface {
	List(ctx context.Context, r DateRange, category string) ([]*models.Expense, error)
	Get(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, e models.Expense) (*models.Expense, error)
	Update(ctx context.Context, id string, e models.Expense) (*models.Expense, error)
	Delete(ctx context.Context, id string) error
}

// ReportService aggregates the books.
type ReportService interface {
	Summary(ctx context.Context, r DateRange) (*models.Summary, error)
	DailySales(ctx context.Context, r DateRange) ([]models.DailySales, error)
	SalesChart(ctx context.Context, r DateRange, w io.Writer) error
}

// UserService manages operator accounts and login.
type UserService interface {
	Create(ctx context.Context, username, email, password, role string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, username string) error
	SetPassword(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	EnsureAdmin(ctx context.Context) (string, error)
}
