// Package expenses records shop running costs.
package expenses

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
var _ interfaces.ExpenseService = (*Service)(nil)

// Service implements ExpenseService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new expense service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// List returns expenses in the range, newest first, optionally for one category.
func (s *Service) List(ctx context.Context, r interfaces.DateRange, category string) ([]*models.Expense, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" && !models.ValidExpenseCategories[category] {
		return nil, models.Invalidf("unknown expense category %q", category)
	}
	list, err := txn.List[models.Expense](ctx, s.storage.RecordStore(), models.CollExpense, sales.RangeOptions(r, category))
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return list, nil
}

// Get returns a single expense.
func (s *Service) Get(ctx context.Context, id string) (*models.Expense, error) {
	var e models.Expense
	if _, err := txn.Load(ctx, s.storage.RecordStore(), models.CollExpense, id, &e); err != nil {
		return nil, fmt.Errorf("expense %s: %w", id, err)
	}
	return &e, nil
}

func normalize(e *models.Expense) error {
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	e.Description = strings.TrimSpace(e.Description)
	e.PaidTo = strings.TrimSpace(e.PaidTo)

	switch {
	case !models.ValidExpenseCategories[e.Category]:
		return models.Invalidf("unknown expense category %q", e.Category)
	case !e.Amount.IsPositive():
		return models.Invalidf("amount must be positive")
	case e.Description == "":
		return models.Invalidf("description is required")
	case !models.ValidPaymentMethod(e.Method):
		return models.Invalidf("unknown payment method %q", e.Method)
	}
	return nil
}

// Create records an expense. The category doubles as the lookup ref.
func (s *Service) Create(ctx context.Context, in models.Expense) (*models.Expense, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}

	b := txn.New(ctx, s.storage.RecordStore())
	e := in
	e.ID = txn.NewID()
	if e.Date.IsZero() {
		e.Date = b.Now()
	}
	e.UserID = b.UserID()
	e.CreatedAt = b.Now()
	e.UpdatedAt = b.Now()
	if err := b.Put(models.CollExpense, e.ID, e.Category, e.Date, &e); err != nil {
		return nil, err
	}
	if err := b.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.logger.Info().
		Str("category", e.Category).
		Str("amount", e.Amount.StringFixed(2)).
		Msg("Expense recorded")
	return &e, nil
}

// Update replaces an expense's fields.
func (s *Service) Update(ctx context.Context, id string, in models.Expense) (*models.Expense, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}

	var updated *models.Expense
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var old models.Expense
		if err := b.Load(ctx, models.CollExpense, id, &old); err != nil {
			return fmt.Errorf("expense %s: %w", id, err)
		}
		e := in
		e.ID = old.ID
		if e.Date.IsZero() {
			e.Date = old.Date
		}
		e.UserID = b.UserID()
		e.CreatedAt = old.CreatedAt
		e.UpdatedAt = b.Now()
		if err := b.Put(models.CollExpense, e.ID, e.Category, e.Date, &e); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = &e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	s.logger.Info().Str("expense", id).Str("amount", updated.Amount.StringFixed(2)).Msg("Expense updated")
	return updated, nil
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete expense: %w", models.ErrForbidden)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.storage.RecordStore().Delete(ctx, models.CollExpense, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	s.logger.Info().Str("expense", id).Msg("Expense deleted")
	return nil
}
