// Package repairs manages workshop job cards.
//
// Parts on a job are reserved on paper only. Stock moves, and the job's sale
// is booked, when the job completes.
package repairs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/services/sales"
	"github.com/bobmcallan/partsdesk/internal/services/txn"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.RepairService = (*Service)(nil)

const refType = "repair"

// Service implements RepairService
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new repair service
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// List returns jobs newest first. An empty status lists every job.
func (s *Service) List(ctx context.Context, status models.RepairStatus) ([]*models.RepairJob, error) {
	list, err := txn.List[models.RepairJob](ctx, s.storage.RecordStore(), models.CollRepair, interfaces.QueryOptions{Ref: string(status)})
	if err != nil {
		return nil, fmt.Errorf("failed to list repairs: %w", err)
	}
	return list, nil
}

// Get returns a single job card.
func (s *Service) Get(ctx context.Context, id string) (*models.RepairJob, error) {
	var job models.RepairJob
	if _, err := txn.Load(ctx, s.storage.RecordStore(), models.CollRepair, id, &job); err != nil {
		return nil, fmt.Errorf("repair %s: %w", id, err)
	}
	return &job, nil
}

// apply copies the editable fields onto job and recomputes its total.
func (s *Service) apply(ctx context.Context, b *txn.Batch, job *models.RepairJob, in models.RepairInput) error {
	in.Complaint = strings.TrimSpace(in.Complaint)
	if in.Complaint == "" {
		return models.Invalidf("complaint is required")
	}
	if in.LaborCharge.IsNegative() {
		return models.Invalidf("labor_charge must not be negative")
	}

	switch in.Status {
	case "":
		if job.Status == "" {
			job.Status = models.RepairOpen
		}
	case models.RepairOpen, models.RepairInProgress:
		job.Status = in.Status
	default:
		return models.Invalidf("status %q cannot be set here", in.Status)
	}

	if in.Discount.IsNegative() {
		return models.Invalidf("discount must not be negative")
	}

	parts := append([]models.LineItem(nil), in.Parts...)
	if len(parts) > 0 {
		if err := sales.ResolveLines(ctx, b, parts, sales.SalePricing); err != nil {
			return err
		}
	}
	totals := models.ComputeTotals(parts, in.Discount, decimal.Zero)
	if in.Discount.GreaterThan(totals.Subtotal.Add(in.LaborCharge)) {
		return models.Invalidf("discount exceeds parts and labor")
	}

	job.CustomerID = strings.TrimSpace(in.CustomerID)
	job.CustomerName = strings.TrimSpace(in.CustomerName)
	if job.CustomerID != "" {
		c, err := b.Party(ctx, models.PartyCustomer, job.CustomerID)
		if err != nil {
			return err
		}
		job.CustomerName = c.Name
		if in.Vehicle == "" {
			in.Vehicle = c.Vehicle
		}
	}

	job.Vehicle = strings.TrimSpace(in.Vehicle)
	job.Complaint = in.Complaint
	job.Work = strings.TrimSpace(in.Work)
	job.Parts = parts
	job.LaborCharge = in.LaborCharge
	job.Discount = in.Discount
	job.Total = totals.Total.Add(in.LaborCharge)
	job.UserID = b.UserID()
	job.UpdatedAt = b.Now()
	return nil
}

func put(b *txn.Batch, job *models.RepairJob) error {
	return b.Put(models.CollRepair, job.ID, string(job.Status), job.Date, job)
}

// Create opens a job card.
func (s *Service) Create(ctx context.Context, in models.RepairInput) (*models.RepairJob, error) {
	var created *models.RepairJob
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		job := &models.RepairJob{
			ID:        txn.NewID(),
			Date:      in.Date,
			CreatedAt: b.Now(),
		}
		if job.Date.IsZero() {
			job.Date = b.Now()
		}
		if err := s.apply(ctx, b, job, in); err != nil {
			return err
		}
		number, err := b.NextNumber(ctx, models.CollRepair, job.Date)
		if err != nil {
			return err
		}
		job.JobNo = number
		if err := put(b, job); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		created = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create repair: %w", err)
	}

	s.logger.Info().
		Str("job", created.JobNo).
		Str("customer", created.CustomerName).
		Str("vehicle", created.Vehicle).
		Msg("Repair job opened")
	return created, nil
}

// Update edits an open or in-progress job.
func (s *Service) Update(ctx context.Context, id string, in models.RepairInput) (*models.RepairJob, error) {
	var updated *models.RepairJob
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var job models.RepairJob
		if err := b.Load(ctx, models.CollRepair, id, &job); err != nil {
			return fmt.Errorf("repair %s: %w", id, err)
		}
		if !job.Status.Editable() {
			return models.Invalidf("job %s is %s and can no longer be edited", job.JobNo, job.Status)
		}
		if !in.Date.IsZero() {
			job.Date = in.Date
		}
		if err := s.apply(ctx, b, &job, in); err != nil {
			return err
		}
		if err := put(b, &job); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		updated = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update repair: %w", err)
	}

	s.logger.Info().Str("job", updated.JobNo).Str("status", string(updated.Status)).Msg("Repair job updated")
	return updated, nil
}

// Complete closes the job: parts leave stock and the job is billed as a sale
// of its parts plus a labor line.
func (s *Service) Complete(ctx context.Context, id string, c models.RepairCompletion) (*models.RepairJob, error) {
	if !models.ValidPaymentMethod(c.PaymentMethod) {
		return nil, models.Invalidf("unknown payment method %q", c.PaymentMethod)
	}

	var completed *models.RepairJob
	var invoice string
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var job models.RepairJob
		if err := b.Load(ctx, models.CollRepair, id, &job); err != nil {
			return fmt.Errorf("repair %s: %w", id, err)
		}
		if !job.Status.Editable() {
			return models.Invalidf("job %s is already %s", job.JobNo, job.Status)
		}

		items := append([]models.LineItem(nil), job.Parts...)
		if len(items) > 0 {
			// Refresh the cost snapshot at the moment the parts are used.
			if err := sales.ResolveLines(ctx, b, items, sales.SalePricing); err != nil {
				return err
			}
		}
		if job.LaborCharge.IsPositive() {
			items = append(items, models.LineItem{Name: "Labour " + job.JobNo, Quantity: 1, UnitPrice: job.LaborCharge})
		}
		if len(items) == 0 {
			return models.Invalidf("job %s has nothing to bill", job.JobNo)
		}

		now := b.Now()
		number, err := b.NextNumber(ctx, models.CollSale, now)
		if err != nil {
			return err
		}
		sale := &models.Sale{
			ID:            txn.NewID(),
			InvoiceNo:     number,
			Date:          now,
			CustomerID:    job.CustomerID,
			CustomerName:  job.CustomerName,
			Items:         items,
			PaymentMethod: c.PaymentMethod,
			Source:        models.SourceRepair,
			SourceID:      job.ID,
			Notes:         job.JobNo,
			UserID:        b.UserID(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		sale.Totals = models.ComputeTotals(sale.Items, job.Discount, c.Paid)
		if err := sale.Totals.Validate(); err != nil {
			return err
		}
		if sale.CustomerID == "" && sale.Due.IsPositive() && !s.config.Shop.WalkInCredit {
			return models.Invalidf("walk-in job %s must be paid in full (due %s)", job.JobNo, sale.Due.StringFixed(2))
		}

		if err := sales.MoveLines(ctx, b, job.Parts, -1, models.MoveRepair, refType, job.ID, job.JobNo); err != nil {
			return err
		}
		if err := sales.Post(ctx, b, sale); err != nil {
			return err
		}

		job.Parts = items[:len(job.Parts)]
		job.Total = sale.Total
		job.Status = models.RepairCompleted
		job.SaleID = sale.ID
		job.CompletedAt = &now
		job.UpdatedAt = now
		if err := put(b, &job); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		completed = &job
		invoice = sale.InvoiceNo
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete repair: %w", err)
	}

	s.logger.Info().
		Str("job", completed.JobNo).
		Str("invoice", invoice).
		Str("total", completed.Total.StringFixed(2)).
		Msg("Repair job completed")
	return completed, nil
}

// transition moves a job between statuses without touching stock or money.
func (s *Service) transition(ctx context.Context, id string, to models.RepairStatus, allowed func(models.RepairStatus) bool) (*models.RepairJob, error) {
	var out *models.RepairJob
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var job models.RepairJob
		if err := b.Load(ctx, models.CollRepair, id, &job); err != nil {
			return fmt.Errorf("repair %s: %w", id, err)
		}
		if !allowed(job.Status) {
			return models.Invalidf("job %s is %s and cannot be marked %s", job.JobNo, job.Status, to)
		}
		now := b.Now()
		job.Status = to
		job.UpdatedAt = now
		if to == models.RepairDelivered {
			job.DeliveredAt = &now
		}
		if err := put(b, &job); err != nil {
			return err
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		out = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("job", out.JobNo).Str("status", string(to)).Msg("Repair job status changed")
	return out, nil
}

// Deliver hands a completed job back to the customer.
func (s *Service) Deliver(ctx context.Context, id string) (*models.RepairJob, error) {
	job, err := s.transition(ctx, id, models.RepairDelivered, func(st models.RepairStatus) bool {
		return st == models.RepairCompleted
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deliver repair: %w", err)
	}
	return job, nil
}

// Cancel abandons a job that has not been completed.
func (s *Service) Cancel(ctx context.Context, id string) (*models.RepairJob, error) {
	job, err := s.transition(ctx, id, models.RepairCancelled, models.RepairStatus.Editable)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel repair: %w", err)
	}
	return job, nil
}

// Delete removes a job that never completed. Completed jobs own a sale and stay.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete repair: %w", models.ErrForbidden)
	}

	var number string
	err := txn.Retry(ctx, 3, func() error {
		b := txn.New(ctx, s.storage.RecordStore())
		var job models.RepairJob
		if err := b.Load(ctx, models.CollRepair, id, &job); err != nil {
			return fmt.Errorf("repair %s: %w", id, err)
		}
		if job.Status == models.RepairCompleted || job.Status == models.RepairDelivered {
			return models.Invalidf("job %s is %s and cannot be deleted", job.JobNo, job.Status)
		}
		b.Delete(models.CollRepair, id)
		number = job.JobNo
		return b.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete repair: %w", err)
	}

	s.logger.Info().Str("job", number).Msg("Repair job deleted")
	return nil
}
