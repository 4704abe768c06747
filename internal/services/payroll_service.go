package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/notify"
	"github.com/ruralpay/orgledger/internal/render"
	"github.com/ruralpay/orgledger/internal/storage"
	"go.uber.org/zap"
)

const payrollEntity = "payroll batch"

type PayrollService struct {
	outbox
	store    storage.Store
	ledger   *LedgerService
	renderer *render.Renderer
	audit    *audit.Logger
	logger   *zap.Logger
	now      func() time.Time
}

func NewPayrollService(
	store storage.Store,
	ledger *LedgerService,
	notifier notify.Notifier,
	publisher events.Publisher,
	renderer *render.Renderer,
	auditLog *audit.Logger,
	logger *zap.Logger,
) *PayrollService {
	logger = logger.Named("payroll")
	return &PayrollService{
		outbox:   outbox{notifier: notifier, publisher: publisher, logger: logger},
		store:    store,
		ledger:   ledger,
		renderer: renderer,
		audit:    auditLog,
		logger:   logger,
		now:      time.Now,
	}
}

func validPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 2100
}

// Create snapshots the current salary of every eligible employee into a
// batch awaiting approval. Nothing is debited until the batch is approved.
func (s *PayrollService) Create(ctx context.Context, orgID int64, month, year int, submittedBy int64) (*models.PayrollBatch, error) {
	if !validPeriod(month, year) {
		return nil, models.ErrInvalidPeriod
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, notFound(err, "organization", orgID)
	}

	exists, err := s.store.PayrollBatchExists(ctx, orgID, month, year)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &models.DuplicateBatchError{OrganizationID: orgID, Month: month, Year: year}
	}

	payments, err := s.snapshotPayments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, &models.NoEligibleEmployeesError{OrganizationID: orgID}
	}

	batch := models.NewPayrollBatch(orgID, month, year, submittedBy, payments, s.now().UTC())
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.InsertPayrollBatch(ctx, batch)
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, &models.DuplicateBatchError{OrganizationID: orgID, Month: month, Year: year}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save payroll batch: %w", err)
	}

	s.audit.LogTransition(payrollEntity, batch.ID, "", string(batch.Status), submittedBy)
	s.logger.Info("payroll batch created",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("organization_id", orgID),
		zap.Int("employees", batch.TotalEmployees),
		zap.String("total", batch.TotalAmount.StringFixed(2)))
	return batch, nil
}

func (s *PayrollService) snapshotPayments(ctx context.Context, orgID int64) ([]models.PayrollPayment, error) {
	employees, err := s.store.ListActiveEmployees(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	payments := make([]models.PayrollPayment, 0, len(employees))
	for _, employee := range employees {
		structure, err := s.store.GetActiveSalaryStructure(ctx, employee.ID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("employee has no active salary structure, excluded from payroll",
				zap.Int64("employee_id", employee.ID), zap.Int64("organization_id", orgID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load salary structure of employee %d: %w", employee.ID, err)
		}

		line := structure.Snapshot(employee)
		if !line.NetSalaryPaid.IsPositive() {
			s.logger.Warn("employee net salary is not positive, excluded from payroll",
				zap.Int64("employee_id", employee.ID), zap.String("net", line.NetSalaryPaid.StringFixed(2)))
			continue
		}
		payments = append(payments, line)
	}
	return payments, nil
}

// Approve debits the batch total once and completes the batch. When the
// balance does not cover the total, the batch stays PENDING_APPROVAL and
// nothing is written.
func (s *PayrollService) Approve(ctx context.Context, batchID, approvedBy int64) (*models.PayrollBatch, error) {
	current, err := s.store.GetPayrollBatch(ctx, batchID)
	if err != nil {
		return nil, notFound(err, payrollEntity, batchID)
	}

	var (
		batch *models.PayrollBatch
		txn   *models.Transaction
	)
	err = s.ledger.WithOrganization(ctx, current.OrganizationID, func(tx storage.Tx) error {
		b, err := tx.LockPayrollBatch(ctx, batchID)
		if err != nil {
			return notFound(err, payrollEntity, batchID)
		}

		now := s.now().UTC()
		if err := b.BeginProcessing(approvedBy, now); err != nil {
			return err
		}

		posted, err := s.ledger.DebitTx(ctx, tx, b.OrganizationID, Entry{
			Amount:      b.TotalAmount,
			Description: fmt.Sprintf("Payroll %02d/%d (%d employees)", b.Month, b.Year, b.TotalEmployees),
			Source:      models.PayrollSource(b.ID),
		})
		if err != nil {
			return err
		}

		if err := b.Complete(posted.ID, now); err != nil {
			return err
		}
		if err := tx.UpdatePayrollBatch(ctx, b); err != nil {
			return fmt.Errorf("failed to update payroll batch: %w", err)
		}
		batch, txn = b, posted
		return nil
	})
	if err != nil {
		s.audit.LogError("payroll approval", current.OrganizationID, current.TotalAmount, err)
		return nil, err
	}

	s.audit.LogTransaction(txn)
	s.audit.LogTransition(payrollEntity, batch.ID, string(models.PayrollPendingApproval), string(models.PayrollProcessing), approvedBy)
	s.audit.LogTransition(payrollEntity, batch.ID, string(models.PayrollProcessing), string(models.PayrollCompleted), approvedBy)

	s.notify(ctx, notify.New(notify.UserRecipient(batch.SubmittedBy),
		fmt.Sprintf("Payroll %02d/%d approved", batch.Month, batch.Year),
		fmt.Sprintf("Payroll for %d employees totalling %s has been disbursed.", batch.TotalEmployees, batch.TotalAmount.StringFixed(2))))
	s.publish(ctx, events.TopicPayrollCompleted,
		events.NewSettlementEvent(batch.OrganizationID, batch.ID, batch.TransactionID, batch.TotalAmount, string(batch.Status)))
	return batch, nil
}

// Reject closes a pending batch with a reason. The ledger is never touched.
func (s *PayrollService) Reject(ctx context.Context, batchID, rejectedBy int64, reason string) (*models.PayrollBatch, error) {
	var batch *models.PayrollBatch
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		b, err := tx.LockPayrollBatch(ctx, batchID)
		if err != nil {
			return notFound(err, payrollEntity, batchID)
		}
		if err := b.Reject(reason, s.now().UTC()); err != nil {
			return err
		}
		if err := tx.UpdatePayrollBatch(ctx, b); err != nil {
			return fmt.Errorf("failed to update payroll batch: %w", err)
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogTransition(payrollEntity, batch.ID, string(models.PayrollPendingApproval), string(models.PayrollRejected), rejectedBy)
	s.notify(ctx, notify.New(notify.UserRecipient(batch.SubmittedBy),
		fmt.Sprintf("Payroll %02d/%d rejected", batch.Month, batch.Year),
		"Reason: "+batch.RejectionReason))
	s.publish(ctx, events.TopicPayrollRejected,
		events.NewSettlementEvent(batch.OrganizationID, batch.ID, nil, batch.TotalAmount, string(batch.Status)))
	return batch, nil
}

func (s *PayrollService) Get(ctx context.Context, batchID int64) (*models.PayrollBatch, error) {
	batch, err := s.store.GetPayrollBatch(ctx, batchID)
	if err != nil {
		return nil, notFound(err, payrollEntity, batchID)
	}
	return batch, nil
}

func (s *PayrollService) List(ctx context.Context, orgID int64) ([]models.PayrollBatch, error) {
	return s.store.ListPayrollBatches(ctx, orgID)
}

// Statement renders the printable statement of a batch.
func (s *PayrollService) Statement(ctx context.Context, batchID int64) ([]byte, error) {
	batch, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, batch.OrganizationID)
	if err != nil {
		return nil, notFound(err, "organization", batch.OrganizationID)
	}
	return s.renderer.PayrollStatement(render.StatementData{Batch: *batch, Organization: org.Name})
}
