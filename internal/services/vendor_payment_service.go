package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/notify"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const vendorPaymentEntity = "vendor payment"

type VendorPaymentRequest struct {
	OrganizationID int64
	VendorID       int64
	Amount         decimal.Decimal
	Description    string
	PaymentDate    time.Time // zero means today
	CreatedBy      int64
}

// VendorPaymentResult is a processed payment together with its bill.
type VendorPaymentResult struct {
	Payment models.VendorPayment `json:"payment"`
	Bill    models.Bill          `json:"bill"`
}

type VendorPaymentService struct {
	outbox
	store  storage.Store
	ledger *LedgerService
	bills  *BillService
	iso    *ISO20022Service
	audit  *audit.Logger
	logger *zap.Logger
	now    func() time.Time
}

func NewVendorPaymentService(
	store storage.Store,
	ledger *LedgerService,
	bills *BillService,
	iso *ISO20022Service,
	notifier notify.Notifier,
	publisher events.Publisher,
	auditLog *audit.Logger,
	logger *zap.Logger,
) *VendorPaymentService {
	logger = logger.Named("vendor_payments")
	return &VendorPaymentService{
		outbox: outbox{notifier: notifier, publisher: publisher, logger: logger},
		store:  store,
		ledger: ledger,
		bills:  bills,
		iso:    iso,
		audit:  auditLog,
		logger: logger,
		now:    time.Now,
	}
}

// CreateAndProcess records a PENDING payment, debits the organization and, in
// the same unit of work as the debit, marks the payment PROCESSED and issues
// its bill. When the debit fails the payment is persisted as FAILED before
// the error is returned.
func (s *VendorPaymentService) CreateAndProcess(ctx context.Context, req VendorPaymentRequest) (*VendorPaymentResult, error) {
	if err := models.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	vendor, err := s.store.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, notFound(err, "vendor", req.VendorID)
	}
	if vendor.OrganizationID != req.OrganizationID {
		// Vendors of other organizations are invisible to the caller.
		return nil, &models.NotFoundError{Entity: "vendor", ID: req.VendorID}
	}
	if !vendor.Active {
		return nil, &models.InactiveVendorError{VendorID: vendor.ID}
	}

	org, err := s.store.GetOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, notFound(err, "organization", req.OrganizationID)
	}

	now := s.now().UTC()
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}
	pending := &models.VendorPayment{
		OrganizationID: req.OrganizationID,
		VendorID:       vendor.ID,
		Amount:         req.Amount,
		Description:    req.Description,
		PaymentDate:    paymentDate,
		Status:         models.VendorPaymentPending,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.InsertVendorPayment(ctx, pending)
	}); err != nil {
		return nil, fmt.Errorf("failed to save vendor payment: %w", err)
	}
	s.audit.LogTransition(vendorPaymentEntity, pending.ID, "", string(models.VendorPaymentPending), req.CreatedBy)

	var (
		result VendorPaymentResult
		txn    *models.Transaction
	)
	err = s.ledger.WithOrganization(ctx, org.ID, func(tx storage.Tx) error {
		payment := *pending

		posted, err := s.ledger.DebitTx(ctx, tx, org.ID, Entry{
			Amount:      payment.Amount,
			Description: fmt.Sprintf("Payment to %s: %s", vendor.Name, payment.Description),
			Source:      models.VendorPaymentSource(payment.ID),
		})
		if err != nil {
			return err
		}

		at := s.now().UTC()
		if err := payment.MarkProcessed(posted.ID, at); err != nil {
			return err
		}
		if err := tx.UpdateVendorPayment(ctx, &payment); err != nil {
			return fmt.Errorf("failed to update vendor payment: %w", err)
		}

		bill, err := s.bills.IssueTx(ctx, tx, org, vendor, &payment, at)
		if err != nil {
			return err
		}

		result = VendorPaymentResult{Payment: payment, Bill: *bill}
		txn = posted
		return nil
	})
	if err != nil {
		s.fail(ctx, pending, err)
		return nil, err
	}

	s.audit.LogTransaction(txn)
	s.audit.LogTransition(vendorPaymentEntity, result.Payment.ID, string(models.VendorPaymentPending), string(models.VendorPaymentProcessed), req.CreatedBy)

	recipient := vendor.Email
	if recipient == "" {
		recipient = fmt.Sprintf("vendor:%d", vendor.ID)
	}
	s.notify(ctx, notify.New(recipient,
		fmt.Sprintf("Payment received from %s", org.Name),
		fmt.Sprintf("A payment of %s has been made. Bill number %s.", result.Payment.Amount.StringFixed(2), result.Bill.BillNumber)))
	s.publish(ctx, events.TopicVendorPaymentProcessed,
		events.NewSettlementEvent(org.ID, result.Payment.ID, result.Payment.TransactionID, result.Payment.Amount, string(result.Payment.Status)))
	return &result, nil
}

// fail durably records the FAILED outcome. The caller's context may already
// be cancelled, so the write is detached from it.
func (s *VendorPaymentService) fail(ctx context.Context, payment *models.VendorPayment, cause error) {
	s.audit.LogError("vendor payment", payment.OrganizationID, payment.Amount, cause)

	if err := payment.MarkFailed(cause.Error(), s.now().UTC()); err != nil {
		s.logger.Error("vendor payment cannot be marked failed", zap.Int64("payment_id", payment.ID), zap.Error(err))
		return
	}

	detached := context.WithoutCancel(ctx)
	if err := s.store.WithTx(detached, func(tx storage.Tx) error {
		return tx.UpdateVendorPayment(detached, payment)
	}); err != nil {
		s.logger.Error("failed to persist vendor payment failure",
			zap.Int64("payment_id", payment.ID), zap.NamedError("cause", cause), zap.Error(err))
		return
	}

	s.audit.LogTransition(vendorPaymentEntity, payment.ID, string(models.VendorPaymentPending), string(models.VendorPaymentFailed), payment.CreatedBy)
	s.publish(detached, events.TopicVendorPaymentFailed,
		events.NewSettlementEvent(payment.OrganizationID, payment.ID, nil, payment.Amount, string(payment.Status)))
}

func (s *VendorPaymentService) Get(ctx context.Context, paymentID int64) (*models.VendorPayment, error) {
	payment, err := s.store.GetVendorPayment(ctx, paymentID)
	if err != nil {
		return nil, notFound(err, vendorPaymentEntity, paymentID)
	}
	return payment, nil
}

func (s *VendorPaymentService) List(ctx context.Context, orgID int64) ([]models.VendorPayment, error) {
	return s.store.ListVendorPayments(ctx, orgID)
}

// Advice builds the pacs.008 credit transfer for a processed payment.
func (s *VendorPaymentService) Advice(ctx context.Context, paymentID int64) (string, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if payment.Status != models.VendorPaymentProcessed {
		return "", &models.InvalidStateTransitionError{
			Entity: vendorPaymentEntity,
			ID:     payment.ID,
			From:   string(payment.Status),
			To:     "ADVISED",
		}
	}

	bill, err := s.bills.GetByPayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	org, err := s.store.GetOrganization(ctx, payment.OrganizationID)
	if err != nil {
		return "", notFound(err, "organization", payment.OrganizationID)
	}
	vendor, err := s.store.GetVendor(ctx, payment.VendorID)
	if err != nil {
		return "", notFound(err, "vendor", payment.VendorID)
	}

	doc, err := s.iso.CreditTransfer(payment, bill, org, vendor)
	if err != nil {
		return "", err
	}
	return s.iso.ConvertToXML(doc)
}
