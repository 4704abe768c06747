package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/render"
	"github.com/ruralpay/orgledger/internal/storage"
)

const fallbackNameCode = "XXX"

// nameCode is the first three ASCII letters or digits of name, uppercased.
func nameCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackNameCode
	}
	return b.String()
}

// BillNumber formats {orgCode}-{vendorCode}-{yyyyMMdd}-{paymentId}.
func BillNumber(orgName, vendorName string, date time.Time, paymentID int64) (string, error) {
	if paymentID <= 0 {
		return "", models.ErrMissingPaymentID
	}
	return fmt.Sprintf("%s-%s-%s-%d", nameCode(orgName), nameCode(vendorName), date.Format("20060102"), paymentID), nil
}

type BillService struct {
	store    storage.Reader
	renderer *render.Renderer
}

func NewBillService(store storage.Reader, renderer *render.Renderer) *BillService {
	return &BillService{store: store, renderer: renderer}
}

// IssueTx creates the bill for a processed payment inside the payment's unit of work.
func (s *BillService) IssueTx(ctx context.Context, tx storage.Tx, org *models.Organization, vendor *models.Vendor, payment *models.VendorPayment, at time.Time) (*models.Bill, error) {
	if payment.Status != models.VendorPaymentProcessed {
		return nil, &models.InvalidStateTransitionError{
			Entity: "bill for vendor payment",
			ID:     payment.ID,
			From:   string(payment.Status),
			To:     "BILLED",
		}
	}

	number, err := BillNumber(org.Name, vendor.Name, payment.PaymentDate, payment.ID)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		BillNumber:      number,
		VendorPaymentID: payment.ID,
		OrganizationID:  payment.OrganizationID,
		VendorID:        payment.VendorID,
		Amount:          payment.Amount,
		IssuedAt:        at,
	}
	if err := tx.InsertBill(ctx, bill); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("bill for vendor payment %d already issued: %w", payment.ID, err)
		}
		return nil, err
	}
	return bill, nil
}

func (s *BillService) GetByPayment(ctx context.Context, paymentID int64) (*models.Bill, error) {
	bill, err := s.store.GetBillByPayment(ctx, paymentID)
	if err != nil {
		return nil, notFound(err, "bill for vendor payment", paymentID)
	}
	return bill, nil
}

// Receipt renders the printable receipt for a payment's bill.
func (s *BillService) Receipt(ctx context.Context, paymentID int64) ([]byte, error) {
	bill, err := s.GetByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.GetVendorPayment(ctx, paymentID)
	if err != nil {
		return nil, notFound(err, "vendor payment", paymentID)
	}
	org, err := s.store.GetOrganization(ctx, bill.OrganizationID)
	if err != nil {
		return nil, notFound(err, "organization", bill.OrganizationID)
	}
	vendor, err := s.store.GetVendor(ctx, bill.VendorID)
	if err != nil {
		return nil, notFound(err, "vendor", bill.VendorID)
	}

	return s.renderer.Receipt(render.ReceiptData{
		Bill:         *bill,
		Payment:      *payment,
		Organization: org.Name,
		Vendor:       vendor.Name,
	})
}
