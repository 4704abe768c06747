// Package render produces printable HTML artifacts for settled payroll
// batches and vendor bills.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"
	"time"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const qrSize = 192

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"period": func(month, year int) string {
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	},
}

var (
	receiptTmpl   = template.Must(template.New("receipt").Funcs(funcs).Parse(receiptHTML))
	statementTmpl = template.Must(template.New("statement").Funcs(funcs).Parse(statementHTML))
)

type ReceiptData struct {
	Bill         models.Bill
	Payment      models.VendorPayment
	Organization string
	Vendor       string
}

type StatementData struct {
	Batch        models.PayrollBatch
	Organization string
}

type Renderer struct {
	currency string
}

func NewRenderer(currency string) *Renderer {
	return &Renderer{currency: currency}
}

// Receipt renders a bill receipt carrying a QR code of its verification payload.
func (r *Renderer) Receipt(data ReceiptData) ([]byte, error) {
	qr, err := qrImage(VerificationPayload(data.Bill))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = receiptTmpl.Execute(&buf, struct {
		ReceiptData
		Currency string
		QRCode   template.URL
	}{data, r.currency, template.URL("data:image/png;base64," + qr)})
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) PayrollStatement(data StatementData) ([]byte, error) {
	var buf bytes.Buffer
	err := statementTmpl.Execute(&buf, struct {
		StatementData
		Currency string
	}{data, r.currency})
	if err != nil {
		return nil, fmt.Errorf("failed to render payroll statement: %w", err)
	}
	return buf.Bytes(), nil
}

// VerificationPayload is the text encoded in a receipt's QR code.
func VerificationPayload(bill models.Bill) string {
	return fmt.Sprintf("BILL:%s;PAYMENT:%d;AMOUNT:%s", bill.BillNumber, bill.VendorPaymentID, bill.Amount.StringFixed(2))
}

func qrImage(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(qrSize)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

const receiptHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{.Bill.BillNumber}}</title></head>
<body>
<h1>Payment Receipt</h1>
<p>Bill number: <strong>{{.Bill.BillNumber}}</strong></p>
<table>
<tr><td>Payer</td><td>{{.Organization}}</td></tr>
<tr><td>Vendor</td><td>{{.Vendor}}</td></tr>
<tr><td>Description</td><td>{{.Payment.Description}}</td></tr>
<tr><td>Payment date</td><td>{{date .Payment.PaymentDate}}</td></tr>
<tr><td>Amount</td><td>{{.Currency}} {{money .Bill.Amount}}</td></tr>
<tr><td>Issued</td><td>{{date .Bill.IssuedAt}}</td></tr>
</table>
<img alt="verification code" src="{{.QRCode}}">
</body>
</html>
`

const statementHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payroll {{period .Batch.Month .Batch.Year}}</title></head>
<body>
<h1>{{.Organization}} payroll for {{period .Batch.Month .Batch.Year}}</h1>
<p>Status: {{.Batch.Status}}</p>
<table>
<tr><th>Employee</th><th>Basic</th><th>Allowances</th><th>Deductions</th><th>Net</th><th>Status</th></tr>
{{- range .Batch.Payments}}
<tr><td>{{.EmployeeName}}</td><td>{{money .BasicSalary}}</td><td>{{money .Allowances}}</td><td>{{money .Deductions}}</td><td>{{money .NetSalaryPaid}}</td><td>{{.Status}}</td></tr>
{{- end}}
</table>
<p>Employees: {{.Batch.TotalEmployees}}</p>
<p>Total: {{.Currency}} {{money .Batch.TotalAmount}}</p>
{{- if .Batch.RejectionReason}}
<p>Rejected: {{.Batch.RejectionReason}}</p>
{{- end}}
</body>
</html>
`
