package services

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/ruralpay/orgledger/internal/models"
)

// ISO20022Service builds ISO 20022 messages describing settled vendor payments.
type ISO20022Service struct {
	currency string
	bankBIC  string
	now      func() time.Time
}

func NewISO20022Service(currency, bankBIC string) *ISO20022Service {
	return &ISO20022Service{
		currency: currency,
		bankBIC:  bankBIC,
		now:      time.Now,
	}
}

// CreditTransfer creates a pacs.008 FIToFICustomerCreditTransfer for a processed payment.
func (iso *ISO20022Service) CreditTransfer(payment *models.VendorPayment, bill *models.Bill, org *models.Organization, vendor *models.Vendor) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if payment.TransactionID == nil {
		return nil, fmt.Errorf("vendor payment %d has no ledger transaction", payment.ID)
	}

	msgID := uuid.New().String()
	creDtTm := iso.now()
	settlementDate := payment.PaymentDate
	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(iso.currency),
		Value: payment.Amount.InexactFloat64(),
	}
	instrID := common.Max35Text(strconv.FormatInt(*payment.TransactionID, 10))
	txID := common.Max35Text(fmt.Sprintf("VP-%d", payment.ID))
	bic := common.BICFIDec2014Identifier(iso.bankBIC)
	debtor := common.Max140Text(org.Name)
	creditor := common.Max140Text(vendor.Name)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(msgID),
			CreDtTm:           common.ISODateTime(creDtTm),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &amount,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "INGA", // settled on the bank's internal books
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &instrID,
					EndToEndId: common.Max35Text(bill.BillNumber),
					TxId:       &txID,
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{BICFI: &bic},
				},
				Dbtr: pacs_v08.PartyIdentification135{Nm: &debtor},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{BICFI: &bic},
				},
				Cdtr: pacs_v08.PartyIdentification135{Nm: &creditor},
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
