package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type CaseStatus string

const (
	CaseStatusDraft            CaseStatus = "draft"
	CaseStatusDemandSent       CaseStatus = "demand_sent"
	CaseStatusResponseReceived CaseStatus = "response_received"
	CaseStatusNegotiating      CaseStatus = "negotiating"
	CaseStatusSettled          CaseStatus = "settled"
	CaseStatusClosed           CaseStatus = "closed"
	CaseStatusCancelled        CaseStatus = "cancelled"
)

// Valid reports whether s is a known case status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusDraft, CaseStatusDemandSent, CaseStatusResponseReceived,
		CaseStatusNegotiating, CaseStatusSettled, CaseStatusClosed, CaseStatusCancelled:
		return true
	default:
		return false
	}
}

// Case is one subrogation recovery case. Monetary and liability figures are
// exact decimals; they end up verbatim on the demand cover sheet.
type Case struct {
	ID           string
	TenantID     string
	ClaimID      string
	PolicyNumber string
	LossDate     time.Time

	InsuredLiabilityPercent    decimal.Decimal
	ThirdPartyLiabilityPercent decimal.Decimal

	TotalPaidIndemnity  decimal.Decimal
	TotalPaidExpense    decimal.Decimal
	OutstandingReserves decimal.Decimal
	RecoverySought      decimal.Decimal

	PaymentBreakdown string

	Status        CaseStatus
	InternalNotes string

	CreatedBy  string
	CreatedAt  time.Time
	ModifiedBy string
	ModifiedAt *time.Time
}
