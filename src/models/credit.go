package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditEntryType represents the type of credit ledger entry
type CreditEntryType string

const (
	CreditEarnedOverpayment CreditEntryType = "earned_overpayment" // Surplus from an overpaid bill
	CreditAppliedToBill     CreditEntryType = "applied_to_bill"    // Consumed by bill creation
	CreditAdjustment        CreditEntryType = "adjustment"         // Manual administrative adjustment
)

// CreditEntry is one row of the per-tenant credit ledger. Overpayment
// surplus is recorded here as a first-class balance instead of living only
// as a negative balance on one bill; bill creation consumes it before
// computing historical debt. Entries are immutable; the balance is the sum
// of Amount over all entries (positive = credit available).
type CreditEntry struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	TenantID uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Amount   decimal.Decimal `json:"amount" db:"amount"` // Positive = granted, negative = consumed

	EntryType CreditEntryType `json:"entry_type" db:"entry_type"`

	// The bill that produced or consumed the credit
	SourceBillID *uuid.UUID `json:"source_bill_id,omitempty" db:"source_bill_id"`

	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
