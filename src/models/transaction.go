package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how money was received
type PaymentMethod string

const (
	PaymentMethodMpesa        PaymentMethod = "mpesa"         // M-Pesa mobile money
	PaymentMethodPaystack     PaymentMethod = "paystack"      // Paystack card gateway
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer" // Direct bank transfer
	PaymentMethodCash         PaymentMethod = "cash"          // Cash handed to the landlord
	PaymentMethodManual       PaymentMethod = "manual"        // Manual entry by the landlord
)

// TransactionStatus represents the gateway outcome for a payment attempt
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success" // Money received and applied
	TransactionStatusFailed  TransactionStatus = "failed"  // Gateway failure, nothing applied
)

// Transaction is an append-only receipt of a single payment event. It is
// written once by the payment engine and never mutated; aggregation must
// filter it out via RecordKind, never by inspecting notes.
type Transaction struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RecordType RecordKind `json:"record_kind" db:"record_kind"`

	ReceiptNumber string `json:"receipt_number" db:"receipt_number"`

	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	LandlordID uuid.UUID `json:"landlord_id" db:"landlord_id"`
	PropertyID uuid.UUID `json:"property_id" db:"property_id"`

	// The bill this payment was applied against and its period
	BillID   uuid.UUID `json:"bill_id" db:"bill_id"`
	ForMonth int       `json:"for_month" db:"for_month"`
	ForYear  int       `json:"for_year" db:"for_year"`

	Amount decimal.Decimal `json:"amount" db:"amount"` // Amount actually received

	Method PaymentMethod     `json:"method" db:"method"`
	Status TransactionStatus `json:"status" db:"status"`

	// Gateway reference used for idempotent replay detection; nil for
	// manual entries
	ExternalRef *string `json:"external_ref,omitempty" db:"external_ref"`

	FailureReason *string `json:"failure_reason,omitempty" db:"failure_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Kind implements Record.
func (t *Transaction) Kind() RecordKind { return RecordKindTransaction }
