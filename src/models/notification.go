package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationType identifies the kind of event published to the
// notification sink
type NotificationType string

const (
	NotificationBillCreated         NotificationType = "bill_created"         // To tenant: new bill issued
	NotificationPaymentReceived     NotificationType = "payment_received"     // To landlord: money came in
	NotificationPaymentConfirmation NotificationType = "payment_confirmation" // To tenant: receipt
	NotificationPaymentFailed       NotificationType = "payment_failed"       // To tenant: gateway failure
)

// NotificationEvent is the fire-and-forget payload pushed to the activity
// log / dashboard stream. Delivery failures never fail the ledger write.
type NotificationEvent struct {
	ID         uuid.UUID        `json:"id"`
	Type       NotificationType `json:"type"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	LandlordID uuid.UUID        `json:"landlord_id"`

	BillID    *uuid.UUID `json:"bill_id,omitempty"`
	ReceiptID *uuid.UUID `json:"receipt_id,omitempty"`

	ForMonth int `json:"for_month,omitempty"`
	ForYear  int `json:"for_year,omitempty"`

	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`

	// True on a payment confirmation when the tenant owes nothing more
	FullyCleared bool `json:"fully_cleared,omitempty"`

	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
