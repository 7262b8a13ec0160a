package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordKind discriminates the two record shapes stored in the ledger
// collection. Every row carries it explicitly; downstream filtering is a
// field check, never a string search over free-text notes.
type RecordKind string

const (
	RecordKindBill        RecordKind = "bill"        // Mutable obligation for one (tenant, month, year)
	RecordKindTransaction RecordKind = "transaction" // Immutable receipt of money received
)

// Record is any row of the ledger collection.
type Record interface {
	Kind() RecordKind
}

// BillStatus represents the payment state of a bill
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"   // Nothing paid yet
	BillStatusPartial   BillStatus = "partial"   // Partially paid
	BillStatusCompleted BillStatus = "completed" // Paid in full
	BillStatusOverpaid  BillStatus = "overpaid"  // Paid above the expected total
)

// StatusFor derives a bill's status from cumulative paid vs expected.
// Status is a pure function of these two amounts. Gateway failures are
// recorded as failed transactions and never change a bill's status.
func StatusFor(paid, expected decimal.Decimal) BillStatus {
	switch {
	case paid.IsZero() || paid.IsNegative():
		return BillStatusPending
	case paid.LessThan(expected):
		return BillStatusPartial
	case paid.Equal(expected):
		return BillStatusCompleted
	default:
		return BillStatusOverpaid
	}
}

// IsUnresolved reports whether the bill still carries payable debt.
func (s BillStatus) IsUnresolved() bool {
	return s == BillStatusPending || s == BillStatusPartial
}

// UtilityCharge is one metered utility line on a bill
type UtilityCharge struct {
	UtilityType  string          `json:"utility_type" db:"utility_type"` // water, electricity, garbage, ...
	UnitsUsed    decimal.Decimal `json:"units_used" db:"units_used"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	Total        decimal.Decimal `json:"total" db:"total"` // UnitsUsed * PricePerUnit
}

// Bill represents a single tenant's rent obligation for one calendar month.
// A consolidated bill additionally carries the unresolved balance of every
// earlier bill, folded in once at creation time.
type Bill struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RecordType RecordKind `json:"record_kind" db:"record_kind"`

	// Ownership references, immutable after creation
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	LandlordID uuid.UUID `json:"landlord_id" db:"landlord_id"`
	PropertyID uuid.UUID `json:"property_id" db:"property_id"`

	// Billing period; with TenantID forms the natural uniqueness key
	ForMonth int `json:"for_month" db:"for_month"` // 1-12
	ForYear  int `json:"for_year" db:"for_year"`

	// Amount components
	BaseRent         decimal.Decimal `json:"base_rent" db:"base_rent"`
	UtilityCharges   []UtilityCharge `json:"utility_charges" db:"utility_charges"`
	TotalUtilityCost decimal.Decimal `json:"total_utility_cost" db:"total_utility_cost"`

	// Debt from earlier unresolved bills, fixed at creation time. Later
	// payments against older bills never retroactively shrink this; the
	// fold resolves upward when this bill settles.
	HistoricalDebt decimal.Decimal `json:"historical_debt" db:"historical_debt"`
	Consolidated   bool            `json:"consolidated" db:"consolidated"`

	// Tenant credit consumed at creation time (overpayment carry-forward)
	CreditApplied decimal.Decimal `json:"credit_applied" db:"credit_applied"`

	// TotalExpected = BaseRent + TotalUtilityCost + HistoricalDebt - CreditApplied
	TotalExpected decimal.Decimal `json:"total_expected" db:"total_expected"`

	// Running total applied to this bill; monotonically non-decreasing
	AmountPaid decimal.Decimal `json:"amount_paid" db:"amount_paid"`

	Status BillStatus `json:"status" db:"status"`
	Notes  string     `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Kind implements Record.
func (b *Bill) Kind() RecordKind { return RecordKindBill }

// OwnExpected returns the bill's own charge (rent + utilities), excluding
// any folded historical debt. This is the figure a settled fold
// contributor's AmountPaid is pinned to.
func (b *Bill) OwnExpected() decimal.Decimal {
	return b.BaseRent.Add(b.TotalUtilityCost)
}

// IsForPeriod reports whether the bill covers the given calendar month.
func (b *Bill) IsForPeriod(month, year int) bool {
	return b.ForMonth == month && b.ForYear == year
}

// PeriodBefore reports whether the bill's period is strictly earlier than
// (month, year).
func (b *Bill) PeriodBefore(month, year int) bool {
	if b.ForYear != year {
		return b.ForYear < year
	}
	return b.ForMonth < month
}

// BillBuilder provides a fluent interface for constructing bills
type BillBuilder struct {
	bill *Bill
}

// NewBillBuilder creates a builder with defaults for a fresh pending bill
func NewBillBuilder() *BillBuilder {
	now := time.Now()
	return &BillBuilder{
		bill: &Bill{
			ID:             uuid.New(),
			RecordType:     RecordKindBill,
			Consolidated:   true,
			HistoricalDebt: decimal.Zero,
			CreditApplied:  decimal.Zero,
			AmountPaid:     decimal.Zero,
			Status:         BillStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

// WithOwnership sets the immutable ownership references
func (b *BillBuilder) WithOwnership(tenantID, landlordID, propertyID uuid.UUID) *BillBuilder {
	b.bill.TenantID = tenantID
	b.bill.LandlordID = landlordID
	b.bill.PropertyID = propertyID
	return b
}

// WithPeriod sets the billing period
func (b *BillBuilder) WithPeriod(month, year int) *BillBuilder {
	b.bill.ForMonth = month
	b.bill.ForYear = year
	return b
}

// WithBaseRent sets the monthly base rent
func (b *BillBuilder) WithBaseRent(rent decimal.Decimal) *BillBuilder {
	b.bill.BaseRent = rent
	return b
}

// WithUtilities sets the utility lines and their precomputed total
func (b *BillBuilder) WithUtilities(charges []UtilityCharge, total decimal.Decimal) *BillBuilder {
	b.bill.UtilityCharges = charges
	b.bill.TotalUtilityCost = total
	return b
}

// WithHistoricalDebt folds prior unresolved debt into the bill
func (b *BillBuilder) WithHistoricalDebt(debt decimal.Decimal) *BillBuilder {
	b.bill.HistoricalDebt = debt
	return b
}

// WithCreditApplied consumes tenant credit against the bill
func (b *BillBuilder) WithCreditApplied(credit decimal.Decimal) *BillBuilder {
	b.bill.CreditApplied = credit
	return b
}

// WithNotes attaches free-text notes (display only, never a discriminator)
func (b *BillBuilder) WithNotes(notes string) *BillBuilder {
	b.bill.Notes = notes
	return b
}

// Build finalizes the bill, computing TotalExpected
func (b *BillBuilder) Build() *Bill {
	total := b.bill.BaseRent.
		Add(b.bill.TotalUtilityCost).
		Add(b.bill.HistoricalDebt).
		Sub(b.bill.CreditApplied)
	if total.IsNegative() {
		total = decimal.Zero
	}
	b.bill.TotalExpected = total
	return b.bill
}
