package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentease/rentledger/src/models"
)

// DebtService answers "how much is owed" from the ledger. It is strictly
// read-only and composes the pure money primitives; it never re-derives
// payment status on its own.
type DebtService struct {
	db *sql.DB
}

// NewDebtService creates a new debt aggregation service
func NewDebtService(db *sql.DB) *DebtService {
	return &DebtService{db: db}
}

// TenantOutstanding is the consolidated position of one tenant for a month
type TenantOutstanding struct {
	TenantID          uuid.UUID         `json:"tenant_id"`
	ForMonth          int               `json:"for_month"`
	ForYear           int               `json:"for_year"`
	ExpectedThisMonth decimal.Decimal   `json:"expected_this_month"` // Consolidated
	PaidThisMonth     decimal.Decimal   `json:"paid_this_month"`
	Balance           decimal.Decimal   `json:"balance"` // Negative = credit
	Status            models.BillStatus `json:"status,omitempty"`
}

// BillBalance is one prior bill's contribution to a tenant's debt
type BillBalance struct {
	BillID   uuid.UUID       `json:"bill_id"`
	ForMonth int             `json:"for_month"`
	ForYear  int             `json:"for_year"`
	Expected decimal.Decimal `json:"expected"`
	Paid     decimal.Decimal `json:"paid"`
	Balance  decimal.Decimal `json:"balance"`
}

// PortfolioSummary is the landlord-wide debt view for a month
type PortfolioSummary struct {
	LandlordID       uuid.UUID       `json:"landlord_id"`
	ForMonth         int             `json:"for_month"`
	ForYear          int             `json:"for_year"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TenantsWithDebt  int             `json:"tenants_with_debt"`
	TotalExpected    decimal.Decimal `json:"total_expected"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	CollectionRate   decimal.Decimal `json:"collection_rate"` // TotalPaid / TotalExpected, 0-1
}

// GetTenantOutstanding returns the tenant's consolidated balance for the
// given month. An absent current-month bill is treated as expected =
// base rent, paid = 0, matching the money primitives' contract.
func (s *DebtService) GetTenantOutstanding(ctx context.Context, tenantID uuid.UUID, month, year int) (*TenantOutstanding, error) {
	bills, err := s.tenantBills(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	baseRent, err := s.tenantBaseRent(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := &TenantOutstanding{
		TenantID:          tenantID,
		ForMonth:          month,
		ForYear:           year,
		ExpectedThisMonth: ExpectedForCurrentMonth(bills, month, year, baseRent),
		Balance:           BalanceForCurrentMonth(bills, month, year, baseRent),
		PaidThisMonth:     decimal.Zero,
	}
	for _, bill := range bills {
		if bill.IsForPeriod(month, year) {
			out.PaidThisMonth = PaidForBill(bill)
			out.Status = bill.Status
			break
		}
	}
	return out, nil
}

// GetHistoricalBreakdown lists each prior bill still carrying a positive
// balance. When the current-month bill is resolved, the fold guarantees
// all prior debt is resolved with it, so the breakdown is empty.
func (s *DebtService) GetHistoricalBreakdown(ctx context.Context, tenantID uuid.UUID, month, year int) ([]BillBalance, error) {
	bills, err := s.tenantBills(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for _, bill := range bills {
		if bill.IsForPeriod(month, year) && !bill.Status.IsUnresolved() {
			return nil, nil
		}
	}

	var breakdown []BillBalance
	for _, bill := range bills {
		if !bill.PeriodBefore(month, year) || !bill.Status.IsUnresolved() {
			continue
		}
		balance := BalanceForBill(bill, false)
		if !balance.IsPositive() {
			continue
		}
		breakdown = append(breakdown, BillBalance{
			BillID:   bill.ID,
			ForMonth: bill.ForMonth,
			ForYear:  bill.ForYear,
			Expected: ExpectedForBill(bill, false),
			Paid:     PaidForBill(bill),
			Balance:  balance,
		})
	}
	return breakdown, nil
}

// GetPortfolioSummary aggregates the landlord's whole book for a month:
// total outstanding across all bills, how many tenants owe anything, and
// the collection rate for the month's bills.
func (s *DebtService) GetPortfolioSummary(ctx context.Context, landlordID uuid.UUID, month, year int) (*PortfolioSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE record_kind = 'bill' AND landlord_id = $1
		ORDER BY tenant_id, for_year, for_month`, landlordID)
	if err != nil {
		return nil, err
	}
	bills, err := collectBills(rows)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		LandlordID:       landlordID,
		ForMonth:         month,
		ForYear:          year,
		TotalOutstanding: decimal.Zero,
		TotalExpected:    decimal.Zero,
		TotalPaid:        decimal.Zero,
		CollectionRate:   decimal.Zero,
	}

	indebted := map[uuid.UUID]bool{}
	records := make([]models.Record, 0, len(bills))
	for _, bill := range bills {
		records = append(records, bill)

		if bill.Status.IsUnresolved() && BalanceForBill(bill, true).IsPositive() {
			indebted[bill.TenantID] = true
		}
		if bill.IsForPeriod(month, year) {
			summary.TotalExpected = summary.TotalExpected.Add(bill.TotalExpected)
			summary.TotalPaid = summary.TotalPaid.Add(PaidForBill(bill))
		}
	}

	summary.TotalOutstanding = SumOutstanding(records)
	summary.TenantsWithDebt = len(indebted)
	if summary.TotalExpected.IsPositive() {
		summary.CollectionRate = summary.TotalPaid.Div(summary.TotalExpected).Round(4)
	}
	return summary, nil
}

func (s *DebtService) tenantBills(ctx context.Context, tenantID uuid.UUID) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE record_kind = 'bill' AND tenant_id = $1
		ORDER BY for_year, for_month`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectBills(rows)
}

func (s *DebtService) tenantBaseRent(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var baseRent decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT p.base_rent
		FROM tenancies t
		JOIN properties p ON p.id = t.property_id
		WHERE t.tenant_id = $1 AND t.active`, tenantID).Scan(&baseRent)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrPropertyNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return baseRent, nil
}
