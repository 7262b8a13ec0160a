package services

import (
	"github.com/shopspring/decimal"

	"github.com/rentease/rentledger/src/models"
)

// Pure money arithmetic over ledger records. These functions are the
// single source of truth for "what is owed"; every service and read-side
// view composes them rather than re-deriving the rules. They perform no
// I/O and treat an absent current-month bill as expected = baseRent,
// paid = 0.

// ExpectedForBill returns the bill's expected amount: base rent plus
// utilities, plus folded historical debt (net of applied credit) when
// includeHistorical is set.
func ExpectedForBill(bill *models.Bill, includeHistorical bool) decimal.Decimal {
	if includeHistorical {
		return bill.TotalExpected
	}
	return bill.OwnExpected()
}

// PaidForBill returns the cumulative amount applied to the bill.
func PaidForBill(bill *models.Bill) decimal.Decimal {
	return bill.AmountPaid
}

// BalanceForBill returns expected minus paid. Negative means the bill is
// overpaid and the surplus is tenant credit.
func BalanceForBill(bill *models.Bill, includeHistorical bool) decimal.Decimal {
	return ExpectedForBill(bill, includeHistorical).Sub(PaidForBill(bill))
}

// IsTransactionRecord reports whether the record is a payment receipt
// rather than a bill.
func IsTransactionRecord(record models.Record) bool {
	return record.Kind() == models.RecordKindTransaction
}

// SumOutstanding returns the sum of all positive bill balances in the
// record set. Transaction receipts are excluded; balances include folded
// historical debt so a consolidated bill counts its whole obligation.
func SumOutstanding(records []models.Record) decimal.Decimal {
	total := decimal.Zero
	for _, record := range records {
		if IsTransactionRecord(record) {
			continue
		}
		bill, ok := record.(*models.Bill)
		if !ok {
			continue
		}
		balance := BalanceForBill(bill, true)
		if balance.IsPositive() {
			total = total.Add(balance)
		}
	}
	return total
}

// currentMonthBill finds the tenant's bill for (month, year), nil if none.
func currentMonthBill(bills []*models.Bill, month, year int) *models.Bill {
	for _, bill := range bills {
		if bill.IsForPeriod(month, year) {
			return bill
		}
	}
	return nil
}

// ExpectedForCurrentMonth returns the consolidated expected figure for the
// period: the current month's charge plus unresolved balances from every
// earlier bill. When a current-month bill exists its TotalExpected already
// carries the fold, so it is taken as-is; otherwise the base rent stands
// in for the not-yet-created bill and earlier debt is summed directly.
func ExpectedForCurrentMonth(bills []*models.Bill, month, year int, baseRent decimal.Decimal) decimal.Decimal {
	if current := currentMonthBill(bills, month, year); current != nil {
		return current.TotalExpected
	}

	expected := baseRent
	for _, bill := range bills {
		if !bill.PeriodBefore(month, year) || !bill.Status.IsUnresolved() {
			continue
		}
		balance := BalanceForBill(bill, false)
		if balance.IsPositive() {
			expected = expected.Add(balance)
		}
	}
	return expected
}

// BalanceForCurrentMonth returns the consolidated expected figure minus
// the current month's cumulative paid amount.
func BalanceForCurrentMonth(bills []*models.Bill, month, year int, baseRent decimal.Decimal) decimal.Decimal {
	expected := ExpectedForCurrentMonth(bills, month, year, baseRent)
	paid := decimal.Zero
	if current := currentMonthBill(bills, month, year); current != nil {
		paid = PaidForBill(current)
	}
	return expected.Sub(paid)
}
