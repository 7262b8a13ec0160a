package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentease/rentledger/src/models"
)

func billWith(month, year int, baseRent, utilities, historical, paid int64) *models.Bill {
	bill := models.NewBillBuilder().
		WithOwnership(uuid.New(), uuid.New(), uuid.New()).
		WithPeriod(month, year).
		WithBaseRent(decimal.NewFromInt(baseRent)).
		WithUtilities(nil, decimal.NewFromInt(utilities)).
		WithHistoricalDebt(decimal.NewFromInt(historical)).
		Build()
	bill.AmountPaid = decimal.NewFromInt(paid)
	bill.Status = models.StatusFor(bill.AmountPaid, bill.TotalExpected)
	return bill
}

func TestExpectedForBill(t *testing.T) {
	bill := billWith(3, 2025, 20000, 2000, 5000, 0)

	if got := ExpectedForBill(bill, false); !got.Equal(decimal.NewFromInt(22000)) {
		t.Errorf("ExpectedForBill excl. historical = %s, want 22000", got)
	}
	if got := ExpectedForBill(bill, true); !got.Equal(decimal.NewFromInt(27000)) {
		t.Errorf("ExpectedForBill incl. historical = %s, want 27000", got)
	}
}

func TestBalanceForBill(t *testing.T) {
	tests := []struct {
		name string
		bill *models.Bill
		incl bool
		want int64
	}{
		{"unpaid", billWith(3, 2025, 20000, 2000, 0, 0), false, 22000},
		{"partial", billWith(3, 2025, 20000, 2000, 0, 10000), false, 12000},
		{"settled", billWith(3, 2025, 20000, 2000, 0, 22000), false, 0},
		{"overpaid is negative credit", billWith(3, 2025, 20000, 2000, 0, 30000), false, -8000},
		{"consolidated incl. debt", billWith(3, 2025, 20000, 0, 5000, 0), true, 25000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceForBill(tt.bill, tt.incl)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("BalanceForBill = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestSumOutstandingSkipsTransactions(t *testing.T) {
	records := []models.Record{
		billWith(2, 2025, 20000, 0, 0, 15000), // balance 5000
		billWith(3, 2025, 20000, 2000, 0, 0),  // balance 22000
		billWith(1, 2025, 20000, 0, 0, 25000), // overpaid, excluded
		&models.Transaction{Amount: decimal.NewFromInt(99999)},
	}

	got := SumOutstanding(records)
	if !got.Equal(decimal.NewFromInt(27000)) {
		t.Errorf("SumOutstanding = %s, want 27000", got)
	}
}

func TestIsTransactionRecord(t *testing.T) {
	if IsTransactionRecord(&models.Bill{}) {
		t.Error("bill classified as transaction")
	}
	if !IsTransactionRecord(&models.Transaction{}) {
		t.Error("transaction not classified as transaction")
	}
}

func TestExpectedForCurrentMonthNoBillYet(t *testing.T) {
	// Absent current-month bill: expected = baseRent + earlier unresolved
	// balances, paid = 0.
	bills := []*models.Bill{
		billWith(2, 2025, 20000, 0, 0, 15000), // 5000 unresolved
	}
	baseRent := decimal.NewFromInt(20000)

	expected := ExpectedForCurrentMonth(bills, 3, 2025, baseRent)
	if !expected.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("ExpectedForCurrentMonth = %s, want 25000", expected)
	}

	balance := BalanceForCurrentMonth(bills, 3, 2025, baseRent)
	if !balance.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("BalanceForCurrentMonth = %s, want 25000", balance)
	}
}

func TestExpectedForCurrentMonthNoBillsAtAll(t *testing.T) {
	baseRent := decimal.NewFromInt(18000)
	if got := ExpectedForCurrentMonth(nil, 6, 2025, baseRent); !got.Equal(baseRent) {
		t.Errorf("ExpectedForCurrentMonth = %s, want %s", got, baseRent)
	}
	if got := BalanceForCurrentMonth(nil, 6, 2025, baseRent); !got.Equal(baseRent) {
		t.Errorf("BalanceForCurrentMonth = %s, want %s", got, baseRent)
	}
}

func TestConsolidatedBillScenario(t *testing.T) {
	// February unresolved at 5000; March bill folds it in: expected 25000.
	february := billWith(2, 2025, 20000, 0, 0, 15000)
	march := billWith(3, 2025, 20000, 0, 5000, 0)
	bills := []*models.Bill{february, march}

	expected := ExpectedForCurrentMonth(bills, 3, 2025, decimal.NewFromInt(20000))
	if !expected.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("consolidated expected = %s, want 25000", expected)
	}

	// Payment of 25000 settles March; balance for the month hits zero.
	march.AmountPaid = decimal.NewFromInt(25000)
	march.Status = models.StatusFor(march.AmountPaid, march.TotalExpected)
	if march.Status != models.BillStatusCompleted {
		t.Errorf("march status = %s, want completed", march.Status)
	}

	balance := BalanceForCurrentMonth(bills, 3, 2025, decimal.NewFromInt(20000))
	if !balance.IsZero() {
		t.Errorf("balance after settlement = %s, want 0", balance)
	}
}

func TestPartialThenCompletedScenario(t *testing.T) {
	// March: rent 20000, utilities 2000 -> expected 22000.
	march := billWith(3, 2025, 20000, 2000, 0, 0)

	march.AmountPaid = march.AmountPaid.Add(decimal.NewFromInt(10000))
	march.Status = models.StatusFor(march.AmountPaid, march.TotalExpected)
	if march.Status != models.BillStatusPartial {
		t.Errorf("after 10000: status = %s, want partial", march.Status)
	}
	if got := BalanceForBill(march, true); !got.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("after 10000: balance = %s, want 12000", got)
	}

	march.AmountPaid = march.AmountPaid.Add(decimal.NewFromInt(12000))
	march.Status = models.StatusFor(march.AmountPaid, march.TotalExpected)
	if march.Status != models.BillStatusCompleted {
		t.Errorf("after 22000: status = %s, want completed", march.Status)
	}
	if got := BalanceForBill(march, true); !got.IsZero() {
		t.Errorf("after 22000: balance = %s, want 0", got)
	}
}

func TestOverpaymentScenario(t *testing.T) {
	march := billWith(3, 2025, 20000, 2000, 0, 0)

	march.AmountPaid = decimal.NewFromInt(30000)
	march.Status = models.StatusFor(march.AmountPaid, march.TotalExpected)

	if march.Status != models.BillStatusOverpaid {
		t.Errorf("status = %s, want overpaid", march.Status)
	}
	if got := BalanceForBill(march, true); !got.Equal(decimal.NewFromInt(-8000)) {
		t.Errorf("balance = %s, want -8000", got)
	}
}
