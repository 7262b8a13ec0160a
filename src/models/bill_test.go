package models

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		paid     decimal.Decimal
		expected decimal.Decimal
		want     BillStatus
	}{
		{"nothing paid", decimal.Zero, decimal.NewFromInt(22000), BillStatusPending},
		{"partially paid", decimal.NewFromInt(10000), decimal.NewFromInt(22000), BillStatusPartial},
		{"paid exactly", decimal.NewFromInt(22000), decimal.NewFromInt(22000), BillStatusCompleted},
		{"overpaid", decimal.NewFromInt(30000), decimal.NewFromInt(22000), BillStatusOverpaid},
		{"one unit short", decimal.NewFromInt(21999), decimal.NewFromInt(22000), BillStatusPartial},
		{"one unit over", decimal.NewFromInt(22001), decimal.NewFromInt(22000), BillStatusOverpaid},
		{"fractional partial", decimal.NewFromFloat(0.01), decimal.NewFromInt(22000), BillStatusPartial},
		{"zero expected zero paid", decimal.Zero, decimal.Zero, BillStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.paid, tt.expected); got != tt.want {
				t.Errorf("StatusFor(%s, %s) = %s, want %s", tt.paid, tt.expected, got, tt.want)
			}
		})
	}
}

// Status must match the derivation table for arbitrary (paid, expected)
// pairs, not just the handpicked cases.
func TestStatusForRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		expected := decimal.NewFromInt(rng.Int63n(100000) + 1)
		paid := decimal.NewFromInt(rng.Int63n(200000))

		got := StatusFor(paid, expected)

		var want BillStatus
		switch {
		case paid.IsZero():
			want = BillStatusPending
		case paid.LessThan(expected):
			want = BillStatusPartial
		case paid.Equal(expected):
			want = BillStatusCompleted
		default:
			want = BillStatusOverpaid
		}

		if got != want {
			t.Fatalf("StatusFor(%s, %s) = %s, want %s", paid, expected, got, want)
		}
	}
}

func TestBillStatusIsUnresolved(t *testing.T) {
	tests := []struct {
		status BillStatus
		want   bool
	}{
		{BillStatusPending, true},
		{BillStatusPartial, true},
		{BillStatusCompleted, false},
		{BillStatusOverpaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsUnresolved(); got != tt.want {
				t.Errorf("IsUnresolved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillBuilderTotalExpected(t *testing.T) {
	bill := NewBillBuilder().
		WithPeriod(3, 2025).
		WithBaseRent(decimal.NewFromInt(20000)).
		WithUtilities(nil, decimal.NewFromInt(2000)).
		WithHistoricalDebt(decimal.NewFromInt(5000)).
		WithCreditApplied(decimal.NewFromInt(1000)).
		Build()

	want := decimal.NewFromInt(26000)
	if !bill.TotalExpected.Equal(want) {
		t.Errorf("TotalExpected = %s, want %s", bill.TotalExpected, want)
	}
	if bill.Status != BillStatusPending {
		t.Errorf("new bill status = %s, want pending", bill.Status)
	}
	if !bill.AmountPaid.IsZero() {
		t.Errorf("new bill AmountPaid = %s, want 0", bill.AmountPaid)
	}
	if !bill.Consolidated {
		t.Error("new bill should be consolidated")
	}
}

func TestBillBuilderCreditExceedsCharges(t *testing.T) {
	// Credit larger than the whole bill floors TotalExpected at zero.
	bill := NewBillBuilder().
		WithBaseRent(decimal.NewFromInt(1000)).
		WithCreditApplied(decimal.NewFromInt(5000)).
		Build()

	if !bill.TotalExpected.IsZero() {
		t.Errorf("TotalExpected = %s, want 0", bill.TotalExpected)
	}
}

func TestRecordKinds(t *testing.T) {
	bill := &Bill{}
	txn := &Transaction{}

	if bill.Kind() != RecordKindBill {
		t.Errorf("bill Kind() = %s", bill.Kind())
	}
	if txn.Kind() != RecordKindTransaction {
		t.Errorf("transaction Kind() = %s", txn.Kind())
	}
}

func TestPeriodBefore(t *testing.T) {
	tests := []struct {
		name         string
		billM, billY int
		month, year  int
		want         bool
	}{
		{"earlier month same year", 2, 2025, 3, 2025, true},
		{"same period", 3, 2025, 3, 2025, false},
		{"later month same year", 4, 2025, 3, 2025, false},
		{"earlier year later month", 12, 2024, 1, 2025, true},
		{"later year earlier month", 1, 2026, 12, 2025, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := &Bill{ForMonth: tt.billM, ForYear: tt.billY}
			if got := bill.PeriodBefore(tt.month, tt.year); got != tt.want {
				t.Errorf("PeriodBefore(%d, %d) = %v, want %v", tt.month, tt.year, got, tt.want)
			}
		})
	}
}
