package services

import (
	"testing"
	"time"
)

func nairobi(year int, month time.Month, day, hour int) time.Time {
	loc, _ := time.LoadLocation("Africa/Nairobi")
	return time.Date(year, month, day, hour, 0, 0, 0, loc)
}

func TestEvaluateRentStatus(t *testing.T) {
	svc := NewRentCycleService()

	tests := []struct {
		name       string
		paymentDay int
		graceDays  int
		now        time.Time
		want       RentStatus
	}{
		{"well before due date", 5, 3, nairobi(2025, time.March, 1, 10), RentStatusActive},
		{"day before due date", 5, 3, nairobi(2025, time.March, 4, 23), RentStatusActive},
		{"on due date", 5, 3, nairobi(2025, time.March, 5, 0), RentStatusGracePeriod},
		{"inside grace period", 5, 3, nairobi(2025, time.March, 7, 12), RentStatusGracePeriod},
		{"last grace day", 5, 3, nairobi(2025, time.March, 8, 23), RentStatusGracePeriod},
		{"past grace period", 5, 3, nairobi(2025, time.March, 9, 0), RentStatusOverdue},
		{"zero grace on due date", 5, 0, nairobi(2025, time.March, 5, 8), RentStatusGracePeriod},
		{"zero grace day after", 5, 0, nairobi(2025, time.March, 6, 8), RentStatusOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := svc.Evaluate(tt.paymentDay, tt.graceDays, tt.now)
			if state.RentStatus != tt.want {
				t.Errorf("RentStatus = %s, want %s", state.RentStatus, tt.want)
			}
		})
	}
}

func TestEvaluateClampsShortMonths(t *testing.T) {
	svc := NewRentCycleService()

	tests := []struct {
		name    string
		now     time.Time
		wantDue time.Time
	}{
		{"february non-leap clamps 31 to 28", nairobi(2025, time.February, 10, 9), nairobi(2025, time.February, 28, 0)},
		{"february leap clamps 31 to 29", nairobi(2024, time.February, 10, 9), nairobi(2024, time.February, 29, 0)},
		{"april clamps 31 to 30", nairobi(2025, time.April, 10, 9), nairobi(2025, time.April, 30, 0)},
		{"january keeps 31", nairobi(2025, time.January, 10, 9), nairobi(2025, time.January, 31, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := svc.Evaluate(31, 5, tt.now)
			if !state.DueDate.Equal(tt.wantDue) {
				t.Errorf("DueDate = %s, want %s", state.DueDate, tt.wantDue)
			}
		})
	}
}

func TestEvaluateDaysRemaining(t *testing.T) {
	svc := NewRentCycleService()

	state := svc.Evaluate(10, 0, nairobi(2025, time.March, 3, 15))
	if state.DaysRemaining != 7 {
		t.Errorf("DaysRemaining = %d, want 7", state.DaysRemaining)
	}

	state = svc.Evaluate(10, 5, nairobi(2025, time.March, 13, 15))
	if state.DaysRemaining != -3 {
		t.Errorf("DaysRemaining past due = %d, want -3", state.DaysRemaining)
	}
}

func TestEvaluateNextDueDateRollsOver(t *testing.T) {
	svc := NewRentCycleService()

	// Past December's due date the next cycle lands in January.
	state := svc.Evaluate(15, 3, nairobi(2025, time.December, 20, 10))
	want := nairobi(2026, time.January, 15, 0)
	if !state.NextDueDate.Equal(want) {
		t.Errorf("NextDueDate = %s, want %s", state.NextDueDate, want)
	}

	// Before the due date the next due date is this month's.
	state = svc.Evaluate(15, 3, nairobi(2025, time.June, 1, 10))
	want = nairobi(2025, time.June, 15, 0)
	if !state.NextDueDate.Equal(want) {
		t.Errorf("NextDueDate = %s, want %s", state.NextDueDate, want)
	}
}

func TestCurrentPeriodUsesAnchorTimezone(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantMonth int
		wantYear  int
	}{
		{"mid-month", time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC), 6, 2025},
		// 21:30 UTC on Feb 28 is already March 1 in Nairobi (UTC+3).
		{"month boundary", time.Date(2025, time.February, 28, 21, 30, 0, 0, time.UTC), 3, 2025},
		{"year boundary", time.Date(2025, time.December, 31, 22, 0, 0, 0, time.UTC), 1, 2026},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, year := CurrentPeriod(tt.now)
			if month != tt.wantMonth || year != tt.wantYear {
				t.Errorf("CurrentPeriod = (%d, %d), want (%d, %d)", month, year, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

func TestEvaluateNormalizesForeignTimezone(t *testing.T) {
	svc := NewRentCycleService()

	// 23:30 UTC on March 4 is already March 5 in Nairobi (UTC+3), which
	// is the due date.
	utcNow := time.Date(2025, time.March, 4, 23, 30, 0, 0, time.UTC)
	state := svc.Evaluate(5, 3, utcNow)
	if state.RentStatus != RentStatusGracePeriod {
		t.Errorf("RentStatus = %s, want grace_period (day boundary in anchor zone)", state.RentStatus)
	}
}
