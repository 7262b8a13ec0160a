package services

import (
	"time"
)

// RentStatus represents where a tenant sits in the current billing cycle
type RentStatus string

const (
	RentStatusActive      RentStatus = "active"       // Before the due date
	RentStatusGracePeriod RentStatus = "grace_period" // Past due but within grace
	RentStatusOverdue     RentStatus = "overdue"      // Past due and past grace
)

// CycleState is the evaluated rent-cycle position for a tenant
type CycleState struct {
	RentStatus    RentStatus `json:"rent_status"`
	DueDate       time.Time  `json:"due_date"`
	NextDueDate   time.Time  `json:"next_due_date"`
	DaysRemaining int        `json:"days_remaining"` // Until due date; negative when past it
}

// The platform anchors all calendar arithmetic to a single regional
// timezone so that day-boundary comparisons do not drift with the
// server's locale.
var anchorTZ = mustLoadLocation("Africa/Nairobi")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("rentledger: cannot load anchor timezone " + name + ": " + err.Error())
	}
	return loc
}

// CurrentPeriod returns the billing period the instant falls in,
// normalized to the anchor timezone. Near a month boundary the server's
// local month can differ from the billing month.
func CurrentPeriod(now time.Time) (month, year int) {
	local := now.In(anchorTZ)
	return int(local.Month()), local.Year()
}

// RentCycleService evaluates a property's payment-day and grace-period
// policy against the calendar. It is stateless; "now" is always passed in
// so evaluations stay deterministic under test.
type RentCycleService struct{}

// NewRentCycleService creates a new rent cycle service
func NewRentCycleService() *RentCycleService {
	return &RentCycleService{}
}

// Evaluate computes the cycle state for the month containing now.
// paymentDay is clamped to the last day of short months; gracePeriodDays
// extends the due date before a tenant turns overdue.
func (s *RentCycleService) Evaluate(paymentDay, gracePeriodDays int, now time.Time) CycleState {
	now = now.In(anchorTZ)
	today := midnight(now)

	dueDate := dueDateIn(now.Year(), now.Month(), paymentDay)
	graceEnd := dueDate.AddDate(0, 0, gracePeriodDays)

	var status RentStatus
	switch {
	case today.Before(dueDate):
		status = RentStatusActive
	case !today.After(graceEnd):
		status = RentStatusGracePeriod
	default:
		status = RentStatusOverdue
	}

	next := dueDate
	if !today.Before(dueDate) {
		year, month := now.Year(), now.Month()+1
		next = dueDateIn(year, month, paymentDay)
	}

	return CycleState{
		RentStatus:    status,
		DueDate:       dueDate,
		NextDueDate:   next,
		DaysRemaining: daysBetween(today, dueDate),
	}
}

// dueDateIn returns midnight of the clamped payment day in the anchor
// timezone. time.Date normalizes month overflow, so December+1 rolls the
// year correctly.
func dueDateIn(year int, month time.Month, paymentDay int) time.Time {
	day := paymentDay
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, anchorTZ)
}

// lastDayOfMonth returns the number of days in the given month
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, anchorTZ).Day()
}

// midnight truncates to the start of the calendar day in the anchor zone
func midnight(t time.Time) time.Time {
	t = t.In(anchorTZ)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, anchorTZ)
}

// daysBetween counts whole calendar days from a to b (negative when b is
// earlier). Both are normalized to midnight so DST shifts cannot skew the
// count by an hour.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	if hours < 0 {
		return -int((-hours + 12) / 24)
	}
	return int((hours + 12) / 24)
}
