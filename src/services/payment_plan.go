package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentease/rentledger/src/models"
)

// BillAllocation is one bill's share of an incoming payment
type BillAllocation struct {
	BillID    uuid.UUID
	Applied   decimal.Decimal // Portion of the payment applied to this bill
	NewPaid   decimal.Decimal // Cumulative paid after application
	NewStatus models.BillStatus
}

// planFIFO splits a payment across outstanding bills oldest-first,
// bringing each to completed before touching the next. Any remainder
// beyond full settlement lands on the last bill touched as overpayment.
// The bills slice must be ordered oldest-first and is not mutated.
//
// Conservation holds by construction: the Applied amounts sum to exactly
// the incoming amount.
func planFIFO(bills []*models.Bill, amount decimal.Decimal) []BillAllocation {
	remaining := amount
	var plan []BillAllocation

	for _, bill := range bills {
		if !remaining.IsPositive() {
			break
		}
		due := bill.TotalExpected.Sub(bill.AmountPaid)
		if !due.IsPositive() {
			continue
		}

		applied := decimal.Min(remaining, due)
		newPaid := bill.AmountPaid.Add(applied)
		plan = append(plan, BillAllocation{
			BillID:    bill.ID,
			Applied:   applied,
			NewPaid:   newPaid,
			NewStatus: models.StatusFor(newPaid, bill.TotalExpected),
		})
		remaining = remaining.Sub(applied)
	}

	if remaining.IsPositive() && len(plan) > 0 {
		// All bills settled; the surplus overpays the last one touched.
		last := &plan[len(plan)-1]
		last.Applied = last.Applied.Add(remaining)
		last.NewPaid = last.NewPaid.Add(remaining)
		bill := billByID(bills, last.BillID)
		last.NewStatus = models.StatusFor(last.NewPaid, bill.TotalExpected)
	}

	return plan
}

// foldContributors selects, from the candidate bills, exactly those whose
// balances the consolidated target absorbed at creation: earlier-period
// unresolved bills that already existed when the target was created. A
// bill backfilled for a past period after the target never fed the
// target's historical debt, so it keeps its own balance.
func foldContributors(candidates []*models.Bill, target *models.Bill) []*models.Bill {
	var contributors []*models.Bill
	for _, bill := range candidates {
		if !bill.PeriodBefore(target.ForMonth, target.ForYear) {
			continue
		}
		if !bill.CreatedAt.Before(target.CreatedAt) {
			continue
		}
		if !bill.Status.IsUnresolved() {
			continue
		}
		contributors = append(contributors, bill)
	}
	return contributors
}

func billByID(bills []*models.Bill, id uuid.UUID) *models.Bill {
	for _, bill := range bills {
		if bill.ID == id {
			return bill
		}
	}
	return nil
}
