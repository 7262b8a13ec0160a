package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentease/rentledger/src/models"
)

func TestPlanFIFOSettlesOldestFirst(t *testing.T) {
	january := billWith(1, 2025, 10000, 0, 0, 4000) // 6000 due
	february := billWith(2, 2025, 10000, 0, 0, 0)   // 10000 due
	march := billWith(3, 2025, 10000, 0, 0, 0)      // 10000 due
	bills := []*models.Bill{january, february, march}

	plan := planFIFO(bills, decimal.NewFromInt(12000))
	require.Len(t, plan, 2)

	assert.Equal(t, january.ID, plan[0].BillID)
	assert.True(t, plan[0].Applied.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, models.BillStatusCompleted, plan[0].NewStatus)

	assert.Equal(t, february.ID, plan[1].BillID)
	assert.True(t, plan[1].Applied.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, models.BillStatusPartial, plan[1].NewStatus)
}

func TestPlanFIFORemainderOverpaysLastBill(t *testing.T) {
	january := billWith(1, 2025, 5000, 0, 0, 0)
	february := billWith(2, 2025, 5000, 0, 0, 0)
	bills := []*models.Bill{january, february}

	plan := planFIFO(bills, decimal.NewFromInt(12000))
	require.Len(t, plan, 2)

	assert.True(t, plan[0].Applied.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, models.BillStatusCompleted, plan[0].NewStatus)

	// February absorbs its 5000 plus the 2000 surplus.
	assert.True(t, plan[1].Applied.Equal(decimal.NewFromInt(7000)))
	assert.True(t, plan[1].NewPaid.Equal(decimal.NewFromInt(7000)))
	assert.Equal(t, models.BillStatusOverpaid, plan[1].NewStatus)
}

func TestPlanFIFONoOutstandingBills(t *testing.T) {
	plan := planFIFO(nil, decimal.NewFromInt(5000))
	assert.Empty(t, plan)
}

func TestPlanFIFOExactSettlement(t *testing.T) {
	january := billWith(1, 2025, 5000, 0, 0, 2000) // 3000 due
	february := billWith(2, 2025, 8000, 0, 0, 0)   // 8000 due
	bills := []*models.Bill{january, february}

	plan := planFIFO(bills, decimal.NewFromInt(11000))
	require.Len(t, plan, 2)
	assert.Equal(t, models.BillStatusCompleted, plan[0].NewStatus)
	assert.Equal(t, models.BillStatusCompleted, plan[1].NewStatus)
}

func TestFoldContributorsIncludesEarlierUnresolvedBills(t *testing.T) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	march := billWith(3, 2025, 20000, 0, 25000, 0)
	march.CreatedAt = created

	january := billWith(1, 2025, 20000, 0, 0, 0)
	january.CreatedAt = created.AddDate(0, -2, 0)
	february := billWith(2, 2025, 20000, 0, 0, 15000)
	february.CreatedAt = created.AddDate(0, -1, 0)

	contributors := foldContributors([]*models.Bill{january, february}, march)
	require.Len(t, contributors, 2)
	assert.Equal(t, january.ID, contributors[0].ID)
	assert.Equal(t, february.ID, contributors[1].ID)
}

// A bill backfilled for a past period after a consolidated bill already
// exists never fed that bill's debt fold. Settling the consolidated bill
// must leave the backfill's own balance standing.
func TestFoldContributorsExcludesBackfilledBills(t *testing.T) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	march := billWith(3, 2025, 20000, 0, 0, 0)
	march.CreatedAt = created

	february := billWith(2, 2025, 20000, 0, 0, 5000)
	february.CreatedAt = created.AddDate(0, -1, 0)

	january := billWith(1, 2025, 20000, 0, 0, 0)
	january.CreatedAt = created.AddDate(0, 0, 5) // backfilled after March

	contributors := foldContributors([]*models.Bill{february, january}, march)
	require.Len(t, contributors, 1)
	assert.Equal(t, february.ID, contributors[0].ID)
}

func TestFoldContributorsExcludesLaterAndResolvedBills(t *testing.T) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	march := billWith(3, 2025, 20000, 0, 0, 0)
	march.CreatedAt = created

	april := billWith(4, 2025, 20000, 0, 0, 0)
	april.CreatedAt = created.AddDate(0, -2, 0)

	settledJanuary := billWith(1, 2025, 20000, 0, 0, 20000)
	settledJanuary.CreatedAt = created.AddDate(0, -2, 0)

	contributors := foldContributors([]*models.Bill{april, settledJanuary}, march)
	assert.Empty(t, contributors)
}

// Conservation: the applied amounts always sum to exactly the payment,
// for arbitrary bill sets and amounts.
func TestPlanFIFOConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		var bills []*models.Bill
		month := 1
		year := 2024
		totalDue := decimal.Zero
		for j := 0; j < 1+rng.Intn(6); j++ {
			rent := rng.Int63n(30000) + 1
			paid := rng.Int63n(rent)
			bill := billWith(month, year, rent, 0, 0, paid)
			bills = append(bills, bill)
			totalDue = totalDue.Add(bill.TotalExpected.Sub(bill.AmountPaid))
			month++
			if month > 12 {
				month = 1
				year++
			}
		}

		amount := decimal.NewFromInt(rng.Int63n(120000) + 1)
		plan := planFIFO(bills, amount)

		applied := decimal.Zero
		for _, alloc := range plan {
			applied = applied.Add(alloc.Applied)
		}
		require.True(t, applied.Equal(amount),
			"case %d: applied %s != amount %s (due %s)", i, applied, amount, totalDue)

		// No allocation may leave a bill partial while a later one
		// received money.
		for k := 0; k < len(plan)-1; k++ {
			require.Equal(t, models.BillStatusCompleted, plan[k].NewStatus,
				"case %d: non-final allocation %d not completed", i, k)
		}
	}
}
