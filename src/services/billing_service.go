package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/models"
)

// BillingService creates monthly rent bills, folding unresolved historical
// debt and available tenant credit into the new bill at creation time.
type BillingService struct {
	db       *sql.DB
	logger   *zap.Logger
	notifier Notifier
}

// NewBillingService creates a new billing service
func NewBillingService(db *sql.DB, logger *zap.Logger, notifier Notifier) *BillingService {
	return &BillingService{
		db:       db,
		logger:   logger,
		notifier: notifier,
	}
}

// CreateBillRequest contains parameters for creating a monthly bill
type CreateBillRequest struct {
	TenantID      uuid.UUID
	ForMonth      int // 1-12
	ForYear       int
	UtilityUsages []models.UtilityUsage
	Notes         string
}

// propertyTerms is the slice of tenancy/property state bill creation needs
type propertyTerms struct {
	landlordID    uuid.UUID
	propertyID    uuid.UUID
	baseRent      decimal.Decimal
	utilityPrices map[string]decimal.Decimal
}

// CreateBill creates exactly one bill for (tenant, month, year).
//
// The whole operation runs in a single DB transaction that first locks the
// tenant's active tenancy row. That lock serializes bill creation against
// concurrent payments for the same tenant, so historical debt is only read
// from durably committed state. Uniqueness of the period is ultimately
// enforced by a partial unique index; a lost insert race surfaces as
// ErrDuplicateBill, never as a second bill.
func (s *BillingService) CreateBill(ctx context.Context, req CreateBillRequest) (*models.Bill, error) {
	if req.ForMonth < 1 || req.ForMonth > 12 {
		return nil, fmt.Errorf("invalid billing month %d", req.ForMonth)
	}
	if req.ForYear < 2000 {
		return nil, fmt.Errorf("invalid billing year %d", req.ForYear)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	terms, err := s.lockTenancy(ctx, tx, req.TenantID)
	if err != nil {
		return nil, err
	}

	// Fast-path duplicate check; the unique index remains the actual guard.
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ledger_records
			WHERE record_kind = 'bill'
			  AND tenant_id = $1 AND for_year = $2 AND for_month = $3
		)`, req.TenantID, req.ForYear, req.ForMonth).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateBill
	}

	charges, utilityTotal, err := priceUtilities(req.UtilityUsages, terms.utilityPrices)
	if err != nil {
		return nil, err
	}

	historicalDebt, err := s.foldableDebt(ctx, tx, req.TenantID, req.ForMonth, req.ForYear)
	if err != nil {
		return nil, err
	}

	credit, err := s.creditBalance(ctx, tx, req.TenantID)
	if err != nil {
		return nil, err
	}
	creditApplied := decimal.Min(credit, terms.baseRent.Add(utilityTotal).Add(historicalDebt))
	if creditApplied.IsNegative() {
		creditApplied = decimal.Zero
	}

	bill := models.NewBillBuilder().
		WithOwnership(req.TenantID, terms.landlordID, terms.propertyID).
		WithPeriod(req.ForMonth, req.ForYear).
		WithBaseRent(terms.baseRent).
		WithUtilities(charges, utilityTotal).
		WithHistoricalDebt(historicalDebt).
		WithCreditApplied(creditApplied).
		WithNotes(req.Notes).
		Build()

	if err := s.insertBill(ctx, tx, bill); err != nil {
		if isUniqueViolation(err, "uq_ledger_bill_period") {
			return nil, ErrDuplicateBill
		}
		return nil, fmt.Errorf("insert bill: %w", err)
	}

	if creditApplied.IsPositive() {
		if err := s.consumeCredit(ctx, tx, bill, creditApplied); err != nil {
			return nil, fmt.Errorf("consume tenant credit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("tenant_id", bill.TenantID.String()),
		zap.Int("for_month", bill.ForMonth),
		zap.Int("for_year", bill.ForYear),
		zap.String("total_expected", bill.TotalExpected.String()),
		zap.String("historical_debt", bill.HistoricalDebt.String()),
	)

	amount := bill.TotalExpected
	s.notifier.Publish(ctx, models.NotificationEvent{
		ID:         uuid.New(),
		Type:       models.NotificationBillCreated,
		TenantID:   bill.TenantID,
		LandlordID: bill.LandlordID,
		BillID:     &bill.ID,
		ForMonth:   bill.ForMonth,
		ForYear:    bill.ForYear,
		Amount:     &amount,
		Message: fmt.Sprintf("Rent bill for %d/%d issued: %s due",
			bill.ForMonth, bill.ForYear, bill.TotalExpected.StringFixed(2)),
		CreatedAt: time.Now(),
	})

	return bill, nil
}

// lockTenancy loads the tenant's active tenancy and the property's billing
// terms, taking a row lock on the tenancy. Every ledger mutation for a
// tenant funnels through this lock.
func (s *BillingService) lockTenancy(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID) (*propertyTerms, error) {
	var terms propertyTerms
	var pricesJSON []byte

	err := tx.QueryRowContext(ctx, `
		SELECT t.landlord_id, t.property_id, p.base_rent, p.utility_prices
		FROM tenancies t
		JOIN properties p ON p.id = t.property_id
		WHERE t.tenant_id = $1 AND t.active
		FOR UPDATE OF t`, tenantID).
		Scan(&terms.landlordID, &terms.propertyID, &terms.baseRent, &pricesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}

	terms.utilityPrices = map[string]decimal.Decimal{}
	if len(pricesJSON) > 0 {
		if err := json.Unmarshal(pricesJSON, &terms.utilityPrices); err != nil {
			return nil, fmt.Errorf("decode utility prices for property %s: %w", terms.propertyID, err)
		}
	}
	return &terms, nil
}

// foldableDebt sums the positive own-balances of all earlier unresolved
// bills. Rows are locked so an in-flight payment cannot settle one of them
// between this read and the insert.
func (s *BillingService) foldableDebt(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, month, year int) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE record_kind = 'bill'
		  AND tenant_id = $1
		  AND status IN ('pending', 'partial')
		  AND (for_year, for_month) < ($2, $3)
		ORDER BY for_year, for_month
		FOR UPDATE`, tenantID, year, month)
	if err != nil {
		return decimal.Zero, err
	}

	bills, err := collectBills(rows)
	if err != nil {
		return decimal.Zero, err
	}

	debt := decimal.Zero
	for _, bill := range bills {
		balance := BalanceForBill(bill, false)
		if balance.IsPositive() {
			debt = debt.Add(balance)
		}
	}
	return debt, nil
}

// creditBalance returns the tenant's available credit. The tenancy lock
// taken earlier serializes readers, so sum-then-insert is safe here.
func (s *BillingService) creditBalance(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM tenant_credits
		WHERE tenant_id = $1`, tenantID).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *BillingService) insertBill(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	chargesJSON, err := json.Marshal(bill.UtilityCharges)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_records (
			id, record_kind, tenant_id, landlord_id, property_id,
			for_month, for_year, base_rent, utility_charges,
			total_utility_cost, historical_debt, consolidated,
			credit_applied, total_expected, amount_paid, status, notes,
			created_at, updated_at
		) VALUES ($1, 'bill', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		          $12, $13, $14, $15, $16, $17, $18)`,
		bill.ID, bill.TenantID, bill.LandlordID, bill.PropertyID,
		bill.ForMonth, bill.ForYear, bill.BaseRent, chargesJSON,
		bill.TotalUtilityCost, bill.HistoricalDebt, bill.Consolidated,
		bill.CreditApplied, bill.TotalExpected, bill.AmountPaid,
		bill.Status, bill.Notes, bill.CreatedAt, bill.UpdatedAt,
	)
	return err
}

// consumeCredit appends the negative credit entry matching the amount the
// new bill absorbed.
func (s *BillingService) consumeCredit(ctx context.Context, tx *sql.Tx, bill *models.Bill, applied decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tenant_credits (id, tenant_id, amount, entry_type, source_bill_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), bill.TenantID, applied.Neg(), models.CreditAppliedToBill, bill.ID,
		fmt.Sprintf("Applied to bill %d/%d", bill.ForMonth, bill.ForYear), time.Now(),
	)
	return err
}

// ListActiveTenantIDs returns every tenant with an active tenancy,
// for the scheduled monthly billing run.
func (s *BillingService) ListActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id FROM tenancies WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// priceUtilities prices each metered usage against the property's per-unit
// price list.
func priceUtilities(usages []models.UtilityUsage, prices map[string]decimal.Decimal) ([]models.UtilityCharge, decimal.Decimal, error) {
	charges := make([]models.UtilityCharge, 0, len(usages))
	total := decimal.Zero

	for _, usage := range usages {
		price, ok := prices[usage.UtilityType]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("no unit price configured for utility %q", usage.UtilityType)
		}
		if usage.UnitsUsed.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("negative units for utility %q", usage.UtilityType)
		}
		lineTotal := usage.UnitsUsed.Mul(price).Round(2)
		charges = append(charges, models.UtilityCharge{
			UtilityType:  usage.UtilityType,
			UnitsUsed:    usage.UnitsUsed,
			PricePerUnit: price,
			Total:        lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return charges, total, nil
}
