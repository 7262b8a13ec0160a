package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/models"
)

// PaymentService applies incoming payments to outstanding bills and
// appends immutable transaction receipts. It is the only writer of bill
// payment state.
type PaymentService struct {
	db       *sql.DB
	logger   *zap.Logger
	notifier Notifier
	receipts *snowflake.Node
}

// NewPaymentService creates a new payment service. The snowflake node
// seeds receipt-number generation; give each process a distinct node ID.
func NewPaymentService(db *sql.DB, logger *zap.Logger, notifier Notifier, receipts *snowflake.Node) *PaymentService {
	return &PaymentService{
		db:       db,
		logger:   logger,
		notifier: notifier,
		receipts: receipts,
	}
}

// ApplyPaymentRequest contains parameters for applying a payment
type ApplyPaymentRequest struct {
	TenantID uuid.UUID

	// Explicit target bill. When nil the tenant's most recent bill is
	// resolved inside the same transaction as the mutation.
	TargetBillID *uuid.UUID

	Amount decimal.Decimal
	Method models.PaymentMethod

	// Gateway reference for idempotent replay; nil for manual entries
	ExternalRef *string
}

// ApplyPaymentResult describes the outcome of a payment application
type ApplyPaymentResult struct {
	Bill        *models.Bill
	Transaction *models.Transaction

	// Historical bills flipped to completed because the consolidated
	// target settled
	SettledBillIDs []uuid.UUID

	// FIFO path only: how the amount was split across bills
	Allocations []BillAllocation

	// True when the tenant has no unresolved bill left
	TenantCleared bool

	// True when the external ref had already been applied; the original
	// receipt is returned and nothing was mutated
	Replayed bool
}

// ApplyPayment applies amountReceived against the tenant's outstanding
// obligations.
//
// A consolidated target bill absorbs the whole amount; when it reaches
// completed or overpaid, the historical bills folded into it are marked
// completed (debt resolves upward). A legacy non-consolidated target
// instead triggers an oldest-first walk over all outstanding bills.
//
// The bill increment uses an atomic amount_paid = amount_paid + x update
// under a row lock, so concurrent payments against the same bill conserve
// money. Replayed gateway refs are detected via a unique index and no-op.
func (s *PaymentService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize with bill creation for the same tenant.
	if err := s.lockTenant(ctx, tx, req.TenantID); err != nil {
		return nil, err
	}

	if req.ExternalRef != nil {
		replay, err := s.findReplay(ctx, tx, *req.ExternalRef)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return s.replayResult(ctx, tx, replay)
		}
	}

	target, err := s.lockTargetBill(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	result := &ApplyPaymentResult{}

	if target.Consolidated {
		if err := s.applyConsolidated(ctx, tx, target, req.Amount, result); err != nil {
			return nil, err
		}
	} else {
		if err := s.applyFIFO(ctx, tx, req.TenantID, target, req.Amount, result); err != nil {
			return nil, err
		}
	}

	receiptBill := result.Bill
	txn := &models.Transaction{
		ID:            uuid.New(),
		RecordType:    models.RecordKindTransaction,
		ReceiptNumber: s.nextReceiptNumber(),
		TenantID:      receiptBill.TenantID,
		LandlordID:    receiptBill.LandlordID,
		PropertyID:    receiptBill.PropertyID,
		BillID:        receiptBill.ID,
		ForMonth:      receiptBill.ForMonth,
		ForYear:       receiptBill.ForYear,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.TransactionStatusSuccess,
		ExternalRef:   req.ExternalRef,
		CreatedAt:     time.Now(),
	}

	if err := s.insertTransaction(ctx, tx, txn); err != nil {
		if isUniqueViolation(err, "uq_ledger_external_ref") {
			// Lost a replay race: another handler committed this ref
			// while we worked. Our mutation rolls back with the tx.
			return s.replayAfterConflict(ctx, *req.ExternalRef)
		}
		// The bill mutation and the audit trail would diverge if this
		// committed partially. The tx rolls back as a unit, but the
		// failure still needs eyes on it.
		s.logger.Error("transaction write failed after bill mutation, rolling back for manual reconciliation",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("bill_id", receiptBill.ID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("append transaction record: %w", err)
	}
	result.Transaction = txn

	cleared, err := s.tenantCleared(ctx, tx, req.TenantID)
	if err != nil {
		return nil, err
	}
	result.TenantCleared = cleared

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("payment applied",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("bill_id", result.Bill.ID.String()),
		zap.String("receipt", txn.ReceiptNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(result.Bill.Status)),
		zap.Int("settled_historical", len(result.SettledBillIDs)),
	)

	s.publishPaymentEvents(ctx, result, req.Amount)
	return result, nil
}

// applyConsolidated applies the full amount to the target bill with an
// atomic increment, then resolves the fold if the bill settled.
func (s *PaymentService) applyConsolidated(ctx context.Context, tx *sql.Tx, target *models.Bill, amount decimal.Decimal, result *ApplyPaymentResult) error {
	oldPaid := target.AmountPaid

	var newPaid, expected decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		UPDATE ledger_records
		SET amount_paid = amount_paid + $1, updated_at = $2
		WHERE id = $3 AND record_kind = 'bill'
		RETURNING amount_paid, total_expected`,
		amount, time.Now(), target.ID).Scan(&newPaid, &expected)
	if err == sql.ErrNoRows {
		return ErrBillNotFound
	}
	if err != nil {
		return err
	}

	newStatus := models.StatusFor(newPaid, expected)
	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_records SET status = $1 WHERE id = $2`,
		newStatus, target.ID); err != nil {
		return err
	}

	target.AmountPaid = newPaid
	target.Status = newStatus
	result.Bill = target

	if newStatus == models.BillStatusCompleted || newStatus == models.BillStatusOverpaid {
		settled, err := s.settleFoldedBills(ctx, tx, target)
		if err != nil {
			return err
		}
		result.SettledBillIDs = settled
	}

	if newStatus == models.BillStatusOverpaid {
		surplus := newPaid.Sub(decimal.Max(oldPaid, expected))
		if surplus.IsPositive() {
			if err := s.grantCredit(ctx, tx, target, surplus); err != nil {
				return err
			}
		}
	}
	return nil
}

// settleFoldedBills marks the bills that contributed to the target's fold
// as completed. The money flowed through the consolidated bill; each
// contributor's paid amount is pinned to its own expected figure so
// per-bill arithmetic stays self-consistent, never decreasing an already
// higher paid amount. An earlier-period bill created after the target
// (a backfill) was never folded and is left untouched.
func (s *PaymentService) settleFoldedBills(ctx context.Context, tx *sql.Tx, target *models.Bill) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE record_kind = 'bill'
		  AND tenant_id = $1
		  AND status IN ('pending', 'partial')
		  AND (for_year, for_month) < ($2, $3)
		FOR UPDATE`,
		target.TenantID, target.ForYear, target.ForMonth)
	if err != nil {
		return nil, err
	}
	candidates, err := collectBills(rows)
	if err != nil {
		return nil, err
	}

	contributors := foldContributors(candidates, target)
	if len(contributors) == 0 {
		return nil, nil
	}

	settled := make([]uuid.UUID, 0, len(contributors))
	ids := make([]string, 0, len(contributors))
	for _, bill := range contributors {
		settled = append(settled, bill.ID)
		ids = append(ids, bill.ID.String())
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_records
		SET amount_paid = GREATEST(amount_paid, base_rent + total_utility_cost),
		    status = 'completed',
		    updated_at = $1
		WHERE id = ANY($2::uuid[])`,
		time.Now(), pq.Array(ids)); err != nil {
		return nil, err
	}
	return settled, nil
}

// applyFIFO handles targets that predate consolidation: the payment walks
// all outstanding bills oldest-first, settling each in turn.
func (s *PaymentService) applyFIFO(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, target *models.Bill, amount decimal.Decimal, result *ApplyPaymentResult) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE record_kind = 'bill'
		  AND tenant_id = $1
		  AND status IN ('pending', 'partial')
		ORDER BY for_year, for_month
		FOR UPDATE`, tenantID)
	if err != nil {
		return err
	}
	outstanding, err := collectBills(rows)
	if err != nil {
		return err
	}

	plan := planFIFO(outstanding, amount)
	if len(plan) == 0 {
		// Nothing outstanding: the whole amount overpays the target.
		return s.applyConsolidated(ctx, tx, target, amount, result)
	}

	for _, alloc := range plan {
		if _, err := tx.ExecContext(ctx, `
			UPDATE ledger_records
			SET amount_paid = amount_paid + $1, status = $2, updated_at = $3
			WHERE id = $4 AND record_kind = 'bill'`,
			alloc.Applied, alloc.NewStatus, time.Now(), alloc.BillID); err != nil {
			return err
		}
	}

	last := plan[len(plan)-1]
	receiptBill := billByID(outstanding, last.BillID)
	receiptBill.AmountPaid = last.NewPaid
	receiptBill.Status = last.NewStatus

	if last.NewStatus == models.BillStatusOverpaid {
		surplus := last.NewPaid.Sub(receiptBill.TotalExpected)
		if surplus.IsPositive() {
			if err := s.grantCredit(ctx, tx, receiptBill, surplus); err != nil {
				return err
			}
		}
	}

	result.Bill = receiptBill
	result.Allocations = plan
	return nil
}

// RecordGatewayFailure records a failed payment attempt reported by the
// gateway. The failed transaction is the only write; no bill's paid
// amount or status is touched.
func (s *PaymentService) RecordGatewayFailure(ctx context.Context, req ApplyPaymentRequest, reason string) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if req.ExternalRef != nil {
		replay, err := s.findReplay(ctx, tx, *req.ExternalRef)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	}

	target, err := s.lockTargetBill(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		ID:            uuid.New(),
		RecordType:    models.RecordKindTransaction,
		ReceiptNumber: s.nextReceiptNumber(),
		TenantID:      target.TenantID,
		LandlordID:    target.LandlordID,
		PropertyID:    target.PropertyID,
		BillID:        target.ID,
		ForMonth:      target.ForMonth,
		ForYear:       target.ForYear,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.TransactionStatusFailed,
		ExternalRef:   req.ExternalRef,
		FailureReason: &reason,
		CreatedAt:     time.Now(),
	}

	if err := s.insertTransaction(ctx, tx, txn); err != nil {
		if isUniqueViolation(err, "uq_ledger_external_ref") {
			return s.findCommittedReplay(ctx, *req.ExternalRef)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Warn("gateway payment failure recorded",
		zap.String("tenant_id", target.TenantID.String()),
		zap.String("bill_id", target.ID.String()),
		zap.String("reason", reason),
	)

	amount := req.Amount
	s.notifier.Publish(ctx, models.NotificationEvent{
		ID:         uuid.New(),
		Type:       models.NotificationPaymentFailed,
		TenantID:   target.TenantID,
		LandlordID: target.LandlordID,
		BillID:     &target.ID,
		Amount:     &amount,
		Message:    fmt.Sprintf("Payment of %s failed: %s", req.Amount.StringFixed(2), reason),
		CreatedAt:  time.Now(),
	})
	return txn, nil
}

// lockTenant takes the per-tenant serialization lock shared with bill
// creation. Lock order (tenancy, then bills) is identical in both
// services so the two cannot deadlock.
func (s *PaymentService) lockTenant(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM tenancies
		WHERE tenant_id = $1 AND active
		FOR UPDATE`, tenantID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrPropertyNotFound
	}
	return err
}

// lockTargetBill resolves and row-locks the bill the payment targets:
// the explicit bill when given, otherwise the tenant's most recent bill.
// Ownership is verified before anything is mutated.
func (s *PaymentService) lockTargetBill(ctx context.Context, tx *sql.Tx, req ApplyPaymentRequest) (*models.Bill, error) {
	var row *sql.Row
	if req.TargetBillID != nil {
		row = tx.QueryRowContext(ctx, `
			SELECT `+billColumns+`
			FROM ledger_records
			WHERE id = $1 AND record_kind = 'bill'
			FOR UPDATE`, *req.TargetBillID)
	} else {
		row = tx.QueryRowContext(ctx, `
			SELECT `+billColumns+`
			FROM ledger_records
			WHERE tenant_id = $1 AND record_kind = 'bill'
			ORDER BY for_year DESC, for_month DESC
			LIMIT 1
			FOR UPDATE`, req.TenantID)
	}

	bill, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}
	if bill.TenantID != req.TenantID {
		return nil, ErrTenantMismatch
	}
	return bill, nil
}

func (s *PaymentService) insertTransaction(ctx context.Context, tx *sql.Tx, txn *models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_records (
			id, record_kind, receipt_number, tenant_id, landlord_id,
			property_id, bill_id, for_month, for_year, amount, method,
			status, external_ref, failure_reason, created_at, updated_at
		) VALUES ($1, 'transaction', $2, $3, $4, $5, $6, $7, $8, $9, $10,
		          $11, $12, $13, $14, $14)`,
		txn.ID, txn.ReceiptNumber, txn.TenantID, txn.LandlordID,
		txn.PropertyID, txn.BillID, txn.ForMonth, txn.ForYear, txn.Amount,
		txn.Method, txn.Status, txn.ExternalRef, txn.FailureReason,
		txn.CreatedAt,
	)
	return err
}

// findReplay looks up a committed transaction for the gateway ref.
func (s *PaymentService) findReplay(ctx context.Context, tx *sql.Tx, externalRef string) (*models.Transaction, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_records
		WHERE record_kind = 'transaction' AND external_ref = $1`, externalRef)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// replayResult builds the no-op result for a replayed gateway event.
func (s *PaymentService) replayResult(ctx context.Context, tx *sql.Tx, txn *models.Transaction) (*ApplyPaymentResult, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE id = $1 AND record_kind = 'bill'`, txn.BillID)
	bill, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ApplyPaymentResult{
		Bill:        bill,
		Transaction: txn,
		Replayed:    true,
	}, nil
}

// replayAfterConflict handles losing an insert race on the external ref:
// the winning handler's receipt is read back outside the aborted tx.
func (s *PaymentService) replayAfterConflict(ctx context.Context, externalRef string) (*ApplyPaymentResult, error) {
	txn, err := s.findCommittedReplay(ctx, externalRef)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+billColumns+`
		FROM ledger_records
		WHERE id = $1 AND record_kind = 'bill'`, txn.BillID)
	bill, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ApplyPaymentResult{
		Bill:        bill,
		Transaction: txn,
		Replayed:    true,
	}, nil
}

func (s *PaymentService) findCommittedReplay(ctx context.Context, externalRef string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_records
		WHERE record_kind = 'transaction' AND external_ref = $1`, externalRef)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// grantCredit records overpayment surplus as first-class tenant credit,
// consumed automatically by the next bill creation.
func (s *PaymentService) grantCredit(ctx context.Context, tx *sql.Tx, bill *models.Bill, surplus decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tenant_credits (id, tenant_id, amount, entry_type, source_bill_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), bill.TenantID, surplus, models.CreditEarnedOverpayment, bill.ID,
		fmt.Sprintf("Overpayment on bill %d/%d", bill.ForMonth, bill.ForYear), time.Now(),
	)
	return err
}

func (s *PaymentService) tenantCleared(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID) (bool, error) {
	var hasDebt bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ledger_records
			WHERE record_kind = 'bill'
			  AND tenant_id = $1
			  AND status IN ('pending', 'partial')
		)`, tenantID).Scan(&hasDebt)
	return !hasDebt, err
}

func (s *PaymentService) nextReceiptNumber() string {
	return fmt.Sprintf("RCP-%s", s.receipts.Generate().Base36())
}

func (s *PaymentService) publishPaymentEvents(ctx context.Context, result *ApplyPaymentResult, amount decimal.Decimal) {
	bill := result.Bill
	balance := BalanceForBill(bill, true)
	now := time.Now()

	s.notifier.Publish(ctx, models.NotificationEvent{
		ID:         uuid.New(),
		Type:       models.NotificationPaymentReceived,
		TenantID:   bill.TenantID,
		LandlordID: bill.LandlordID,
		BillID:     &bill.ID,
		ReceiptID:  &result.Transaction.ID,
		ForMonth:   bill.ForMonth,
		ForYear:    bill.ForYear,
		Amount:     &amount,
		Balance:    &balance,
		Message:    fmt.Sprintf("Payment of %s received", amount.StringFixed(2)),
		CreatedAt:  now,
	})

	s.notifier.Publish(ctx, models.NotificationEvent{
		ID:           uuid.New(),
		Type:         models.NotificationPaymentConfirmation,
		TenantID:     bill.TenantID,
		LandlordID:   bill.LandlordID,
		BillID:       &bill.ID,
		ReceiptID:    &result.Transaction.ID,
		ForMonth:     bill.ForMonth,
		ForYear:      bill.ForYear,
		Amount:       &amount,
		Balance:      &balance,
		FullyCleared: result.TenantCleared,
		Message:      fmt.Sprintf("Payment of %s confirmed, receipt %s", amount.StringFixed(2), result.Transaction.ReceiptNumber),
		CreatedAt:    now,
	})
}
