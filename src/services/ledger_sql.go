package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rentease/rentledger/src/models"
)

// Bills and transactions share one ledger collection discriminated by
// record_kind. The helpers below keep the column list and row scanning in
// one place for every service that reads it.

const billColumns = `
	id, tenant_id, landlord_id, property_id, for_month, for_year,
	base_rent, utility_charges, total_utility_cost,
	historical_debt, consolidated, credit_applied,
	total_expected, amount_paid, status, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBill scans one bill row in billColumns order
func scanBill(row rowScanner) (*models.Bill, error) {
	var bill models.Bill
	var chargesJSON []byte

	err := row.Scan(
		&bill.ID,
		&bill.TenantID,
		&bill.LandlordID,
		&bill.PropertyID,
		&bill.ForMonth,
		&bill.ForYear,
		&bill.BaseRent,
		&chargesJSON,
		&bill.TotalUtilityCost,
		&bill.HistoricalDebt,
		&bill.Consolidated,
		&bill.CreditApplied,
		&bill.TotalExpected,
		&bill.AmountPaid,
		&bill.Status,
		&bill.Notes,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bill.RecordType = models.RecordKindBill
	if len(chargesJSON) > 0 {
		if err := json.Unmarshal(chargesJSON, &bill.UtilityCharges); err != nil {
			return nil, fmt.Errorf("decode utility charges for bill %s: %w", bill.ID, err)
		}
	}
	return &bill, nil
}

// collectBills drains a multi-row bill query
func collectBills(rows *sql.Rows) ([]*models.Bill, error) {
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

const transactionColumns = `
	id, receipt_number, tenant_id, landlord_id, property_id, bill_id,
	for_month, for_year, amount, method, status, external_ref,
	failure_reason, created_at`

// scanTransaction scans one transaction row in transactionColumns order
func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction

	err := row.Scan(
		&txn.ID,
		&txn.ReceiptNumber,
		&txn.TenantID,
		&txn.LandlordID,
		&txn.PropertyID,
		&txn.BillID,
		&txn.ForMonth,
		&txn.ForYear,
		&txn.Amount,
		&txn.Method,
		&txn.Status,
		&txn.ExternalRef,
		&txn.FailureReason,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.RecordType = models.RecordKindTransaction
	return &txn, nil
}

// isUniqueViolation reports whether err is a Postgres unique-index
// violation on the named constraint. An empty constraint matches any.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
