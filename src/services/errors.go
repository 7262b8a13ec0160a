package services

import "errors"

// Typed failures returned by the ledger. Callers match with errors.Is and
// map them to user-facing responses; anything else is an internal fault.
var (
	// ErrDuplicateBill is returned when a bill already exists for the
	// (tenant, month, year) period. Enforced by a storage-level unique
	// index, so concurrent creators lose cleanly.
	ErrDuplicateBill = errors.New("bill already exists for this period")

	// ErrBillNotFound is returned when the target bill does not exist.
	ErrBillNotFound = errors.New("bill not found")

	// ErrTenantMismatch is returned when the target bill does not belong
	// to the claimed tenant. Checked before any mutation.
	ErrTenantMismatch = errors.New("bill does not belong to tenant")

	// ErrInvalidAmount is returned for non-positive payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrPropertyNotFound is returned when the tenant has no active
	// property assignment, so no base rent is known.
	ErrPropertyNotFound = errors.New("no active property assignment for tenant")

	// ErrConcurrencyConflict is returned when an optimistic update lost a
	// race; the caller should retry.
	ErrConcurrencyConflict = errors.New("concurrent update conflict, retry")
)
