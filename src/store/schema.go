package store

// Schema for the rent ledger. Bills and transactions share one collection
// (ledger_records) discriminated by record_kind; the partial unique
// indexes are the storage-level enforcement of the period-uniqueness and
// replay-idempotency invariants.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id                UUID PRIMARY KEY,
		landlord_id       UUID NOT NULL,
		name              TEXT NOT NULL,
		house_type        TEXT NOT NULL DEFAULT '',
		base_rent         NUMERIC(14,2) NOT NULL,
		utility_prices    JSONB NOT NULL DEFAULT '{}',
		payment_day       INT NOT NULL DEFAULT 1 CHECK (payment_day BETWEEN 1 AND 31),
		grace_period_days INT NOT NULL DEFAULT 0 CHECK (grace_period_days BETWEEN 0 AND 30),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS tenancies (
		id          UUID PRIMARY KEY,
		tenant_id   UUID NOT NULL,
		landlord_id UUID NOT NULL,
		property_id UUID NOT NULL REFERENCES properties(id),
		active      BOOLEAN NOT NULL DEFAULT true,
		start_date  TIMESTAMPTZ NOT NULL DEFAULT now(),
		end_date    TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// One active tenancy per tenant; its row is the per-tenant
	// serialization point for ledger writes.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_tenancy_active
		ON tenancies (tenant_id) WHERE active`,

	`CREATE TABLE IF NOT EXISTS ledger_records (
		id          UUID PRIMARY KEY,
		record_kind TEXT NOT NULL CHECK (record_kind IN ('bill', 'transaction')),
		tenant_id   UUID NOT NULL,
		landlord_id UUID NOT NULL,
		property_id UUID NOT NULL,
		for_month   INT NOT NULL CHECK (for_month BETWEEN 1 AND 12),
		for_year    INT NOT NULL,

		-- bill fields
		base_rent          NUMERIC(14,2),
		utility_charges    JSONB,
		total_utility_cost NUMERIC(14,2),
		historical_debt    NUMERIC(14,2),
		consolidated       BOOLEAN,
		credit_applied     NUMERIC(14,2),
		total_expected     NUMERIC(14,2),
		amount_paid        NUMERIC(14,2),
		notes              TEXT NOT NULL DEFAULT '',

		-- transaction fields
		receipt_number TEXT,
		bill_id        UUID,
		amount         NUMERIC(14,2),
		method         TEXT,
		external_ref   TEXT,
		failure_reason TEXT,

		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// At most one bill per (tenant, year, month). Concurrent creators
	// race on this index, not on an application-level check.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_bill_period
		ON ledger_records (tenant_id, for_year, for_month)
		WHERE record_kind = 'bill'`,

	// A gateway payment reference is applied exactly once.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_external_ref
		ON ledger_records (external_ref)
		WHERE record_kind = 'transaction' AND external_ref IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_tenant_status
		ON ledger_records (tenant_id, status)
		WHERE record_kind = 'bill'`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_landlord
		ON ledger_records (landlord_id)`,

	`CREATE TABLE IF NOT EXISTS tenant_credits (
		id             UUID PRIMARY KEY,
		tenant_id      UUID NOT NULL,
		amount         NUMERIC(14,2) NOT NULL,
		entry_type     TEXT NOT NULL,
		source_bill_id UUID,
		description    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tenant_credits_tenant
		ON tenant_credits (tenant_id)`,
}
