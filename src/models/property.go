package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Property represents a rental property and its billing parameters
type Property struct {
	ID         uuid.UUID `json:"id" db:"id"`
	LandlordID uuid.UUID `json:"landlord_id" db:"landlord_id"`
	Name       string    `json:"name" db:"name"`
	HouseType  string    `json:"house_type" db:"house_type"` // bedsitter, one_bedroom, ...

	BaseRent decimal.Decimal `json:"base_rent" db:"base_rent"`

	// Per-unit prices keyed by utility type (water, electricity, ...)
	UtilityPrices map[string]decimal.Decimal `json:"utility_prices" db:"utility_prices"`

	// Rent cycle policy
	PaymentDay      int `json:"payment_day" db:"payment_day"`             // 1-31, clamped to month end
	GracePeriodDays int `json:"grace_period_days" db:"grace_period_days"` // 0-30

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Tenancy links a tenant to a property. At most one active tenancy per
// tenant; the billing service reads base rent and utility prices through
// it and locks it to serialize per-tenant ledger writes.
type Tenancy struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	LandlordID uuid.UUID  `json:"landlord_id" db:"landlord_id"`
	PropertyID uuid.UUID  `json:"property_id" db:"property_id"`
	Active     bool       `json:"active" db:"active"`
	StartDate  time.Time  `json:"start_date" db:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// UtilityUsage is the metered input to bill creation: units consumed for
// one utility type during the billing period.
type UtilityUsage struct {
	UtilityType string          `json:"utility_type"`
	UnitsUsed   decimal.Decimal `json:"units_used"`
}
