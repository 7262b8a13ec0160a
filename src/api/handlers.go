package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/models"
	"github.com/rentease/rentledger/src/services"
)

// Handler wires the ledger services to the HTTP surface used by the
// landlord billing UI, the tenant payment UI, and the gateway webhook.
type Handler struct {
	billing   *services.BillingService
	payments  *services.PaymentService
	debt      *services.DebtService
	rentCycle *services.RentCycleService
	logger    *zap.Logger
}

// NewHandler creates the HTTP handler set
func NewHandler(
	billing *services.BillingService,
	payments *services.PaymentService,
	debt *services.DebtService,
	rentCycle *services.RentCycleService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		billing:   billing,
		payments:  payments,
		debt:      debt,
		rentCycle: rentCycle,
		logger:    logger,
	}
}

type createBillRequest struct {
	TenantID      uuid.UUID             `json:"tenant_id"`
	ForMonth      int                   `json:"for_month"`
	ForYear       int                   `json:"for_year"`
	UtilityUsages []models.UtilityUsage `json:"utility_usages"`
	Notes         string                `json:"notes"`
}

// CreateBill handles POST /api/bills
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}

	bill, err := h.billing.CreateBill(r.Context(), services.CreateBillRequest{
		TenantID:      req.TenantID,
		ForMonth:      req.ForMonth,
		ForYear:       req.ForYear,
		UtilityUsages: req.UtilityUsages,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

type applyPaymentRequest struct {
	TenantID     uuid.UUID            `json:"tenant_id"`
	TargetBillID *uuid.UUID           `json:"target_bill_id,omitempty"`
	Amount       decimal.Decimal      `json:"amount"`
	Method       models.PaymentMethod `json:"method"`
	ExternalRef  *string              `json:"external_ref,omitempty"`

	// Set by the gateway webhook on failure callbacks
	Failed        bool   `json:"failed,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type applyPaymentResponse struct {
	Status         models.BillStatus         `json:"status"`
	ReceiptID      uuid.UUID                 `json:"receipt_id"`
	ReceiptNumber  string                    `json:"receipt_number"`
	Balance        decimal.Decimal           `json:"balance"`
	SettledBillIDs []uuid.UUID               `json:"settled_bill_ids,omitempty"`
	Allocations    []services.BillAllocation `json:"allocations,omitempty"`
	TenantCleared  bool                      `json:"tenant_cleared"`
	Replayed       bool                      `json:"replayed"`
}

// ApplyPayment handles POST /api/payments, covering the gateway webhook
// (success and failure events) and manual entry by the landlord.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req applyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}

	svcReq := services.ApplyPaymentRequest{
		TenantID:     req.TenantID,
		TargetBillID: req.TargetBillID,
		Amount:       req.Amount,
		Method:       req.Method,
		ExternalRef:  req.ExternalRef,
	}

	if req.Failed {
		txn, err := h.payments.RecordGatewayFailure(r.Context(), svcReq, req.FailureReason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"receipt_id":     txn.ID,
			"receipt_number": txn.ReceiptNumber,
			"status":         txn.Status,
		})
		return
	}

	result, err := h.payments.ApplyPayment(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, applyPaymentResponse{
		Status:         result.Bill.Status,
		ReceiptID:      result.Transaction.ID,
		ReceiptNumber:  result.Transaction.ReceiptNumber,
		Balance:        services.BalanceForBill(result.Bill, true),
		SettledBillIDs: result.SettledBillIDs,
		Allocations:    result.Allocations,
		TenantCleared:  result.TenantCleared,
		Replayed:       result.Replayed,
	})
}

// TenantOutstanding handles GET /api/tenants/{tenantID}/outstanding
func (h *Handler) TenantOutstanding(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseUUID(w, r, "tenantID")
	if !ok {
		return
	}
	month, year := periodParams(r)

	out, err := h.debt.GetTenantOutstanding(r.Context(), tenantID, month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	breakdown, err := h.debt.GetHistoricalBreakdown(r.Context(), tenantID, month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outstanding":          out,
		"historical_breakdown": breakdown,
	})
}

// LandlordOutstanding handles GET /api/landlords/{landlordID}/outstanding
func (h *Handler) LandlordOutstanding(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := parseUUID(w, r, "landlordID")
	if !ok {
		return
	}
	month, year := periodParams(r)

	summary, err := h.debt.GetPortfolioSummary(r.Context(), landlordID, month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type rentStatusRequest struct {
	PaymentDay      int `json:"payment_day"`
	GracePeriodDays int `json:"grace_period_days"`
}

// RentStatus handles POST /api/rent-status: evaluates the cycle policy
// for the given property parameters as of now.
func (h *Handler) RentStatus(w http.ResponseWriter, r *http.Request) {
	var req rentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}
	state := h.rentCycle.Evaluate(req.PaymentDay, req.GracePeriodDays, time.Now())
	writeJSON(w, http.StatusOK, state)
}

// periodParams reads optional month/year query params, defaulting to the
// current billing period in the anchor timezone.
func periodParams(r *http.Request) (int, int) {
	month, year := services.CurrentPeriod(time.Now())
	if v := r.URL.Query().Get("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
			month = n
		}
	}
	if v := r.URL.Query().Get("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2000 {
			year = n
		}
	}
	return month, year
}
