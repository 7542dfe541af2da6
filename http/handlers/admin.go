package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	svcpkg "intellicourse/services"

	"intellicourse/http/response"
	"intellicourse/http/services"
	"intellicourse/logger"
	"intellicourse/models"
	"intellicourse/store"
	"intellicourse/utils"
)

// AdminHandler serves back-office payment views and exports.
type AdminHandler struct {
	svc *services.PaymentService
}

func NewAdminHandler(svc *services.PaymentService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListPayments handles GET /admin/payments with optional status,
// created_after, created_before and limit filters.
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	params, err := utils.ParseListParams(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	payments, err := h.svc.List(ctx, store.ListFilter{
		Status:        models.PaymentStatus(params.Status),
		CreatedAfter:  params.CreatedAfter,
		CreatedBefore: params.CreatedBefore,
		Limit:         params.Limit,
	})
	if err != nil {
		logger.Error("Failed to list payments: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"count":    len(payments),
		"payments": payments,
	})
}

// ListPayouts handles GET /admin/payouts.
func (h *AdminHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	payouts, err := h.svc.Payouts(ctx)
	if err != nil {
		logger.Error("Failed to list payouts: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch payouts")
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"count":   len(payouts),
		"payouts": payouts,
	})
}

// ExportPayments handles GET /admin/payments/export and streams an
// Excel workbook of all payments and payout splits.
func (h *AdminHandler) ExportPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	payments, err := h.svc.List(ctx, store.ListFilter{})
	if err != nil {
		logger.Error("Failed to load payments for export: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to generate export")
		return
	}
	payouts, err := h.svc.Payouts(ctx)
	if err != nil {
		logger.Error("Failed to load payouts for export: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to generate export")
		return
	}

	workbook, err := svcpkg.ExportPaymentsWorkbook(payments, payouts)
	if err != nil {
		logger.Error("Failed to build payments workbook: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to generate export")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("payments_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := workbook.Write(w); err != nil {
		logger.Error("Failed to stream payments workbook: %v", err)
	}
}
