package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/config"
	"intellicourse/errors"
	"intellicourse/http/response"
	"intellicourse/http/services"
	"intellicourse/logger"
	"intellicourse/models"
	"intellicourse/utils"
)

// handlerTimeout bounds every payment operation so a stuck dependency
// surfaces as an error instead of a hung request.
const handlerTimeout = 15 * time.Second

// PaymentHandler exposes the payment lifecycle over HTTP.
type PaymentHandler struct {
	svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// processPaymentRequest is the wire shape of a payment submission.
type processPaymentRequest struct {
	CourseID int     `json:"courseId" validate:"required,gt=0"`
	Method   string  `json:"method" validate:"required,oneof=eft fnb payfast payshap stripe bitcoin ethereum usdt"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency" validate:"required,len=3"`
	UserID   string  `json:"userId"`
}

// ProcessPayment handles POST /payments/process.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if fieldErrs := utils.ValidateStruct(req); len(fieldErrs) > 0 {
		response.ValidationError(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	result, err := h.svc.Dispatch(ctx, models.PaymentRequest{
		CourseID:      req.CourseID,
		Method:        models.Method(req.Method),
		Amount:        decimal.NewFromFloat(req.Amount),
		Currency:      req.Currency,
		UserID:        req.UserID,
		SourceAddress: r.RemoteAddr,
	})
	if err != nil {
		writeServiceError(w, err, "Payment processing failed")
		return
	}

	response.Success(w, http.StatusOK, "Payment initiated, awaiting confirmation", result)
}

// GetMethods handles GET /payments/methods.
func (h *PaymentHandler) GetMethods(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "", services.MethodRegistry())
}

// GetStatus handles GET /payments/{id}/status.
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")
	if paymentID == "" {
		response.Error(w, http.StatusBadRequest, "Payment ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	p, err := h.svc.Status(ctx, paymentID)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch payment status")
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"payment_id":   p.ID,
		"status":       p.Status,
		"download_id":  p.DownloadID,
		"created_at":   p.CreatedAt.Format(time.RFC3339),
		"confirmed_at": p.ConfirmedAt,
	})
}

// cryptoWebhookRequest is the asynchronous confirmation payload.
type cryptoWebhookRequest struct {
	PaymentID       string `json:"paymentId" validate:"required,min=10"`
	TransactionHash string `json:"transactionHash" validate:"required"`
	Confirmations   int    `json:"confirmations" validate:"gte=0"`
}

// CryptoWebhook handles POST /payments/webhook/crypto.
func (h *PaymentHandler) CryptoWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if !verifyWebhookSignature(body, r.Header.Get("X-Webhook-Signature")) {
		logger.Warn("Crypto webhook rejected: bad signature from %s", r.RemoteAddr)
		response.Error(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var req cryptoWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid payload format")
		return
	}
	if fieldErrs := utils.ValidateStruct(req); len(fieldErrs) > 0 {
		response.ValidationError(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	p, err := h.svc.ConfirmCrypto(ctx, req.PaymentID, req.TransactionHash, req.Confirmations)
	if err != nil {
		writeServiceError(w, err, "Payment verification failed")
		return
	}

	response.Success(w, http.StatusOK, "Payment verified", map[string]interface{}{
		"payment_id":  p.ID,
		"status":      p.Status,
		"download_id": p.DownloadID,
	})
}

// confirmEFTRequest is a proof-of-payment submission.
type confirmEFTRequest struct {
	PaymentID  string `json:"paymentId" validate:"required,min=10"`
	ProofImage string `json:"proofImage" validate:"required"`
}

// ConfirmEFT handles POST /payments/confirm-eft.
func (h *PaymentHandler) ConfirmEFT(w http.ResponseWriter, r *http.Request) {
	var req confirmEFTRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if fieldErrs := utils.ValidateStruct(req); len(fieldErrs) > 0 {
		response.ValidationError(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	p, err := h.svc.ConfirmEFT(ctx, req.PaymentID, req.ProofImage)
	if err != nil {
		writeServiceError(w, err, "Failed to process EFT confirmation")
		return
	}

	response.Success(w, http.StatusOK,
		"EFT payment confirmation received", map[string]interface{}{
			"payment_id":  p.ID,
			"status":      p.Status,
			"download_id": p.DownloadID,
		})
}

// CurrencyRates handles GET /payments/currency/rates.
func (h *PaymentHandler) CurrencyRates(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.RateSnapshot()
	if snap == nil {
		response.Error(w, http.StatusServiceUnavailable, "No exchange rates available yet")
		return
	}

	rates := make(map[string]string, len(snap.Rates))
	for code, rate := range snap.Rates {
		rates[code] = rate.String()
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"base":      snap.BaseCurrency,
		"rates":     rates,
		"timestamp": snap.FetchedAt.Format(time.RFC3339),
	})
}

// verifyWebhookSignature checks the HMAC-SHA256 signature of a webhook
// body. Signing is optional: with no secret configured every call passes.
func verifyWebhookSignature(payload []byte, signature string) bool {
	secret := config.AppConfig.WebhookSecret
	if secret == "" {
		return true
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Validation detail is already handled by the callers; everything except
// retryable and not-found conditions returns a user-safe generic message
// with the detail logged server-side.
func writeServiceError(w http.ResponseWriter, err error, genericMsg string) {
	switch errors.KindOf(err) {
	case errors.Invalid, errors.Unsupported, errors.InvalidEvidence:
		logger.Warn("Rejected payment operation: %v", err)
		response.Error(w, http.StatusBadRequest, userMessage(err, genericMsg))
	case errors.NotFound:
		response.Error(w, http.StatusNotFound, userMessage(err, genericMsg))
	case errors.Conflict:
		response.Error(w, http.StatusConflict, userMessage(err, genericMsg))
	case errors.Insufficient:
		// Retryable: evidence accepted but not yet sufficient.
		response.Error(w, http.StatusAccepted, userMessage(err, genericMsg))
	case errors.RateUnavailable:
		logger.Error("Rate unavailable: %v", err)
		response.Error(w, http.StatusServiceUnavailable, "Exchange rates are temporarily unavailable")
	default:
		logger.Error("Internal error: %v", err)
		response.Error(w, http.StatusInternalServerError, genericMsg)
	}
}

func userMessage(err error, fallback string) string {
	var e *errors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
