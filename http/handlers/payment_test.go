package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/config"
	"intellicourse/http/services"
	"intellicourse/models"
	svcpkg "intellicourse/services"
	"intellicourse/store"
)

func testConfirmations(currency string) int {
	if currency == "BTC" {
		return 2
	}
	return 1
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	courses := store.NewMemoryCourseStore([]models.Course{
		{ID: 1, Title: "AI Fundamentals", Price: decimal.NewFromInt(1000), IsActive: 1, CreatedAt: time.Now()},
	})
	payout, err := services.NewPayoutDistributor(services.DefaultBuckets())
	if err != nil {
		t.Fatalf("NewPayoutDistributor: %v", err)
	}

	svc := services.NewPaymentService(
		store.NewMemoryPaymentStore(),
		courses,
		svcpkg.NewRateCache(nil, svcpkg.FallbackRates),
		svcpkg.NewEmailNotifier(),
		payout,
		testConfirmations,
		15*time.Minute,
	)

	h := NewPaymentHandler(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/process", h.ProcessPayment)
	mux.HandleFunc("GET /payments/methods", h.GetMethods)
	mux.HandleFunc("GET /payments/{id}/status", h.GetStatus)
	mux.HandleFunc("POST /payments/webhook/crypto", h.CryptoWebhook)
	mux.HandleFunc("POST /payments/confirm-eft", h.ConfirmEFT)
	mux.HandleFunc("GET /payments/currency/rates", h.CurrencyRates)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func TestProcessPaymentEndpoint(t *testing.T) {
	mux := newTestMux(t)

	rec, body := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": 1,
		"method":   "eft",
		"amount":   1000,
		"currency": "ZAR",
		"userId":   "buyer-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}

	data := body["data"].(map[string]interface{})
	if data["status"] != string(models.StatusAwaitingConfirmation) {
		t.Errorf("payment status = %v", data["status"])
	}
	if data["payment_id"] == "" {
		t.Error("missing payment id")
	}
}

func TestProcessPaymentValidationErrors(t *testing.T) {
	mux := newTestMux(t)

	rec, body := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": -1,
		"method":   "paypal",
		"amount":   -5,
		"currency": "Z",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["success"] != false {
		t.Error("expected success=false")
	}

	errs, ok := body["errors"].([]interface{})
	if !ok || len(errs) != 4 {
		t.Fatalf("errors = %v, want 4 field errors", body["errors"])
	}
}

func TestProcessPaymentUnknownMethodIsValidationError(t *testing.T) {
	mux := newTestMux(t)

	rec, _ := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": 1,
		"method":   "cheque",
		"currency": "ZAR",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetMethodsEndpoint(t *testing.T) {
	mux := newTestMux(t)

	rec, body := doJSON(t, mux, "GET", "/payments/methods", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	methods := body["data"].([]interface{})
	if len(methods) != 8 {
		t.Fatalf("methods = %d, want 8", len(methods))
	}
}

func TestStatusEndpoint(t *testing.T) {
	mux := newTestMux(t)

	_, created := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": 1,
		"method":   "bitcoin",
		"currency": "ZAR",
	})
	paymentID := created["data"].(map[string]interface{})["payment_id"].(string)

	rec, body := doJSON(t, mux, "GET", "/payments/"+paymentID+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]interface{})
	if data["status"] != string(models.StatusAwaitingConfirmation) {
		t.Errorf("payment status = %v", data["status"])
	}
	if data["download_id"] != "" {
		t.Errorf("unconfirmed payment has download id %v", data["download_id"])
	}

	rec, _ = doJSON(t, mux, "GET", "/payments/does-not-exist/status", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown payment status = %d, want 404", rec.Code)
	}
}

func TestCryptoWebhookLifecycle(t *testing.T) {
	mux := newTestMux(t)

	_, created := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": 1,
		"method":   "bitcoin",
		"currency": "ZAR",
	})
	paymentID := created["data"].(map[string]interface{})["payment_id"].(string)

	// Below the BTC threshold: retryable, no download id.
	rec, _ := doJSON(t, mux, "POST", "/payments/webhook/crypto", map[string]interface{}{
		"paymentId":       paymentID,
		"transactionHash": "0xabc123",
		"confirmations":   1,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("insufficient confirmations status = %d, want 202", rec.Code)
	}

	// At the threshold: confirmed with a download id.
	rec, body := doJSON(t, mux, "POST", "/payments/webhook/crypto", map[string]interface{}{
		"paymentId":       paymentID,
		"transactionHash": "0xabc123",
		"confirmations":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["status"] != string(models.StatusConfirmed) {
		t.Errorf("payment status = %v", data["status"])
	}
	downloadID, _ := data["download_id"].(string)
	if downloadID == "" {
		t.Fatal("confirmed payment has no download id")
	}

	// Repeat delivery returns the same download id.
	rec, body = doJSON(t, mux, "POST", "/payments/webhook/crypto", map[string]interface{}{
		"paymentId":       paymentID,
		"transactionHash": "0xabc123",
		"confirmations":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat delivery status = %d", rec.Code)
	}
	if got := body["data"].(map[string]interface{})["download_id"]; got != downloadID {
		t.Errorf("repeat delivery download id = %v, want %v", got, downloadID)
	}

	// Conflicting evidence after confirmation is rejected.
	rec, _ = doJSON(t, mux, "POST", "/payments/webhook/crypto", map[string]interface{}{
		"paymentId":       paymentID,
		"transactionHash": "0xother",
		"confirmations":   2,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("conflicting evidence status = %d, want 400", rec.Code)
	}
}

func TestCryptoWebhookSignature(t *testing.T) {
	config.AppConfig.WebhookSecret = "test-secret"
	defer func() { config.AppConfig.WebhookSecret = "" }()

	mux := newTestMux(t)

	payload := []byte(`{"paymentId":"0123456789","transactionHash":"0xabc","confirmations":2}`)

	req := httptest.NewRequest("POST", "/payments/webhook/crypto", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned webhook status = %d, want 401", rec.Code)
	}

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req = httptest.NewRequest("POST", "/payments/webhook/crypto", bytes.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", signature)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	// Signature accepted; the unknown payment id is the next failure.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("signed webhook status = %d, want 404", rec.Code)
	}
}

func TestConfirmEFTEndpoint(t *testing.T) {
	mux := newTestMux(t)

	_, created := doJSON(t, mux, "POST", "/payments/process", map[string]interface{}{
		"courseId": 1,
		"method":   "eft",
		"currency": "ZAR",
	})
	paymentID := created["data"].(map[string]interface{})["payment_id"].(string)

	rec, body := doJSON(t, mux, "POST", "/payments/confirm-eft", map[string]interface{}{
		"paymentId":  paymentID,
		"proofImage": "proof-of-payment-ref-001",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["status"] != string(models.StatusConfirmed) {
		t.Errorf("payment status = %v", data["status"])
	}

	rec, _ = doJSON(t, mux, "POST", "/payments/confirm-eft", map[string]interface{}{
		"paymentId": paymentID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing proof status = %d, want 400", rec.Code)
	}
}

func TestCurrencyRatesEndpoint(t *testing.T) {
	mux := newTestMux(t)

	rec, body := doJSON(t, mux, "GET", "/payments/currency/rates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]interface{})
	if data["base"] != "ZAR" {
		t.Errorf("base = %v, want ZAR", data["base"])
	}
	rates := data["rates"].(map[string]interface{})
	for _, code := range []string{"USD", "EUR", "GBP", "BTC", "ETH", "USDT"} {
		if _, ok := rates[code]; !ok {
			t.Errorf("missing rate for %s", code)
		}
	}
	if fmt.Sprint(rates["BTC"]) != "350000" {
		t.Errorf("BTC rate = %v", rates["BTC"])
	}
}
