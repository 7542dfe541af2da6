package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method identifies a supported payment method.
type Method string

const (
	MethodEFT      Method = "eft"
	MethodFNB      Method = "fnb"
	MethodPayFast  Method = "payfast"
	MethodPayShap  Method = "payshap"
	MethodStripe   Method = "stripe"
	MethodBitcoin  Method = "bitcoin"
	MethodEthereum Method = "ethereum"
	MethodUSDT     Method = "usdt"
)

// Methods lists every supported method in display order.
var Methods = []Method{
	MethodEFT, MethodFNB, MethodPayFast, MethodPayShap,
	MethodStripe, MethodBitcoin, MethodEthereum, MethodUSDT,
}

// IsKnownMethod reports whether m is one of the supported methods.
func IsKnownMethod(m Method) bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// IsCrypto reports whether the method settles on-chain.
func (m Method) IsCrypto() bool {
	return m == MethodBitcoin || m == MethodEthereum || m == MethodUSDT
}

// IsRedirect reports whether the method hands the payer to a hosted
// third-party page for completion.
func (m Method) IsRedirect() bool {
	return m == MethodFNB || m == MethodPayFast || m == MethodStripe
}

// CryptoCurrency returns the ticker the method settles in, or "" for
// non-crypto methods.
func (m Method) CryptoCurrency() string {
	switch m {
	case MethodBitcoin:
		return "BTC"
	case MethodEthereum:
		return "ETH"
	case MethodUSDT:
		return "USDT"
	}
	return ""
}

// PaymentStatus is the lifecycle state of a payment. Transitions only move
// forward: pending -> awaiting_confirmation -> confirmed or failed.
type PaymentStatus string

const (
	StatusPending              PaymentStatus = "pending"
	StatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	StatusConfirmed            PaymentStatus = "confirmed"
	StatusFailed               PaymentStatus = "failed"
)

// PaymentRequest is the validated, immutable submission a payment is created
// from.
type PaymentRequest struct {
	CourseID      int             `json:"course_id"`
	Method        Method          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	UserID        string          `json:"user_id,omitempty"`
	SourceAddress string          `json:"source_address,omitempty"`
}

// Payment is the record for a single payment attempt. It is never deleted;
// only its status moves forward.
type Payment struct {
	ID        string         `json:"id"`
	Request   PaymentRequest `json:"request"`
	Status    PaymentStatus  `json:"status"`
	Reference string         `json:"reference,omitempty"`

	// AmountZAR is the amount owed in the base currency.
	AmountZAR decimal.Decimal `json:"amount_zar"`

	// CryptoAmount and CryptoCurrency hold the exact on-chain amount quoted
	// to the payer for crypto methods.
	CryptoAmount   decimal.Decimal `json:"crypto_amount,omitempty"`
	CryptoCurrency string          `json:"crypto_currency,omitempty"`

	// Evidence recorded on confirmation.
	TxHash   string `json:"tx_hash,omitempty"`
	ProofRef string `json:"proof_ref,omitempty"`

	// DownloadID is set if and only if Status is confirmed.
	DownloadID string `json:"download_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// DispatchResult is what the dispatcher hands back to the HTTP layer.
type DispatchResult struct {
	PaymentID    string          `json:"payment_id"`
	Status       PaymentStatus   `json:"status"`
	Reference    string          `json:"reference,omitempty"`
	RedirectURL  string          `json:"redirect_url,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	CryptoAmount decimal.Decimal `json:"crypto_amount,omitempty"`
	Currency     string          `json:"currency,omitempty"`
}
