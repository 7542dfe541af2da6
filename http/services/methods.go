package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

// Storefront payment constants. The receive addresses and banking details
// are the merchant's fixed accounts shown to the payer.
const (
	BankName       = "Standard Bank"
	BankAccount    = "123 456 789"
	BankBranchCode = "051001"
	ShapID         = "intellicourse#academy"
	BTCAddress     = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	ETHAddress     = "0x742d35Cc6634C0532925a3b8Df6A5b7b6F64aD6e"
	PaymentsInbox  = "payments@intellicourse.com"
)

// MethodInfo is the display metadata for one payment method.
type MethodInfo struct {
	Method      models.Method     `json:"method"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Kind        string            `json:"kind"` // manual or redirect
	Details     map[string]string `json:"details,omitempty"`
}

// MethodRegistry enumerates the supported methods with their metadata.
func MethodRegistry() []MethodInfo {
	return []MethodInfo{
		{
			Method: models.MethodEFT, Name: "EFT / Bank Transfer", Kind: "manual",
			Description: "Transfer from any South African bank, email proof of payment",
			Details: map[string]string{
				"bank":           BankName,
				"account_number": BankAccount,
				"branch_code":    BankBranchCode,
				"proof_email":    PaymentsInbox,
			},
		},
		{
			Method: models.MethodFNB, Name: "FNB Online Banking", Kind: "redirect",
			Description: "Pay through FNB Online Banking",
		},
		{
			Method: models.MethodPayFast, Name: "PayFast", Kind: "redirect",
			Description: "Card and instant EFT via PayFast's hosted page",
		},
		{
			Method: models.MethodPayShap, Name: "PayShap", Kind: "manual",
			Description: "Instant payment to our ShapID",
			Details:     map[string]string{"shap_id": ShapID},
		},
		{
			Method: models.MethodStripe, Name: "International Card", Kind: "redirect",
			Description: "International card payment via Stripe",
		},
		{
			Method: models.MethodBitcoin, Name: "Bitcoin", Kind: "manual",
			Description: "Send the exact BTC amount to our receive address",
			Details:     map[string]string{"address": BTCAddress},
		},
		{
			Method: models.MethodEthereum, Name: "Ethereum", Kind: "manual",
			Description: "Send the exact ETH amount to our receive address",
			Details:     map[string]string{"address": ETHAddress},
		},
		{
			Method: models.MethodUSDT, Name: "USDT (ERC-20)", Kind: "manual",
			Description: "Send the exact USDT amount to our receive address",
			Details:     map[string]string{"address": ETHAddress},
		},
	}
}

// instructionsFor renders the out-of-band payment instructions for a
// manual-instruction method.
func instructionsFor(method models.Method, amountZAR, cryptoAmount decimal.Decimal, reference string) string {
	switch method {
	case models.MethodEFT:
		return fmt.Sprintf(
			"Transfer R %s to %s, account %s, branch code %s. Use reference %s and email proof of payment to %s.",
			amountZAR.StringFixed(2), BankName, BankAccount, BankBranchCode, reference, PaymentsInbox)
	case models.MethodPayShap:
		return fmt.Sprintf(
			"Send R %s to ShapID %s using reference %s.",
			amountZAR.StringFixed(2), ShapID, reference)
	case models.MethodBitcoin:
		return fmt.Sprintf(
			"Send exactly %s BTC to %s. Reference %s. Access is granted after confirmation.",
			cryptoAmount.String(), BTCAddress, reference)
	case models.MethodEthereum:
		return fmt.Sprintf(
			"Send exactly %s ETH to %s. Reference %s. Access is granted after confirmation.",
			cryptoAmount.String(), ETHAddress, reference)
	case models.MethodUSDT:
		return fmt.Sprintf(
			"Send exactly %s USDT to %s. Reference %s. Access is granted after confirmation.",
			cryptoAmount.String(), ETHAddress, reference)
	}
	return ""
}

// redirectURLFor builds the hosted-page URL for a redirect-gateway method.
func redirectURLFor(method models.Method, paymentID string) string {
	return fmt.Sprintf("https://gateway.intellicourse.com/%s/checkout/%s", method, paymentID)
}
