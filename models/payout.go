package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutBucket is one stakeholder share of a confirmed payment.
type PayoutBucket struct {
	Label      string          `json:"label"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// PayoutSplit is the full distribution of a confirmed payment's amount.
// It is derived from the payment, recorded for reporting.
type PayoutSplit struct {
	PaymentID     string          `json:"payment_id"`
	Total         decimal.Decimal `json:"total"`
	Buckets       []PayoutBucket  `json:"buckets"`
	DistributedAt time.Time       `json:"distributed_at"`
}
