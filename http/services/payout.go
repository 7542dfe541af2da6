package services

import (
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/errors"
	"intellicourse/models"
)

// BucketDef is one fixed percentage share of every confirmed payment.
type BucketDef struct {
	Label      string
	Percentage decimal.Decimal
}

// DefaultBuckets is the storefront's revenue split.
func DefaultBuckets() []BucketDef {
	return []BucketDef{
		{Label: "platform", Percentage: decimal.RequireFromString("0.4")},
		{Label: "instructor", Percentage: decimal.RequireFromString("0.1")},
		{Label: "operations", Percentage: decimal.RequireFromString("0.2")},
		{Label: "marketing", Percentage: decimal.RequireFromString("0.2")},
		{Label: "reserve", Percentage: decimal.RequireFromString("0.1")},
	}
}

// PayoutDistributor splits a confirmed payment's amount across the fixed
// buckets. Bucket amounts are rounded to cents and the rounding remainder is
// assigned to the largest bucket so the distributed total always equals the
// input amount.
type PayoutDistributor struct {
	buckets []BucketDef
}

// NewPayoutDistributor validates that the percentages sum to exactly 1.
func NewPayoutDistributor(buckets []BucketDef) (*PayoutDistributor, error) {
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.Percentage)
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, errors.E(errors.Internal, "payout percentages must sum to 1.0, got "+sum.String())
	}
	return &PayoutDistributor{buckets: buckets}, nil
}

// Distribute computes the split for one payment.
func (d *PayoutDistributor) Distribute(paymentID string, amount decimal.Decimal) *models.PayoutSplit {
	split := &models.PayoutSplit{
		PaymentID:     paymentID,
		Total:         amount,
		DistributedAt: time.Now(),
	}

	distributed := decimal.Zero
	largest := 0
	for i, def := range d.buckets {
		bucketAmount := amount.Mul(def.Percentage).Round(2)
		distributed = distributed.Add(bucketAmount)
		split.Buckets = append(split.Buckets, models.PayoutBucket{
			Label:      def.Label,
			Percentage: def.Percentage,
			Amount:     bucketAmount,
		})
		if def.Percentage.GreaterThan(d.buckets[largest].Percentage) {
			largest = i
		}
	}

	// Rounding remainder goes to the largest bucket so no cent is lost.
	remainder := amount.Sub(distributed)
	if !remainder.IsZero() {
		split.Buckets[largest].Amount = split.Buckets[largest].Amount.Add(remainder)
	}

	return split
}
