package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDistributeExactSplit(t *testing.T) {
	d, err := NewPayoutDistributor(DefaultBuckets())
	if err != nil {
		t.Fatalf("NewPayoutDistributor: %v", err)
	}

	split := d.Distribute("pay-1", decimal.NewFromInt(1000))

	want := map[string]string{
		"platform":   "400",
		"instructor": "100",
		"operations": "200",
		"marketing":  "200",
		"reserve":    "100",
	}
	if len(split.Buckets) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(split.Buckets))
	}
	for _, b := range split.Buckets {
		if b.Amount.String() != want[b.Label] {
			t.Errorf("bucket %s = %s, want %s", b.Label, b.Amount, want[b.Label])
		}
	}
}

func TestDistributeRemainderGoesToLargestBucket(t *testing.T) {
	d, err := NewPayoutDistributor(DefaultBuckets())
	if err != nil {
		t.Fatalf("NewPayoutDistributor: %v", err)
	}

	amount := decimal.RequireFromString("100.01")
	split := d.Distribute("pay-2", amount)

	sum := decimal.Zero
	for _, b := range split.Buckets {
		sum = sum.Add(b.Amount)
	}
	if !sum.Equal(amount) {
		t.Fatalf("distributed %s, want %s", sum, amount)
	}

	for _, b := range split.Buckets {
		if b.Label == "platform" && b.Amount.String() != "40.01" {
			t.Errorf("platform bucket = %s, want 40.01 (0.01 remainder)", b.Amount)
		}
	}
}

func TestDistributeTotalAlwaysPreserved(t *testing.T) {
	d, err := NewPayoutDistributor(DefaultBuckets())
	if err != nil {
		t.Fatalf("NewPayoutDistributor: %v", err)
	}

	for _, raw := range []string{"0.01", "0.05", "1499.00", "2499.99", "333.33"} {
		amount := decimal.RequireFromString(raw)
		split := d.Distribute("pay-x", amount)

		sum := decimal.Zero
		for _, b := range split.Buckets {
			sum = sum.Add(b.Amount)
		}
		if !sum.Equal(amount) {
			t.Errorf("amount %s: distributed %s", raw, sum)
		}
	}
}

func TestNewPayoutDistributorRejectsBadPercentages(t *testing.T) {
	_, err := NewPayoutDistributor([]BucketDef{
		{Label: "a", Percentage: decimal.RequireFromString("0.5")},
		{Label: "b", Percentage: decimal.RequireFromString("0.4")},
	})
	if err == nil {
		t.Fatal("expected error for percentages summing to 0.9")
	}
}
