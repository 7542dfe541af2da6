package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

// PaymentStore persists payments and their payout splits. Payments are never
// deleted; status moves forward through MarkAwaiting, Confirm and Fail, each
// of which is a compare-and-swap on the current status so that concurrent
// confirmation calls cannot race a record backwards.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error

	// Get returns the payment or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*models.Payment, error)

	// FindOpenForUserCourse returns a pending or awaiting payment created
	// after since for the same user and course, or (nil, nil).
	FindOpenForUserCourse(ctx context.Context, userID string, courseID int, since time.Time) (*models.Payment, error)

	// MarkAwaiting transitions pending -> awaiting_confirmation and stamps
	// the displayable fields. Returns false when the payment was not pending.
	MarkAwaiting(ctx context.Context, id string, reference string, cryptoAmount decimal.Decimal, cryptoCurrency string) (bool, error)

	// Confirm transitions awaiting_confirmation -> confirmed, recording the
	// evidence and the download id. Returns false when the payment was not
	// awaiting confirmation.
	Confirm(ctx context.Context, id, downloadID, txHash, proofRef string, confirmedAt time.Time) (bool, error)

	// Fail transitions an open payment (pending or awaiting_confirmation)
	// to failed. Returns false when the payment was already settled.
	Fail(ctx context.Context, id string) (bool, error)

	List(ctx context.Context, filter ListFilter) ([]models.Payment, error)

	RecordPayout(ctx context.Context, split *models.PayoutSplit) error
	Payouts(ctx context.Context) ([]models.PayoutSplit, error)
}

// ListFilter narrows List results.
type ListFilter struct {
	Status        models.PaymentStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
}

// CourseStore serves the course catalog.
type CourseStore interface {
	List(ctx context.Context) ([]models.Course, error)

	// ByID returns the course or (nil, nil) when absent.
	ByID(ctx context.Context, id int) (*models.Course, error)

	Create(ctx context.Context, c *models.Course) error
}
