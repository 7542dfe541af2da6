package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

func seedPayment(t *testing.T, s *MemoryPaymentStore, id string, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID: id,
		Request: models.PaymentRequest{
			CourseID: 1,
			Method:   models.MethodEFT,
			Currency: "ZAR",
			UserID:   "buyer@example.com",
		},
		Status:    status,
		AmountZAR: decimal.NewFromInt(1000),
		CreatedAt: time.Now(),
	}
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestGetReturnsNilForMissingPayment(t *testing.T) {
	s := NewMemoryPaymentStore()
	p, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil, got %+v", p)
	}
}

func TestMarkAwaitingOnlyFromPending(t *testing.T) {
	s := NewMemoryPaymentStore()
	ctx := context.Background()
	seedPayment(t, s, "p1", models.StatusPending)

	ok, err := s.MarkAwaiting(ctx, "p1", "COURSE-1-123", decimal.Decimal{}, "")
	if err != nil || !ok {
		t.Fatalf("MarkAwaiting: ok=%v err=%v", ok, err)
	}

	// Second transition attempt loses the CAS.
	ok, err = s.MarkAwaiting(ctx, "p1", "COURSE-1-456", decimal.Decimal{}, "")
	if err != nil {
		t.Fatalf("MarkAwaiting: %v", err)
	}
	if ok {
		t.Fatal("MarkAwaiting succeeded on a non-pending payment")
	}

	p, _ := s.Get(ctx, "p1")
	if p.Reference != "COURSE-1-123" {
		t.Errorf("reference = %q, lost first write", p.Reference)
	}
}

func TestConfirmOnlyFromAwaiting(t *testing.T) {
	s := NewMemoryPaymentStore()
	ctx := context.Background()
	seedPayment(t, s, "p1", models.StatusPending)

	ok, err := s.Confirm(ctx, "p1", "dl-1", "0xabc", "", time.Now())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if ok {
		t.Fatal("Confirm succeeded on a pending payment")
	}

	if ok, _ := s.MarkAwaiting(ctx, "p1", "ref", decimal.Decimal{}, ""); !ok {
		t.Fatal("MarkAwaiting failed")
	}
	if ok, _ := s.Confirm(ctx, "p1", "dl-1", "0xabc", "", time.Now()); !ok {
		t.Fatal("Confirm failed from awaiting_confirmation")
	}

	// Confirmed is terminal: no second confirm, no fail.
	if ok, _ := s.Confirm(ctx, "p1", "dl-2", "0xother", "", time.Now()); ok {
		t.Fatal("Confirm succeeded twice")
	}
	if ok, _ := s.Fail(ctx, "p1"); ok {
		t.Fatal("Fail succeeded on a confirmed payment")
	}

	p, _ := s.Get(ctx, "p1")
	if p.DownloadID != "dl-1" {
		t.Errorf("download id = %q, want dl-1", p.DownloadID)
	}
	if p.ConfirmedAt == nil {
		t.Error("confirmed payment has no confirmation time")
	}
}

func TestFailFromOpenStatuses(t *testing.T) {
	s := NewMemoryPaymentStore()
	ctx := context.Background()

	seedPayment(t, s, "pending", models.StatusPending)
	if ok, _ := s.Fail(ctx, "pending"); !ok {
		t.Error("Fail should work from pending")
	}

	seedPayment(t, s, "awaiting", models.StatusAwaitingConfirmation)
	if ok, _ := s.Fail(ctx, "awaiting"); !ok {
		t.Error("Fail should work from awaiting_confirmation")
	}

	// Failed is terminal.
	if ok, _ := s.MarkAwaiting(ctx, "pending", "ref", decimal.Decimal{}, ""); ok {
		t.Error("MarkAwaiting succeeded on a failed payment")
	}
}

func TestFindOpenForUserCourse(t *testing.T) {
	s := NewMemoryPaymentStore()
	ctx := context.Background()
	since := time.Now().Add(-15 * time.Minute)

	seedPayment(t, s, "p1", models.StatusAwaitingConfirmation)

	open, err := s.FindOpenForUserCourse(ctx, "buyer@example.com", 1, since)
	if err != nil {
		t.Fatalf("FindOpenForUserCourse: %v", err)
	}
	if open == nil || open.ID != "p1" {
		t.Fatalf("open = %+v, want p1", open)
	}

	if open, _ := s.FindOpenForUserCourse(ctx, "other@example.com", 1, since); open != nil {
		t.Error("matched a different user")
	}
	if open, _ := s.FindOpenForUserCourse(ctx, "buyer@example.com", 2, since); open != nil {
		t.Error("matched a different course")
	}

	// Settled payments are not open.
	s.Confirm(ctx, "p1", "dl-1", "", "proof-ref", time.Now())
	if open, _ := s.FindOpenForUserCourse(ctx, "buyer@example.com", 1, since); open != nil {
		t.Error("matched a confirmed payment")
	}
}

func TestListFilters(t *testing.T) {
	s := NewMemoryPaymentStore()
	ctx := context.Background()

	seedPayment(t, s, "p1", models.StatusPending)
	seedPayment(t, s, "p2", models.StatusAwaitingConfirmation)
	seedPayment(t, s, "p3", models.StatusAwaitingConfirmation)

	all, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	awaiting, _ := s.List(ctx, ListFilter{Status: models.StatusAwaitingConfirmation})
	if len(awaiting) != 2 {
		t.Errorf("awaiting = %d, want 2", len(awaiting))
	}

	limited, _ := s.List(ctx, ListFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}
}

func TestMemoryCourseStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCourseStore([]models.Course{
		{Title: "Active", Price: decimal.NewFromInt(100), IsActive: 1},
		{Title: "Retired", Price: decimal.NewFromInt(200), IsActive: 0},
	})

	courses, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(courses) != 1 || courses[0].Title != "Active" {
		t.Fatalf("List = %+v, want only the active course", courses)
	}

	c, err := s.ByID(ctx, courses[0].ID)
	if err != nil || c == nil {
		t.Fatalf("ByID: %v %v", c, err)
	}

	if c, _ := s.ByID(ctx, 999); c != nil {
		t.Error("ByID(999) returned a course")
	}

	created := &models.Course{Title: "New", Price: decimal.NewFromInt(300), IsActive: 1}
	if err := s.Create(ctx, created); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Error("Create did not assign an id")
	}
}
