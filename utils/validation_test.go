package utils

import (
	"net/http/httptest"
	"testing"
)

type paymentForm struct {
	CourseID int     `validate:"required,gt=0"`
	Method   string  `validate:"required,oneof=eft fnb payfast payshap stripe bitcoin ethereum usdt"`
	Amount   float64 `validate:"gte=0"`
	Currency string  `validate:"required,len=3"`
}

func TestValidateStructCollectsEveryFailure(t *testing.T) {
	form := paymentForm{
		CourseID: -1,
		Method:   "paypal",
		Amount:   -5,
		Currency: "Z",
	}

	errs := ValidateStruct(form)
	if len(errs) != 4 {
		t.Fatalf("got %d field errors, want 4: %+v", len(errs), errs)
	}

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Message
	}
	for _, field := range []string{"courseid", "method", "amount", "currency"} {
		if byField[field] == "" {
			t.Errorf("missing error for field %q", field)
		}
	}
}

func TestValidateStructPassesValidInput(t *testing.T) {
	form := paymentForm{
		CourseID: 1,
		Method:   "bitcoin",
		Amount:   1499,
		Currency: "ZAR",
	}
	if errs := ValidateStruct(form); len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestParseListParams(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/admin/payments?status=confirmed&created_after=2026-08-01T10:00:00Z&limit=50", nil)

	params, err := ParseListParams(r)
	if err != nil {
		t.Fatalf("ParseListParams: %v", err)
	}
	if params.Status != "confirmed" {
		t.Errorf("status = %q", params.Status)
	}
	if params.CreatedAfter == nil || params.CreatedAfter.Day() != 1 {
		t.Errorf("created_after = %v", params.CreatedAfter)
	}
	if params.Limit != 50 {
		t.Errorf("limit = %d", params.Limit)
	}
}

func TestParseListParamsRejectsBadValues(t *testing.T) {
	for _, query := range []string{
		"created_after=yesterday",
		"created_before=2026-13-99",
		"limit=-1",
		"limit=abc",
	} {
		r := httptest.NewRequest("GET", "/admin/payments?"+query, nil)
		if _, err := ParseListParams(r); err == nil {
			t.Errorf("query %q: expected error", query)
		}
	}
}
