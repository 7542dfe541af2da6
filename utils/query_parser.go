package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ListParams holds parsed list query parameters
type ListParams struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Status        string
	Limit         int
}

// ParseListParams extracts and validates list filter query parameters from
// an HTTP request.
func ParseListParams(r *http.Request) (*ListParams, error) {
	params := &ListParams{}

	if str := r.URL.Query().Get("created_after"); str != "" {
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return nil, fmt.Errorf("invalid created_after format. Use RFC3339 (e.g., 2026-08-01T10:00:00Z)")
		}
		params.CreatedAfter = &parsed
	}

	if str := r.URL.Query().Get("created_before"); str != "" {
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return nil, fmt.Errorf("invalid created_before format. Use RFC3339 (e.g., 2026-08-01T10:00:00Z)")
		}
		params.CreatedBefore = &parsed
	}

	params.Status = r.URL.Query().Get("status")

	if str := r.URL.Query().Get("limit"); str != "" {
		n, err := strconv.Atoi(str)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid limit: must be a non-negative integer")
		}
		params.Limit = n
	}

	return params, nil
}
