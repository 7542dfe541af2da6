package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSnapshot is one successfully fetched set of exchange rates. Rates map
// a currency code to its price in the base currency, so converting an amount
// of currency X into ZAR is amount * rates[X].
type RateSnapshot struct {
	BaseCurrency string                     `json:"base_currency"`
	Rates        map[string]decimal.Decimal `json:"rates"`
	FetchedAt    time.Time                  `json:"fetched_at"`
}

// Rate returns the rate for code and whether it is present.
func (s *RateSnapshot) Rate(code string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Decimal{}, false
	}
	r, ok := s.Rates[code]
	return r, ok
}
