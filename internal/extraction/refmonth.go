package extraction

import (
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Year bounds accepted for a reference month.
const (
	minRefYear = 1900
	maxRefYear = 2100
)

// RefMonth is a validated reference month.
type RefMonth struct {
	Year  int
	Month time.Month
}

// ParseRefMonth parses a raw "MMYYYY" reference month. The month must be
// 1-12 and the year within [1900, 2100]; anything else is a validation
// error, never a panic.
func ParseRefMonth(raw string) (RefMonth, error) {
	if len(raw) != 6 {
		return RefMonth{}, &domain.ValidationError{Field: "ref_month", Value: raw, Expected: "MMYYYY"}
	}

	month, err := strconv.Atoi(raw[:2])
	if err != nil || month < 1 || month > 12 {
		return RefMonth{}, &domain.ValidationError{Field: "ref_month", Value: raw, Expected: "month between 01 and 12"}
	}

	year, err := strconv.Atoi(raw[2:])
	if err != nil || year < minRefYear || year > maxRefYear {
		return RefMonth{}, &domain.ValidationError{
			Field:    "ref_month",
			Value:    raw,
			Expected: fmt.Sprintf("year between %d and %d", minRefYear, maxRefYear),
		}
	}

	return RefMonth{Year: year, Month: time.Month(month)}, nil
}

// First returns the first day of the reference month.
func (r RefMonth) First() time.Time {
	return time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last day of the reference month.
func (r RefMonth) Last() time.Time {
	return r.First().AddDate(0, 1, -1)
}

// String renders the month back in MMYYYY form.
func (r RefMonth) String() string {
	return fmt.Sprintf("%02d%04d", int(r.Month), r.Year)
}
