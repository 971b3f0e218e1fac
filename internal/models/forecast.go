package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Classification says whether a transaction has already happened
type Classification int

const (
	Realized Classification = iota
	Upcoming
)

// String returns the lowercase name
func (c Classification) String() string {
	switch c {
	case Realized:
		return "realized"
	case Upcoming:
		return "upcoming"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// ViewRange selects how many months around now the forecast covers
type ViewRange string

const (
	ViewRange3M ViewRange = "3m"
	ViewRange6M ViewRange = "6m"
)

// ParseViewRange accepts only the known selectors
func ParseViewRange(s string) (ViewRange, error) {
	r := ViewRange(s)
	if _, _, err := r.Span(); err != nil {
		return "", err
	}
	return r, nil
}

// Span returns the number of months before and after the current month
func (r ViewRange) Span() (back, forward int, err error) {
	switch r {
	case ViewRange3M:
		return 1, 2, nil
	case ViewRange6M:
		return 3, 3, nil
	default:
		return 0, 0, &ValidationError{Field: "viewRange", Value: string(r), Reason: "view range must be 3m or 6m"}
	}
}

// MonthKey identifies a calendar month
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the key of the month containing t
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Before orders keys chronologically
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Next returns the following month
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// String returns "2006-01"
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label returns the chart label, e.g. "Jan 2024"
func (k MonthKey) Label() string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// MonthBucket aggregates one month of the forecast window.
// All four accumulators are non-negative.
type MonthBucket struct {
	Key            MonthKey        `json:"-"`
	Month          string          `json:"month"`
	Label          string          `json:"label"`
	ActualIncome   decimal.Decimal `json:"actualIncome"`
	ActualExpense  decimal.Decimal `json:"actualExpense"`
	PlannedIncome  decimal.Decimal `json:"plannedIncome"`
	PlannedExpense decimal.Decimal `json:"plannedExpense"`
	NetCashflow    decimal.Decimal `json:"netCashflow"`
	Projected      bool            `json:"projected"`
	Count          int             `json:"count"`
}

// NewMonthBucket returns an empty bucket for key
func NewMonthBucket(key MonthKey) MonthBucket {
	return MonthBucket{
		Key:            key,
		Month:          key.String(),
		Label:          key.Label(),
		ActualIncome:   decimal.Zero,
		ActualExpense:  decimal.Zero,
		PlannedIncome:  decimal.Zero,
		PlannedExpense: decimal.Zero,
		NetCashflow:    decimal.Zero,
	}
}

// Summary holds the four headline balances
type Summary struct {
	ActualBalance      decimal.Decimal `json:"actualBalance"`
	ProjectedBalance   decimal.Decimal `json:"projectedBalance"`
	TotalActualIncome  decimal.Decimal `json:"totalActualIncome"`
	TotalActualExpense decimal.Decimal `json:"totalActualExpense"`
}

// Window is an inclusive range of calendar dates
type Window struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// Contains reports whether a midnight-anchored date lies within the window
func (w Window) Contains(date time.Time) bool {
	return !date.Before(w.Start) && !date.After(w.End)
}

// Months returns every month key the window spans, in order
func (w Window) Months() []MonthKey {
	var keys []MonthKey
	last := MonthOf(w.End)
	for k := MonthOf(w.Start); !last.Before(k); k = k.Next() {
		keys = append(keys, k)
	}
	return keys
}

// MarshalJSON renders both ends as calendar dates
func (w Window) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"start":%q,"end":%q}`, w.Start.Format(DateLayout), w.End.Format(DateLayout))), nil
}

// Dashboard is everything the overview screen shows for one view range
type Dashboard struct {
	Summary   Summary       `json:"summary"`
	ViewRange ViewRange     `json:"viewRange"`
	Window    Window        `json:"window"`
	Buckets   []MonthBucket `json:"buckets"`
	AsOf      string        `json:"asOf"`
}
