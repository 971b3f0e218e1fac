// Package aggregator derives balances and the month-bucketed cash-flow
// forecast from a snapshot of transactions.
//
// Every function is pure: the inputs are never modified and the current
// moment is always passed in, so results depend only on the arguments.
package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/models"
)

// Options tweaks Build
type Options struct {
	// FillGaps adds zero buckets for window months without transactions
	FillGaps bool
}

// entry is a transaction whose date and amount have been checked
type entry struct {
	date    time.Time
	amount  decimal.Decimal
	planned bool
}

// prepare validates every transaction before any summing starts, so a bad
// record fails the whole call instead of corrupting a partial result.
func prepare(transactions []models.Transaction, loc *time.Location) ([]entry, error) {
	entries := make([]entry, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		date, err := t.ParseDate(loc)
		if err != nil {
			return nil, err
		}
		entries[i] = entry{
			date:    date,
			amount:  decimal.NewFromFloat(t.Amount),
			planned: t.IsPlanned,
		}
	}
	return entries, nil
}

// classify applies the rule: realized only when not planned and not after now
func classify(date time.Time, planned bool, now time.Time) models.Classification {
	if !planned && !date.After(now) {
		return models.Realized
	}
	return models.Upcoming
}

// Classify reports whether t has been realized as of now. A planned
// transaction is upcoming even when its date has passed.
func Classify(t models.Transaction, now time.Time) (models.Classification, error) {
	date, err := t.ParseDate(now.Location())
	if err != nil {
		return models.Upcoming, err
	}
	return classify(date, t.IsPlanned, now), nil
}

// ComputeSummary returns the actual and projected balances as of now
func ComputeSummary(transactions []models.Transaction, now time.Time) (models.Summary, error) {
	entries, err := prepare(transactions, now.Location())
	if err != nil {
		return models.Summary{}, err
	}
	return summarize(entries, now), nil
}

func summarize(entries []entry, now time.Time) models.Summary {
	income, expense, upcoming := decimal.Zero, decimal.Zero, decimal.Zero

	for _, e := range entries {
		if classify(e.date, e.planned, now) == models.Upcoming {
			upcoming = upcoming.Add(e.amount)
			continue
		}
		switch {
		case e.amount.IsPositive():
			income = income.Add(e.amount)
		case e.amount.IsNegative():
			expense = expense.Add(e.amount.Abs())
		}
	}

	actual := income.Sub(expense)
	return models.Summary{
		ActualBalance:      actual,
		ProjectedBalance:   actual.Add(upcoming),
		TotalActualIncome:  income,
		TotalActualExpense: expense,
	}
}

// WindowFor returns the inclusive forecast window for viewRange around now:
// from the first day of the month back months ago to the last day of the
// month forward months ahead.
func WindowFor(now time.Time, viewRange models.ViewRange) (models.Window, error) {
	back, forward, err := viewRange.Span()
	if err != nil {
		return models.Window{}, err
	}
	y, m, _ := now.Date()
	loc := now.Location()
	return models.Window{
		Start: time.Date(y, m-time.Month(back), 1, 0, 0, 0, 0, loc),
		// day 0 of the following month is the last day of the target month
		End: time.Date(y, m+time.Month(forward)+1, 0, 0, 0, 0, 0, loc),
	}, nil
}

// ComputeForecast buckets the transactions inside the view window by
// calendar month. The actual/planned split follows the planned flag alone;
// months without transactions are left out.
func ComputeForecast(transactions []models.Transaction, now time.Time, viewRange models.ViewRange) ([]models.MonthBucket, error) {
	window, err := WindowFor(now, viewRange)
	if err != nil {
		return nil, err
	}
	entries, err := prepare(transactions, now.Location())
	if err != nil {
		return nil, err
	}
	return bucketize(entries, window, now), nil
}

func bucketize(entries []entry, window models.Window, now time.Time) []models.MonthBucket {
	byMonth := make(map[models.MonthKey]*models.MonthBucket)

	for _, e := range entries {
		if !window.Contains(e.date) {
			continue
		}
		key := models.MonthOf(e.date)
		b, ok := byMonth[key]
		if !ok {
			nb := models.NewMonthBucket(key)
			b = &nb
			byMonth[key] = b
		}
		b.Count++

		switch {
		case e.amount.IsPositive() && e.planned:
			b.PlannedIncome = b.PlannedIncome.Add(e.amount)
		case e.amount.IsPositive():
			b.ActualIncome = b.ActualIncome.Add(e.amount)
		case e.amount.IsNegative() && e.planned:
			b.PlannedExpense = b.PlannedExpense.Add(e.amount.Abs())
		case e.amount.IsNegative():
			b.ActualExpense = b.ActualExpense.Add(e.amount.Abs())
		}
	}

	current := models.MonthOf(now)
	buckets := make([]models.MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		finish(b, current)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key.Before(buckets[j].Key)
	})
	return buckets
}

// finish derives the net cash flow and marks months after the current one
func finish(b *models.MonthBucket, current models.MonthKey) {
	b.NetCashflow = b.ActualIncome.Add(b.PlannedIncome).Sub(b.ActualExpense).Sub(b.PlannedExpense)
	b.Projected = current.Before(b.Key)
}

// FillGaps returns buckets with an empty entry for every window month that
// has none. The input must be ordered as ComputeForecast returns it.
func FillGaps(buckets []models.MonthBucket, window models.Window, now time.Time) []models.MonthBucket {
	have := make(map[models.MonthKey]models.MonthBucket, len(buckets))
	for _, b := range buckets {
		have[b.Key] = b
	}

	current := models.MonthOf(now)
	months := window.Months()
	filled := make([]models.MonthBucket, 0, len(months))
	for _, key := range months {
		b, ok := have[key]
		if !ok {
			b = models.NewMonthBucket(key)
			finish(&b, current)
		}
		filled = append(filled, b)
	}
	return filled
}

// Build validates the snapshot once and computes both the summary and the
// forecast for viewRange.
func Build(transactions []models.Transaction, now time.Time, viewRange models.ViewRange, opts Options) (*models.Dashboard, error) {
	window, err := WindowFor(now, viewRange)
	if err != nil {
		return nil, err
	}
	entries, err := prepare(transactions, now.Location())
	if err != nil {
		return nil, err
	}

	buckets := bucketize(entries, window, now)
	if opts.FillGaps {
		buckets = FillGaps(buckets, window, now)
	}

	return &models.Dashboard{
		Summary:   summarize(entries, now),
		ViewRange: viewRange,
		Window:    window,
		Buckets:   buckets,
		AsOf:      now.Format(time.RFC3339),
	}, nil
}
