package aggregator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/models"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(id string, amount float64, planned bool, date string) models.Transaction {
	return models.Transaction{ID: id, Amount: amount, IsPlanned: planned, Date: date, Category: models.CategoryOther}
}

func assertAmount(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromFloat(want).Equal(got), "want %v, got %s", want, got)
}

func januaryActuals() []models.Transaction {
	return []models.Transaction{
		tx("a1", 1000, false, "2024-01-05"),
		tx("a2", -400, false, "2024-01-10"),
	}
}

func TestComputeSummary_RealizedOnly(t *testing.T) {
	s, err := ComputeSummary(januaryActuals(), day("2024-01-15"))
	require.NoError(t, err)

	assertAmount(t, 600, s.ActualBalance)
	assertAmount(t, 1000, s.TotalActualIncome)
	assertAmount(t, 400, s.TotalActualExpense)
	assertAmount(t, 600, s.ProjectedBalance)
}

func TestComputeSummary_PlannedIncomeIsProjected(t *testing.T) {
	txns := append(januaryActuals(), tx("b1", 2000, true, "2024-02-01"))

	s, err := ComputeSummary(txns, day("2024-01-15"))
	require.NoError(t, err)

	assertAmount(t, 600, s.ActualBalance)
	assertAmount(t, 2600, s.ProjectedBalance)
	assertAmount(t, 1000, s.TotalActualIncome)
}

func TestComputeSummary_FutureDatedIsUpcoming(t *testing.T) {
	now := day("2024-01-15")
	future := tx("c1", -500, false, "2024-03-01")

	class, err := Classify(future, now)
	require.NoError(t, err)
	assert.Equal(t, models.Upcoming, class)

	s, err := ComputeSummary([]models.Transaction{future}, now)
	require.NoError(t, err)
	assertAmount(t, 0, s.TotalActualExpense)
	assertAmount(t, 0, s.ActualBalance)
	assertAmount(t, -500, s.ProjectedBalance)
}

func TestComputeSummary_EmptySnapshot(t *testing.T) {
	now := day("2024-01-15")

	s, err := ComputeSummary(nil, now)
	require.NoError(t, err)
	assert.True(t, s.ActualBalance.IsZero())
	assert.True(t, s.ProjectedBalance.IsZero())
	assert.True(t, s.TotalActualIncome.IsZero())
	assert.True(t, s.TotalActualExpense.IsZero())

	buckets, err := ComputeForecast(nil, now, models.ViewRange3M)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    string
		planned bool
		want    models.Classification
	}{
		{"past actual", "2024-01-10", false, models.Realized},
		{"same day actual", "2024-01-15", false, models.Realized},
		{"future actual", "2024-01-16", false, models.Upcoming},
		{"past planned", "2023-12-01", true, models.Upcoming},
		{"future planned", "2024-02-01", true, models.Upcoming},
		{"datetime string", "2024-01-10T09:00:00Z", false, models.Realized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tx("x", 10, tt.planned, tt.date), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_DatedExactlyNow(t *testing.T) {
	now := day("2024-01-15")

	got, err := Classify(tx("x", 10, false, "2024-01-15"), now)
	require.NoError(t, err)
	assert.Equal(t, models.Realized, got)
}

func TestClassify_InvalidDate(t *testing.T) {
	_, err := Classify(tx("bad", 10, false, "15/01/2024"), day("2024-01-15"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		name      string
		now       string
		viewRange models.ViewRange
		start     string
		end       string
	}{
		{"3m mid-year", "2024-06-15", models.ViewRange3M, "2024-05-01", "2024-08-31"},
		{"6m mid-year", "2024-06-15", models.ViewRange6M, "2024-03-01", "2024-09-30"},
		{"3m crosses year start", "2024-01-31", models.ViewRange3M, "2023-12-01", "2024-03-31"},
		{"6m crosses year end", "2024-11-02", models.ViewRange6M, "2024-08-01", "2025-02-28"},
		{"3m leap february end", "2023-12-10", models.ViewRange3M, "2023-11-01", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WindowFor(day(tt.now), tt.viewRange)
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.Start.Format(models.DateLayout))
			assert.Equal(t, tt.end, w.End.Format(models.DateLayout))
		})
	}
}

func TestWindowFor_UnknownRange(t *testing.T) {
	_, err := WindowFor(day("2024-06-15"), models.ViewRange("12m"))
	require.Error(t, err)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "viewRange", verr.Field)
}

func TestComputeForecast_UnknownRangeFails(t *testing.T) {
	_, err := ComputeForecast(januaryActuals(), day("2024-01-15"), "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestComputeForecast_Buckets(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("1", 3000, false, "2024-05-03"),
		tx("2", -1200, false, "2024-05-20"),
		tx("3", -80, true, "2024-05-28"), // planned but in the past
		tx("4", 3000, true, "2024-07-01"),
		tx("5", -1200, true, "2024-07-02"),
		tx("6", -50, false, "2024-07-09"), // future but not planned
		tx("7", 999, false, "2024-04-30"), // before window
		tx("8", 999, true, "2024-09-01"),  // after window
	}

	buckets, err := ComputeForecast(txns, now, models.ViewRange3M)
	require.NoError(t, err)
	require.Len(t, buckets, 2, "June has no transactions and is omitted")

	may := buckets[0]
	assert.Equal(t, "2024-05", may.Month)
	assert.Equal(t, "May 2024", may.Label)
	assertAmount(t, 3000, may.ActualIncome)
	assertAmount(t, 1200, may.ActualExpense)
	assertAmount(t, 0, may.PlannedIncome)
	assertAmount(t, 80, may.PlannedExpense)
	assertAmount(t, 1720, may.NetCashflow)
	assert.False(t, may.Projected)
	assert.Equal(t, 3, may.Count)

	july := buckets[1]
	assert.Equal(t, "2024-07", july.Month)
	assertAmount(t, 0, july.ActualIncome)
	assertAmount(t, 50, july.ActualExpense)
	assertAmount(t, 3000, july.PlannedIncome)
	assertAmount(t, 1200, july.PlannedExpense)
	assertAmount(t, 1750, july.NetCashflow)
	assert.True(t, july.Projected)
}

func TestComputeForecast_WindowBoundariesInclusive(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("first", 10, false, "2024-05-01"),
		tx("last", 20, true, "2024-08-31"),
		tx("before", 40, false, "2024-04-30"),
		tx("after", 80, true, "2024-09-01"),
	}

	buckets, err := ComputeForecast(txns, now, models.ViewRange3M)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assertAmount(t, 10, buckets[0].ActualIncome)
	assertAmount(t, 20, buckets[1].PlannedIncome)
}

func TestComputeForecast_ChronologicalAcrossYears(t *testing.T) {
	now := day("2024-01-10")
	txns := []models.Transaction{
		tx("feb", 1, false, "2024-02-01"),
		tx("dec", 1, false, "2023-12-31"),
		tx("jan", 1, false, "2024-01-01"),
	}

	buckets, err := ComputeForecast(txns, now, models.ViewRange3M)
	require.NoError(t, err)
	var months []string
	for _, b := range buckets {
		months = append(months, b.Month)
	}
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02"}, months)
}

// The summary treats a past planned entry as upcoming, while the forecast
// split looks at the planned flag only. Both views are checked together.
func TestPlannedFlagAsymmetry(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("past-planned", -300, true, "2024-06-01"),
		tx("future-actual", 500, false, "2024-07-01"),
	}

	s, err := ComputeSummary(txns, now)
	require.NoError(t, err)
	assertAmount(t, 0, s.ActualBalance)
	assertAmount(t, 200, s.ProjectedBalance)

	buckets, err := ComputeForecast(txns, now, models.ViewRange3M)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assertAmount(t, 300, buckets[0].PlannedExpense)
	assertAmount(t, 0, buckets[0].ActualExpense)
	assertAmount(t, 500, buckets[1].ActualIncome)
	assertAmount(t, 0, buckets[1].PlannedIncome)
}

func TestZeroAmountIsNoOp(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{tx("zero", 0, false, "2024-06-01")}

	s, err := ComputeSummary(txns, now)
	require.NoError(t, err)
	assert.True(t, s.ActualBalance.IsZero())
	assert.True(t, s.TotalActualIncome.IsZero())
	assert.True(t, s.TotalActualExpense.IsZero())

	buckets, err := ComputeForecast(txns, now, models.ViewRange3M)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].NetCashflow.IsZero())
}

func TestValidationFailsWholeCall(t *testing.T) {
	now := day("2024-06-15")

	tests := []struct {
		name  string
		bad   models.Transaction
		field string
	}{
		{"unparseable date", tx("bad", 10, false, "not-a-date"), "date"},
		{"empty date", tx("bad", 10, false, ""), "date"},
		{"impossible date", tx("bad", 10, false, "2024-02-30"), "date"},
		{"NaN amount", tx("bad", math.NaN(), false, "2024-06-01"), "amount"},
		{"infinite amount", tx("bad", math.Inf(-1), false, "2024-06-01"), "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := append(januaryActuals(), tt.bad)

			_, err := ComputeSummary(txns, now)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "summary: %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, "bad", verr.ID)

			buckets, err := ComputeForecast(txns, now, models.ViewRange6M)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Nil(t, buckets)

			d, err := Build(txns, now, models.ViewRange6M, Options{})
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Nil(t, d)
		})
	}
}

func TestProperties(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("1", 1234.56, false, "2024-03-02"),
		tx("2", -0.1, false, "2024-03-31"),
		tx("3", -0.2, true, "2024-04-15"),
		tx("4", 75.25, true, "2024-05-01"),
		tx("5", -19.99, false, "2024-06-15"),
		tx("6", -19.99, false, "2024-06-16"),
		tx("7", 4000, true, "2024-09-30"),
		tx("8", -3.33, false, "2024-10-01"),
		tx("9", 12, false, "2023-01-01"),
	}

	for _, vr := range []models.ViewRange{models.ViewRange3M, models.ViewRange6M} {
		t.Run(string(vr), func(t *testing.T) {
			s, err := ComputeSummary(txns, now)
			require.NoError(t, err)
			assert.True(t, s.ActualBalance.Equal(s.TotalActualIncome.Sub(s.TotalActualExpense)))

			window, err := WindowFor(now, vr)
			require.NoError(t, err)
			buckets, err := ComputeForecast(txns, now, vr)
			require.NoError(t, err)

			netSum, inWindow := decimal.Zero, decimal.Zero
			for _, b := range buckets {
				netSum = netSum.Add(b.NetCashflow)
				for _, v := range []decimal.Decimal{b.ActualIncome, b.ActualExpense, b.PlannedIncome, b.PlannedExpense} {
					assert.False(t, v.IsNegative())
				}
			}
			for _, tr := range txns {
				d, _ := tr.ParseDate(now.Location())
				if window.Contains(d) {
					inWindow = inWindow.Add(decimal.NewFromFloat(tr.Amount))
				}
			}
			assert.True(t, netSum.Equal(inWindow), "net %s != in-window %s", netSum, inWindow)

			for _, tr := range txns {
				c, err := Classify(tr, now)
				require.NoError(t, err)
				assert.True(t, (c == models.Realized) != (c == models.Upcoming))
			}
		})
	}
}

func TestIdempotentAndInputUntouched(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("2", -50, true, "2024-07-02"),
		tx("1", 100, false, "2024-05-02"),
	}
	original := append([]models.Transaction(nil), txns...)

	first, err := Build(txns, now, models.ViewRange6M, Options{})
	require.NoError(t, err)
	second, err := Build(txns, now, models.ViewRange6M, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, original, txns)
}

func TestFillGaps(t *testing.T) {
	now := day("2024-06-15")
	txns := []models.Transaction{
		tx("1", 100, false, "2024-05-02"),
		tx("2", -50, true, "2024-08-02"),
	}

	d, err := Build(txns, now, models.ViewRange3M, Options{FillGaps: true})
	require.NoError(t, err)

	var months []string
	for _, b := range d.Buckets {
		months = append(months, b.Month)
	}
	assert.Equal(t, []string{"2024-05", "2024-06", "2024-07", "2024-08"}, months)
	assert.True(t, d.Buckets[1].NetCashflow.IsZero())
	assert.Equal(t, 0, d.Buckets[2].Count)
	assert.True(t, d.Buckets[2].Projected)
	assertAmount(t, 50, d.Buckets[3].PlannedExpense)
}

func TestBuild(t *testing.T) {
	now := day("2024-01-15")
	txns := append(januaryActuals(), tx("b1", 2000, true, "2024-02-01"))

	d, err := Build(txns, now, models.ViewRange3M, Options{})
	require.NoError(t, err)

	assertAmount(t, 2600, d.Summary.ProjectedBalance)
	assert.Equal(t, models.ViewRange3M, d.ViewRange)
	assert.Equal(t, "2023-12-01", d.Window.Start.Format(models.DateLayout))
	assert.Equal(t, "2024-03-31", d.Window.End.Format(models.DateLayout))
	require.Len(t, d.Buckets, 2)
	assertAmount(t, 600, d.Buckets[0].NetCashflow)
	assertAmount(t, 2000, d.Buckets[1].NetCashflow)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	var c Clock = FixedClock(at)
	assert.True(t, c.Now().Equal(at))
}
