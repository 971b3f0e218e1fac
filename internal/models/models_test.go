package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      TransactionInput
		amount  float64
		date    string
		planned bool
	}{
		{"expense sign from type", TransactionInput{Amount: 50, Type: Expense, Date: "2024-06-01"}, -50, "2024-06-01", false},
		{"income sign from type", TransactionInput{Amount: -20, Type: Income, Date: "2024-06-01"}, 20, "2024-06-01", false},
		{"signed amount without type", TransactionInput{Amount: -7.5, Date: "2024-06-01"}, -7.5, "2024-06-01", false},
		{"today is not planned", TransactionInput{Amount: 1, Date: "2024-06-15"}, 1, "2024-06-15", false},
		{"future forced to planned", TransactionInput{Amount: 1, Date: "2024-07-01"}, 1, "2024-07-01", true},
		{"past keeps planned flag", TransactionInput{Amount: 1, Date: "2024-05-01", IsPlanned: true}, 1, "2024-05-01", true},
		{"timestamp truncated", TransactionInput{Amount: 1, Date: "2024-06-01T10:00:00Z"}, 1, "2024-06-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := tt.in.Normalize("id-1", now)
			require.NoError(t, err)
			assert.Equal(t, "id-1", tx.ID)
			assert.Equal(t, tt.amount, tx.Amount)
			assert.Equal(t, tt.date, tx.Date)
			assert.Equal(t, tt.planned, tx.IsPlanned)
			assert.Equal(t, tx.Direction(), tx.Type)
			assert.Equal(t, CategoryOther, tx.Category)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		in    TransactionInput
		field string
	}{
		{TransactionInput{Amount: 0, Date: "2024-06-01"}, "amount"},
		{TransactionInput{Amount: 5, Type: "transfer", Date: "2024-06-01"}, "type"},
		{TransactionInput{Amount: 5, Date: "yesterday"}, "date"},
		{TransactionInput{Amount: 5}, "date"},
	}

	for _, tt := range tests {
		_, err := tt.in.Normalize("x", now)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, &ValidationError{Field: tt.field}, "input %+v", tt.in)
	}
}

func TestValidationErrorMatching(t *testing.T) {
	var err error = &ValidationError{ID: "a", Field: "date", Value: "bad", Reason: "nope"}

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, &ValidationError{}))
	assert.False(t, errors.Is(err, &ValidationError{Field: "amount"}))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "transaction a")
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryFood, ParseCategory("food"))
	assert.Equal(t, CategoryOther, ParseCategory("  "))
	assert.Equal(t, Category("Pets"), ParseCategory("Pets"))
	assert.False(t, Category("Pets").IsKnown())
	assert.True(t, CategoryBills.IsKnown())
	assert.Len(t, Categories(), 13)
}

func TestParseViewRange(t *testing.T) {
	r, err := ParseViewRange("6m")
	require.NoError(t, err)
	back, forward, err := r.Span()
	require.NoError(t, err)
	assert.Equal(t, 3, back)
	assert.Equal(t, 3, forward)

	_, err = ParseViewRange("12m")
	assert.ErrorIs(t, err, &ValidationError{Field: "viewRange"})
}

func TestWindowMonths(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	}

	var got []string
	for _, k := range w.Months() {
		got = append(got, k.String())
	}
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, got)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.End.AddDate(0, 0, 1)))

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-11-01","end":"2025-02-28"}`, string(data))
	assert.Equal(t, "Mar 2025", MonthOf(w.End).Next().Label())
}

func TestTransactionSetSearchAndSort(t *testing.T) {
	set := NewTransactionSet([]Transaction{
		{ID: "a", Description: "Rent", Category: CategoryHousing, Date: "2024-06-01"},
		{ID: "b", Description: "Groceries", Category: CategoryFood, Date: "2024-06-10"},
		{ID: "c", Description: "Weekly shop", Category: CategoryFood, Date: "2024-05-20"},
	})

	food := set.FilterBySearch("FOOD").SortByDateDesc()
	require.Equal(t, 2, food.Len())
	assert.Equal(t, "b", food.Transactions[0].ID)
	assert.Equal(t, "c", food.Transactions[1].ID)

	assert.Equal(t, 3, set.FilterBySearch("").Len())
	assert.Equal(t, 1, set.FilterBySearch("rent").Len())
}

func TestComputeHashIgnoresCaseAndSpace(t *testing.T) {
	a := Transaction{Date: "2024-06-01", Description: " Coffee ", Amount: -3.5}
	b := Transaction{Date: "2024-06-01", Description: "coffee", Amount: -3.50}
	c := Transaction{Date: "2024-06-02", Description: "coffee", Amount: -3.50}

	assert.Equal(t, a.ComputeHash(), b.ComputeHash())
	assert.NotEqual(t, a.ComputeHash(), c.ComputeHash())
}
