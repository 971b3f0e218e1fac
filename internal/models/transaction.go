package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format for stored transactions
const DateLayout = "2006-01-02"

// TransactionType indicates whether a transaction is income or an expense
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Transaction represents a single recorded or planned money movement.
// Amount carries the direction: positive is income, negative is an expense.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type,omitempty"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	IsPlanned   bool            `json:"isPlanned"`
}

// dateLayouts are tried in order; anything after the calendar date is discarded
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a calendar date and anchors it at midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// ParseDate returns the transaction date as midnight in loc
func (t *Transaction) ParseDate(loc *time.Location) (time.Time, error) {
	d, err := ParseDate(t.Date, loc)
	if err != nil {
		return time.Time{}, &ValidationError{ID: t.ID, Field: "date", Value: t.Date, Reason: err.Error()}
	}
	return d, nil
}

// Validate checks the fields the aggregation depends on
func (t *Transaction) Validate() error {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return &ValidationError{ID: t.ID, Field: "amount", Value: fmt.Sprint(t.Amount), Reason: "amount must be a finite number"}
	}
	_, err := t.ParseDate(time.UTC)
	return err
}

// Direction returns the type implied by the sign of the amount
func (t *Transaction) Direction() TransactionType {
	if t.Amount >= 0 {
		return Income
	}
	return Expense
}

// AbsAmount returns the absolute value of the amount
func (t *Transaction) AbsAmount() float64 {
	return math.Abs(t.Amount)
}

// ComputeHash generates a content hash for duplicate detection on import
func (t *Transaction) ComputeHash() string {
	desc := strings.ToLower(strings.TrimSpace(t.Description))
	amount := fmt.Sprintf("%.2f", t.Amount)

	input := fmt.Sprintf("%s|%s|%s", t.Date, desc, amount)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// TransactionInput is the create/update payload accepted from the form layer.
// Amount may be given unsigned together with Type.
type TransactionInput struct {
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	IsPlanned   bool            `json:"isPlanned"`
}

// Normalize turns the input into a transaction the way the entry form does:
// the sign follows Type, the category is canonicalised, and an entry dated
// after now is always stored as planned.
func (in TransactionInput) Normalize(id string, now time.Time) (Transaction, error) {
	t := Transaction{
		ID:          id,
		Amount:      in.Amount,
		Category:    ParseCategory(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        strings.TrimSpace(in.Date),
		IsPlanned:   in.IsPlanned,
	}

	switch in.Type {
	case Income:
		t.Amount = math.Abs(in.Amount)
	case Expense:
		t.Amount = -math.Abs(in.Amount)
	case "":
	default:
		return Transaction{}, &ValidationError{ID: id, Field: "type", Value: string(in.Type), Reason: "type must be income or expense"}
	}
	if t.Amount == 0 {
		return Transaction{}, &ValidationError{ID: id, Field: "amount", Value: "0", Reason: "amount must be non-zero"}
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}

	date, _ := t.ParseDate(now.Location())
	if date.After(now) {
		t.IsPlanned = true
	}
	t.Date = date.Format(DateLayout)
	t.Type = t.Direction()
	return t, nil
}

// TransactionSet wraps a slice with filtering and ordering helpers
type TransactionSet struct {
	Transactions []Transaction
}

// NewTransactionSet creates a new TransactionSet from a slice
func NewTransactionSet(transactions []Transaction) *TransactionSet {
	return &TransactionSet{Transactions: transactions}
}

// Len returns the number of transactions
func (ts *TransactionSet) Len() int {
	return len(ts.Transactions)
}

// FilterBySearch keeps transactions whose description or category contains
// the search term, ignoring case. An empty term keeps everything.
func (ts *TransactionSet) FilterBySearch(search string) *TransactionSet {
	searchLower := strings.ToLower(strings.TrimSpace(search))
	if searchLower == "" {
		return ts.Copy()
	}
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if strings.Contains(strings.ToLower(t.Description), searchLower) ||
			strings.Contains(strings.ToLower(string(t.Category)), searchLower) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// SortByDateDesc sorts transactions newest first. Dates that do not parse
// sort last; ties keep their original order.
func (ts *TransactionSet) SortByDateDesc() *TransactionSet {
	type dated struct {
		t    Transaction
		date time.Time
	}
	items := make([]dated, len(ts.Transactions))
	for i, t := range ts.Transactions {
		items[i].t = t
		items[i].date, _ = ParseDate(t.Date, time.UTC)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].date.After(items[j].date)
	})

	sorted := make([]Transaction, len(items))
	for i := range items {
		sorted[i] = items[i].t
	}
	return &TransactionSet{Transactions: sorted}
}

// Copy creates a shallow copy of the TransactionSet
func (ts *TransactionSet) Copy() *TransactionSet {
	copied := make([]Transaction, len(ts.Transactions))
	copy(copied, ts.Transactions)
	return &TransactionSet{Transactions: copied}
}
