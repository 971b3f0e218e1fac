package dataloader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/models"
	"cashflow/internal/services/classifier"
)

// DataLoader turns bank CSV exports into transactions
type DataLoader struct {
	now func() time.Time
}

// SkippedRow records a CSV line that could not be imported
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of one import
type Result struct {
	Transactions      []models.Transaction `json:"transactions"`
	Skipped           []SkippedRow         `json:"skipped"`
	FilteredTransfers int                  `json:"filteredTransfers"`
	Duplicates        int                  `json:"duplicates"`
}

// columnMappings maps common bank export column names (lowercase) to our
// standard names
var columnMappings = map[string][]string{
	"Date": {
		"date", "transaction date", "posted date", "post date",
		"trans date", "posting date",
	},
	"Description": {
		"description", "memo", "details", "payee", "name",
		"transaction description", "merchant", "narrative",
	},
	"Amount": {
		"amount", "value", "transaction amount", "sum",
	},
	"Category": {
		"category", "category name",
	},
	"Debit": {
		"debit", "withdrawal", "withdrawals", "money out", "expense",
	},
	"Credit": {
		"credit", "deposit", "deposits", "money in", "income",
	},
	"Planned": {
		"planned", "isplanned", "scheduled",
	},
}

// New creates a DataLoader. now decides which rows are future-dated.
func New(now func() time.Time) *DataLoader {
	if now == nil {
		now = time.Now
	}
	return &DataLoader{now: now}
}

// normalizeColumnName maps a bank export column name to our standard name
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	lower := strings.ToLower(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if lower == variant {
				return standard
			}
		}
	}
	return col
}

// buildColumnIndex creates a normalized column index from CSV headers
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(strings.TrimPrefix(col, "\ufeff"))
		// First match wins
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// Load reads a CSV export. Internal transfers are dropped, rows already present
// in existing (by content hash) or repeated within the file are dropped, and
// missing categories are suggested from the description.
func (dl *DataLoader) Load(r io.Reader, existing []models.Transaction) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.ValidationError{Field: "file", Reason: "file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	colIndex := buildColumnIndex(header)

	_, hasAmount := colIndex["Amount"]
	_, hasDebit := colIndex["Debit"]
	_, hasCredit := colIndex["Credit"]
	useDebitCredit := !hasAmount && (hasDebit || hasCredit)

	if _, ok := colIndex["Date"]; !ok {
		return nil, &models.ValidationError{Field: "header", Value: "Date", Reason: "missing required column"}
	}
	if !hasAmount && !useDebitCredit {
		return nil, &models.ValidationError{Field: "header", Value: "Amount", Reason: "missing required column Amount or Debit/Credit"}
	}

	now := dl.now()
	result := &Result{}
	var rows []models.Transaction
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: lineNum, Reason: err.Error()})
			continue
		}

		t, reason := parseRecord(record, colIndex, useDebitCredit, now)
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: lineNum, Reason: reason})
			continue
		}
		rows = append(rows, t)
	}

	before := len(rows)
	rows = filterInternalTransfers(rows)
	result.FilteredTransfers = before - len(rows)

	rows = classifier.ClassifyTransactions(rows)

	before = len(rows)
	rows = deduplicateTransactions(rows, existing)
	result.Duplicates = before - len(rows)

	for i := range rows {
		rows[i].ID = uuid.NewString()
	}
	result.Transactions = rows

	slog.Info("CSV import parsed",
		"rows", len(rows),
		"skipped", len(result.Skipped),
		"transfers", result.FilteredTransfers,
		"duplicates", result.Duplicates)
	return result, nil
}

// parseRecord builds a transaction from one CSV record, or returns why it
// was rejected
func parseRecord(record []string, colIndex map[string]int, useDebitCredit bool, now time.Time) (models.Transaction, string) {
	var t models.Transaction

	dateStr := field(record, colIndex, "Date")
	date := parseDate(dateStr, now.Location())
	if date.IsZero() {
		return t, fmt.Sprintf("could not parse date %q", dateStr)
	}
	t.Date = date.Format(models.DateLayout)

	var ok bool
	if useDebitCredit {
		t.Amount, ok = parseDebitCredit(record, colIndex)
	} else {
		t.Amount, ok = parseAmount(field(record, colIndex, "Amount"))
	}
	if !ok {
		return t, "could not parse amount"
	}
	if t.Amount == 0 {
		return t, "amount is zero"
	}

	t.Description = field(record, colIndex, "Description")
	if c := field(record, colIndex, "Category"); c != "" {
		t.Category = models.ParseCategory(c)
	}
	t.IsPlanned = parseBool(field(record, colIndex, "Planned")) || date.After(now)
	t.Type = t.Direction()
	return t, ""
}

func field(record []string, colIndex map[string]int, name string) string {
	if idx, ok := colIndex[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// parseDebitCredit combines Debit and Credit columns into a single amount.
// Credits are positive (income), debits are negative (expenses).
func parseDebitCredit(record []string, colIndex map[string]int) (float64, bool) {
	var amount float64
	seen := false

	if s := field(record, colIndex, "Credit"); s != "" {
		credit, ok := parseAmount(s)
		if !ok {
			return 0, false
		}
		seen = true
		if credit != 0 {
			amount = abs(credit)
		}
	}

	if s := field(record, colIndex, "Debit"); s != "" {
		debit, ok := parseAmount(s)
		if !ok {
			return 0, false
		}
		seen = true
		if debit != 0 {
			amount = -abs(debit)
		}
	}

	return amount, seen
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// dateFormats are the layouts accepted from bank exports
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// parseDate tries multiple date formats and anchors the result at midnight
// in loc. A zero time means no format matched.
func parseDate(s string, loc *time.Location) time.Time {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc)
		}
	}
	return time.Time{}
}

// parseAmount parses an amount string, handling currency symbols and
// parentheses for negatives
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// (100.00) -> -100.00
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return amount, !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

// filterInternalTransfers removes internal transfers to avoid double-counting
func filterInternalTransfers(transactions []models.Transaction) []models.Transaction {
	var filtered []models.Transaction
	for _, t := range transactions {
		if !classifier.IsInternalTransfer(&t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// deduplicateTransactions drops rows already present in existing. Each
// existing transaction absorbs at most one matching row, so identical rows
// within one file are kept as separate purchases while re-importing the same
// file adds nothing.
func deduplicateTransactions(transactions, existing []models.Transaction) []models.Transaction {
	stored := make(map[string]int, len(existing))
	for i := range existing {
		stored[existing[i].ComputeHash()]++
	}

	var unique []models.Transaction
	for _, t := range transactions {
		h := t.ComputeHash()
		if stored[h] > 0 {
			stored[h]--
			continue
		}
		unique = append(unique, t)
	}
	return unique
}
