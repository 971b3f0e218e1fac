package classifier

import (
	"strings"

	"cashflow/internal/models"
)

// rule maps description keywords (lowercase) onto a category
type rule struct {
	category models.Category
	keywords []string
}

// Rules are checked in order; the first keyword hit wins
var rules = []rule{
	{models.CategorySalary, []string{
		"payroll", "salary", "paycheck", "direct deposit", "deposit direct",
		"direct dep", "wages", "net pay", "employer", "bonus", "commission",
	}},
	{models.CategoryInvestments, []string{
		"dividend", "interest earned", "brokerage", "vanguard", "fidelity",
		"schwab", "401k", "ira contribution", "crypto",
	}},
	{models.CategoryHousing, []string{
		"rent", "mortgage", "hoa", "landlord", "property tax", "apartment",
	}},
	{models.CategoryUtilities, []string{
		"electric", "water bill", "gas company", "power", "sewer", "trash",
		"internet", "comcast", "verizon", "at&t", "t-mobile",
	}},
	{models.CategoryFood, []string{
		"grocery", "groceries", "supermarket", "restaurant", "cafe", "coffee",
		"starbucks", "mcdonald", "pizza", "doordash", "uber eats", "grubhub",
		"kroger", "safeway", "whole foods", "trader joe",
	}},
	{models.CategoryTransport, []string{
		"uber", "lyft", "taxi", "fuel", "shell", "chevron", "exxon", "parking",
		"transit", "metro", "toll", "airline", "gas station",
	}},
	{models.CategoryEntertainment, []string{
		"netflix", "spotify", "hulu", "disney", "cinema", "movie", "theater",
		"steam", "playstation", "xbox", "concert", "ticketmaster",
	}},
	{models.CategoryHealthcare, []string{
		"pharmacy", "cvs", "walgreens", "doctor", "dental", "hospital",
		"clinic", "medical", "optometr",
	}},
	{models.CategoryEducation, []string{
		"tuition", "university", "college", "school", "udemy", "coursera",
		"textbook",
	}},
	{models.CategoryShopping, []string{
		"amazon", "target", "walmart", "costco", "best buy", "ebay", "etsy",
		"ikea", "clothing",
	}},
	{models.CategoryInsurance, []string{
		"insurance", "geico", "state farm", "progressive", "allstate",
		"premium",
	}},
	{models.CategoryBills, []string{
		"bill payment", "autopay", "subscription", "membership", "phone bill",
		"loan payment",
	}},
}

// IncomeKeywords mark a positive amount as earned income (lowercase)
var IncomeKeywords = []string{
	"payroll", "salary", "paycheck",
	"deposit direct", "direct deposit",
	"dividend", "interest earned",
	"bonus", "freelance", "commission",
	"income", "wages", "earnings",
	"employer", "net pay", "direct dep",
}

// InternalTransferPatterns identify money moved between the user's own
// accounts (lowercase)
var InternalTransferPatterns = []string{
	"funds transfer",
	"internal transfer",
	"transfer to savings",
	"transfer from savings",
	"credit card payment",
	"automatic payment - thank you",
	"cc payment",
	"recurring scheduled payment",
}

// Suggest picks a category for a transaction from its description. Positive
// amounts without a keyword hit fall back to Salary when they look like
// earnings; everything else falls back to Other.
func Suggest(description string, amount float64) models.Category {
	descLower := strings.ToLower(strings.TrimSpace(description))

	for _, r := range rules {
		if containsAny(descLower, r.keywords) {
			return r.category
		}
	}
	if amount > 0 && containsAny(descLower, IncomeKeywords) {
		return models.CategorySalary
	}
	return models.CategoryOther
}

// ClassifyTransactions fills in the category of every transaction that has
// none or only the generic Other
func ClassifyTransactions(transactions []models.Transaction) []models.Transaction {
	for i := range transactions {
		t := &transactions[i]
		if t.Category == "" || t.Category == models.CategoryOther {
			t.Category = Suggest(t.Description, t.Amount)
		}
	}
	return transactions
}

// IsInternalTransfer checks if a transaction is an internal transfer
func IsInternalTransfer(t *models.Transaction) bool {
	descLower := strings.ToLower(strings.TrimSpace(t.Description))

	for _, pattern := range InternalTransferPatterns {
		if strings.Contains(descLower, pattern) {
			// Don't filter if it looks like income
			if t.Amount > 0 && containsAny(descLower, IncomeKeywords) {
				return false
			}
			return true
		}
	}

	return strings.EqualFold(strings.TrimSpace(string(t.Category)), "credit card payment")
}

// containsAny checks if text contains any of the keywords
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
