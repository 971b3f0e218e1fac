package models

import "strings"

// Category labels a transaction. The known labels form a closed set; any
// other label is kept verbatim and reported as unrecognized.
type Category string

const (
	CategorySalary        Category = "Salary"
	CategoryInvestments   Category = "Investments"
	CategoryHousing       Category = "Housing"
	CategoryUtilities     Category = "Utilities"
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryShopping      Category = "Shopping"
	CategoryInsurance     Category = "Insurance"
	CategoryBills         Category = "Bills"
	CategoryOther         Category = "Other"
)

var knownCategories = []Category{
	CategorySalary,
	CategoryInvestments,
	CategoryHousing,
	CategoryUtilities,
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryEducation,
	CategoryShopping,
	CategoryInsurance,
	CategoryBills,
	CategoryOther,
}

// Categories returns the known categories in form order
func Categories() []Category {
	out := make([]Category, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// ParseCategory maps a label onto its canonical known category, matching
// case-insensitively. Blank labels become Other; unknown labels pass through.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther
	}
	for _, c := range knownCategories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return Category(s)
}

// IsKnown reports whether c is one of the known categories
func (c Category) IsKnown() bool {
	for _, k := range knownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// String returns the label
func (c Category) String() string {
	return string(c)
}
