package domain

import (
	"fmt"
	"strings"
)

const eb5InternalKey = "5th Unreserved (including C5, T5, I5, R5, NU, RU)"

// Category is one user-facing preference category and the bulletin key it maps to.
type Category struct {
	Label       string
	Family      Family
	InternalKey string
	Description string
}

// categoryKeyMap is total: every user-facing label has exactly one internal key per family.
var categoryKeyMap = map[Family][]Category{
	FamilyBased: {
		{Label: "F1", Family: FamilyBased, InternalKey: "F1", Description: "Unmarried sons and daughters of U.S. citizens"},
		{Label: "F2A", Family: FamilyBased, InternalKey: "F2A", Description: "Spouses and children of permanent residents"},
		{Label: "F2B", Family: FamilyBased, InternalKey: "F2B", Description: "Unmarried adult sons and daughters of permanent residents"},
		{Label: "F3", Family: FamilyBased, InternalKey: "F3", Description: "Married sons and daughters of U.S. citizens"},
		{Label: "F4", Family: FamilyBased, InternalKey: "F4", Description: "Brothers and sisters of adult U.S. citizens"},
	},
	EmploymentBased: {
		{Label: "EB1", Family: EmploymentBased, InternalKey: "1st", Description: "Priority workers"},
		{Label: "EB2", Family: EmploymentBased, InternalKey: "2nd", Description: "Advanced degree professionals and exceptional ability"},
		{Label: "EB3", Family: EmploymentBased, InternalKey: "3rd", Description: "Skilled workers and professionals"},
		{Label: "Other Workers", Family: EmploymentBased, InternalKey: "Other Workers", Description: "Unskilled workers under EB3"},
		{Label: "EB4", Family: EmploymentBased, InternalKey: "4th", Description: "Certain special immigrants"},
		{Label: "EB5", Family: EmploymentBased, InternalKey: eb5InternalKey, Description: "Immigrant investors, unreserved"},
	},
}

// Categories returns the categories of a family in display order.
func Categories(family Family) []Category {
	out := make([]Category, len(categoryKeyMap[family]))
	copy(out, categoryKeyMap[family])
	return out
}

// labelKey folds a user-facing label so "EB-2", "eb2" and "EB 2" compare equal.
func labelKey(label string) string {
	return strings.ReplaceAll(NormalizeKey(label), "-", "")
}

// ResolveCategory maps a user-facing label to its Category for the given family.
func ResolveCategory(family Family, label string) (Category, error) {
	if strings.TrimSpace(label) == "" {
		return Category{}, fmt.Errorf("%w: category", ErrMissingSelection)
	}
	entries, ok := categoryKeyMap[family]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidFamily, family)
	}
	want := labelKey(label)
	for _, entry := range entries {
		if labelKey(entry.Label) == want {
			return entry, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %s %q", ErrUnknownCategory, family, label)
}

// Country is a chargeability area option offered to users.
type Country struct {
	Label string
	Key   string
}

// Countries lists the chargeability areas published in every bulletin.
func Countries() []Country {
	return []Country{
		{Label: "All Chargeability Areas", Key: CountryAllAreas},
		{Label: "China (mainland born)", Key: CountryChina},
		{Label: "India", Key: CountryIndia},
		{Label: "Mexico", Key: CountryMexico},
		{Label: "Philippines", Key: CountryPhilippines},
	}
}

// CountryLabel returns the display label for a canonical bucket.
func CountryLabel(raw string) string {
	bucket := CanonicalCountry(raw)
	for _, c := range Countries() {
		if c.Key == bucket {
			return c.Label
		}
	}
	return strings.TrimSpace(raw)
}

// FamilyCatalog groups the categories of one family.
type FamilyCatalog struct {
	Family     Family
	Label      string
	Categories []Category
}

// Catalog describes every selectable family, category and country.
type Catalog struct {
	Families  []FamilyCatalog
	Countries []Country
}

// NewCatalog builds the selection catalog.
func NewCatalog() Catalog {
	families := make([]FamilyCatalog, 0, len(Families))
	for _, f := range Families {
		families = append(families, FamilyCatalog{Family: f, Label: f.Label(), Categories: Categories(f)})
	}
	return Catalog{Families: families, Countries: Countries()}
}
