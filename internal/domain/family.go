package domain

import (
	"fmt"
	"strings"
)

// Family identifies one visa family table of a bulletin.
type Family string

// Family values.
const (
	FamilyBased     Family = "family"
	EmploymentBased Family = "employment"
)

// Families lists every supported family in bulletin order.
var Families = []Family{FamilyBased, EmploymentBased}

// ParseFamily parses a user-supplied family name.
func ParseFamily(raw string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "family", "family-based", "family_based", "fb":
		return FamilyBased, nil
	case "employment", "employment-based", "employment_based", "eb":
		return EmploymentBased, nil
	case "":
		return "", fmt.Errorf("%w: family", ErrMissingSelection)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFamily, raw)
	}
}

// Label returns the display label for the family.
func (f Family) Label() string {
	switch f {
	case FamilyBased:
		return "Family-Based"
	case EmploymentBased:
		return "Employment-Based"
	default:
		return string(f)
	}
}

// Dimension identifies one of the two cutoff charts of a bulletin.
type Dimension string

// Dimension values, named after the bulletin document keys.
const (
	FinalAction Dimension = "final_action_dates"
	Filing      Dimension = "dates_for_filing"
)

// Dimensions lists both dimensions in bulletin order.
var Dimensions = []Dimension{FinalAction, Filing}

// ParseDimension parses a dimension name or its short alias.
func ParseDimension(raw string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "final_action_dates", "final_action", "final-action", "finalaction", "fad":
		return FinalAction, nil
	case "dates_for_filing", "filing", "dff":
		return Filing, nil
	case "":
		return "", fmt.Errorf("%w: dimension", ErrMissingSelection)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, raw)
	}
}

// Label returns the display label for the dimension.
func (d Dimension) Label() string {
	switch d {
	case FinalAction:
		return "Final Action Date"
	case Filing:
		return "Date for Filing"
	default:
		return string(d)
	}
}
