package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Canonical country buckets. Employment tables spell China differently, see CountryKey.
const (
	CountryAllAreas    = "allchargeabilityareasexceptthoselisted"
	CountryChina       = "china"
	CountryIndia       = "india"
	CountryMexico      = "mexico"
	CountryPhilippines = "philippines"

	employmentChinaKey = "china-mainlandborn"
)

// countryAliases maps normalized spellings to their canonical bucket.
var countryAliases = map[string]string{
	CountryAllAreas:         CountryAllAreas,
	"allchargeabilityareas": CountryAllAreas,
	"allchargeability":      CountryAllAreas,
	"allcountries":          CountryAllAreas,
	"restofworld":           CountryAllAreas,
	"row":                   CountryAllAreas,
	CountryChina:            CountryChina,
	employmentChinaKey:      CountryChina,
	"china(mainlandborn)":   CountryChina,
	"chinamainlandborn":     CountryChina,
	"china-mainland":        CountryChina,
	"mainlandchina":         CountryChina,
	CountryIndia:            CountryIndia,
	CountryMexico:           CountryMexico,
	CountryPhilippines:      CountryPhilippines,
}

// combiningMarks covers the Combining Diacritical Marks block left behind by NFKD.
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// NormalizeKey canonicalizes a raw table key: compatibility decomposition, diacritics
// and whitespace (including U+00A0) removed, lower-cased. NormalizeKey is idempotent.
func NormalizeKey(raw string) string {
	decomposed := norm.NFKD.String(raw)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.IsSpace(r) || unicode.Is(combiningMarks, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CanonicalCountry returns the family-independent bucket for a country spelling.
// Unknown countries keep their normalized key as their bucket.
func CanonicalCountry(raw string) string {
	key := NormalizeKey(raw)
	if bucket, ok := countryAliases[key]; ok {
		return bucket
	}
	return key
}

// CountryKey returns the key a family's tables use for a country. China is stored as
// "china" in family tables and "china-mainlandborn" in employment tables.
func CountryKey(family Family, raw string) string {
	bucket := CanonicalCountry(raw)
	if bucket == CountryChina && family == EmploymentBased {
		return employmentChinaKey
	}
	return bucket
}

// categoryAliases maps normalized internal category spellings seen in bulletins to
// the normalized key of the CategoryKeyMap entry.
var categoryAliases = map[string]string{
	"5th":                NormalizeKey(eb5InternalKey),
	"5thunreserved":      NormalizeKey(eb5InternalKey),
	"otherworkers":       "otherworkers",
	"3rdotherworkers":    "otherworkers",
	"otherworkers(eb-3)": "otherworkers",
}

// CategoryKey normalizes an internal category key as stored in a bulletin table.
func CategoryKey(raw string) string {
	key := NormalizeKey(raw)
	if alias, ok := categoryAliases[key]; ok {
		return alias
	}
	if strings.HasPrefix(key, "5thunreserved(") {
		return NormalizeKey(eb5InternalKey)
	}
	return key
}
