package domain

import "testing"

func TestNormalizeKeyIdempotent(t *testing.T) {
	variants := []string{
		"All Chargeability Areas Except Those Listed",
		"All\u00a0Chargeability\u00a0Areas Except Those Listed",
		"AllChargeabilityAreasExceptThoseListed",
		"CHINA-mainland born",
		"CHINA",
		"China (mainland born)",
		"  INDIA\t",
		"Méxíco",
		"PHILIPPINES",
		"5th Unreserved (including C5, T5, I5, R5, NU, RU)",
		"Other Workers",
	}
	for _, v := range variants {
		once := NormalizeKey(v)
		if twice := NormalizeKey(once); twice != once {
			t.Fatalf("NormalizeKey not idempotent for %q: %q then %q", v, once, twice)
		}
	}
}

func TestNormalizeKeyStripsMarksAndSpaces(t *testing.T) {
	if got := NormalizeKey(" Méxíco \u00a0"); got != "mexico" {
		t.Fatalf("NormalizeKey() = %q, want mexico", got)
	}
}

func TestAllAreasSpellingsConverge(t *testing.T) {
	spellings := []string{
		"All Chargeability Areas Except Those Listed",
		"All\u00a0Chargeability Areas Except Those Listed",
		"AllChargeabilityAreasExceptThoseListed",
		"All Chargeability Areas",
	}
	for _, family := range Families {
		for _, s := range spellings {
			if got := CountryKey(family, s); got != CountryAllAreas {
				t.Fatalf("CountryKey(%s, %q) = %q, want %q", family, s, got, CountryAllAreas)
			}
		}
	}
}

func TestChinaAliasIsFamilyAware(t *testing.T) {
	if CanonicalCountry("CHINA") != CanonicalCountry("CHINA-mainlandborn") {
		t.Fatal("expected both China spellings to share a bucket")
	}
	for _, raw := range []string{"CHINA", "CHINA-mainlandborn", "China (mainland born)"} {
		if got := CountryKey(FamilyBased, raw); got != "china" {
			t.Fatalf("family CountryKey(%q) = %q", raw, got)
		}
		if got := CountryKey(EmploymentBased, raw); got != "china-mainlandborn" {
			t.Fatalf("employment CountryKey(%q) = %q", raw, got)
		}
	}
}

func TestResolveCategory(t *testing.T) {
	cases := []struct {
		family Family
		label  string
		want   string
	}{
		{EmploymentBased, "EB2", "2nd"},
		{EmploymentBased, "eb-2", "2nd"},
		{EmploymentBased, "Other Workers", "Other Workers"},
		{EmploymentBased, "EB5", eb5InternalKey},
		{FamilyBased, "f2a", "F2A"},
	}
	for _, tc := range cases {
		got, err := ResolveCategory(tc.family, tc.label)
		if err != nil {
			t.Fatalf("ResolveCategory(%s, %q) error = %v", tc.family, tc.label, err)
		}
		if got.InternalKey != tc.want {
			t.Fatalf("ResolveCategory(%s, %q) = %q, want %q", tc.family, tc.label, got.InternalKey, tc.want)
		}
	}
	if _, err := ResolveCategory(FamilyBased, "EB2"); !IsConfigurationError(err) {
		t.Fatalf("expected configuration error for EB2 under family, got %v", err)
	}
}

func TestCategoryKeyMapIsTotal(t *testing.T) {
	for _, family := range Families {
		seen := map[string]bool{}
		for _, c := range Categories(family) {
			if c.InternalKey == "" {
				t.Fatalf("category %q has no internal key", c.Label)
			}
			if seen[c.Label] {
				t.Fatalf("duplicate label %q", c.Label)
			}
			seen[c.Label] = true
		}
	}
}

func TestCategoryKeyAliases(t *testing.T) {
	if CategoryKey("5th") != CategoryKey(eb5InternalKey) {
		t.Fatal("expected 5th to alias the unreserved EB5 key")
	}
	if CategoryKey("5th Unreserved (including C5, T5, I5, R5, NU, RU, RA)") != CategoryKey(eb5InternalKey) {
		t.Fatal("expected EB5 footnote variants to alias the unreserved EB5 key")
	}
}
